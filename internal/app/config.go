package app

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/lexcodex/promptforge/llm"
)

const (
	BackendGemini = "gemini"
	BackendOllama = "ollama"

	stateDirName = ".promptforge"
)

// Config captures every knob shared across the CLI, TUI and preview server.
type Config struct {
	Workspace   string
	StateDir    string
	LogPath     string
	ConfigPath  string
	TracePath   string
	HistoryPath string
	PreviewPath string
	EditorPath  string
	OutputDir   string
	// AutosavePath receives the editor buffer every AutosaveInterval.
	AutosavePath     string
	AutosaveInterval time.Duration

	Backend        string
	GeminiEndpoint string
	GeminiModel    string
	APIKey         string
	OllamaEndpoint string
	OllamaModel    string
	SelectedModel  string
	PreviewAddr    string
	Theme          string
	Debug          bool
}

// DefaultConfig infers defaults from the working directory, the user's home
// and the environment. Lookup errors fall back to relative paths.
func DefaultConfig() Config {
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}
	return Config{
		Workspace:        cwd,
		OutputDir:        defaultOutputDir(),
		AutosavePath:     filepath.Join(os.TempDir(), "autosave_code.txt"),
		AutosaveInterval: 60 * time.Second,
		Backend:          BackendGemini,
		GeminiModel:      "gemini-pro",
		APIKey:           os.Getenv("GOOGLE_API_KEY"),
		OllamaEndpoint:   os.Getenv("OLLAMA_HOST"),
		OllamaModel:      "codellama",
		SelectedModel:    llm.PrimaryModel,
		PreviewAddr:      "127.0.0.1:8765",
		Theme:            "light",
	}
}

func defaultOutputDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "generated"
	}
	return filepath.Join(home, "Desktop")
}

// Normalize makes every path absolute and fills missing defaults.
func (c *Config) Normalize() error {
	if c.Workspace == "" {
		return fmt.Errorf("workspace path required")
	}
	absWorkspace, err := filepath.Abs(c.Workspace)
	if err != nil {
		return fmt.Errorf("resolve workspace: %w", err)
	}
	c.Workspace = absWorkspace
	c.StateDir = c.resolve(c.StateDir, stateDirName)
	c.LogPath = c.resolve(c.LogPath, filepath.Join(stateDirName, "promptforge.log"))
	c.ConfigPath = c.resolve(c.ConfigPath, filepath.Join(stateDirName, "config.yaml"))
	c.TracePath = c.resolve(c.TracePath, filepath.Join(stateDirName, "trace.jsonl"))
	c.HistoryPath = c.resolve(c.HistoryPath, filepath.Join(stateDirName, "history.db"))
	c.PreviewPath = c.resolve(c.PreviewPath, filepath.Join(stateDirName, "preview.html"))
	c.EditorPath = c.resolve(c.EditorPath, filepath.Join(stateDirName, "editor.html"))
	c.OutputDir = c.resolve(c.OutputDir, "generated")
	if c.AutosavePath == "" {
		c.AutosavePath = filepath.Join(os.TempDir(), "autosave_code.txt")
	}
	if c.AutosaveInterval <= 0 {
		c.AutosaveInterval = 60 * time.Second
	}
	switch c.Backend {
	case "":
		c.Backend = BackendGemini
	case BackendGemini, BackendOllama:
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}
	if c.GeminiModel == "" {
		c.GeminiModel = "gemini-pro"
	}
	if c.OllamaEndpoint == "" {
		c.OllamaEndpoint = "http://localhost:11434"
	}
	if c.OllamaModel == "" {
		c.OllamaModel = "codellama"
	}
	if c.SelectedModel == "" {
		c.SelectedModel = llm.PrimaryModel
	}
	if c.PreviewAddr == "" {
		c.PreviewAddr = "127.0.0.1:8765"
	}
	if c.Theme == "" {
		c.Theme = "light"
	}
	return nil
}

func (c *Config) resolve(path, fallback string) string {
	if path == "" {
		path = fallback
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(c.Workspace, path)
	}
	return path
}

// WorkspaceConfig is the persisted subset of Config.
type WorkspaceConfig struct {
	Backend         string `yaml:"backend,omitempty"`
	Model           string `yaml:"model,omitempty"`
	OutputDir       string `yaml:"output_dir,omitempty"`
	OllamaEndpoint  string `yaml:"ollama_endpoint,omitempty"`
	OllamaModel     string `yaml:"ollama_model,omitempty"`
	PreviewAddr     string `yaml:"preview_addr,omitempty"`
	AutosaveSeconds int    `yaml:"autosave_seconds,omitempty"`
	Theme           string `yaml:"theme,omitempty"`
	LastUpdated     int64  `yaml:"last_updated,omitempty"`
}

// LoadWorkspaceConfig reads the yaml file at path.
func LoadWorkspaceConfig(path string) (WorkspaceConfig, error) {
	if path == "" {
		return WorkspaceConfig{}, fmt.Errorf("config path required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return WorkspaceConfig{}, err
	}
	var cfg WorkspaceConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return WorkspaceConfig{}, err
	}
	return cfg, nil
}

// SaveWorkspaceConfig writes cfg to path, stamping LastUpdated.
func SaveWorkspaceConfig(path string, cfg WorkspaceConfig) error {
	if path == "" {
		return fmt.Errorf("config path required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	cfg.LastUpdated = time.Now().Unix()
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Apply overlays the non-empty workspace values onto c. Flags already set by
// the caller should be applied after this.
func (w WorkspaceConfig) Apply(c *Config) {
	if w.Backend != "" {
		c.Backend = w.Backend
	}
	if w.Model != "" {
		c.SelectedModel = w.Model
	}
	if w.OutputDir != "" {
		c.OutputDir = w.OutputDir
	}
	if w.OllamaEndpoint != "" {
		c.OllamaEndpoint = w.OllamaEndpoint
	}
	if w.OllamaModel != "" {
		c.OllamaModel = w.OllamaModel
	}
	if w.PreviewAddr != "" {
		c.PreviewAddr = w.PreviewAddr
	}
	if w.AutosaveSeconds > 0 {
		c.AutosaveInterval = time.Duration(w.AutosaveSeconds) * time.Second
	}
	if w.Theme != "" {
		c.Theme = w.Theme
	}
}
