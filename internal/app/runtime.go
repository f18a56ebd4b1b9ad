package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	goruntime "runtime"
	"sync"
	"time"

	"github.com/lexcodex/promptforge/framework"
	"github.com/lexcodex/promptforge/framework/codeblock"
	"github.com/lexcodex/promptforge/framework/dispatch"
	"github.com/lexcodex/promptforge/llm"
	"github.com/lexcodex/promptforge/persistence"
	"github.com/lexcodex/promptforge/server"
)

// Options tweaks runtime construction.
type Options struct {
	// Primary overrides the provider built from Config.Backend.
	Primary llm.Provider
	// LogOutput receives a copy of the log alongside the log file.
	LogOutput io.Writer
}

// Runtime is the application context: it owns the worker pool, output
// queue, stores and logger shared by the CLI, TUI and preview server.
type Runtime struct {
	Config       Config
	Workspace    WorkspaceConfig
	Logger       *log.Logger
	Telemetry    framework.Telemetry
	Queue        *framework.OutputQueue
	Executor     *framework.SafeExecutor
	Catalog      *llm.Catalog
	Dispatcher   *dispatch.Dispatcher
	Materializer *codeblock.Materializer
	Preview      *server.PreviewServer
	History      persistence.HistoryStore
	Editor       *EditorBuffer

	logFile io.Closer
	trace   *framework.JSONFileTelemetry

	mu        sync.Mutex
	model     string
	closeOnce sync.Once
}

// New builds a runtime. A missing credential for the configured backend is
// an error so callers can abort before any UI is shown.
func New(cfg Config, opts Options) (*Runtime, error) {
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	var workspaceCfg WorkspaceConfig
	if loaded, err := LoadWorkspaceConfig(cfg.ConfigPath); err == nil {
		workspaceCfg = loaded
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load workspace config: %w", err)
	}

	for _, dir := range []string{cfg.StateDir, cfg.OutputDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("ensure dir %s: %w", dir, err)
		}
	}
	logFile, err := os.OpenFile(cfg.LogPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log: %w", err)
	}
	var out io.Writer = logFile
	if opts.LogOutput != nil {
		out = io.MultiWriter(opts.LogOutput, logFile)
	}
	logger := log.New(out, "promptforge ", log.LstdFlags|log.Lmicroseconds)

	primary := opts.Primary
	if primary == nil {
		primary, err = buildPrimary(cfg, logger)
		if err != nil {
			logFile.Close()
			return nil, err
		}
	}

	history, err := persistence.NewSQLiteHistoryStore(cfg.HistoryPath)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("history store: %w", err)
	}
	trace, err := framework.NewJSONFileTelemetry(cfg.TracePath)
	if err != nil {
		history.Close()
		logFile.Close()
		return nil, fmt.Errorf("trace file: %w", err)
	}
	telemetry := framework.MultiplexTelemetry{Sinks: []framework.Telemetry{
		framework.LoggerTelemetry{Logger: logger},
		trace,
		persistence.ActivityTelemetry{Store: history},
	}}

	editor, err := NewEditorBuffer(cfg.EditorPath)
	if err != nil {
		trace.Close()
		history.Close()
		logFile.Close()
		return nil, fmt.Errorf("editor buffer: %w", err)
	}

	catalog := llm.DefaultCatalog(llm.NewInstrumentedProvider(llm.PrimaryModel, primary, telemetry, cfg.Debug))
	if _, ok := catalog.Get(cfg.SelectedModel); !ok {
		logger.Printf("unknown model %q, using %s", cfg.SelectedModel, llm.PrimaryModel)
		cfg.SelectedModel = llm.PrimaryModel
	}

	queue := framework.NewOutputQueue()
	executor := framework.NewSafeExecutor(framework.NewCommandGate(), logger)
	executor.Workdir = cfg.OutputDir
	preview := server.NewPreviewServer(cfg.PreviewPath, logger)
	runner := &dispatch.ModelRunner{Catalog: catalog, Telemetry: telemetry, Logger: logger}

	rt := &Runtime{
		Config:     cfg,
		Workspace:  workspaceCfg,
		Logger:     logger,
		Telemetry:  telemetry,
		Queue:      queue,
		Executor:   executor,
		Catalog:    catalog,
		Dispatcher: dispatch.New(runner, dispatch.Options{Telemetry: telemetry, Logger: logger}),
		Materializer: &codeblock.Materializer{
			OutputDir: cfg.OutputDir,
			Executor:  executor,
			Queue:     queue,
			Publisher: preview,
			Telemetry: telemetry,
		},
		Preview: preview,
		History: history,
		Editor:  editor,
		logFile: logFile,
		trace:   trace,
		model:   cfg.SelectedModel,
	}
	framework.EmitActivity(telemetry, "Application started.")
	return rt, nil
}

func buildPrimary(cfg Config, logger *log.Logger) (llm.Provider, error) {
	switch cfg.Backend {
	case BackendOllama:
		client := llm.NewOllamaClient(cfg.OllamaEndpoint, cfg.OllamaModel)
		client.SetDebugLogging(cfg.Debug)
		logger.Printf("primary backend ollama model=%s endpoint=%s", cfg.OllamaModel, cfg.OllamaEndpoint)
		return client, nil
	default:
		client, err := llm.NewGeminiClient(cfg.GeminiEndpoint, cfg.GeminiModel, cfg.APIKey)
		if err != nil {
			return nil, err
		}
		client.SetDebugLogging(cfg.Debug)
		logger.Printf("primary backend gemini model=%s", cfg.GeminiModel)
		return client, nil
	}
}

// SelectedModel returns the model used for new generate tasks.
func (r *Runtime) SelectedModel() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.model
}

// SelectModel switches the model used for new generate tasks.
func (r *Runtime) SelectModel(name string) error {
	if _, ok := r.Catalog.Get(name); !ok {
		return &framework.ValidationError{Field: "model", Reason: fmt.Sprintf("unknown model %q", name)}
	}
	r.mu.Lock()
	r.model = name
	r.mu.Unlock()
	r.activity(fmt.Sprintf("Selected model changed to %s.", name))
	return nil
}

// SubmitPrompt validates prompt, records it in the history and schedules a
// generate task with the selected model.
func (r *Runtime) SubmitPrompt(ctx context.Context, prompt string) (dispatch.TaskHandle, error) {
	cleaned, err := framework.ValidatePrompt(prompt)
	if err != nil {
		return dispatch.TaskHandle{}, err
	}
	r.activity("Input validated.")
	if _, err := r.History.AppendPrompt(ctx, cleaned); err != nil {
		r.Logger.Printf("prompt history: %v", err)
	}
	return r.Dispatcher.Submit(dispatch.KindGenerate, dispatch.Payload{Prompt: cleaned, Model: r.SelectedModel()})
}

// SubmitModify schedules a code modification of the editor buffer.
func (r *Runtime) SubmitModify(instructions string) (dispatch.TaskHandle, error) {
	code := r.Editor.Code()
	if instructions == "" {
		return dispatch.TaskHandle{}, &framework.ValidationError{Field: "instructions", Reason: "modification instructions required"}
	}
	if code == "" {
		return dispatch.TaskHandle{}, &framework.ValidationError{Field: "code", Reason: "code editor is empty"}
	}
	return r.Dispatcher.Submit(dispatch.KindModifyCode, dispatch.Payload{Instructions: instructions, Code: code})
}

// HandleNotification runs the consumer-side handling of a task
// notification. It must only be called from the single consumer.
func (r *Runtime) HandleNotification(ctx context.Context, n dispatch.Notification) (codeblock.Outcome, error) {
	switch n.Kind {
	case dispatch.NotifyError:
		r.activity(n.Message)
		return codeblock.Outcome{}, nil
	case dispatch.NotifyResult:
	default:
		return codeblock.Outcome{}, nil
	}
	if n.TaskKind == dispatch.KindModifyCode {
		if err := r.Editor.Set(n.Payload); err != nil {
			return codeblock.Outcome{}, fmt.Errorf("update editor: %w", err)
		}
		r.activity("Code editor updated with modifications.")
		return codeblock.Outcome{}, r.ReloadPreview()
	}

	if n.Retried {
		r.activity(fmt.Sprintf("Selected model failed; falling back to %s.", n.Model))
	}
	r.activity(fmt.Sprintf("Generated content using %s.", n.Model))
	out, err := r.Materializer.Process(ctx, n.Payload)
	if out.HasDocument {
		if setErr := r.Editor.Set(out.Document); setErr != nil {
			err = errors.Join(err, fmt.Errorf("update editor: %w", setErr))
		} else {
			r.activity("Code editor updated with generated web code.")
		}
	}
	return out, err
}

// ReloadPreview publishes the editor buffer, wrapping non-document code.
func (r *Runtime) ReloadPreview() error {
	doc := codeblock.WrapEditorBuffer(r.Editor.Code())
	if doc == "" {
		return &framework.ValidationError{Field: "code", Reason: "code editor is empty"}
	}
	if err := r.Preview.Publish(doc); err != nil {
		return fmt.Errorf("publish preview: %w", err)
	}
	r.activity("Live preview updated with edited code.")
	return nil
}

// Autosave copies the editor buffer to the autosave path. It returns "" when
// there was nothing to save.
func (r *Runtime) Autosave() (string, error) {
	saved, err := r.Editor.SaveTo(r.Config.AutosavePath)
	if err != nil {
		return "", fmt.Errorf("autosave: %w", err)
	}
	if !saved {
		return "", nil
	}
	r.activity(fmt.Sprintf("Code auto-saved to %s.", r.Config.AutosavePath))
	return r.Config.AutosavePath, nil
}

// Exec runs a user command through the gate, streaming into the queue.
func (r *Runtime) Exec(ctx context.Context, command string) (*framework.Execution, error) {
	exe, err := r.Executor.Run(ctx, command, r.Queue)
	if err != nil {
		var secErr *framework.SecurityError
		if errors.As(err, &secErr) {
			r.Telemetry.Emit(framework.Event{Type: framework.EventCommandBlocked, Message: err.Error(), Timestamp: time.Now().UTC(), Metadata: map[string]interface{}{"command": command}})
		}
		return nil, err
	}
	r.activity(fmt.Sprintf("Command executed: %s", command))
	return exe, nil
}

// RunExternally saves the editor buffer as a python script and opens it in
// a terminal window.
func (r *Runtime) RunExternally() (string, error) {
	code := r.Editor.Code()
	if code == "" {
		return "", &framework.ValidationError{Field: "code", Reason: "code editor is empty"}
	}
	f, err := os.CreateTemp("", "promptforge-*.py")
	if err != nil {
		return "", err
	}
	path := f.Name()
	if _, err := f.WriteString(code); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	r.activity(fmt.Sprintf("Python code saved to temporary file: %s", path))
	command, err := framework.ExternalLaunchCommand(goruntime.GOOS, path)
	if err != nil {
		return path, err
	}
	if err := r.Executor.Launch(command); err != nil {
		return path, err
	}
	return path, nil
}

// ExportActivity writes the activity log to path.
func (r *Runtime) ExportActivity(ctx context.Context, path string) error {
	if err := r.History.ExportActivity(ctx, path); err != nil {
		return err
	}
	r.Logger.Printf("activity exported to %s", path)
	return nil
}

// SaveWorkspace persists model and theme choices.
func (r *Runtime) SaveWorkspace(theme string) error {
	r.Workspace.Model = r.SelectedModel()
	if theme != "" {
		r.Workspace.Theme = theme
	}
	return SaveWorkspaceConfig(r.Config.ConfigPath, r.Workspace)
}

// StartAutosave saves the editor buffer every AutosaveInterval until ctx is
// done.
func (r *Runtime) StartAutosave(ctx context.Context) {
	ticker := time.NewTicker(r.Config.AutosaveInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := r.Autosave(); err != nil {
					r.Logger.Printf("%v", err)
				}
			}
		}
	}()
}

// StartWatcher reloads the preview when the editor file changes on disk.
func (r *Runtime) StartWatcher(ctx context.Context) {
	w := &EditorWatcher{
		Path:   r.Config.EditorPath,
		Logger: r.Logger,
		OnChange: func(content string) {
			if !r.Editor.Sync(content) {
				return
			}
			if err := r.ReloadPreview(); err != nil {
				r.Logger.Printf("reload preview: %v", err)
				return
			}
			r.Queue.Push(codeblock.PreviewUpdatedLine)
		},
	}
	go func() {
		if err := w.Run(ctx); err != nil {
			r.Logger.Printf("editor watcher stopped: %v", err)
		}
	}()
}

// StartPreview serves the preview until ctx is done.
func (r *Runtime) StartPreview(ctx context.Context) {
	go func() {
		if err := r.Preview.ServeContext(ctx, r.Config.PreviewAddr); err != nil && !errors.Is(err, context.Canceled) {
			r.Logger.Printf("preview server: %v", err)
		}
	}()
}

// PreviewURL is the address the preview server listens on.
func (r *Runtime) PreviewURL() string {
	return "http://" + r.Config.PreviewAddr + "/"
}

func (r *Runtime) activity(msg string) {
	framework.EmitActivity(r.Telemetry, msg)
}

// Close shuts the pool down without waiting and releases the queue, stores
// and log file.
func (r *Runtime) Close() error {
	var errs []error
	r.closeOnce.Do(func() {
		r.Dispatcher.Shutdown()
		r.Queue.Close()
		if r.History != nil {
			errs = append(errs, r.History.Close())
		}
		if r.trace != nil {
			errs = append(errs, r.trace.Close())
		}
		if r.logFile != nil {
			errs = append(errs, r.logFile.Close())
		}
	})
	return errors.Join(errs...)
}
