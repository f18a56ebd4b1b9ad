package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lexcodex/promptforge/llm"
)

func TestConfigNormalizeResolvesPaths(t *testing.T) {
	ws := t.TempDir()
	cfg := Config{Workspace: ws, OutputDir: "out"}
	require.NoError(t, cfg.Normalize())

	require.Equal(t, filepath.Join(ws, ".promptforge"), cfg.StateDir)
	require.Equal(t, filepath.Join(ws, ".promptforge", "promptforge.log"), cfg.LogPath)
	require.Equal(t, filepath.Join(ws, ".promptforge", "editor.html"), cfg.EditorPath)
	require.Equal(t, filepath.Join(ws, "out"), cfg.OutputDir)
	require.Equal(t, BackendGemini, cfg.Backend)
	require.Equal(t, llm.PrimaryModel, cfg.SelectedModel)
	require.Equal(t, 60*time.Second, cfg.AutosaveInterval)
}

func TestConfigNormalizeRejectsUnknownBackend(t *testing.T) {
	cfg := Config{Workspace: t.TempDir(), Backend: "palm"}
	require.Error(t, cfg.Normalize())
	require.Error(t, (&Config{}).Normalize())
}

func TestWorkspaceConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".promptforge", "config.yaml")
	_, err := LoadWorkspaceConfig(path)
	require.ErrorIs(t, err, os.ErrNotExist)

	require.NoError(t, SaveWorkspaceConfig(path, WorkspaceConfig{
		Backend:         BackendOllama,
		Model:           "Claude",
		AutosaveSeconds: 5,
		Theme:           "dark",
	}))
	loaded, err := LoadWorkspaceConfig(path)
	require.NoError(t, err)
	require.NotZero(t, loaded.LastUpdated)

	cfg := DefaultConfig()
	loaded.Apply(&cfg)
	require.Equal(t, BackendOllama, cfg.Backend)
	require.Equal(t, "Claude", cfg.SelectedModel)
	require.Equal(t, 5*time.Second, cfg.AutosaveInterval)
	require.Equal(t, "dark", cfg.Theme)
}
