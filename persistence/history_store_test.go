package persistence

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lexcodex/promptforge/framework"
)

func newTestStore(t *testing.T) *SQLiteHistoryStore {
	t.Helper()
	store, err := NewSQLiteHistoryStore(filepath.Join(t.TempDir(), "state", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestHistoryStoreDeduplicatesConsecutivePrompts(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	for _, p := range []string{"build a landing page", "build a landing page", "add a footer", "build a landing page", ""} {
		_, err := store.AppendPrompt(ctx, p)
		require.NoError(t, err)
	}
	prompts, err := store.Prompts(ctx, 0)
	require.NoError(t, err)
	require.Equal(t, []string{"build a landing page", "add a footer", "build a landing page"}, prompts)

	recent, err := store.Prompts(ctx, 2)
	require.NoError(t, err)
	require.Equal(t, []string{"add a footer", "build a landing page"}, recent)
}

func TestHistoryStoreExportActivity(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	fixed := time.Date(2024, 5, 1, 12, 30, 0, 0, time.Local)
	store.now = func() time.Time { return fixed }

	framework.EmitActivity(ActivityTelemetry{Store: store}, "Application started.")
	ActivityTelemetry{Store: store}.Emit(framework.Event{Type: framework.EventTaskStarted, Message: "ignored"})
	require.NoError(t, store.LogActivity(ctx, "Selected model changed to Claude."))

	entries, err := store.Activity(ctx, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	out := filepath.Join(t.TempDir(), "logs", "activity.txt")
	require.NoError(t, store.ExportActivity(ctx, out))
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	lines := strings.Split(string(data), "\n")
	require.Equal(t, []string{
		"[2024-05-01 12:30:00] Application started.",
		"[2024-05-01 12:30:00] Selected model changed to Claude.",
	}, lines)
}
