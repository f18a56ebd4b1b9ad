package app

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
)

// EditorBuffer is the code editor pane: the last generated document or
// modified code, mirrored to a file so it can be edited outside the TUI.
type EditorBuffer struct {
	Path string

	mu   sync.RWMutex
	code string
}

// NewEditorBuffer loads path if it exists.
func NewEditorBuffer(path string) (*EditorBuffer, error) {
	b := &EditorBuffer{Path: path}
	if path == "" {
		return b, nil
	}
	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	b.code = string(data)
	return b, nil
}

// Code returns the current buffer.
func (b *EditorBuffer) Code() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.code
}

// Set replaces the buffer and writes it through to Path.
func (b *EditorBuffer) Set(code string) error {
	b.mu.Lock()
	b.code = code
	b.mu.Unlock()
	if b.Path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(b.Path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(b.Path, []byte(code), 0o644)
}

// Sync adopts content read from disk. It reports whether the buffer changed.
func (b *EditorBuffer) Sync(content string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if content == b.code {
		return false
	}
	b.code = content
	return true
}

// SaveTo copies the buffer to path. An empty buffer is not written.
func (b *EditorBuffer) SaveTo(path string) (bool, error) {
	code := b.Code()
	if code == "" {
		return false, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, err
	}
	if err := os.WriteFile(path, []byte(code), 0o644); err != nil {
		return false, err
	}
	return true, nil
}
