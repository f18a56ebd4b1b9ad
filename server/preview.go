package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/lexcodex/promptforge/framework/codeblock"
)

// PreviewServer renders the most recently published document over HTTP and
// mirrors it to a file on disk.
type PreviewServer struct {
	// Path, when set, receives a copy of every published document.
	Path   string
	Logger *log.Logger

	mu        sync.RWMutex
	document  string
	version   int
	updatedAt time.Time
}

// PreviewStatus describes the current document.
type PreviewStatus struct {
	Version   int       `json:"version"`
	Bytes     int       `json:"bytes"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewPreviewServer builds a server that mirrors documents to path.
func NewPreviewServer(path string, logger *log.Logger) *PreviewServer {
	return &PreviewServer{Path: path, Logger: logger}
}

// Publish replaces the current document. It satisfies codeblock.Publisher.
func (s *PreviewServer) Publish(document string) error {
	s.mu.Lock()
	s.document = document
	s.version++
	s.updatedAt = time.Now().UTC()
	s.mu.Unlock()
	if s.Path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(s.Path, []byte(document), 0o644)
}

// Document returns the current document, or a placeholder before the first
// publish.
func (s *PreviewServer) Document() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.version == 0 {
		return codeblock.AssembleFragments(codeblock.Fragments{})
	}
	return s.document
}

// Status reports version and size of the current document.
func (s *PreviewServer) Status() PreviewStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return PreviewStatus{Version: s.version, Bytes: len(s.document), UpdatedAt: s.updatedAt}
}

// Serve starts listening on the provided address.
func (s *PreviewServer) Serve(addr string) error {
	return s.ServeContext(context.Background(), addr)
}

// ServeContext allows the caller to control shutdown via context cancellation.
func (s *PreviewServer) ServeContext(ctx context.Context, addr string) error {
	server := s.newHTTPServer(addr)
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()
	if s.Logger != nil {
		s.Logger.Printf("preview listening on %s", addr)
	}
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// Handler exposes the routes for embedding or tests.
func (s *PreviewServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleDocument)
	mux.HandleFunc("/api/status", s.handleStatus)
	return mux
}

func (s *PreviewServer) newHTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func (s *PreviewServer) handleDocument(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	status := s.Status()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("ETag", fmt.Sprintf(`"%d"`, status.Version))
	_, _ = w.Write([]byte(s.Document()))
}

func (s *PreviewServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Status())
}

func writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
