package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/vjranagit/exacorona-plot/pkg/storage"
	"github.com/vjranagit/exacorona-plot/pkg/types"
)

// Server serves a rendered report to a local browser
type Server struct {
	addr    string
	png     []byte
	series  []types.Series
	storage storage.Storage
	logger  *zap.Logger
	server  *http.Server
}

// NewServer creates a viewer for one rendered chart. store may be nil when
// no archive is configured.
func NewServer(addr string, png []byte, series []types.Series, store storage.Storage, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		addr:    addr,
		png:     png,
		series:  series,
		storage: store,
		logger:  logger,
	}
}

// Handler returns the HTTP handler of the viewer
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/", s.handleChart)
	mux.HandleFunc("/exacorona.png", s.handleChart)
	mux.HandleFunc("/api/v1/series", s.handleSeries)
	mux.HandleFunc("/api/v1/runs", s.handleRuns)
	mux.HandleFunc("/health", s.handleHealth)

	return mux
}

// Serve listens on the configured address and blocks until ctx is done,
// then shuts the server down within timeout.
func (s *Server) Serve(ctx context.Context, timeout time.Duration) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}

	s.server = &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	s.logger.Info("viewer listening", zap.String("url", "http://"+ln.Addr().String()+"/"))

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.server.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := s.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down viewer: %w", err)
	}
	s.logger.Info("viewer stopped")

	return nil
}

// Stop stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" && r.URL.Path != "/exacorona.png" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(s.png)
}

// handleSeries returns the plotted series, or an archived run with ?run=
func (s *Server) handleSeries(w http.ResponseWriter, r *http.Request) {
	run := r.URL.Query().Get("run")
	if run == "" {
		writeJSON(w, s.series)
		return
	}

	if s.storage == nil {
		http.Error(w, "No archive configured", http.StatusNotFound)
		return
	}

	series, err := s.storage.Read(r.Context(), run)
	if errors.Is(err, storage.ErrRunNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if err != nil {
		s.logger.Error("archive read failed", zap.String("run", run), zap.Error(err))
		http.Error(w, fmt.Sprintf("Read failed: %v", err), http.StatusInternalServerError)
		return
	}

	writeJSON(w, series)
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if s.storage == nil {
		writeJSON(w, []string{})
		return
	}

	runs, err := s.storage.Runs(r.Context())
	if err != nil {
		http.Error(w, fmt.Sprintf("List failed: %v", err), http.StatusInternalServerError)
		return
	}

	writeJSON(w, runs)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{
		"status": "healthy",
	})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
