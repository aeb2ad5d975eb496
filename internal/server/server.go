package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/zombor/ocr-extract/internal/extraction"
	"github.com/zombor/ocr-extract/internal/history"
)

// DefaultMaxBodyBytes bounds a request body. Payloads arrive base64 encoded.
const DefaultMaxBodyBytes = 25 << 20

// Extractor runs a single extraction
type Extractor interface {
	Extract(ctx context.Context, req *extraction.Request) (*extraction.Result, error)
}

// Server handles HTTP requests for document extraction
type Server struct {
	extractor    Extractor
	history      *history.Service
	maxBodyBytes int64
	mux          *http.ServeMux
}

// NewServer creates a new Server with default mux. hist may be nil, which disables the history routes.
func NewServer(extractor Extractor, hist *history.Service, maxBodyBytes int64) *Server {
	return NewServerWithMux(extractor, hist, maxBodyBytes, http.NewServeMux())
}

// NewServerWithMux creates a new Server with a custom mux for testing
func NewServerWithMux(extractor Extractor, hist *history.Service, maxBodyBytes int64, mux *http.ServeMux) *Server {
	if maxBodyBytes <= 0 {
		maxBodyBytes = DefaultMaxBodyBytes
	}
	s := &Server{
		extractor:    extractor,
		history:      hist,
		maxBodyBytes: maxBodyBytes,
		mux:          mux,
	}
	s.registerRoutes()
	return s
}

// corsMiddleware adds CORS headers to every response and answers preflight requests
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		setCORSHeaders(w)

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Headers", "authorization, x-client-info, apikey, content-type")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
}

// registerRoutes registers all API routes on the server's mux
func (s *Server) registerRoutes() {
	s.mux.HandleFunc("POST /api/extract", s.handleExtract)

	if s.history == nil {
		return
	}
	s.mux.HandleFunc("GET /api/results/{id}/file", s.handleGetResultFile)
	s.mux.HandleFunc("GET /api/results/{id}", s.handleGetResult)
	s.mux.HandleFunc("DELETE /api/results/{id}", s.handleDeleteResult)
	s.mux.HandleFunc("GET /api/results", s.handleListResults)
	s.mux.HandleFunc("GET /api/failures", s.handleListFailures)
	s.mux.HandleFunc("GET /api/statistics", s.handleStatistics)
	s.mux.HandleFunc("GET /api/export", s.handleExport)
}

// Start serves until ctx is cancelled, then drains in-flight requests
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Starting server", "address", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	corsMiddleware(s.mux).ServeHTTP(w, r)
}
