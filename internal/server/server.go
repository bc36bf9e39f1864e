// Package server exposes the claim pipeline over HTTP: one endpoint that
// accepts a raw claim submission and returns the terminal claim record.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/claimgate/internal/model"
	"github.com/ppiankov/claimgate/internal/pipeline"
)

// maxClaimBody bounds the request body; claim submissions are small
const maxClaimBody = 1 << 20

// Auditor records terminal claim records to the observability sink
type Auditor interface {
	RecordDecision(rec *model.ClaimRecord, provider, llmModel string) error
}

// Server is the HTTP entry point for claim processing
type Server struct {
	pipe    *pipeline.Pipeline
	auditor Auditor
	cfg     model.ServerConfig
	logger  *zap.Logger
	mux     *http.ServeMux
	srv     *http.Server
}

// New creates a server around the given pipeline; auditor may be nil
func New(pipe *pipeline.Pipeline, auditor Auditor, cfg model.ServerConfig, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		pipe:    pipe,
		auditor: auditor,
		cfg:     cfg,
		logger:  logger,
		mux:     http.NewServeMux(),
	}
	s.routes()
	return s
}

// ListenAndServe starts serving on the configured address
func (s *Server) ListenAndServe() error {
	s.srv = &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       s.cfg.ReadTimeout,
		WriteTimeout:      s.cfg.WriteTimeout,
		IdleTimeout:       2 * time.Minute,
	}
	s.logger.Info("http server listening", zap.String("addr", s.cfg.Addr))
	return s.srv.ListenAndServe()
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

// Handler exposes the mux for tests
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", s.handleHealth)
	s.mux.HandleFunc("/v1/claims", s.handleClaims)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":   "ok",
		"provider": s.pipe.ProviderName(),
	})
}

// handleClaims runs one claim through the pipeline. The response is always
// the full record: parse or validation problems surface as a terminal
// INVALID decision, not as an HTTP error. Only a malformed request body or
// a state misuse is an HTTP-level failure.
func (s *Server) handleClaims(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxClaimBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}
	if !json.Valid(body) {
		writeError(w, http.StatusBadRequest, "request body must be a JSON claim submission")
		return
	}

	rec, err := s.pipe.Process(r.Context(), string(body))
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			// Client went away; the partial record is discarded
			s.logger.Warn("claim run cancelled", zap.Error(err))
			return
		}
		s.logger.Error("claim run failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "claim processing failed")
		return
	}

	if s.auditor != nil {
		if err := s.auditor.RecordDecision(rec, s.pipe.ProviderName(), s.pipe.ModelName()); err != nil {
			s.logger.Warn("audit write failed", zap.Error(err))
		}
	}

	writeJSON(w, http.StatusOK, rec)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
