package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/casualjim/tickertape/events"
	"github.com/casualjim/tickertape/internal/broker"
	"github.com/casualjim/tickertape/internal/executor"
	"github.com/casualjim/tickertape/internal/hub"
	"github.com/casualjim/tickertape/pkg/slogx"
	json "github.com/goccy/go-json"
	"golang.org/x/time/rate"
)

const (
	// DefaultKeepAlive is the interval between SSE keepalive comments.
	DefaultKeepAlive = 15 * time.Second

	maxBodyBytes = 64 << 10
)

// Deps holds the collaborators of the HTTP API.
type Deps struct {
	// Hub feeds the SSE stream and the recent log listing.
	Hub *hub.Hub
	// Sink receives published logs and resets. Defaults to Hub.
	Sink broker.Sink
	// Runner answers analysis questions.
	Runner executor.Runner
	// Limiter throttles /api/analyze. Nil disables throttling.
	Limiter   *rate.Limiter
	KeepAlive time.Duration
}

// Server serves the analysis and log endpoints.
type Server struct {
	deps   Deps
	logger *slog.Logger
}

// New creates a Server.
func New(deps Deps) (*Server, error) {
	var errs []error
	if deps.Hub == nil {
		errs = append(errs, errors.New("server: hub is required"))
	}
	if deps.Runner == nil {
		errs = append(errs, errors.New("server: runner is required"))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	if deps.Sink == nil {
		deps.Sink = deps.Hub
	}
	if deps.KeepAlive <= 0 {
		deps.KeepAlive = DefaultKeepAlive
	}

	return &Server{
		deps:   deps,
		logger: slog.Default().With(slogx.LoggerName("tickertape.server")),
	}, nil
}

// Handler returns the HTTP handler for the API routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/analyze", s.handleAnalyze)

	mux.HandleFunc("GET /api/logs", s.handleStream)
	mux.HandleFunc("POST /api/logs", s.handlePublish)
	mux.HandleFunc("DELETE /api/logs", s.handleReset)
	mux.HandleFunc("POST /api/logs/reset", s.handleConversationReset)
	mux.HandleFunc("GET /api/logs/recent", s.handleRecent)

	return mux
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if s.deps.Limiter != nil && !s.deps.Limiter.Allow() {
		writeError(w, http.StatusTooManyRequests, "too many analysis requests, try again later")
		return
	}

	var body struct {
		Question string `json:"question"`
	}
	if err := decodeBody(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err))
		return
	}
	if strings.TrimSpace(body.Question) == "" {
		writeError(w, http.StatusBadRequest, "question is required")
		return
	}

	// A client that goes away does not abort a running analysis.
	ctx := context.WithoutCancel(r.Context())
	start := time.Now()

	response, err := s.deps.Runner.Run(ctx, body.Question)
	if err != nil {
		s.logger.ErrorContext(ctx, "analysis request failed", slogx.Error(err), slogx.Elapsed(start))
		writeError(w, http.StatusInternalServerError, "Failed to analyze the company: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"response": response})
}

func (s *Server) handlePublish(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	}
	if err := decodeBody(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err))
		return
	}
	kind, err := events.ParseKind(body.Type)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if body.Message == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	s.deps.Sink.Publish(r.Context(), events.New(kind, body.Message).Stamped(time.Now()))
	writeText(w, http.StatusOK, "OK")
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.deps.Sink.Reset(r.Context())
	writeText(w, http.StatusOK, "OK")
}

func (s *Server) handleConversationReset(w http.ResponseWriter, r *http.Request) {
	s.deps.Sink.Reset(r.Context())
	s.deps.Sink.Publish(r.Context(), events.Info("Conversation reset").Stamped(time.Now()))
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleRecent(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Hub.Recent())
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = fmt.Fprint(w, body)
}
