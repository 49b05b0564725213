// Package httpapi exposes the planner over HTTP: a synchronous chat
// endpoint, a streamed variant speaking Server-Sent Events, and session
// management, all behind bearer-token authentication and a per-client
// rate gate.
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/roamkit/roamkit/internal/logging"
	"github.com/roamkit/roamkit/pkg/domain"
	"github.com/roamkit/roamkit/pkg/gate"
	"github.com/roamkit/roamkit/pkg/orchestrator"
	"github.com/roamkit/roamkit/pkg/ports"
	"github.com/roamkit/roamkit/pkg/stream"
)

// Server wires the orchestration core to HTTP.
type Server struct {
	orch     *orchestrator.Orchestrator
	gate     *gate.Gate
	verifier ports.TokenVerifier

	logger         *slog.Logger
	allowedOrigins string
}

// Option configures the Server.
type Option func(*Server)

// WithLogger configures a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithAllowedOrigins sets the CORS allow-list ("*" by default).
func WithAllowedOrigins(origins string) Option {
	return func(s *Server) {
		if origins != "" {
			s.allowedOrigins = origins
		}
	}
}

// NewServer creates the HTTP server over the orchestrator, gate and
// token verifier.
func NewServer(orch *orchestrator.Orchestrator, g *gate.Gate, verifier ports.TokenVerifier, opts ...Option) *Server {
	s := &Server{
		orch:           orch,
		gate:           g,
		verifier:       verifier,
		logger:         logging.NewNop(),
		allowedOrigins: "*",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler builds the route tree.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Get("/health", s.health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(s.authenticate)
		r.Post("/chat", s.chat)
		r.Post("/chat/stream", s.chatStream)
		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", s.createSession)
			r.Get("/{sessionID}", s.getSession)
			r.Delete("/{sessionID}", s.deleteSession)
		})
	})

	return s.cors(r)
}

type chatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
}

type chatResponse struct {
	Response  string              `json:"response"`
	SessionID string              `json:"session_id"`
	Phase     domain.Phase        `json:"phase,omitempty"`
	UI        *domain.UIDirective `json:"ui,omitempty"`
}

type sessionResponse struct {
	SessionID string            `json:"session_id"`
	Phase     domain.Phase      `json:"phase"`
	State     *domain.TripState `json:"state"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// chat handles the synchronous turn: the stream is collected in memory
// and the terminal frame becomes the response body.
func (s *Server) chat(w http.ResponseWriter, r *http.Request) {
	req, userID, ok := s.beginTurn(w, r)
	if !ok {
		return
	}

	collector := &stream.Collector{}
	emitter := stream.New(collector, stream.WithLogger(s.logger))

	result, err := s.orch.Turn(r.Context(), orchestrator.TurnInput{
		SessionID: req.SessionID,
		Message:   req.Message,
	}, emitter)
	if err != nil {
		s.writeError(w, err)
		return
	}

	if terminal, ok := collector.Terminal(); ok && terminal.Type == domain.EventError {
		s.logger.Warn("turn failed", "session", req.SessionID, "user", userID)
		s.writeJSON(w, http.StatusBadGateway, errorResponse{Error: terminal.Message})
		return
	}

	s.writeJSON(w, http.StatusOK, chatResponse{
		Response:  result.Response,
		SessionID: result.SessionID,
		Phase:     result.Phase,
		UI:        result.UI,
	})
}

// chatStream handles the streamed turn over Server-Sent Events.
func (s *Server) chatStream(w http.ResponseWriter, r *http.Request) {
	req, _, ok := s.beginTurn(w, r)
	if !ok {
		return
	}

	sink, err := stream.NewSSESink(w)
	if err != nil {
		s.writeError(w, err)
		return
	}
	emitter := stream.New(sink, stream.WithLogger(s.logger))

	if _, err := s.orch.Turn(r.Context(), orchestrator.TurnInput{
		SessionID: req.SessionID,
		Message:   req.Message,
	}, emitter); err != nil && !emitter.Terminated() {
		// Pre-stage failures after headers went out can only be reported
		// in-band.
		emitter.Emit(domain.ErrorEvent(plainMessage(err)))
	}
}

// beginTurn decodes the body, enforces the rate gate and session
// ownership, and allocates a session ID for first-contact messages.
func (s *Server) beginTurn(w http.ResponseWriter, r *http.Request) (chatRequest, string, bool) {
	userID := userFrom(r)

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, fmt.Errorf("%w: bad request body", domain.ErrValidation))
		return req, userID, false
	}
	if strings.TrimSpace(req.Message) == "" {
		s.writeError(w, fmt.Errorf("%w: message must not be empty", domain.ErrValidation))
		return req, userID, false
	}

	if err := s.gate.RateCheck(userID); err != nil {
		s.writeError(w, err)
		return req, userID, false
	}

	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}
	if err := s.gate.Authorize(r.Context(), userID, req.SessionID); err != nil {
		s.writeError(w, err)
		return req, userID, false
	}
	return req, userID, true
}

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	userID := userFrom(r)

	sessionID, err := s.orch.CreateSession(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.gate.Authorize(r.Context(), userID, sessionID); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, map[string]string{"session_id": sessionID})
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if err := s.gate.Authorize(r.Context(), userFrom(r), sessionID); err != nil {
		s.writeError(w, err)
		return
	}

	state, err := s.orch.State(r.Context(), sessionID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, sessionResponse{
		SessionID: sessionID,
		Phase:     state.Phase,
		State:     state,
	})
}

func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if err := s.gate.Authorize(r.Context(), userFrom(r), sessionID); err != nil {
		s.writeError(w, err)
		return
	}

	if err := s.orch.DeleteSession(r.Context(), sessionID); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Warn("response write failed", "err", err)
	}
}

// writeError maps the error taxonomy to HTTP statuses. The body carries
// a plain message, never the internal error kind.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var rle *domain.RateLimitError
	switch {
	case errors.Is(err, domain.ErrAuth):
		s.writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "Sign in to continue."})
	case errors.Is(err, domain.ErrOwnership), errors.Is(err, domain.ErrOwnershipConflict):
		s.writeJSON(w, http.StatusForbidden, errorResponse{Error: "This session belongs to another user."})
	case errors.As(err, &rle):
		w.Header().Set("Retry-After", fmt.Sprintf("%d", int(rle.RetryAfter.Seconds())+1))
		s.writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "Too many requests. Please slow down."})
	case errors.Is(err, domain.ErrValidation):
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "The request is malformed."})
	case errors.Is(err, domain.ErrTurnInFlight):
		s.writeJSON(w, http.StatusConflict, errorResponse{Error: "Hold on, I'm still working on your last message."})
	case errors.Is(err, domain.ErrSessionNotFound):
		s.writeJSON(w, http.StatusNotFound, errorResponse{Error: "Session not found."})
	default:
		s.logger.Error("request failed", "err", err)
		s.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Something went wrong. Please try again."})
	}
}

func plainMessage(err error) string {
	if errors.Is(err, domain.ErrTurnInFlight) {
		return "Hold on, I'm still working on your last message."
	}
	return "Something went wrong. Please try again."
}

func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", s.allowedOrigins)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
