package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"handsfree/internal/domain"
)

// Controller is the part of the coordinator exposed over HTTP.
type Controller interface {
	Activate() bool
	Cancel()
	Status() domain.Status
}

// Server serves the control endpoints and, when a TranscriptRecognizer is
// attached, the transcript ingress.
type Server struct {
	addr        string
	authToken   string
	controller  Controller
	transcripts *TranscriptRecognizer
	logger      *slog.Logger

	mux         *http.ServeMux
	rateLimiter *RateLimiter

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
	running  bool
}

func NewServer(addr, authToken string, controller Controller, transcripts *TranscriptRecognizer, logger *slog.Logger) *Server {
	s := &Server{
		addr:        addr,
		authToken:   authToken,
		controller:  controller,
		transcripts: transcripts,
		logger:      logger,
		mux:         http.NewServeMux(),
		rateLimiter: NewRateLimiter(60, time.Minute),
	}

	s.mux.HandleFunc("POST /activate", s.protect(s.handleActivate))
	s.mux.HandleFunc("POST /cancel", s.protect(s.handleCancel))
	s.mux.HandleFunc("POST /transcript", s.authorize(s.handleTranscript))
	s.mux.HandleFunc("POST /text", s.authorize(s.handleText))
	s.mux.HandleFunc("GET /status", s.handleStatus)
	s.mux.HandleFunc("GET /health", s.handleHealth)
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

// Addr returns the bound address once started.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

func (s *Server) Start(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.addr, err)
	}

	s.listener = listener
	s.server = &http.Server{
		Handler:      s.mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		s.logger.Info("HTTP control server starting", "addr", listener.Addr().String())
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server error", "error", err)
		}
	}()

	s.running = true
	return nil
}

func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	s.running = false

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.server.Shutdown(ctx); err != nil {
		s.logger.Warn("graceful shutdown failed, forcing close", "error", err)
		if err := s.server.Close(); err != nil {
			return fmt.Errorf("closing server: %w", err)
		}
	}
	return nil
}

// protect applies rate limiting on top of authorize. Transcript ingress only
// uses authorize: a session streams one request per partial.
func (s *Server) protect(next http.HandlerFunc) http.HandlerFunc {
	return s.rateLimiter.Middleware(s.authorize(next))
}

// authorize checks the auth token, when configured, from the X-Auth-Token
// header or the token query parameter.
func (s *Server) authorize(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.authToken != "" {
			token := r.Header.Get("X-Auth-Token")
			if token == "" {
				token = r.URL.Query().Get("token")
			}
			if token != s.authToken {
				s.logger.Warn("unauthorized request", "path", r.URL.Path, "remote_addr", r.RemoteAddr)
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}
		next(w, r)
	}
}

func (s *Server) handleActivate(w http.ResponseWriter, r *http.Request) {
	if !s.controller.Activate() {
		writeJSON(w, http.StatusConflict, map[string]any{"status": "busy", "state": s.controller.Status().State})
		return
	}
	s.logger.Info("activation requested over HTTP")
	writeJSON(w, http.StatusAccepted, map[string]any{"status": "activated"})
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	s.controller.Cancel()
	writeJSON(w, http.StatusOK, map[string]any{"status": "cancelled"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.controller.Status())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	running := s.running
	s.mu.Unlock()

	status := "ok"
	code := http.StatusOK
	if !running {
		status = "not_ready"
		code = http.StatusServiceUnavailable
	}

	listening := false
	if s.transcripts != nil {
		listening = s.transcripts.Listening()
	}
	writeJSON(w, code, map[string]any{"status": status, "running": running, "listening": listening})
}

type transcriptRequest struct {
	Text    string `json:"text"`
	IsFinal bool   `json:"is_final"`
}

func (s *Server) handleTranscript(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var req transcriptRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 4096)).Decode(&req); err != nil {
		http.Error(w, "invalid transcript body", http.StatusBadRequest)
		return
	}
	s.deliver(w, r, domain.TranscriptEvent{Text: req.Text, IsFinal: req.IsFinal})
}

// handleText takes a plain-text body as a complete utterance.
func (s *Server) handleText(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	data, err := io.ReadAll(io.LimitReader(r.Body, 1024))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	text := strings.TrimSpace(string(data))
	if text == "" {
		http.Error(w, "empty text", http.StatusBadRequest)
		return
	}
	s.deliver(w, r, domain.TranscriptEvent{Text: text, IsFinal: true})
}

func (s *Server) deliver(w http.ResponseWriter, r *http.Request, event domain.TranscriptEvent) {
	if s.transcripts == nil {
		http.Error(w, "transcript ingress disabled", http.StatusNotFound)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := s.transcripts.Deliver(ctx, event); err != nil {
		if errors.Is(err, ErrNotListening) {
			http.Error(w, "not listening", http.StatusConflict)
			return
		}
		http.Error(w, "transcript not consumed", http.StatusServiceUnavailable)
		return
	}

	s.logger.Info("received transcript via HTTP", "text", event.Text, "final", event.IsFinal)
	writeJSON(w, http.StatusAccepted, map[string]any{"status": "received", "text": event.Text})
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
