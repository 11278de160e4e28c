package httpapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"handsfree/internal/domain"
	"handsfree/internal/infra/httpapi"
)

type mockController struct {
	mu        sync.Mutex
	state     domain.CoordinatorState
	activated int
	cancelled int
}

func (m *mockController) Activate() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != domain.StateIdle {
		return false
	}
	m.activated++
	m.state = domain.StatePrompting
	return true
}

func (m *mockController) Cancel() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancelled++
	m.state = domain.StateIdle
}

func (m *mockController) Status() domain.Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return domain.Status{State: m.state, Dialogue: domain.IdleContext()}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(token string) (*httpapi.Server, *mockController, *httpapi.TranscriptRecognizer) {
	controller := &mockController{state: domain.StateIdle}
	transcripts := httpapi.NewTranscriptRecognizer(discardLogger())
	return httpapi.NewServer(":0", token, controller, transcripts, discardLogger()), controller, transcripts
}

func TestServer_Activate(t *testing.T) {
	server, controller, _ := newTestServer("")
	handler := server.Handler()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/activate", nil))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("first activate: got %d, want %d", rec.Code, http.StatusAccepted)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/activate", nil))
	if rec.Code != http.StatusConflict {
		t.Errorf("activate while busy: got %d, want %d", rec.Code, http.StatusConflict)
	}
	if controller.activated != 1 {
		t.Errorf("expected one activation, got %d", controller.activated)
	}
}

func TestServer_CancelAndStatus(t *testing.T) {
	server, controller, _ := newTestServer("")
	handler := server.Handler()
	controller.state = domain.StateListening

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/cancel", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("cancel: got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d", rec.Code)
	}

	var status domain.Status
	if err := json.NewDecoder(rec.Body).Decode(&status); err != nil {
		t.Fatalf("decoding status: %v", err)
	}
	if status.State != domain.StateIdle || status.Dialogue.Collecting != domain.CollectNone {
		t.Errorf("unexpected status %+v", status)
	}
	if controller.cancelled != 1 {
		t.Errorf("expected one cancel, got %d", controller.cancelled)
	}
}

func TestServer_TranscriptWithoutSession(t *testing.T) {
	server, _, _ := newTestServer("")

	rec := httptest.NewRecorder()
	body := strings.NewReader(`{"text":"call","is_final":true}`)
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/transcript", body))

	if rec.Code != http.StatusConflict {
		t.Errorf("got %d, want %d", rec.Code, http.StatusConflict)
	}
}

func TestServer_TranscriptDeliveredToSession(t *testing.T) {
	server, _, transcripts := newTestServer("")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stream, err := transcripts.Start(ctx)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	defer stream.Stop()

	received := make(chan domain.TranscriptEvent, 2)
	go func() {
		for event := range stream.Events() {
			received <- event
		}
	}()

	rec := httptest.NewRecorder()
	body := strings.NewReader(`{"text":"call","is_final":false}`)
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/transcript", body))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("transcript: got %d, want %d", rec.Code, http.StatusAccepted)
	}

	rec = httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/text", strings.NewReader("  call mom \n")))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("text: got %d, want %d", rec.Code, http.StatusAccepted)
	}

	want := []domain.TranscriptEvent{{Text: "call"}, {Text: "call mom", IsFinal: true}}
	for i, w := range want {
		select {
		case got := <-received:
			if got != w {
				t.Errorf("event %d: got %+v, want %+v", i, got, w)
			}
		case <-time.After(time.Second):
			t.Fatalf("timeout waiting for event %d", i)
		}
	}
}

func TestServer_BadTranscriptBodies(t *testing.T) {
	server, _, _ := newTestServer("")

	tests := []struct {
		name string
		path string
		body string
	}{
		{name: "invalid json", path: "/transcript", body: "{"},
		{name: "empty text", path: "/text", body: "   "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, tt.path, strings.NewReader(tt.body)))
			if rec.Code != http.StatusBadRequest {
				t.Errorf("got %d, want %d", rec.Code, http.StatusBadRequest)
			}
		})
	}
}

func TestServer_AuthToken(t *testing.T) {
	authToken := "test-secret-token-123"
	server, _, _ := newTestServer(authToken)
	handler := server.Handler()

	tests := []struct {
		name       string
		token      string
		method     string
		wantStatus int
	}{
		{name: "valid token in header", token: authToken, method: "header", wantStatus: http.StatusAccepted},
		{name: "valid token in query", token: authToken, method: "query", wantStatus: http.StatusConflict},
		{name: "invalid token", token: "wrong-token", method: "header", wantStatus: http.StatusUnauthorized},
		{name: "missing token", token: "", method: "header", wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req *http.Request
			if tt.method == "query" {
				req = httptest.NewRequest(http.MethodPost, "/activate?token="+tt.token, nil)
			} else {
				req = httptest.NewRequest(http.MethodPost, "/activate", nil)
				if tt.token != "" {
					req.Header.Set("X-Auth-Token", tt.token)
				}
			}

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status code: got %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status should not require a token, got %d", rec.Code)
	}
}

func TestServer_StartHealthStop(t *testing.T) {
	server, _, _ := newTestServer("")

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("health before start: got %d", rec.Code)
	}

	if err := server.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer server.Stop()

	resp, err := http.Get("http://" + server.Addr() + "/health")
	if err != nil {
		t.Fatalf("health request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("health: got %d", resp.StatusCode)
	}
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decoding health: %v", err)
	}
	if body["running"] != true || body["listening"] != false {
		t.Errorf("unexpected health body %v", body)
	}

	if err := server.Stop(); err != nil {
		t.Errorf("stop: %v", err)
	}
}

func TestServer_RateLimited(t *testing.T) {
	server, _, _ := newTestServer("")
	handler := server.Handler()

	var last int
	for i := 0; i < 61; i++ {
		req := httptest.NewRequest(http.MethodPost, "/cancel", bytes.NewReader(nil))
		req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		last = rec.Code
	}
	if last != http.StatusTooManyRequests {
		t.Errorf("61st request: got %d, want %d", last, http.StatusTooManyRequests)
	}
}

func TestServer_TranscriptStreamNotRateLimited(t *testing.T) {
	server, _, transcripts := newTestServer("secret")
	handler := server.Handler()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stream, err := transcripts.Start(ctx)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	defer stream.Stop()

	var received int
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		for range stream.Events() {
			received++
		}
	}()

	words := []string{}
	for i := 0; i < 70; i++ {
		words = append(words, "word")
		body, _ := json.Marshal(map[string]any{"text": strings.Join(words, " ")})
		req := httptest.NewRequest(http.MethodPost, "/transcript", bytes.NewReader(body))
		req.Header.Set("X-Auth-Token", "secret")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusAccepted {
			t.Fatalf("partial %d: got %d, want %d", i+1, rec.Code, http.StatusAccepted)
		}
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/text", strings.NewReader("done")))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("unauthenticated text: got %d, want %d", rec.Code, http.StatusUnauthorized)
	}

	stream.Stop()
	<-drained
	if received != 70 {
		t.Errorf("received %d events, want 70", received)
	}
}
