package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"handsfree/internal/application"
	"handsfree/internal/domain"
	"handsfree/internal/infra/speech"
)

var ErrNotListening = errors.New("no listening session is open")

// TranscriptRecognizer is a Recognizer fed by POST /transcript and /text.
// Each session is a fresh feed; deliveries while no session is open are
// rejected.
type TranscriptRecognizer struct {
	logger *slog.Logger

	mu     sync.Mutex
	active *speech.Feed
}

func NewTranscriptRecognizer(logger *slog.Logger) *TranscriptRecognizer {
	return &TranscriptRecognizer{logger: logger}
}

func (t *TranscriptRecognizer) Name() string {
	return "http"
}

func (t *TranscriptRecognizer) Start(ctx context.Context) (application.TranscriptStream, error) {
	feed := speech.NewFeed()

	t.mu.Lock()
	previous := t.active
	t.active = feed
	t.mu.Unlock()

	if previous != nil {
		previous.Halt()
	}

	go func() {
		select {
		case <-ctx.Done():
			feed.Halt()
		case <-feed.Done():
		}
		t.release(feed)
	}()

	return feed, nil
}

// Listening reports whether a session is waiting for transcripts.
func (t *TranscriptRecognizer) Listening() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.active != nil
}

// Deliver hands event to the open session. It blocks until the session
// consumes it or ends.
func (t *TranscriptRecognizer) Deliver(ctx context.Context, event domain.TranscriptEvent) error {
	t.mu.Lock()
	feed := t.active
	t.mu.Unlock()

	if feed == nil {
		return ErrNotListening
	}
	if !feed.Emit(ctx, event) {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrNotListening
	}

	t.logger.Debug("transcript delivered", "text", event.Text, "final", event.IsFinal)
	return nil
}

func (t *TranscriptRecognizer) release(feed *speech.Feed) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.active == feed {
		t.active = nil
	}
}
