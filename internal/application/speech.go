package application

import (
	"context"

	"handsfree/internal/domain"
)

// Recognizer opens one transcription stream per listening session.
type Recognizer interface {
	Name() string
	Start(ctx context.Context) (TranscriptStream, error)
}

// TranscriptStream delivers ordered transcript events for one session.
// Events is closed when the stream ends; Err reports why it ended.
// No events are delivered after Stop or Cancel returns.
type TranscriptStream interface {
	Events() <-chan domain.TranscriptEvent
	Err() error
	// Stop ends audio capture and lets the recognizer finish gracefully.
	Stop() error
	// Cancel tears the stream down immediately.
	Cancel() error
}
