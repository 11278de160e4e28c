package httpapi_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"handsfree/internal/domain"
	"handsfree/internal/infra/httpapi"
)

func waitUntil(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met")
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func TestTranscriptRecognizer_StopReleasesSession(t *testing.T) {
	r := httpapi.NewTranscriptRecognizer(discardLogger())
	if r.Name() != "http" {
		t.Errorf("unexpected name %q", r.Name())
	}

	stream, err := r.Start(context.Background())
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if !r.Listening() {
		t.Fatalf("expected an open session")
	}

	if err := stream.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	waitUntil(t, func() bool { return !r.Listening() })

	err = r.Deliver(context.Background(), domain.TranscriptEvent{Text: "late"})
	if !errors.Is(err, httpapi.ErrNotListening) {
		t.Errorf("expected ErrNotListening, got %v", err)
	}
}

func TestTranscriptRecognizer_ContextEndsSession(t *testing.T) {
	r := httpapi.NewTranscriptRecognizer(discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	stream, err := r.Start(ctx)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	cancel()

	select {
	case _, ok := <-stream.Events():
		if ok {
			t.Fatalf("unexpected event")
		}
	case <-time.After(time.Second):
		t.Fatal("stream not closed after context cancel")
	}
	waitUntil(t, func() bool { return !r.Listening() })
}

func TestTranscriptRecognizer_NewSessionReplacesOld(t *testing.T) {
	r := httpapi.NewTranscriptRecognizer(discardLogger())

	first, _ := r.Start(context.Background())
	second, _ := r.Start(context.Background())
	defer second.Cancel()

	if _, ok := <-first.Events(); ok {
		t.Errorf("first session should be closed")
	}

	go func() {
		_ = r.Deliver(context.Background(), domain.TranscriptEvent{Text: "photos", IsFinal: true})
	}()

	select {
	case event := <-second.Events():
		if event.Text != "photos" {
			t.Errorf("unexpected event %+v", event)
		}
	case <-time.After(time.Second):
		t.Fatal("second session did not receive the delivery")
	}
}

func TestTranscriptRecognizer_DeliverTimesOut(t *testing.T) {
	r := httpapi.NewTranscriptRecognizer(discardLogger())
	stream, _ := r.Start(context.Background())
	defer stream.Cancel()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := r.Deliver(ctx, domain.TranscriptEvent{Text: "unread"})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}
