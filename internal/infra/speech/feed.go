// Package speech holds the event plumbing shared by transcript recognizers.
package speech

import (
	"context"
	"sync"

	"handsfree/internal/domain"
)

// Feed delivers transcript events to a single consumer in emission order.
// Once Halt or Finish returns, the events channel is closed and no event
// emitted afterwards reaches the consumer.
type Feed struct {
	events chan domain.TranscriptEvent
	done   chan struct{}

	mu      sync.RWMutex
	endOnce sync.Once

	errMu sync.Mutex
	err   error
}

func NewFeed() *Feed {
	return &Feed{
		events: make(chan domain.TranscriptEvent),
		done:   make(chan struct{}),
	}
}

func (f *Feed) Events() <-chan domain.TranscriptEvent {
	return f.events
}

func (f *Feed) Err() error {
	f.errMu.Lock()
	defer f.errMu.Unlock()
	return f.err
}

// Done is closed when the feed ends from either side.
func (f *Feed) Done() <-chan struct{} {
	return f.done
}

// Emit blocks until the consumer takes the event. It reports false when the
// feed has ended or ctx is done first.
func (f *Feed) Emit(ctx context.Context, event domain.TranscriptEvent) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()

	select {
	case <-f.done:
		return false
	default:
	}

	select {
	case f.events <- event:
		return true
	case <-f.done:
		return false
	case <-ctx.Done():
		return false
	}
}

// Finish ends the feed from the producer side. A non-nil err is reported by
// Err once the events channel is closed.
func (f *Feed) Finish(err error) {
	f.end(err)
}

// Halt ends the feed from the consumer side.
func (f *Feed) Halt() {
	f.end(nil)
}

// Stop and Cancel let a bare Feed serve as a transcript stream.
func (f *Feed) Stop() error {
	f.Halt()
	return nil
}

func (f *Feed) Cancel() error {
	f.Halt()
	return nil
}

func (f *Feed) end(err error) {
	f.endOnce.Do(func() {
		f.errMu.Lock()
		f.err = err
		f.errMu.Unlock()

		close(f.done)

		// Waits out any Emit still selecting on the send.
		f.mu.Lock()
		close(f.events)
		f.mu.Unlock()
	})
}
