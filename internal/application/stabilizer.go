package application

import (
	"context"
	"fmt"
	"time"

	"handsfree/internal/domain"
)

// DefaultSilenceTimeout is how long a partial transcript must stay unchanged
// before it is treated as the finished utterance.
const DefaultSilenceTimeout = 3 * time.Second

// Stabilizer decides when one session's transcript is complete. It emits at
// most one utterance and owns the session's pending silence timer.
type Stabilizer struct {
	timeout time.Duration
	policy  StabilizerPolicy

	last  string
	timer *time.Timer
	done  bool
}

func NewStabilizer(timeout time.Duration, policy StabilizerPolicy) *Stabilizer {
	if timeout <= 0 {
		timeout = DefaultSilenceTimeout
	}
	return &Stabilizer{timeout: timeout, policy: policy}
}

// Observe applies one event and reports whether it completed the utterance.
// Repeated text is ignored. Otherwise the previous timer is cancelled and,
// unless the event is final, a new one is armed.
func (s *Stabilizer) Observe(event domain.TranscriptEvent) (string, bool) {
	if s.done || event.Text == s.last {
		return "", false
	}

	s.stopTimer()
	s.last = event.Text

	if event.IsFinal || s.policy.Immediate {
		s.done = true
		return event.Text, true
	}

	s.timer = time.NewTimer(s.timeout)
	return "", false
}

// Last returns the most recent non-duplicate transcript.
func (s *Stabilizer) Last() string {
	return s.last
}

// Await consumes the stream until an utterance completes, the stream fails,
// or ctx is cancelled. A stream that ends while a timer is pending still
// completes when the timer fires.
func (s *Stabilizer) Await(ctx context.Context, stream TranscriptStream) (string, error) {
	defer s.stopTimer()

	events := stream.Events()
	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()

		case event, ok := <-events:
			if !ok {
				if err := stream.Err(); err != nil {
					return "", fmt.Errorf("%w: %w", domain.ErrStream, err)
				}
				if s.timer == nil {
					return "", domain.ErrNoUtterance
				}
				events = nil
				continue
			}
			if text, done := s.Observe(event); done {
				return text, nil
			}

		case <-s.timerC():
			s.timer = nil
			s.done = true
			return s.last, nil
		}
	}
}

func (s *Stabilizer) timerC() <-chan time.Time {
	if s.timer == nil {
		return nil
	}
	return s.timer.C
}

func (s *Stabilizer) stopTimer() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}
