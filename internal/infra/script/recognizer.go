// Package script replays recorded transcript turns, one turn per listening
// session. It drives the dialogue without a microphone.
package script

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"handsfree/internal/application"
	"handsfree/internal/domain"
	"handsfree/internal/infra/speech"
)

type Event struct {
	Text  string `yaml:"text"`
	Final bool   `yaml:"final"`
	Delay string `yaml:"delay"`
}

type Turn struct {
	Events []Event `yaml:"events"`
}

type file struct {
	Turns []Turn `yaml:"turns"`
}

type Recognizer struct {
	logger *slog.Logger

	mu    sync.Mutex
	turns []Turn
	next  int
}

func NewRecognizer(turns []Turn, logger *slog.Logger) *Recognizer {
	return &Recognizer{turns: turns, logger: logger}
}

// Load reads turns from a YAML file of the form
//
//	turns:
//	  - events:
//	      - {text: call, final: true}
//	  - events:
//	      - {text: "5", delay: 200ms}
func Load(path string, logger *slog.Logger) (*Recognizer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading script: %w", err)
	}

	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing script: %w", err)
	}

	for i, turn := range f.Turns {
		for j, event := range turn.Events {
			if event.Delay == "" {
				continue
			}
			if _, err := time.ParseDuration(event.Delay); err != nil {
				return nil, fmt.Errorf("turn %d event %d: invalid delay %q: %w", i+1, j+1, event.Delay, err)
			}
		}
	}

	return NewRecognizer(f.Turns, logger), nil
}

func (r *Recognizer) Name() string {
	return "script"
}

// Remaining returns the number of turns not yet replayed.
func (r *Recognizer) Remaining() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.turns) - r.next
}

func (r *Recognizer) Start(ctx context.Context) (application.TranscriptStream, error) {
	r.mu.Lock()
	if r.next >= len(r.turns) {
		r.mu.Unlock()
		return nil, fmt.Errorf("%w: script exhausted", domain.ErrRecognizerUnavailable)
	}
	turn := r.turns[r.next]
	r.next++
	index := r.next
	r.mu.Unlock()

	r.logger.Debug("replaying scripted turn", "turn", index, "events", len(turn.Events))

	feed := speech.NewFeed()
	go r.replay(ctx, feed, turn)
	return feed, nil
}

func (r *Recognizer) replay(ctx context.Context, feed *speech.Feed, turn Turn) {
	for _, event := range turn.Events {
		if delay, _ := time.ParseDuration(event.Delay); delay > 0 {
			select {
			case <-time.After(delay):
			case <-feed.Done():
				return
			case <-ctx.Done():
				feed.Halt()
				return
			}
		}
		if !feed.Emit(ctx, domain.TranscriptEvent{Text: event.Text, IsFinal: event.Final}) {
			return
		}
	}
	feed.Finish(nil)
}
