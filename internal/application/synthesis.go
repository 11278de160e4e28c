package application

import "context"

// Synthesizer speaks a prompt and returns once playback has completed.
type Synthesizer interface {
	Speak(ctx context.Context, text string) error
}
