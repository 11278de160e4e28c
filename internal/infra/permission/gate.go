// Package permission answers the coordinator's access checks from probes of
// the configured capture device and recognizer.
package permission

import (
	"context"
	"log/slog"
	"time"
)

// Prober reports whether a resource can be used. A nil error grants access.
type Prober interface {
	Probe(ctx context.Context) error
}

type ProbeFunc func(ctx context.Context) error

func (f ProbeFunc) Probe(ctx context.Context) error { return f(ctx) }

// Gate implements application.PermissionGate. A nil prober always grants.
type Gate struct {
	microphone Prober
	speech     Prober
	timeout    time.Duration
	logger     *slog.Logger
}

func NewGate(microphone, speech Prober, logger *slog.Logger) *Gate {
	return &Gate{microphone: microphone, speech: speech, timeout: 5 * time.Second, logger: logger}
}

func (g *Gate) MicrophoneAccess(ctx context.Context) bool {
	return g.check(ctx, "microphone", g.microphone)
}

func (g *Gate) SpeechAccess(ctx context.Context) bool {
	return g.check(ctx, "speech", g.speech)
}

func (g *Gate) check(ctx context.Context, name string, p Prober) bool {
	if p == nil {
		return true
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	if err := p.Probe(ctx); err != nil {
		g.logger.Warn("access denied", "resource", name, "error", err)
		return false
	}
	return true
}
