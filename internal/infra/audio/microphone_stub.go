//go:build !portaudio
// +build !portaudio

package audio

import (
	"context"
	"errors"
	"log/slog"
)

var errNoPortaudio = errors.New("microphone capture not available: rebuild with -tags portaudio")

// MicrophoneCapture stub when portaudio is not available
type MicrophoneCapture struct {
	logger *slog.Logger
}

func NewMicrophoneCapture(_ Format, logger *slog.Logger) *MicrophoneCapture {
	return &MicrophoneCapture{logger: logger}
}

func (m *MicrophoneCapture) Name() string {
	return "portaudio"
}

func (m *MicrophoneCapture) Probe(_ context.Context) error {
	return errNoPortaudio
}

func (m *MicrophoneCapture) Start(_ context.Context) (Session, error) {
	return nil, errNoPortaudio
}
