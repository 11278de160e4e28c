//go:build portaudio
// +build portaudio

package audio

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/gordonklaus/portaudio"
)

const framesPerBuffer = 1024

type MicrophoneCapture struct {
	format Format
	logger *slog.Logger
}

func NewMicrophoneCapture(format Format, logger *slog.Logger) *MicrophoneCapture {
	return &MicrophoneCapture{format: format.withDefaults(), logger: logger}
}

func (m *MicrophoneCapture) Name() string {
	return "portaudio"
}

// Probe checks that portaudio can see a default input device.
func (m *MicrophoneCapture) Probe(_ context.Context) error {
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("initializing portaudio: %w", err)
	}
	defer portaudio.Terminate()

	device, err := portaudio.DefaultInputDevice()
	if err != nil {
		return fmt.Errorf("finding default input device: %w", err)
	}
	if device == nil || device.MaxInputChannels < m.format.Channels {
		return fmt.Errorf("default input device cannot record %d channel(s)", m.format.Channels)
	}
	return nil
}

func (m *MicrophoneCapture) Start(_ context.Context) (Session, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("initializing portaudio: %w", err)
	}

	samples := make([]int16, framesPerBuffer*m.format.Channels)
	stream, err := portaudio.OpenDefaultStream(
		m.format.Channels,
		0,
		float64(m.format.SampleRate),
		framesPerBuffer,
		samples,
	)
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("opening stream: %w", err)
	}

	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return nil, fmt.Errorf("starting stream: %w", err)
	}

	m.logger.Info("microphone started", "sampleRate", m.format.SampleRate, "channels", m.format.Channels)
	return &microphoneSession{stream: stream, samples: samples}, nil
}

type microphoneSession struct {
	mu      sync.Mutex
	stream  *portaudio.Stream
	samples []int16
	pending []byte
	stopped bool
}

func (s *microphoneSession) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return 0, io.EOF
	}
	if len(s.pending) == 0 {
		if err := s.stream.Read(); err != nil {
			return 0, fmt.Errorf("reading from stream: %w", err)
		}
		s.pending = encodeSamples(s.samples)
	}

	n := copy(p, s.pending)
	s.pending = s.pending[n:]
	return n, nil
}

func (s *microphoneSession) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return nil
	}
	s.stopped = true

	stopErr := s.stream.Stop()
	if err := s.stream.Close(); err != nil && stopErr == nil {
		stopErr = err
	}
	if err := portaudio.Terminate(); err != nil && stopErr == nil {
		stopErr = err
	}
	if stopErr != nil {
		return fmt.Errorf("stopping microphone: %w", stopErr)
	}
	return nil
}

func encodeSamples(samples []int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, sample := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(sample))
	}
	return out
}
