// Package audio captures raw microphone PCM (signed 16-bit little endian)
// for streaming recognizers.
package audio

import "io"

type Format struct {
	SampleRate int
	Channels   int
}

func DefaultFormat() Format {
	return Format{SampleRate: 16000, Channels: 1}
}

func (f Format) withDefaults() Format {
	if f.SampleRate <= 0 {
		f.SampleRate = 16000
	}
	if f.Channels <= 0 {
		f.Channels = 1
	}
	return f
}

// Session is a running capture. Read returns io.EOF after Stop.
type Session interface {
	io.Reader
	Stop() error
}
