package domain

import "errors"

var (
	ErrPermissionDenied      = errors.New("microphone or speech access denied")
	ErrRecognizerUnavailable = errors.New("speech recognizer unavailable")
	ErrStream                = errors.New("transcription stream failed")
	ErrAudioEngine           = errors.New("audio engine failed to start")
	ErrNoUtterance           = errors.New("session ended without an utterance")
)

// Advisory returns the user-facing message for an error kind, or "" when the
// error should only be logged.
func Advisory(err error) string {
	switch {
	case errors.Is(err, ErrPermissionDenied):
		return "This app needs access to microphone and speech recognition."
	case errors.Is(err, ErrRecognizerUnavailable):
		return "Speech recognition is not currently available. Check back at a later time."
	case errors.Is(err, ErrAudioEngine):
		return "There has been an audio engine error."
	default:
		return ""
	}
}
