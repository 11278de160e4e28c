package application

import "context"

// ActionExecutor performs the real-world side effect of an intent.
type ActionExecutor interface {
	PlaceCall(ctx context.Context, number string) error
	SendText(ctx context.Context, number, body string) error
	OpenGallery(ctx context.Context) error
}

// PermissionGate is consulted before the first listening session.
type PermissionGate interface {
	MicrophoneAccess(ctx context.Context) bool
	SpeechAccess(ctx context.Context) bool
}

// AllowAll grants every permission. Used when no capture device is involved.
type AllowAll struct{}

func (AllowAll) MicrophoneAccess(_ context.Context) bool { return true }
func (AllowAll) SpeechAccess(_ context.Context) bool     { return true }
