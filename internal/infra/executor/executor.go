// Package executor carries out dialogue actions on the local machine.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os/exec"
	"strings"
)

const DefaultGalleryURL = "photos-redirect://"

// LogExecutor records actions without performing them.
type LogExecutor struct {
	logger *slog.Logger
}

func NewLogExecutor(logger *slog.Logger) *LogExecutor {
	return &LogExecutor{logger: logger}
}

func (e *LogExecutor) PlaceCall(_ context.Context, number string) error {
	e.logger.Info("place call", "number", number)
	return nil
}

func (e *LogExecutor) SendText(_ context.Context, number, body string) error {
	e.logger.Info("send text", "number", number, "body", body)
	return nil
}

func (e *LogExecutor) OpenGallery(_ context.Context) error {
	e.logger.Info("open gallery")
	return nil
}

// Runner starts an external program and waits for it.
type Runner func(ctx context.Context, name string, args ...string) error

func execRunner(ctx context.Context, name string, args ...string) error {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, out)
	}
	return nil
}

// Launcher hands tel:, sms: and gallery URLs to a URL opener such as
// xdg-open or open.
type Launcher struct {
	command    string
	galleryURL string
	run        Runner
	logger     *slog.Logger
}

func NewLauncher(command, galleryURL string, logger *slog.Logger) *Launcher {
	if command == "" {
		command = "xdg-open"
	}
	if galleryURL == "" {
		galleryURL = DefaultGalleryURL
	}
	return &Launcher{command: command, galleryURL: galleryURL, run: execRunner, logger: logger}
}

// WithRunner replaces how the opener is invoked.
func (l *Launcher) WithRunner(run Runner) *Launcher {
	l.run = run
	return l
}

func (l *Launcher) PlaceCall(ctx context.Context, number string) error {
	return l.open(ctx, CallURL(number))
}

func (l *Launcher) SendText(ctx context.Context, number, body string) error {
	return l.open(ctx, TextURL(number, body))
}

func (l *Launcher) OpenGallery(ctx context.Context) error {
	return l.open(ctx, l.galleryURL)
}

func (l *Launcher) open(ctx context.Context, target string) error {
	l.logger.Debug("opening url", "command", l.command, "url", target)
	if err := l.run(ctx, l.command, target); err != nil {
		return fmt.Errorf("opening %s: %w", target, err)
	}
	return nil
}

func CallURL(number string) string {
	return "tel://" + url.PathEscape(number)
}

// TextURL builds an sms: URL carrying the body, percent-encoded.
func TextURL(number, body string) string {
	return "sms:" + url.PathEscape(number) + "&body=" + strings.ReplaceAll(url.QueryEscape(body), "+", "%20")
}
