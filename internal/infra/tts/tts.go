// Package tts provides synthesis sinks. Speak blocks until playback is done.
package tts

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

// CommandSynthesizer speaks through an external program such as espeak or
// say. The text is the final argument, after a "--" so it is never read as
// an option.
type CommandSynthesizer struct {
	command string
	args    []string
	logger  *slog.Logger
}

func NewCommandSynthesizer(command string, args []string, logger *slog.Logger) *CommandSynthesizer {
	if command == "" {
		command = "espeak"
	}
	return &CommandSynthesizer{command: command, args: args, logger: logger}
}

func (s *CommandSynthesizer) Speak(ctx context.Context, text string) error {
	argv := append(append([]string{}, s.args...), "--", text)
	cmd := exec.CommandContext(ctx, s.command, argv...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	cmd.WaitDelay = time.Second

	s.logger.Debug("speaking", "command", s.command, "text", text)
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("running %s: %w: %s", s.command, err, msg)
		}
		return fmt.Errorf("running %s: %w", s.command, err)
	}
	return nil
}

// LogSynthesizer writes prompts to the log instead of speaking them.
type LogSynthesizer struct {
	logger *slog.Logger
}

func NewLogSynthesizer(logger *slog.Logger) *LogSynthesizer {
	return &LogSynthesizer{logger: logger}
}

func (s *LogSynthesizer) Speak(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.logger.Info("prompt", "text", text)
	return nil
}
