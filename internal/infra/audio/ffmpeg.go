package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"
)

type FFmpegConfig struct {
	Command     string
	InputFormat string
	InputDevice string
	Format      Format
}

// FFmpegCapture streams microphone PCM from an ffmpeg subprocess.
type FFmpegCapture struct {
	cfg          FFmpegConfig
	startupGrace time.Duration
}

func NewFFmpegCapture(cfg FFmpegConfig) *FFmpegCapture {
	if cfg.Command == "" {
		cfg.Command = "ffmpeg"
	}
	if cfg.InputFormat == "" {
		cfg.InputFormat = "pulse"
	}
	if cfg.InputDevice == "" {
		cfg.InputDevice = "default"
	}
	cfg.Format = cfg.Format.withDefaults()
	return &FFmpegCapture{cfg: cfg, startupGrace: 250 * time.Millisecond}
}

func (c *FFmpegCapture) Name() string {
	return "ffmpeg"
}

// Probe reports whether the ffmpeg binary can be found.
func (c *FFmpegCapture) Probe(_ context.Context) error {
	if _, err := exec.LookPath(c.cfg.Command); err != nil {
		return fmt.Errorf("locating %s: %w", c.cfg.Command, err)
	}
	return nil
}

func (c *FFmpegCapture) args() []string {
	return []string{
		"-nostdin",
		"-hide_banner",
		"-loglevel", "warning",
		"-f", c.cfg.InputFormat,
		"-i", c.cfg.InputDevice,
		"-ac", strconv.Itoa(c.cfg.Format.Channels),
		"-ar", strconv.Itoa(c.cfg.Format.SampleRate),
		"-f", "s16le",
		"-",
	}
}

func (c *FFmpegCapture) Start(ctx context.Context) (Session, error) {
	cmd := exec.CommandContext(ctx, c.cfg.Command, c.args()...)
	stderr := &bytes.Buffer{}
	cmd.Stderr = stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("creating ffmpeg stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting ffmpeg: %w", err)
	}

	exited := make(chan error, 1)
	go func() {
		exited <- cmd.Wait()
		close(exited)
	}()

	select {
	case err := <-exited:
		if err != nil {
			return nil, fmt.Errorf("ffmpeg exited before capture started: %w: %s", err, strings.TrimSpace(stderr.String()))
		}
		return nil, errors.New("ffmpeg exited before capture started")
	case <-time.After(c.startupGrace):
	}

	return &ffmpegSession{
		stdout:  stdout,
		stderr:  stderr,
		process: cmd.Process,
		exited:  exited,
	}, nil
}

type ffmpegSession struct {
	stdout  io.ReadCloser
	stderr  *bytes.Buffer
	process *os.Process
	exited  <-chan error

	stopOnce sync.Once
	stopErr  error
}

func (s *ffmpegSession) Read(p []byte) (int, error) {
	n, err := s.stdout.Read(p)
	if err != nil && errors.Is(err, os.ErrClosed) {
		return n, io.EOF
	}
	return n, err
}

// Stop interrupts ffmpeg and kills it if it has not exited shortly after.
func (s *ffmpegSession) Stop() error {
	s.stopOnce.Do(func() {
		_ = s.process.Signal(os.Interrupt)

		var waitErr error
		select {
		case err, ok := <-s.exited:
			if ok {
				waitErr = err
			}
		case <-time.After(1200 * time.Millisecond):
			_ = s.process.Kill()
			if err, ok := <-s.exited; ok {
				waitErr = err
			}
		}
		s.stopErr = normalizeExit(waitErr)

		if err := s.stdout.Close(); err != nil && !errors.Is(err, os.ErrClosed) && s.stopErr == nil {
			s.stopErr = err
		}
		if s.stopErr != nil && s.stderr.Len() > 0 {
			s.stopErr = fmt.Errorf("%w: %s", s.stopErr, strings.TrimSpace(s.stderr.String()))
		}
	})
	return s.stopErr
}

// normalizeExit treats a non-zero exit after interrupt as a clean stop.
func normalizeExit(err error) error {
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return nil
	}
	return err
}
