package audio

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeScript(t *testing.T, name, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(contents), 0o755); err != nil {
		t.Fatalf("writing script: %v", err)
	}
	return path
}

func TestFFmpegCapture_Defaults(t *testing.T) {
	c := NewFFmpegCapture(FFmpegConfig{})

	args := strings.Join(c.args(), " ")
	for _, want := range []string{"-f pulse", "-i default", "-ac 1", "-ar 16000", "-f s16le"} {
		if !strings.Contains(args, want) {
			t.Errorf("args %q missing %q", args, want)
		}
	}
	if c.Name() != "ffmpeg" {
		t.Errorf("unexpected name %q", c.Name())
	}
}

func TestFFmpegCapture_StartReadStop(t *testing.T) {
	script := writeScript(t, "capture.sh", "#!/usr/bin/env bash\nprintf 'pcm!'\nsleep 2\n")
	c := NewFFmpegCapture(FFmpegConfig{Command: script})

	session, err := c.Start(context.Background())
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}

	buf := make([]byte, 8)
	n, readErr := session.Read(buf)
	if n <= 0 || string(buf[:n]) != "pcm!" {
		t.Fatalf("unexpected read %q err=%v", buf[:n], readErr)
	}

	if err := session.Stop(); err != nil {
		t.Fatalf("stop failed: %v", err)
	}
	if err := session.Stop(); err != nil {
		t.Fatalf("second stop failed: %v", err)
	}
	if _, err := session.Read(buf); err != io.EOF {
		t.Errorf("read after stop: got %v, want io.EOF", err)
	}
}

func TestFFmpegCapture_EarlyExit(t *testing.T) {
	script := writeScript(t, "fail.sh", "#!/usr/bin/env bash\necho 'no such device' 1>&2\nexit 1\n")
	c := NewFFmpegCapture(FFmpegConfig{Command: script})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := c.Start(ctx)
	if err == nil {
		t.Fatalf("expected early exit error")
	}
	if !strings.Contains(err.Error(), "exited before capture started") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestFFmpegCapture_Probe(t *testing.T) {
	script := writeScript(t, "ffmpeg", "#!/usr/bin/env bash\n")
	if err := NewFFmpegCapture(FFmpegConfig{Command: script}).Probe(context.Background()); err != nil {
		t.Errorf("probe should find %s: %v", script, err)
	}

	missing := filepath.Join(t.TempDir(), "not-ffmpeg")
	if err := NewFFmpegCapture(FFmpegConfig{Command: missing}).Probe(context.Background()); err == nil {
		t.Errorf("probe should fail for a missing binary")
	}
}

func TestNormalizeExit(t *testing.T) {
	err := exec.Command("bash", "-c", "exit 1").Run()
	if err == nil {
		t.Fatalf("expected command to fail")
	}
	if got := normalizeExit(err); got != nil {
		t.Errorf("exit errors should be ignored, got %v", got)
	}
	if normalizeExit(nil) != nil {
		t.Errorf("nil should stay nil")
	}
}

func TestFormatDefaults(t *testing.T) {
	got := Format{}.withDefaults()
	if got != DefaultFormat() {
		t.Errorf("got %+v, want %+v", got, DefaultFormat())
	}
	custom := Format{SampleRate: 8000, Channels: 2}.withDefaults()
	if custom.SampleRate != 8000 || custom.Channels != 2 {
		t.Errorf("custom format overwritten: %+v", custom)
	}
}

func TestMicrophoneCapture_Name(t *testing.T) {
	m := NewMicrophoneCapture(DefaultFormat(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	if m.Name() != "portaudio" {
		t.Errorf("unexpected name %q", m.Name())
	}
}
