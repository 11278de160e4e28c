package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"handsfree/config"
	"handsfree/internal/application"
	"handsfree/internal/infra/audio"
	"handsfree/internal/infra/deepgram"
	"handsfree/internal/infra/executor"
	"handsfree/internal/infra/httpapi"
	"handsfree/internal/infra/permission"
	"handsfree/internal/infra/pushover"
	"handsfree/internal/infra/script"
	"handsfree/internal/infra/tts"
	"handsfree/internal/infra/twilio"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("loading config", "error", err)
		os.Exit(1)
	}

	logger := setupLogger(cfg.Log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		logger.Info("shutting down")
		cancel()
	}()

	speech, err := createSpeech(cfg, logger)
	if err != nil {
		logger.Error("creating recognizer", "error", err)
		os.Exit(1)
	}

	var notifier application.Notifier
	if cfg.Pushover.Enabled {
		notifier = pushover.NewClient(cfg.Pushover.Token, cfg.Pushover.UserKey)
	} else {
		notifier = &application.NoopNotifier{}
	}

	dialogue := application.NewDialogue(application.DialogueConfig{
		DialPrefix:   cfg.Dialogue.DialPrefix,
		NumberDigits: cfg.Dialogue.NumberDigits,
	}, logger)

	coordinator := application.NewCoordinator(
		speech.recognizer,
		createSynthesizer(cfg.Synthesis, logger),
		createExecutor(cfg, logger),
		permission.NewGate(speech.microphone, speech.access, logger),
		notifier,
		dialogue,
		application.CoordinatorConfig{
			WelcomePrompt:  cfg.Dialogue.WelcomePrompt,
			SilenceTimeout: parseDuration(logger, "stabilizer.silence_timeout", cfg.Stabilizer.SilenceTimeout, application.DefaultSilenceTimeout),
			ActionTimeout:  parseDuration(logger, "executor.timeout", cfg.Executor.Timeout, 10*time.Second),
		},
		logger,
	)

	server := httpapi.NewServer(cfg.HTTP.Addr, cfg.HTTP.AuthToken, coordinator, speech.transcripts, logger)
	if err := server.Start(ctx); err != nil {
		logger.Error("starting HTTP server", "error", err)
		os.Exit(1)
	}
	defer server.Stop()

	logger.Info("starting hands-free dispatcher",
		"speech_provider", cfg.Speech.Provider,
		"synthesis", cfg.Synthesis.Engine,
		"executor", cfg.Executor.Kind,
	)

	if err := coordinator.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("coordinator error", "error", err)
		os.Exit(1)
	}
}

type speechStack struct {
	recognizer  application.Recognizer
	transcripts *httpapi.TranscriptRecognizer
	microphone  permission.Prober
	access      permission.Prober
}

type capture interface {
	Name() string
	Start(ctx context.Context) (audio.Session, error)
	Probe(ctx context.Context) error
}

func createSpeech(cfg *config.Config, logger *slog.Logger) (speechStack, error) {
	switch cfg.Speech.Provider {
	case "http":
		transcripts := httpapi.NewTranscriptRecognizer(logger)
		return speechStack{recognizer: transcripts, transcripts: transcripts}, nil
	case "script":
		recognizer, err := script.Load(cfg.Speech.ScriptPath, logger)
		if err != nil {
			return speechStack{}, err
		}
		return speechStack{recognizer: recognizer}, nil
	case "deepgram":
		source := createCapture(cfg.Audio, logger)
		recognizer := deepgram.NewRecognizer(deepgram.Config{
			APIKey:      cfg.Deepgram.APIKey,
			APIBaseURL:  cfg.Deepgram.APIBase,
			Model:       cfg.Deepgram.Model,
			Language:    cfg.Deepgram.Language,
			SmartFormat: cfg.Deepgram.SmartFormatEnabled(),
			Format:      audioFormat(cfg.Audio),
			ChunkSize:   cfg.Audio.ChunkSize,
		}, source, logger)
		return speechStack{recognizer: recognizer, microphone: source, access: recognizer}, nil
	default:
		return speechStack{}, fmt.Errorf("unknown speech provider %q", cfg.Speech.Provider)
	}
}

func audioFormat(cfg config.AudioConfig) audio.Format {
	return audio.Format{SampleRate: cfg.SampleRate, Channels: cfg.Channels}
}

func createCapture(cfg config.AudioConfig, logger *slog.Logger) capture {
	switch cfg.Capture {
	case "portaudio":
		return audio.NewMicrophoneCapture(audioFormat(cfg), logger)
	case "ffmpeg":
		return ffmpegCapture(cfg)
	default:
		logger.Warn("unknown audio capture, using ffmpeg", "capture", cfg.Capture)
		return ffmpegCapture(cfg)
	}
}

func ffmpegCapture(cfg config.AudioConfig) capture {
	return audio.NewFFmpegCapture(audio.FFmpegConfig{
		Command:     cfg.FFmpegCommand,
		InputFormat: cfg.InputFormat,
		InputDevice: cfg.InputDevice,
		Format:      audioFormat(cfg),
	})
}

func createSynthesizer(cfg config.SynthesisConfig, logger *slog.Logger) application.Synthesizer {
	switch cfg.Engine {
	case "command":
		return tts.NewCommandSynthesizer(cfg.Command, cfg.Args, logger)
	case "log":
		return tts.NewLogSynthesizer(logger)
	default:
		logger.Warn("unknown synthesis engine, using log", "engine", cfg.Engine)
		return tts.NewLogSynthesizer(logger)
	}
}

func createExecutor(cfg *config.Config, logger *slog.Logger) application.ActionExecutor {
	switch cfg.Executor.Kind {
	case "launcher":
		return executor.NewLauncher(cfg.Executor.LauncherCommand, cfg.Executor.GalleryURL, logger)
	case "twilio":
		return twilio.New(twilio.Config{
			AccountSID:  cfg.Twilio.AccountSID,
			AuthToken:   cfg.Twilio.AuthToken,
			FromNumber:  cfg.Twilio.FromNumber,
			OwnerNumber: cfg.Twilio.OwnerNumber,
		}, logger)
	case "log":
		return executor.NewLogExecutor(logger)
	default:
		logger.Warn("unknown executor, using log", "kind", cfg.Executor.Kind)
		return executor.NewLogExecutor(logger)
	}
}

func parseDuration(logger *slog.Logger, name, value string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		logger.Warn("invalid duration, using default", "setting", name, "value", value, "default", fallback)
		return fallback
	}
	return d
}

func setupLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
