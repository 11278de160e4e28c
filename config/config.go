package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Dialogue   DialogueConfig   `yaml:"dialogue"`
	Stabilizer StabilizerConfig `yaml:"stabilizer"`
	Speech     SpeechConfig     `yaml:"speech"`
	Deepgram   DeepgramConfig   `yaml:"deepgram"`
	Audio      AudioConfig      `yaml:"audio"`
	Synthesis  SynthesisConfig  `yaml:"synthesis"`
	Executor   ExecutorConfig   `yaml:"executor"`
	Twilio     TwilioConfig     `yaml:"twilio"`
	Pushover   PushoverConfig   `yaml:"pushover"`
	HTTP       HTTPConfig       `yaml:"http"`
	Log        LogConfig        `yaml:"log"`
}

type DialogueConfig struct {
	DialPrefix    string `yaml:"dial_prefix"`
	NumberDigits  int    `yaml:"number_digits"`
	WelcomePrompt string `yaml:"welcome_prompt"`
}

type StabilizerConfig struct {
	SilenceTimeout string `yaml:"silence_timeout"`
}

type SpeechConfig struct {
	Provider   string `yaml:"provider"`
	ScriptPath string `yaml:"script_path"`
}

type DeepgramConfig struct {
	APIKey      string `yaml:"api_key"`
	APIBase     string `yaml:"api_base"`
	Model       string `yaml:"model"`
	Language    string `yaml:"language"`
	SmartFormat *bool  `yaml:"smart_format"`
}

type AudioConfig struct {
	Capture       string `yaml:"capture"`
	SampleRate    int    `yaml:"sample_rate"`
	Channels      int    `yaml:"channels"`
	ChunkSize     int    `yaml:"chunk_size"`
	FFmpegCommand string `yaml:"ffmpeg_command"`
	InputFormat   string `yaml:"input_format"`
	InputDevice   string `yaml:"input_device"`
}

type SynthesisConfig struct {
	Engine  string   `yaml:"engine"`
	Command string   `yaml:"command"`
	Args    []string `yaml:"args"`
}

type ExecutorConfig struct {
	Kind            string `yaml:"kind"`
	LauncherCommand string `yaml:"launcher_command"`
	GalleryURL      string `yaml:"gallery_url"`
	Timeout         string `yaml:"timeout"`
}

type TwilioConfig struct {
	AccountSID  string `yaml:"account_sid"`
	AuthToken   string `yaml:"auth_token"`
	FromNumber  string `yaml:"from_number"`
	OwnerNumber string `yaml:"owner_number"`
}

type PushoverConfig struct {
	Token   string `yaml:"token"`
	UserKey string `yaml:"user_key"`
	Enabled bool   `yaml:"enabled"`
}

type HTTPConfig struct {
	Addr      string `yaml:"addr"`
	AuthToken string `yaml:"auth_token"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads the YAML file at path, expanding ${VAR} references. A .env file
// next to it is loaded first; variables already set in the environment win.
func Load(path string) (*Config, error) {
	envFile := filepath.Join(filepath.Dir(path), ".env")
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading %s: %w", envFile, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.setDefaults()

	return &cfg, nil
}

// SmartFormatEnabled treats an unset smart_format as true.
func (d DeepgramConfig) SmartFormatEnabled() bool {
	return d.SmartFormat == nil || *d.SmartFormat
}

func (c *Config) setDefaults() {
	if c.Dialogue.DialPrefix == "" {
		c.Dialogue.DialPrefix = "+1"
	}
	if c.Dialogue.NumberDigits <= 0 {
		c.Dialogue.NumberDigits = 10
	}
	if c.Dialogue.WelcomePrompt == "" {
		c.Dialogue.WelcomePrompt = "Hello there! What would you like to do?"
	}
	if c.Stabilizer.SilenceTimeout == "" {
		c.Stabilizer.SilenceTimeout = "3s"
	}
	if c.Speech.Provider == "" {
		c.Speech.Provider = "http"
	}
	if c.Speech.ScriptPath == "" {
		c.Speech.ScriptPath = "script.yaml"
	}
	if c.Deepgram.APIBase == "" {
		c.Deepgram.APIBase = "https://api.deepgram.com/v1"
	}
	if c.Deepgram.Model == "" {
		c.Deepgram.Model = "nova-2"
	}
	if c.Deepgram.Language == "" {
		c.Deepgram.Language = "en-US"
	}
	if c.Audio.Capture == "" {
		c.Audio.Capture = "ffmpeg"
	}
	if c.Audio.SampleRate <= 0 {
		c.Audio.SampleRate = 16000
	}
	if c.Audio.Channels <= 0 {
		c.Audio.Channels = 1
	}
	if c.Audio.ChunkSize <= 0 {
		c.Audio.ChunkSize = 4096
	}
	if c.Audio.FFmpegCommand == "" {
		c.Audio.FFmpegCommand = "ffmpeg"
	}
	if c.Audio.InputFormat == "" {
		c.Audio.InputFormat = "pulse"
	}
	if c.Audio.InputDevice == "" {
		c.Audio.InputDevice = "default"
	}
	if c.Synthesis.Engine == "" {
		c.Synthesis.Engine = "log"
	}
	if c.Synthesis.Command == "" {
		c.Synthesis.Command = "espeak"
	}
	if c.Executor.Kind == "" {
		c.Executor.Kind = "log"
	}
	if c.Executor.LauncherCommand == "" {
		c.Executor.LauncherCommand = "xdg-open"
	}
	if c.Executor.GalleryURL == "" {
		c.Executor.GalleryURL = "photos-redirect://"
	}
	if c.Executor.Timeout == "" {
		c.Executor.Timeout = "10s"
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}
