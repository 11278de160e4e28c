package deepgram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"handsfree/internal/application"
	"handsfree/internal/domain"
	"handsfree/internal/infra"
	"handsfree/internal/infra/audio"
	"handsfree/internal/infra/speech"
)

// Config controls Deepgram websocket settings.
type Config struct {
	APIKey      string
	APIBaseURL  string
	Model       string
	Language    string
	SmartFormat bool
	Format      audio.Format
	ChunkSize   int
}

// Capture supplies the audio pumped to Deepgram.
type Capture interface {
	Start(ctx context.Context) (audio.Session, error)
}

// Recognizer implements application.Recognizer over the Deepgram live API.
type Recognizer struct {
	cfg        Config
	capture    Capture
	dialer     *websocket.Dialer
	httpClient *http.Client
	retry      infra.RetryConfig
	logger     *slog.Logger
}

func NewRecognizer(cfg Config, capture Capture, logger *slog.Logger) *Recognizer {
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = "https://api.deepgram.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "nova-2"
	}
	if cfg.Format.SampleRate <= 0 || cfg.Format.Channels <= 0 {
		cfg.Format = audio.DefaultFormat()
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 4096
	}
	return &Recognizer{
		cfg:        cfg,
		capture:    capture,
		dialer:     &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		httpClient: &http.Client{Timeout: 10 * time.Second},
		retry:      infra.DefaultRetryConfig(),
		logger:     logger,
	}
}

func (r *Recognizer) Name() string {
	return "deepgram"
}

func (r *Recognizer) Start(ctx context.Context) (application.TranscriptStream, error) {
	if strings.TrimSpace(r.cfg.APIKey) == "" {
		return nil, fmt.Errorf("%w: deepgram api key is not configured", domain.ErrRecognizerUnavailable)
	}

	wsURL, err := buildListenURL(r.cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrRecognizerUnavailable, err)
	}

	headers := http.Header{}
	headers.Set("Authorization", "Token "+r.cfg.APIKey)

	var conn *websocket.Conn
	err = infra.WithRetry(ctx, r.retry, func(attempt int) error {
		c, resp, dialErr := r.dialer.DialContext(ctx, wsURL, headers)
		if dialErr != nil {
			if resp != nil && !infra.IsRetryableHTTPStatus(resp.StatusCode) {
				return infra.Permanent(fmt.Errorf("deepgram handshake: %s", resp.Status))
			}
			r.logger.Debug("deepgram dial failed", "attempt", attempt, "error", dialErr)
			return dialErr
		}
		conn = c
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: connecting to deepgram: %w", domain.ErrRecognizerUnavailable, err)
	}

	source, err := r.capture.Start(ctx)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("%w: %w", domain.ErrAudioEngine, err)
	}

	s := &stream{
		Feed:      speech.NewFeed(),
		conn:      conn,
		source:    source,
		chunkSize: r.cfg.ChunkSize,
		logger:    r.logger,
		done:      make(chan struct{}),
	}
	s.wg.Add(2)
	go s.readLoop(ctx)
	go s.pump()
	go func() {
		s.wg.Wait()
		close(s.done)
	}()

	return s, nil
}

type stream struct {
	*speech.Feed

	conn      *websocket.Conn
	source    audio.Session
	chunkSize int
	logger    *slog.Logger

	wg   sync.WaitGroup
	done chan struct{}

	mu        sync.Mutex
	cancelled bool
	closeOnce sync.Once
	closeErr  error
}

// Stop ends capture and lets Deepgram flush before the socket closes.
func (s *stream) Stop() error {
	return s.shutdown(false)
}

// Cancel drops the socket without waiting for Deepgram.
func (s *stream) Cancel() error {
	return s.shutdown(true)
}

func (s *stream) shutdown(cancel bool) error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.cancelled = cancel
		s.mu.Unlock()

		s.Feed.Halt()
		s.closeErr = s.source.Stop()

		if cancel {
			_ = s.conn.Close()
		} else {
			select {
			case <-s.done:
			case <-time.After(2 * time.Second):
			}
			_ = s.conn.Close()
		}
		<-s.done
	})
	return s.closeErr
}

func (s *stream) isCancelled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelled
}

func (s *stream) pump() {
	defer s.wg.Done()

	buf := make([]byte, s.chunkSize)
	for {
		n, err := s.source.Read(buf)
		if n > 0 {
			if writeErr := s.conn.WriteMessage(websocket.BinaryMessage, buf[:n]); writeErr != nil {
				s.fail(fmt.Errorf("sending audio: %w", writeErr))
				return
			}
		}
		if err != nil {
			break
		}
	}

	if s.isCancelled() {
		return
	}
	if err := s.conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"CloseStream"}`)); err != nil {
		s.fail(fmt.Errorf("closing deepgram stream: %w", err))
	}
}

func (s *stream) readLoop(ctx context.Context) {
	defer s.wg.Done()

	for {
		_, payload, err := s.conn.ReadMessage()
		if err != nil {
			s.fail(fmt.Errorf("reading deepgram event: %w", err))
			return
		}

		event, ok, err := decodeEvent(payload)
		if err != nil {
			s.fail(err)
			return
		}
		if !ok {
			continue
		}
		if !s.Feed.Emit(ctx, event) {
			return
		}
	}
}

// fail ends the feed with err unless the stream is already shutting down or
// the socket closed normally.
func (s *stream) fail(err error) {
	select {
	case <-s.Feed.Done():
		return
	default:
	}

	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) && (closeErr.Code == websocket.CloseNormalClosure ||
		closeErr.Code == websocket.CloseGoingAway ||
		closeErr.Code == websocket.CloseNoStatusReceived) {
		s.Feed.Finish(nil)
		return
	}

	s.logger.Debug("deepgram stream ended", "error", err)
	s.Feed.Finish(err)
}
