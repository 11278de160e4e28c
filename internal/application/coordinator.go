package application

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"handsfree/internal/domain"
)

const defaultWelcomePrompt = "Hello there! What would you like to do?"

var errAlreadyListening = errors.New("a listening session is already active")

type CoordinatorConfig struct {
	WelcomePrompt  string
	SilenceTimeout time.Duration
	ActionTimeout  time.Duration
}

type session struct {
	id         string
	stream     TranscriptStream
	stabilizer *Stabilizer
}

// Coordinator runs the prompt/listen cycle. It owns the dialogue and the
// active session, and never has a prompt and a session open at once.
type Coordinator struct {
	recognizer Recognizer
	synth      Synthesizer
	executor   ActionExecutor
	gate       PermissionGate
	notifier   Notifier
	dialogue   *Dialogue
	cfg        CoordinatorConfig
	logger     *slog.Logger

	activate chan struct{}

	mu              sync.Mutex
	state           domain.CoordinatorState
	session         *session
	opCancel        context.CancelFunc
	cancelRequested bool
	permitted       bool
}

func NewCoordinator(
	recognizer Recognizer,
	synth Synthesizer,
	executor ActionExecutor,
	gate PermissionGate,
	notifier Notifier,
	dialogue *Dialogue,
	cfg CoordinatorConfig,
	logger *slog.Logger,
) *Coordinator {
	if cfg.WelcomePrompt == "" {
		cfg.WelcomePrompt = defaultWelcomePrompt
	}
	if cfg.SilenceTimeout <= 0 {
		cfg.SilenceTimeout = DefaultSilenceTimeout
	}
	if cfg.ActionTimeout <= 0 {
		cfg.ActionTimeout = 10 * time.Second
	}
	if notifier == nil {
		notifier = &NoopNotifier{}
	}
	if gate == nil {
		gate = AllowAll{}
	}
	return &Coordinator{
		recognizer: recognizer,
		synth:      synth,
		executor:   executor,
		gate:       gate,
		notifier:   notifier,
		dialogue:   dialogue,
		cfg:        cfg,
		logger:     logger,
		activate:   make(chan struct{}, 1),
		state:      domain.StatePrompting,
	}
}

// Run greets the user and then serves turns until ctx is cancelled. Between
// dialogues it waits idle for Activate.
func (c *Coordinator) Run(ctx context.Context) error {
	c.logger.Info("coordinator starting", "recognizer", c.recognizer.Name())

	c.setState(domain.StatePrompting)
	pending := c.welcome(ctx)

	for {
		if len(pending) == 0 {
			c.enterIdle()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-c.activate:
			}
			pending = c.welcome(ctx)
			continue
		}

		next := c.runTurn(ctx, pending)
		if err := ctx.Err(); err != nil {
			c.enterIdle()
			return err
		}
		if c.takeCancel() {
			c.dialogue.Reset()
			next = nil
		}
		pending = next
	}
}

// Activate starts a new dialogue from idle, like tapping the microphone
// button. It reports false when a turn is already in flight, including the
// welcome turn Run opens with.
func (c *Coordinator) Activate() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != domain.StateIdle {
		return false
	}
	select {
	case c.activate <- struct{}{}:
		c.state = domain.StatePrompting
		return true
	default:
		return false
	}
}

// Cancel stops any prompt or listening session without waiting for it to
// finish and resets the dialogue. Events arriving afterwards are discarded.
func (c *Coordinator) Cancel() {
	c.mu.Lock()
	previous := c.state
	if previous != domain.StateIdle {
		c.state = domain.StateCancelling
		c.cancelRequested = true
	}
	cancel := c.opCancel
	active := c.session
	c.session = nil
	c.mu.Unlock()

	if active != nil {
		if err := active.stream.Cancel(); err != nil {
			c.logger.Warn("cancelling transcript stream", "session", active.id, "error", err)
		}
	}
	if cancel != nil {
		cancel()
	}
	c.dialogue.Reset()

	c.logger.Info("cancel requested", "state", previous)
}

func (c *Coordinator) Status() domain.Status {
	c.mu.Lock()
	status := domain.Status{State: c.state}
	if c.session != nil {
		status.SessionID = c.session.id
	}
	c.mu.Unlock()

	status.Dialogue = c.dialogue.Context()
	return status
}

func (c *Coordinator) welcome(ctx context.Context) []domain.Intent {
	if err := c.ensurePermissions(ctx); err != nil {
		c.advise(ctx, err)
		return nil
	}
	return []domain.Intent{domain.Prompt(c.cfg.WelcomePrompt)}
}

// runTurn carries out one batch of intents in order, then opens at most one
// listening session. It returns the intents produced by what was heard, or
// nil when the coordinator should go idle.
func (c *Coordinator) runTurn(ctx context.Context, intents []domain.Intent) []domain.Intent {
	opCtx, cancel := c.beginOperation(ctx)
	defer c.endOperation(cancel)

	listen := false
	for _, intent := range intents {
		if opCtx.Err() != nil {
			return nil
		}

		switch intent.Kind {
		case domain.IntentPrompt:
			if err := c.speak(opCtx, intent.Text); err != nil {
				return nil
			}
			listen = true
		case domain.IntentStartListening:
			listen = true
		case domain.IntentStopListening:
			c.endSession(false)
			listen = false
		case domain.IntentCancelListening:
			c.endSession(true)
			listen = false
		case domain.IntentPlaceCall, domain.IntentSendText, domain.IntentOpenGallery:
			c.execute(opCtx, intent)
		case domain.IntentNoop:
		default:
			c.logger.Warn("unhandled intent", "intent", intent.String())
		}
	}

	if !listen {
		return nil
	}
	return c.listen(opCtx)
}

func (c *Coordinator) speak(ctx context.Context, text string) error {
	c.setState(domain.StatePrompting)
	c.logger.Info("prompting", "text", text)

	if err := c.synth.Speak(ctx, text); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.logger.Warn("speech synthesis failed", "text", text, "error", err)
	}
	return ctx.Err()
}

func (c *Coordinator) listen(ctx context.Context) []domain.Intent {
	if err := c.ensurePermissions(ctx); err != nil {
		c.advise(ctx, err)
		return nil
	}

	active, err := c.startSession(ctx)
	if err != nil {
		if errors.Is(err, errAlreadyListening) {
			c.logger.Debug("start listening ignored, session already active")
			return nil
		}
		if ctx.Err() == nil {
			c.advise(ctx, err)
		}
		return nil
	}

	text, err := active.stabilizer.Await(ctx, active.stream)
	c.finishSession(active, ctx.Err() != nil)

	if err != nil {
		switch {
		case ctx.Err() != nil:
			c.logger.Info("listening cancelled", "session", active.id)
		case errors.Is(err, domain.ErrStream):
			c.logger.Warn("transcription stream failed", "session", active.id, "error", err)
		default:
			c.logger.Info("no utterance captured", "session", active.id, "error", err)
		}
		return nil
	}

	c.logger.Info("utterance complete", "session", active.id, "text", text)
	return c.dialogue.Handle(text)
}

func (c *Coordinator) startSession(ctx context.Context) (*session, error) {
	c.mu.Lock()
	busy := c.session != nil
	c.mu.Unlock()
	if busy {
		return nil, errAlreadyListening
	}

	stream, err := c.recognizer.Start(ctx)
	if err != nil {
		return nil, err
	}

	policy := c.dialogue.Policy()
	active := &session{
		id:         uuid.NewString(),
		stream:     stream,
		stabilizer: NewStabilizer(c.cfg.SilenceTimeout, policy),
	}

	c.mu.Lock()
	c.session = active
	c.state = domain.StateListening
	c.mu.Unlock()

	c.logger.Info("listening", "session", active.id, "immediate", policy.Immediate)
	return active, nil
}

func (c *Coordinator) finishSession(active *session, cancelled bool) {
	c.mu.Lock()
	if c.session == active {
		c.session = nil
	}
	c.mu.Unlock()

	stop := active.stream.Stop
	if cancelled {
		stop = active.stream.Cancel
	}
	if err := stop(); err != nil {
		c.logger.Warn("closing transcript stream", "session", active.id, "error", err)
	}
}

func (c *Coordinator) endSession(cancelled bool) {
	c.mu.Lock()
	active := c.session
	c.mu.Unlock()
	if active != nil {
		c.finishSession(active, cancelled)
	}
}

func (c *Coordinator) execute(ctx context.Context, intent domain.Intent) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.ActionTimeout)
	defer cancel()

	var err error
	switch intent.Kind {
	case domain.IntentPlaceCall:
		err = c.executor.PlaceCall(ctx, intent.Number)
	case domain.IntentSendText:
		err = c.executor.SendText(ctx, intent.Number, intent.Body)
	case domain.IntentOpenGallery:
		err = c.executor.OpenGallery(ctx)
	}
	if err != nil {
		c.logger.Error("executing action", "intent", intent.String(), "error", err)
		return
	}
	c.logger.Info("action executed", "intent", intent.String())
}

func (c *Coordinator) ensurePermissions(ctx context.Context) error {
	c.mu.Lock()
	permitted := c.permitted
	c.mu.Unlock()
	if permitted {
		return nil
	}

	if !c.gate.SpeechAccess(ctx) || !c.gate.MicrophoneAccess(ctx) {
		return domain.ErrPermissionDenied
	}

	c.mu.Lock()
	c.permitted = true
	c.mu.Unlock()
	return nil
}

func (c *Coordinator) advise(ctx context.Context, err error) {
	message := domain.Advisory(err)
	if message == "" {
		c.logger.Warn("listening aborted", "error", err)
		return
	}

	c.logger.Warn("advisory", "message", message, "error", err)
	if notifyErr := c.notifier.Notify(ctx, message); notifyErr != nil {
		c.logger.Error("notifying advisory", "error", notifyErr)
	}
}

func (c *Coordinator) beginOperation(ctx context.Context) (context.Context, context.CancelFunc) {
	opCtx, cancel := context.WithCancel(ctx)

	c.mu.Lock()
	c.opCancel = cancel
	if c.cancelRequested {
		cancel()
	}
	c.mu.Unlock()

	return opCtx, cancel
}

func (c *Coordinator) endOperation(cancel context.CancelFunc) {
	cancel()
	c.mu.Lock()
	c.opCancel = nil
	c.mu.Unlock()
}

func (c *Coordinator) takeCancel() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	requested := c.cancelRequested
	c.cancelRequested = false
	return requested
}

func (c *Coordinator) enterIdle() {
	c.mu.Lock()
	c.state = domain.StateIdle
	c.cancelRequested = false
	c.mu.Unlock()
}

func (c *Coordinator) setState(state domain.CoordinatorState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == domain.StateCancelling {
		return
	}
	c.state = state
}
