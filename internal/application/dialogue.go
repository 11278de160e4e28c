package application

import (
	"log/slog"
	"strings"
	"sync"

	"handsfree/internal/domain"
)

const cancelPrompt = "Cancelling your request"

type DialogueConfig struct {
	DialPrefix   string
	NumberDigits int
}

func DefaultDialogueConfig() DialogueConfig {
	return DialogueConfig{DialPrefix: "+1", NumberDigits: 10}
}

// numberLength is the buffer length at which a destination number is complete.
func (c DialogueConfig) numberLength() int {
	return len(c.DialPrefix) + c.NumberDigits
}

// StabilizerPolicy tells the stabilizer how to conclude the next utterance.
type StabilizerPolicy struct {
	// Immediate completes the utterance on the first non-duplicate event.
	Immediate bool
}

// Dialogue owns the process-wide DialogueContext and advances it one
// completed utterance at a time.
type Dialogue struct {
	cfg    DialogueConfig
	logger *slog.Logger

	mu  sync.Mutex
	ctx domain.DialogueContext
}

func NewDialogue(cfg DialogueConfig, logger *slog.Logger) *Dialogue {
	if cfg.NumberDigits <= 0 {
		cfg.NumberDigits = DefaultDialogueConfig().NumberDigits
	}
	return &Dialogue{cfg: cfg, logger: logger, ctx: domain.IdleContext()}
}

func (d *Dialogue) Context() domain.DialogueContext {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.ctx
}

func (d *Dialogue) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ctx = domain.IdleContext()
}

// Policy is immediate only while digits are being entered; a message body
// still waits for the speaker to finish.
func (d *Dialogue) Policy() StabilizerPolicy {
	d.mu.Lock()
	defer d.mu.Unlock()
	return StabilizerPolicy{Immediate: d.ctx.Collecting == domain.CollectDestinationNumber}
}

func (d *Dialogue) Handle(text string) []domain.Intent {
	d.mu.Lock()
	defer d.mu.Unlock()

	next, intents := Transition(d.cfg, d.ctx, text)
	d.logger.Info("utterance handled",
		"text", text,
		"action", next.Action,
		"collecting", next.Collecting,
		"number", next.NumberBuffer,
		"intents", len(intents),
	)
	d.ctx = next
	return intents
}

// Transition computes the next context and intents for a completed utterance.
// It has no side effects.
func Transition(cfg DialogueConfig, current domain.DialogueContext, text string) (domain.DialogueContext, []domain.Intent) {
	entry, known := lookup(normalize(text), current.Collecting)

	next := current
	var intents []domain.Intent

	switch {
	case known && entry.kind == ruleAction && current.Collecting == domain.CollectNone:
		next, intents = beginAction(cfg, entry.action)

	case known && entry.kind == ruleDigit && current.Collecting == domain.CollectDestinationNumber:
		next.NumberBuffer += string(entry.digit)

	case known && entry.kind == ruleCancel:
		next = domain.IdleContext()
		intents = []domain.Intent{domain.Prompt(cancelPrompt)}

	case current.Action == domain.ActionText && current.Collecting == domain.CollectMessageBody:
		intents = []domain.Intent{domain.SendText(current.NumberBuffer, strings.TrimSpace(text))}
		next = domain.IdleContext()

	default:
		intents = []domain.Intent{domain.Noop()}
	}

	return completeNumber(cfg, next, intents)
}

func beginAction(cfg DialogueConfig, action domain.ActionKind) (domain.DialogueContext, []domain.Intent) {
	if action == domain.ActionPhotos {
		return domain.IdleContext(), []domain.Intent{domain.OpenGallery()}
	}
	next := domain.DialogueContext{
		Action:       action,
		Collecting:   domain.CollectDestinationNumber,
		NumberBuffer: cfg.DialPrefix,
	}
	return next, []domain.Intent{domain.Prompt("Say the number you want to " + string(action))}
}

// completeNumber runs after every dispatch. While digits are still missing it
// asks to keep listening; once the number is full it moves the dialogue on.
func completeNumber(cfg DialogueConfig, ctx domain.DialogueContext, intents []domain.Intent) (domain.DialogueContext, []domain.Intent) {
	if ctx.Collecting != domain.CollectDestinationNumber {
		return ctx, intents
	}
	if len(ctx.NumberBuffer) < cfg.numberLength() {
		return ctx, append(intents, domain.StartListening())
	}

	intents = append(intents, domain.StopListening())
	switch ctx.Action {
	case domain.ActionCall:
		intents = append(intents, domain.PlaceCall(ctx.NumberBuffer))
		return domain.IdleContext(), intents
	case domain.ActionText:
		intents = append(intents, domain.Prompt("Enter the text you want to send to "+ctx.NumberBuffer))
		ctx.Collecting = domain.CollectMessageBody
		return ctx, intents
	default:
		ctx.Collecting = domain.CollectNone
		return ctx, intents
	}
}
