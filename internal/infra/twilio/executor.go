// Package twilio places calls and sends SMS for the dialogue through the
// Twilio REST API.
package twilio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
	"github.com/twilio/twilio-go/twiml"
)

var (
	ErrGalleryUnsupported = errors.New("twilio executor cannot open the photo gallery")
	ErrNoOwnerNumber      = errors.New("twilio owner number is not configured")
)

// Config holds account credentials. Calls ring OwnerNumber first and bridge
// it to the destination once answered.
type Config struct {
	AccountSID  string
	AuthToken   string
	FromNumber  string
	OwnerNumber string
}

// API is the subset of the Twilio v2010 service used here.
type API interface {
	CreateCall(params *twilioApi.CreateCallParams) (*twilioApi.ApiV2010Call, error)
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

type Executor struct {
	api    API
	from   string
	owner  string
	logger *slog.Logger
}

func New(cfg Config, logger *slog.Logger) *Executor {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})
	return NewWithAPI(client.Api, cfg, logger)
}

func NewWithAPI(api API, cfg Config, logger *slog.Logger) *Executor {
	return &Executor{api: api, from: cfg.FromNumber, owner: cfg.OwnerNumber, logger: logger}
}

// DialTwiML returns the instructions that bridge the answered leg to number.
func DialTwiML(number string) (string, error) {
	dial := &twiml.VoiceDial{Number: number}
	return twiml.Voice([]twiml.Element{dial})
}

func (e *Executor) PlaceCall(ctx context.Context, number string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if e.owner == "" {
		return ErrNoOwnerNumber
	}

	instructions, err := DialTwiML(number)
	if err != nil {
		return fmt.Errorf("building twiml: %w", err)
	}

	params := &twilioApi.CreateCallParams{}
	params.SetTo(e.owner)
	params.SetFrom(e.from)
	params.SetTwiml(instructions)

	call, err := e.api.CreateCall(params)
	if err != nil {
		return fmt.Errorf("creating call: %w", err)
	}
	e.logger.Info("call placed", "owner", e.owner, "number", number, "sid", deref(call.Sid))
	return nil
}

func (e *Executor) SendText(ctx context.Context, number, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(number)
	params.SetFrom(e.from)
	params.SetBody(body)

	message, err := e.api.CreateMessage(params)
	if err != nil {
		return fmt.Errorf("sending message: %w", err)
	}
	e.logger.Info("text sent", "number", number, "sid", deref(message.Sid))
	return nil
}

func (e *Executor) OpenGallery(_ context.Context) error {
	return ErrGalleryUnsupported
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
