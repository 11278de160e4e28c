package twilio_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"handsfree/internal/infra/twilio"
)

type fakeAPI struct {
	calls    []*twilioApi.CreateCallParams
	messages []*twilioApi.CreateMessageParams
	err      error
}

func (f *fakeAPI) CreateCall(params *twilioApi.CreateCallParams) (*twilioApi.ApiV2010Call, error) {
	f.calls = append(f.calls, params)
	if f.err != nil {
		return nil, f.err
	}
	sid := "CA123"
	return &twilioApi.ApiV2010Call{Sid: &sid}, nil
}

func (f *fakeAPI) CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error) {
	f.messages = append(f.messages, params)
	if f.err != nil {
		return nil, f.err
	}
	return &twilioApi.ApiV2010Message{}, nil
}

func newExecutor(api *fakeAPI) *twilio.Executor {
	return twilio.NewWithAPI(api, twilio.Config{
		FromNumber:  "+15550000000",
		OwnerNumber: "+15559990000",
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestExecutor_PlaceCall(t *testing.T) {
	api := &fakeAPI{}
	if err := newExecutor(api).PlaceCall(context.Background(), "+15551234567"); err != nil {
		t.Fatalf("place call: %v", err)
	}

	if len(api.calls) != 1 {
		t.Fatalf("expected one call, got %d", len(api.calls))
	}
	params := api.calls[0]
	if *params.To != "+15559990000" || *params.From != "+15550000000" {
		t.Errorf("call should ring the owner: to=%s from=%s", *params.To, *params.From)
	}
	if params.Twiml == nil || !strings.Contains(*params.Twiml, "<Dial>+15551234567</Dial>") {
		t.Errorf("unexpected twiml %v", params.Twiml)
	}
	if strings.Contains(*params.Twiml, "<Dial>"+*params.To+"</Dial>") {
		t.Errorf("answered leg dials itself: to=%s twiml=%s", *params.To, *params.Twiml)
	}
}

func TestExecutor_PlaceCallNeedsOwner(t *testing.T) {
	api := &fakeAPI{}
	e := twilio.NewWithAPI(api, twilio.Config{FromNumber: "+15550000000"}, slog.New(slog.NewTextHandler(io.Discard, nil)))

	if err := e.PlaceCall(context.Background(), "+15551234567"); !errors.Is(err, twilio.ErrNoOwnerNumber) {
		t.Fatalf("expected ErrNoOwnerNumber, got %v", err)
	}
	if len(api.calls) != 0 {
		t.Errorf("call reached the API without an owner number")
	}
}

func TestExecutor_SendText(t *testing.T) {
	api := &fakeAPI{}
	if err := newExecutor(api).SendText(context.Background(), "+12065550100", "hello there"); err != nil {
		t.Fatalf("send text: %v", err)
	}

	if len(api.messages) != 1 {
		t.Fatalf("expected one message, got %d", len(api.messages))
	}
	params := api.messages[0]
	if *params.To != "+12065550100" || *params.Body != "hello there" || *params.From != "+15550000000" {
		t.Errorf("unexpected message params to=%s from=%s body=%s", *params.To, *params.From, *params.Body)
	}
}

func TestExecutor_Errors(t *testing.T) {
	api := &fakeAPI{err: errors.New("21211 invalid number")}
	e := newExecutor(api)

	if err := e.PlaceCall(context.Background(), "+1"); err == nil || !strings.Contains(err.Error(), "creating call") {
		t.Errorf("unexpected call error %v", err)
	}
	if err := e.SendText(context.Background(), "+1", "x"); err == nil || !strings.Contains(err.Error(), "sending message") {
		t.Errorf("unexpected message error %v", err)
	}
	if err := e.OpenGallery(context.Background()); !errors.Is(err, twilio.ErrGalleryUnsupported) {
		t.Errorf("expected ErrGalleryUnsupported, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	before := len(api.calls)
	if err := e.PlaceCall(ctx, "+15551234567"); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if len(api.calls) != before {
		t.Errorf("cancelled call reached the API")
	}
}

func TestDialTwiML(t *testing.T) {
	got, err := twilio.DialTwiML("+15551234567")
	if err != nil {
		t.Fatalf("building twiml: %v", err)
	}
	if !strings.Contains(got, "<Response>") || !strings.Contains(got, "<Dial>+15551234567</Dial>") {
		t.Errorf("unexpected twiml %q", got)
	}
}
