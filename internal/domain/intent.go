package domain

import "fmt"

type IntentKind string

const (
	IntentPrompt          IntentKind = "prompt"
	IntentStartListening  IntentKind = "start_listening"
	IntentStopListening   IntentKind = "stop_listening"
	IntentCancelListening IntentKind = "cancel_listening"
	IntentPlaceCall       IntentKind = "place_call"
	IntentSendText        IntentKind = "send_text"
	IntentOpenGallery     IntentKind = "open_gallery"
	IntentNoop            IntentKind = "noop"
)

// Intent is a one-shot instruction produced by the dialogue for the
// coordinator or an action executor. Only the fields relevant to Kind are set.
type Intent struct {
	Kind   IntentKind
	Text   string
	Number string
	Body   string
}

func Prompt(text string) Intent { return Intent{Kind: IntentPrompt, Text: text} }

func StartListening() Intent { return Intent{Kind: IntentStartListening} }

func StopListening() Intent { return Intent{Kind: IntentStopListening} }

func CancelListening() Intent { return Intent{Kind: IntentCancelListening} }

func PlaceCall(number string) Intent { return Intent{Kind: IntentPlaceCall, Number: number} }

func SendText(number, body string) Intent {
	return Intent{Kind: IntentSendText, Number: number, Body: body}
}

func OpenGallery() Intent { return Intent{Kind: IntentOpenGallery} }

func Noop() Intent { return Intent{Kind: IntentNoop} }

func (i Intent) String() string {
	switch i.Kind {
	case IntentPrompt:
		return fmt.Sprintf("prompt(%q)", i.Text)
	case IntentPlaceCall:
		return fmt.Sprintf("place_call(%s)", i.Number)
	case IntentSendText:
		return fmt.Sprintf("send_text(%s, %q)", i.Number, i.Body)
	default:
		return string(i.Kind)
	}
}
