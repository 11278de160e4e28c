package domain

type ActionKind string

const (
	ActionIdle    ActionKind = "idle"
	ActionText    ActionKind = "text"
	ActionCall    ActionKind = "call"
	ActionPhotos  ActionKind = "photos"
	ActionUnknown ActionKind = "unknown"
)

type CollectionKind string

const (
	CollectNone              CollectionKind = "none"
	CollectDestinationNumber CollectionKind = "destination_number"
	CollectMessageBody       CollectionKind = "message_body"
)

// DialogueContext is the multi-turn state carried between utterances.
// NumberBuffer starts with the dial prefix while a destination number is
// being collected and keeps the full number through message-body entry.
type DialogueContext struct {
	Action       ActionKind     `json:"action"`
	Collecting   CollectionKind `json:"collecting"`
	NumberBuffer string         `json:"number_buffer"`
}

func IdleContext() DialogueContext {
	return DialogueContext{Action: ActionIdle, Collecting: CollectNone}
}

func (c DialogueContext) IsIdle() bool {
	return c.Action == ActionIdle && c.Collecting == CollectNone
}
