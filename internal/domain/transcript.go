package domain

// TranscriptEvent is one incremental update from a speech recognizer.
type TranscriptEvent struct {
	Text    string `json:"text" yaml:"text"`
	IsFinal bool   `json:"is_final" yaml:"final"`
}
