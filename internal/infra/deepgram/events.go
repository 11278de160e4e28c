package deepgram

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"handsfree/internal/domain"
)

type deepgramResponse struct {
	Type        string `json:"type"`
	Message     string `json:"message"`
	Description string `json:"description"`
	IsFinal     bool   `json:"is_final"`
	SpeechFinal bool   `json:"speech_final"`

	Channel struct {
		Alternatives []alternative `json:"alternatives"`
	} `json:"channel"`
}

type alternative struct {
	Transcript string `json:"transcript"`
}

// decodeEvent maps one Deepgram message to a transcript event. ok is false
// for metadata and empty transcripts.
func decodeEvent(payload []byte) (event domain.TranscriptEvent, ok bool, err error) {
	var response deepgramResponse
	if err := json.Unmarshal(payload, &response); err != nil {
		return domain.TranscriptEvent{}, false, nil
	}

	if strings.EqualFold(response.Type, "Error") {
		message := strings.TrimSpace(response.Message)
		if message == "" {
			message = strings.TrimSpace(response.Description)
		}
		if message == "" {
			message = "deepgram returned an unknown error"
		}
		return domain.TranscriptEvent{}, false, errors.New(message)
	}

	if len(response.Channel.Alternatives) == 0 {
		return domain.TranscriptEvent{}, false, nil
	}
	text := strings.TrimSpace(response.Channel.Alternatives[0].Transcript)
	if text == "" {
		return domain.TranscriptEvent{}, false, nil
	}

	return domain.TranscriptEvent{
		Text:    text,
		IsFinal: response.IsFinal || response.SpeechFinal,
	}, true, nil
}

func websocketBase(apiBase string) string {
	base := strings.TrimRight(strings.TrimSpace(apiBase), "/")
	switch {
	case strings.HasPrefix(base, "https://"):
		return "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		return "ws://" + strings.TrimPrefix(base, "http://")
	default:
		return base
	}
}

func buildListenURL(cfg Config) (string, error) {
	listenURL, err := url.Parse(websocketBase(cfg.APIBaseURL) + "/listen")
	if err != nil {
		return "", fmt.Errorf("invalid deepgram api base url: %w", err)
	}

	query := listenURL.Query()
	query.Set("model", cfg.Model)
	query.Set("encoding", "linear16")
	query.Set("sample_rate", strconv.Itoa(cfg.Format.SampleRate))
	query.Set("channels", strconv.Itoa(cfg.Format.Channels))
	query.Set("interim_results", "true")
	query.Set("smart_format", strconv.FormatBool(cfg.SmartFormat))
	if cfg.Language != "" {
		query.Set("language", cfg.Language)
	}
	listenURL.RawQuery = query.Encode()
	return listenURL.String(), nil
}
