package wire

import (
	"encoding/json"
	"fmt"
)

// Memo is the public record on a topic describing where its configuration,
// messages and participants live.
type Memo struct {
	Storage MemoStorage `json:"s"`
}

// MemoStorage groups the storage choices.
type MemoStorage struct {
	Configuration ConfigurationStorage `json:"c"`
	Messages      MessageStorage       `json:"m"`
	Participants  ParticipantStorage   `json:"p"`
}

// ConfigurationStorage says whether the configuration is file-backed and
// names the file.
type ConfigurationStorage struct {
	File bool   `json:"f"`
	ID   string `json:"i,omitempty"`
}

// MessageStorage says whether message envelopes are file-backed.
type MessageStorage struct {
	File bool `json:"f"`
}

// ParticipantStorage says whether participants are kept in a side topic
// and names it.
type ParticipantStorage struct {
	Stored bool   `json:"p"`
	ID     string `json:"i,omitempty"`
}

// Encode returns the JSON form of the memo.
func (m *Memo) Encode() (string, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("failed to marshal memo: %w", err)
	}
	return string(data), nil
}

// ParseMemo parses a topic memo and checks the referenced ids are present.
func ParseMemo(s string) (*Memo, error) {
	var m Memo
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return nil, fmt.Errorf("%w: memo: %v", ErrMalformedConfiguration, err)
	}
	if m.Storage.Configuration.File && m.Storage.Configuration.ID == "" {
		return nil, fmt.Errorf("%w: memo names no configuration file", ErrMalformedConfiguration)
	}
	if m.Storage.Participants.Stored && m.Storage.Participants.ID == "" {
		return nil, fmt.Errorf("%w: memo names no participant topic", ErrMalformedConfiguration)
	}
	return &m, nil
}
