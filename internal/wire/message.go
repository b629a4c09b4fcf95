package wire

import (
	"encoding/json"
	"fmt"
)

// Message is the envelope stored on the ledger for one topic message.
// Ciphertext is sealed under the message key; Key and Nonce are sealed
// under the topic key of Generation.
type Message struct {
	Ciphertext string `json:"m"`
	Key        string `json:"k"`
	Nonce      string `json:"n"`
	Generation int    `json:"v"`
}

// Encode returns the JSON form of the message.
func (m *Message) Encode() (string, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("failed to marshal message: %w", err)
	}
	return string(data), nil
}

// DecodeMessage parses a message envelope. Anything that is not a complete
// envelope returns ErrNotAMessage.
func DecodeMessage(s string) (*Message, error) {
	var m Message
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotAMessage, err)
	}
	if m.Ciphertext == "" || m.Key == "" || m.Nonce == "" || m.Generation < 0 {
		return nil, fmt.Errorf("%w: incomplete envelope", ErrNotAMessage)
	}
	return &m, nil
}

// TopicData is the secret part of a generation.
type TopicData struct {
	SubmitKey string `json:"s"`
	Metadata  []byte `json:"m,omitempty"`
}

// Encode returns the JSON form of the topic data.
func (d *TopicData) Encode() ([]byte, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal topic data: %w", err)
	}
	return data, nil
}

// DecodeTopicData parses decrypted topic data.
func DecodeTopicData(data []byte) (*TopicData, error) {
	var d TopicData
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("%w: topic data: %v", ErrMalformedConfiguration, err)
	}
	if d.SubmitKey == "" {
		return nil, fmt.Errorf("%w: topic data has no submit key", ErrMalformedConfiguration)
	}
	return &d, nil
}
