// Package wire defines the chat message record exchanged between peers and
// its JSON encoding. The encoding is the only interoperability contract of the
// mesh: one object per transport frame with exactly the fields sender, text
// and timestamp.
package wire

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrMalformed is returned by Decode for payloads that are not a message.
var ErrMalformed = errors.New("malformed message payload")

// Message is a chat message as authored by Sender. Timestamp is in epoch
// milliseconds.
type Message struct {
	Sender    string `json:"sender"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
}

// Key identifies a message for duplicate detection. The protocol carries no
// message id, so the (sender, timestamp, text) triple stands in for one.
type Key struct {
	Sender    string
	Timestamp int64
	Text      string
}

// New builds a message authored by sender at the given time.
func New(sender, text string, at time.Time) Message {
	return Message{Sender: sender, Text: text, Timestamp: at.UnixMilli()}
}

// Key returns the duplicate-detection key of m.
func (m Message) Key() Key {
	return Key{Sender: m.Sender, Timestamp: m.Timestamp, Text: m.Text}
}

// Time returns the message timestamp as a time.Time.
func (m Message) Time() time.Time {
	return time.UnixMilli(m.Timestamp)
}

// Encode serializes m into its wire form.
func Encode(m Message) ([]byte, error) {
	return json.Marshal(m)
}

// shape mirrors Message with pointer fields so missing keys can be told apart
// from zero values.
type shape struct {
	Sender    *string `json:"sender"`
	Text      *string `json:"text"`
	Timestamp *int64  `json:"timestamp"`
}

// Decode parses a wire payload. Anything that is not a JSON object carrying a
// non-empty string sender, a string text and an integer timestamp is reported
// as ErrMalformed.
func Decode(payload []byte) (Message, error) {
	var s shape
	if err := json.Unmarshal(payload, &s); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	switch {
	case s.Sender == nil || *s.Sender == "":
		return Message{}, fmt.Errorf("%w: missing sender", ErrMalformed)
	case s.Text == nil:
		return Message{}, fmt.Errorf("%w: missing text", ErrMalformed)
	case s.Timestamp == nil:
		return Message{}, fmt.Errorf("%w: missing timestamp", ErrMalformed)
	}
	return Message{Sender: *s.Sender, Text: *s.Text, Timestamp: *s.Timestamp}, nil
}
