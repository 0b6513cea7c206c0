package wire

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEncodeFieldNames(t *testing.T) {
	payload, err := Encode(Message{Sender: "P2P_USER_AB12", Text: "hi", Timestamp: 1700000000123})
	require.NoError(t, err)
	require.JSONEq(t, `{"sender":"P2P_USER_AB12","text":"hi","timestamp":1700000000123}`, string(payload))
}

func TestRoundTrip(t *testing.T) {
	msg := New("A", "hello \"mesh\"\nsecond line", time.UnixMilli(1700000000999))

	payload, err := Encode(msg)
	require.NoError(t, err)
	require.NotContains(t, string(payload), "\n", "encoded payload must stay on one line")

	got, err := Decode(payload)
	require.NoError(t, err)
	require.Equal(t, msg, got)
	require.Equal(t, msg.Key(), got.Key())
}

func TestDecodeMalformed(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"not json", "hello"},
		{"array", `["a","b"]`},
		{"missing sender", `{"text":"x","timestamp":1}`},
		{"empty sender", `{"sender":"","text":"x","timestamp":1}`},
		{"missing text", `{"sender":"A","timestamp":1}`},
		{"missing timestamp", `{"sender":"A","text":"x"}`},
		{"fractional timestamp", `{"sender":"A","text":"x","timestamp":1.5}`},
		{"string timestamp", `{"sender":"A","text":"x","timestamp":"1"}`},
		{"numeric sender", `{"sender":7,"text":"x","timestamp":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.payload))
			require.ErrorIs(t, err, ErrMalformed)
		})
	}
}

func TestDecodeIgnoresUnknownFields(t *testing.T) {
	got, err := Decode([]byte(`{"sender":"A","text":"","timestamp":5,"extra":true}`))
	require.NoError(t, err)
	require.Equal(t, Message{Sender: "A", Text: "", Timestamp: 5}, got)
}
