package api

import (
	"encoding/json"
	"fmt"

	"google.golang.org/protobuf/types/known/structpb"
)

// StatusView is the reply of GetStatus.
type StatusView struct {
	Profile    string       `json:"profile"`
	PeerID     string       `json:"peer_id"`
	State      string       `json:"state"`
	Group      string       `json:"group"`
	Members    []MemberView `json:"members"`
	Peers      []string     `json:"peers"`
	Messages   int          `json:"messages"`
	UptimeMs   int64        `json:"uptime_ms"`
	RSSBytes   uint64       `json:"rss_bytes,omitempty"`
	CPUPercent float64      `json:"cpu_percent,omitempty"`
}

// MemberView is one roster member.
type MemberView struct {
	ID        string `json:"id"`
	Connected bool   `json:"connected"`
}

// EntryView is one line of the message log.
type EntryView struct {
	ID        int64  `json:"id,omitempty"`
	Origin    string `json:"origin"`
	Sender    string `json:"sender,omitempty"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
}

// ConnectParams is the request of Connect. Verify, when set, takes precedence
// over Target.
type ConnectParams struct {
	Target string `json:"target"`
	Verify string `json:"verify,omitempty"`
}

// HistoryParams is the request of ListHistory.
type HistoryParams struct {
	Limit int    `json:"limit,omitempty"`
	Query string `json:"query,omitempty"`
}

// WatchParams is the request of Watch. An empty list watches everything.
type WatchParams struct {
	Namespaces []string `json:"namespaces,omitempty"`
}

// WatchEvent is one item of the Watch stream.
type WatchEvent struct {
	ID     string     `json:"id"`
	Kind   string     `json:"kind"`
	TimeMs int64      `json:"time_ms"`
	Entry  *EntryView `json:"entry,omitempty"`
	Peer   string     `json:"peer,omitempty"`
	Error  string     `json:"error,omitempty"`
	State  string     `json:"state,omitempty"`
	Group  string     `json:"group,omitempty"`
}

// toStruct converts v to a Struct through its JSON form.
func toStruct(v any) (*structpb.Struct, error) {
	m, err := toJSONValue[map[string]any](v)
	if err != nil {
		return nil, err
	}
	return structpb.NewStruct(m)
}

// toList converts a slice of JSON-shaped values to a ListValue.
func toList[T any](items []T) (*structpb.ListValue, error) {
	list, err := toJSONValue[[]any](items)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []any{}
	}
	return structpb.NewList(list)
}

func toJSONValue[T any](v any) (T, error) {
	var out T
	raw, err := json.Marshal(v)
	if err != nil {
		return out, fmt.Errorf("encode %T: %w", v, err)
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("decode %T: %w", v, err)
	}
	return out, nil
}

// fromStruct fills v from s.
func fromStruct(s *structpb.Struct, v any) error {
	if s == nil {
		return nil
	}
	return fromJSONValue(s.AsMap(), v)
}

// fromList fills v, a pointer to a slice, from l.
func fromList(l *structpb.ListValue, v any) error {
	if l == nil {
		return nil
	}
	return fromJSONValue(l.AsSlice(), v)
}

func fromJSONValue(in any, v any) error {
	raw, err := json.Marshal(in)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode %T: %w", v, err)
	}
	return nil
}
