package mesh

import (
	"fmt"

	"github.com/matheus3301/meshchat/internal/wire"
	"go.uber.org/zap"
)

// DropReason explains why the relay did not deliver a payload.
type DropReason string

const (
	DropNone      DropReason = ""
	DropMalformed DropReason = "malformed"
	DropOwn       DropReason = "own_message"
	DropDuplicate DropReason = "duplicate"
)

// Outcome summarizes one relay pass.
type Outcome struct {
	Delivered bool
	Forwarded []string
	Failed    []string
	Dropped   DropReason
}

// Relay floods inbound messages: each message is shown locally once and
// forwarded unchanged to every open link except the hop it came from and its
// author.
type Relay struct {
	self     string
	registry *Registry
	sink     Sink
	seen     *SeenCache
	logger   *zap.Logger
}

// NewRelay creates a relay. A nil seen cache gives pure flooding, where a
// message arriving over two paths is shown and forwarded twice.
func NewRelay(self string, registry *Registry, sink Sink, seen *SeenCache, logger *zap.Logger) *Relay {
	return &Relay{
		self:     self,
		registry: registry,
		sink:     sink,
		seen:     seen,
		logger:   logger,
	}
}

// Handle processes one payload received from the hop peer from.
func (r *Relay) Handle(from string, payload []byte) Outcome {
	msg, err := wire.Decode(payload)
	if err != nil {
		r.logger.Warn("unreadable payload", zap.String("peer", from), zap.Error(err))
		r.sink.Notice(fmt.Sprintf("[%s sent unreadable data]", from))
		return Outcome{Dropped: DropMalformed}
	}

	if msg.Sender == r.self {
		r.logger.Debug("dropping looped own message", zap.String("peer", from))
		return Outcome{Dropped: DropOwn}
	}

	if r.seen != nil && !r.seen.Add(msg.Key()) {
		r.logger.Debug("dropping duplicate message",
			zap.String("peer", from), zap.String("sender", msg.Sender), zap.Int64("timestamp", msg.Timestamp))
		return Outcome{Dropped: DropDuplicate}
	}

	r.sink.Deliver(Entry{Origin: OriginPartner, Message: msg})
	out := Outcome{Delivered: true}

	for _, link := range r.registry.Active() {
		if link.Peer == from || link.Peer == msg.Sender {
			continue
		}
		if err := link.Channel.Send(payload); err != nil {
			r.logger.Warn("relay write failed", zap.String("peer", link.Peer), zap.Error(err))
			out.Failed = append(out.Failed, link.Peer)
			continue
		}
		out.Forwarded = append(out.Forwarded, link.Peer)
	}
	return out
}
