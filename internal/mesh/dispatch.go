package mesh

import (
	"strings"
	"time"

	"github.com/matheus3301/meshchat/internal/wire"
	"go.uber.org/zap"
)

// Dispatcher sends locally authored messages to every open link.
// Delivery is fire-and-forget: no acknowledgement, no retry.
type Dispatcher struct {
	self     string
	registry *Registry
	sink     Sink
	seen     *SeenCache
	now      func() time.Time
	logger   *zap.Logger
}

// NewDispatcher creates a dispatcher. seen may be nil.
func NewDispatcher(self string, registry *Registry, sink Sink, seen *SeenCache, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		self:     self,
		registry: registry,
		sink:     sink,
		seen:     seen,
		now:      time.Now,
		logger:   logger,
	}
}

// Send authors text and pushes it to the links open at call time.
func (d *Dispatcher) Send(text string) (wire.Message, Outcome, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return wire.Message{}, Outcome{}, ErrEmptyText
	}
	links := d.registry.Active()
	if len(links) == 0 {
		return wire.Message{}, Outcome{}, ErrNoChannels
	}

	msg := wire.New(d.self, text, d.now())
	payload, err := wire.Encode(msg)
	if err != nil {
		return wire.Message{}, Outcome{}, err
	}

	d.sink.Deliver(Entry{Origin: OriginOwn, Message: msg})
	if d.seen != nil {
		d.seen.Add(msg.Key())
	}

	out := Outcome{Delivered: true}
	for _, link := range links {
		if err := link.Channel.Send(payload); err != nil {
			d.logger.Warn("send failed", zap.String("peer", link.Peer), zap.Error(err))
			out.Failed = append(out.Failed, link.Peer)
			continue
		}
		out.Forwarded = append(out.Forwarded, link.Peer)
	}
	return msg, out, nil
}
