// Package journal records everything the node presents locally: chat
// messages go to the message log and out on the bus for watchers.
package journal

import (
	"time"

	"github.com/matheus3301/meshchat/internal/bus"
	"github.com/matheus3301/meshchat/internal/mesh"
	"github.com/matheus3301/meshchat/internal/store"
	"go.uber.org/zap"
)

// Event kinds published by the journal. The payload is a store.Entry.
const (
	EventMessage = "chat.message"
	EventNotice  = "chat.notice"
)

// Journal is the node's mesh.Sink.
type Journal struct {
	db     *store.DB
	bus    *bus.Bus
	logger *zap.Logger
	now    func() time.Time
}

var _ mesh.Sink = (*Journal)(nil)

// New creates a journal. db may be nil, in which case entries are only
// published.
func New(db *store.DB, b *bus.Bus, logger *zap.Logger) *Journal {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Journal{
		db:     db,
		bus:    b,
		logger: logger,
		now:    time.Now,
	}
}

// Deliver stores a chat message and announces it.
func (j *Journal) Deliver(e mesh.Entry) {
	j.record(EventMessage, &store.Entry{
		Origin:    string(e.Origin),
		Sender:    e.Message.Sender,
		Body:      e.Message.Text,
		Timestamp: e.Message.Timestamp,
	})
}

// Notice stores a system notice and announces it.
func (j *Journal) Notice(text string) {
	j.record(EventNotice, &store.Entry{
		Origin:    string(mesh.OriginSystem),
		Body:      text,
		Timestamp: j.now().UnixMilli(),
	})
}

// record persists entry and publishes it. A failed write is logged and the
// entry is still published, so display never depends on the disk.
func (j *Journal) record(kind string, entry *store.Entry) {
	if j.db != nil {
		if err := j.db.AppendEntry(entry); err != nil {
			j.logger.Error("failed to store entry", zap.Error(err), zap.String("origin", entry.Origin))
		}
	}
	j.logger.Debug("entry recorded",
		zap.String("origin", entry.Origin), zap.String("sender", entry.Sender), zap.Int64("id", entry.ID))
	if j.bus != nil {
		j.bus.Publish(bus.Event{Kind: kind, Timestamp: j.now(), Payload: *entry})
	}
}
