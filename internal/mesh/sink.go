package mesh

import "github.com/matheus3301/meshchat/internal/wire"

// Origin tags how a displayed entry came to be.
type Origin string

const (
	OriginOwn     Origin = "own"
	OriginPartner Origin = "partner"
	OriginSystem  Origin = "system"
)

// Entry is a message as presented locally.
type Entry struct {
	Origin  Origin
	Message wire.Message
}

// Sink is the local consumer of the mesh: the display and message log.
type Sink interface {
	// Deliver presents a chat message.
	Deliver(e Entry)
	// Notice presents a local system notice.
	Notice(text string)
}

// SinkFunc adapts a function to Sink; notices are passed as system entries.
type SinkFunc func(e Entry)

func (f SinkFunc) Deliver(e Entry) { f(e) }

func (f SinkFunc) Notice(text string) {
	f(Entry{Origin: OriginSystem, Message: wire.Message{Text: text}})
}
