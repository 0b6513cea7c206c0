package store

// Entry is one line of the message log: a chat message or a system notice.
type Entry struct {
	ID        int64
	Origin    string // own, partner, system
	Sender    string
	Body      string
	Timestamp int64 // epoch ms as authored
	CreatedAt int64 // epoch ms when stored
}

// Group is the persisted roster.
type Group struct {
	Name    string
	Members []string
}
