package mesh

import (
	"sort"
	"sync"

	"github.com/matheus3301/meshchat/internal/transport"
	"github.com/samber/lo"
)

// Link is one registry entry.
type Link struct {
	Peer    string
	Channel transport.Channel
}

// Registry tracks at most one channel per peer. An entry exists exactly while
// its channel exists; closing removes it.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]transport.Channel
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]transport.Channel)}
}

// Register installs ch for peer, replacing any previous entry.
func (r *Registry) Register(peer string, ch transport.Channel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[peer] = ch
}

// Unregister removes the entry for peer. It reports whether an entry existed.
func (r *Registry) Unregister(peer string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[peer]; !ok {
		return false
	}
	delete(r.entries, peer)
	return true
}

// UnregisterChannel removes the entry for peer only while it still holds ch.
func (r *Registry) UnregisterChannel(peer string, ch transport.Channel) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.entries[peer]
	if !ok || cur != ch {
		return false
	}
	delete(r.entries, peer)
	return true
}

// Get returns the channel for peer if it is present and open.
func (r *Registry) Get(peer string) (transport.Channel, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ch, ok := r.entries[peer]
	if !ok || ch.State() != transport.Open {
		return nil, false
	}
	return ch, true
}

// Has reports whether peer has an entry, open or still opening.
func (r *Registry) Has(peer string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[peer]
	return ok
}

// Len returns the number of entries.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Active returns the open links sorted by peer id. The slice is a snapshot;
// later registrations do not affect it.
func (r *Registry) Active() []Link {
	r.mu.RLock()
	links := lo.FilterMap(lo.Entries(r.entries), func(e lo.Entry[string, transport.Channel], _ int) (Link, bool) {
		return Link{Peer: e.Key, Channel: e.Value}, e.Value.State() == transport.Open
	})
	r.mu.RUnlock()
	sort.Slice(links, func(i, j int) bool { return links[i].Peer < links[j].Peer })
	return links
}

// Peers returns the ids of all open links, sorted.
func (r *Registry) Peers() []string {
	return lo.Map(r.Active(), func(l Link, _ int) string { return l.Peer })
}
