package transport

import (
	"fmt"
	"strings"
	"sync"
)

// AddressBook maps peer ids to dialable addresses.
type AddressBook struct {
	mu    sync.RWMutex
	addrs map[string]string
}

// NewAddressBook creates an address book seeded with addrs.
func NewAddressBook(addrs map[string]string) *AddressBook {
	b := &AddressBook{addrs: make(map[string]string, len(addrs))}
	for id, addr := range addrs {
		b.addrs[strings.ToUpper(id)] = addr
	}
	return b
}

// Set records the address of peer.
func (b *AddressBook) Set(peer, addr string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.addrs[strings.ToUpper(peer)] = addr
}

// Resolve returns the address for peer. An id that already looks like a
// host:port pair is returned unchanged.
func (b *AddressBook) Resolve(peer string) (string, error) {
	b.mu.RLock()
	addr, ok := b.addrs[strings.ToUpper(peer)]
	b.mu.RUnlock()
	if ok {
		return addr, nil
	}
	if strings.Contains(peer, ":") {
		return peer, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownPeer, peer)
}
