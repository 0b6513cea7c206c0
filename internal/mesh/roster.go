package mesh

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/samber/lo"
)

// Member is a configured group member. Connected mirrors whether the registry
// holds a channel for the member; it is for display only.
type Member struct {
	ID        string
	Connected bool
}

// Group is the named member set.
type Group struct {
	Name    string
	Members []Member
}

// GroupStore persists the group name and member ids.
type GroupStore interface {
	SaveGroup(name string, memberIDs []string) error
}

// Roster holds the group. It is not an access list: the relay works with any
// connected peer, member or not.
type Roster struct {
	self  string
	store GroupStore

	mu      sync.RWMutex
	name    string
	members map[string]*Member
}

// NewRoster creates an empty roster for the node self. store may be nil.
func NewRoster(self string, store GroupStore) *Roster {
	return &Roster{
		self:    self,
		store:   store,
		members: make(map[string]*Member),
	}
}

// NormalizeID trims and upper-cases a user-entered peer id.
func NormalizeID(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}

// Restore loads a persisted group. Connections do not survive a reload, so
// every member starts disconnected.
func (r *Roster) Restore(name string, ids []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.name = name
	r.members = make(map[string]*Member, len(ids))
	for _, id := range ids {
		r.members[id] = &Member{ID: id}
	}
}

// AddMember inserts id as a disconnected member and persists the group.
func (r *Roster) AddMember(id string) (string, error) {
	id = NormalizeID(id)
	r.mu.Lock()
	defer r.mu.Unlock()

	switch {
	case id == "":
		return "", ErrEmptyMemberID
	case strings.EqualFold(id, r.self):
		return "", ErrSelfMember
	}
	if _, ok := r.members[id]; ok {
		return "", fmt.Errorf("%w: %s", ErrDuplicateMember, id)
	}

	r.members[id] = &Member{ID: id}
	if err := r.persistLocked(); err != nil {
		delete(r.members, id)
		return "", err
	}
	return id, nil
}

// SetGroup renames the group. Membership is kept.
func (r *Roster) SetGroup(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrEmptyGroupName
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	prev := r.name
	r.name = name
	if err := r.persistLocked(); err != nil {
		r.name = prev
		return "", err
	}
	return name, nil
}

// MarkConnected sets the display flag of a member. Peers outside the roster
// are ignored. It reports whether a flag changed.
func (r *Roster) MarkConnected(id string, connected bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.members[id]
	if !ok || m.Connected == connected {
		return false
	}
	m.Connected = connected
	return true
}

// IsMember reports whether id is in the roster.
func (r *Roster) IsMember(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.members[id]
	return ok
}

// Name returns the group name, empty before a group was started.
func (r *Roster) Name() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.name
}

// Members returns a sorted snapshot of the members.
func (r *Roster) Members() []Member {
	r.mu.RLock()
	list := lo.MapToSlice(r.members, func(_ string, m *Member) Member { return *m })
	r.mu.RUnlock()
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list
}

// Group returns a snapshot of the whole group.
func (r *Roster) Group() Group {
	return Group{Name: r.Name(), Members: r.Members()}
}

func (r *Roster) persistLocked() error {
	if r.store == nil {
		return nil
	}
	ids := lo.Keys(r.members)
	sort.Strings(ids)
	if err := r.store.SaveGroup(r.name, ids); err != nil {
		return fmt.Errorf("save group: %w", err)
	}
	return nil
}
