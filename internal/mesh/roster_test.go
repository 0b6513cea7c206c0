package mesh

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRosterAddMember(t *testing.T) {
	store := &memStore{}
	r := NewRoster("P2P_USER_AAAA", store)

	id, err := r.AddMember("  p2p_user_bbbb ")
	require.NoError(t, err)
	assert.Equal(t, "P2P_USER_BBBB", id)
	assert.True(t, r.IsMember("P2P_USER_BBBB"))
	assert.Equal(t, []Member{{ID: "P2P_USER_BBBB"}}, r.Members())
	assert.Equal(t, []string{"P2P_USER_BBBB"}, store.ids)
}

func TestRosterAddMemberRejects(t *testing.T) {
	r := NewRoster("P2P_USER_AAAA", nil)
	_, err := r.AddMember("P2P_USER_BBBB")
	require.NoError(t, err)

	tests := []struct {
		name string
		id   string
		want error
	}{
		{"empty", "   ", ErrEmptyMemberID},
		{"self", "p2p_user_aaaa", ErrSelfMember},
		{"duplicate", "P2P_USER_BBBB", ErrDuplicateMember},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.AddMember(tt.id)
			require.ErrorIs(t, err, tt.want)
			require.ErrorIs(t, err, ErrPrecondition)
		})
	}
	assert.Len(t, r.Members(), 1)
}

func TestRosterPersistFailureRollsBack(t *testing.T) {
	store := &memStore{err: errDisk}
	r := NewRoster("A", store)

	_, err := r.AddMember("B")
	require.ErrorIs(t, err, errDisk)
	assert.False(t, r.IsMember("B"))

	_, err = r.SetGroup("friends")
	require.ErrorIs(t, err, errDisk)
	assert.Empty(t, r.Name())
}

func TestRosterSetGroupKeepsMembers(t *testing.T) {
	store := &memStore{}
	r := NewRoster("A", store)
	_, err := r.AddMember("B")
	require.NoError(t, err)

	name, err := r.SetGroup("  friends ")
	require.NoError(t, err)
	assert.Equal(t, "friends", name)
	assert.Equal(t, "friends", store.name)
	assert.Equal(t, []string{"B"}, store.ids)

	_, err = r.SetGroup(" ")
	require.ErrorIs(t, err, ErrEmptyGroupName)
	assert.Equal(t, "friends", r.Name())
}

func TestRosterMarkConnected(t *testing.T) {
	r := NewRoster("A", nil)
	_, err := r.AddMember("B")
	require.NoError(t, err)

	assert.True(t, r.MarkConnected("B", true))
	assert.False(t, r.MarkConnected("B", true))
	assert.False(t, r.MarkConnected("Z", true), "non-members are ignored")
	assert.Equal(t, []Member{{ID: "B", Connected: true}}, r.Members())
	assert.False(t, r.IsMember("Z"))
}

func TestRosterRestore(t *testing.T) {
	r := NewRoster("A", nil)
	r.Restore("friends", []string{"C", "B"})

	g := r.Group()
	assert.Equal(t, "friends", g.Name)
	assert.Equal(t, []Member{{ID: "B"}, {ID: "C"}}, g.Members)
}
