// internal/room/room_test.go
package room

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sweetdream/tavern/internal/models"
)

func newUser(nickname string) *models.User {
	return &models.User{ID: uuid.New(), Nickname: nickname, Online: true}
}

// seatIDs flattens a seat list to its ids for order assertions.
func seatIDs(seats []models.Seat) []string {
	ids := make([]string, len(seats))
	for i, s := range seats {
		ids[i] = s.ID
	}
	return ids
}

// TestSeatNumbering: host is always seat 1, then members in join order, with
// numbers contiguous from 1.
func TestSeatNumbering(t *testing.T) {
	host := newUser("Host")
	r := NewRoom("ABC123", host, false)

	bob := newUser("Bob")
	carol := newUser("Carol")
	r.AddUserUnsafe(bob)
	r.AddUserUnsafe(carol)

	seats := r.SeatListUnsafe()
	require.Len(t, seats, 3)
	assert.Equal(t, []string{host.ID.String(), bob.ID.String(), carol.ID.String()}, seatIDs(seats))
	for i, s := range seats {
		assert.Equal(t, i+1, s.Number, "seat numbers are contiguous")
	}
	assert.True(t, seats[0].IsHost)
	assert.False(t, seats[1].IsHost)
}

// TestSeatRenumberAfterLeave: removing a middle member closes the gap.
func TestSeatRenumberAfterLeave(t *testing.T) {
	host := newUser("Host")
	r := NewRoom("ABC123", host, false)
	bob := newUser("Bob")
	carol := newUser("Carol")
	r.AddUserUnsafe(bob)
	r.AddUserUnsafe(carol)

	newHost := r.RemoveUserUnsafe(bob.ID)
	assert.Nil(t, newHost, "removing a non-host does not transfer hosting")

	seats := r.SeatListUnsafe()
	require.Len(t, seats, 2)
	assert.Equal(t, []string{host.ID.String(), carol.ID.String()}, seatIDs(seats))
	assert.Equal(t, 2, seats[1].Number, "carol moves up to seat 2")
}

// TestHostTransfer: when the host leaves, the earliest-joined remaining
// member is promoted and takes seat 1.
func TestHostTransfer(t *testing.T) {
	host := newUser("Host")
	r := NewRoom("ABC123", host, false)
	bob := newUser("Bob")
	carol := newUser("Carol")
	r.AddUserUnsafe(bob)
	r.AddUserUnsafe(carol)

	promoted := r.RemoveUserUnsafe(host.ID)
	require.NotNil(t, promoted)
	assert.Equal(t, bob.ID, promoted.ID, "earliest joiner is promoted")
	assert.Equal(t, bob.ID, r.HostID)

	seats := r.SeatListUnsafe()
	require.Len(t, seats, 2)
	assert.Equal(t, bob.ID.String(), seats[0].ID)
	assert.True(t, seats[0].IsHost)
	assert.Equal(t, 1, seats[0].Number)
}

// TestVirtualSeats: virtual players only exist in host mode and seat after
// every real member.
func TestVirtualSeats(t *testing.T) {
	host := newUser("Host")
	normal := NewRoom("NORMAL", host, false)
	_, err := normal.AddVirtualUnsafe("Ghost")
	assert.ErrorIs(t, err, ErrNotHostMode)

	r := NewRoom("ABC123", newUser("Host"), true)
	vp, err := r.AddVirtualUnsafe("Ghost")
	require.NoError(t, err)

	bob := newUser("Bob")
	r.AddUserUnsafe(bob)

	seats := r.SeatListUnsafe()
	require.Len(t, seats, 3)
	assert.Equal(t, vp.ID.String(), seats[2].ID, "virtuals seat after real members")
	assert.True(t, seats[2].IsVirtual)
	assert.Equal(t, 3, seats[2].Number)

	removed, err := r.RemoveVirtualUnsafe(vp.ID.String())
	require.NoError(t, err)
	assert.Equal(t, vp.ID, removed.ID)
	assert.Len(t, r.SeatListUnsafe(), 2)

	_, err = r.RemoveVirtualUnsafe(vp.ID.String())
	assert.ErrorIs(t, err, ErrVirtualNotFound)
}

// TestAttachReplacesConnection: a second connection for the same user tears
// down the first.
func TestAttachReplacesConnection(t *testing.T) {
	host := newUser("Host")
	r := NewRoom("ABC123", host, false)

	old := &Connection{ConnID: "conn-1", UserID: host.ID, OutChan: make(chan map[string]interface{}, 4)}
	r.AttachConnUnsafe(old)

	cancelled := false
	old.Cancel = func() { cancelled = true }

	fresh := &Connection{ConnID: "conn-2", UserID: host.ID, OutChan: make(chan map[string]interface{}, 4)}
	r.AttachConnUnsafe(fresh)

	assert.True(t, cancelled, "stale connection is cancelled")
	_, open := <-old.OutChan
	assert.False(t, open, "stale OutChan is closed")
	assert.Same(t, fresh, r.Connections[host.ID])

	// A disconnect from the replaced connection must not evict the new one.
	r.DetachConnUnsafe(host.ID, "conn-1")
	assert.Same(t, fresh, r.Connections[host.ID])

	r.DetachConnUnsafe(host.ID, "conn-2")
	assert.NotContains(t, r.Connections, host.ID)
}

// TestRoomStoreCodes: codes are six chars from the room alphabet and lookup
// is case-insensitive.
func TestRoomStoreCodes(t *testing.T) {
	s := NewRoomStore()
	r := s.CreateRoom(newUser("Host"), false)

	assert.Len(t, r.Code, codeLength)
	for _, c := range r.Code {
		assert.Contains(t, codeAlphabet, string(c))
	}

	got, ok := s.GetRoom(strings.ToLower(r.Code))
	require.True(t, ok, "lowercase lookup resolves")
	assert.Same(t, r, got)

	_, ok = s.GetRoom("ZZZZZZ")
	assert.False(t, ok)

	s.DeleteRoom(r.Code)
	assert.Equal(t, 0, s.Len())
}

// TestRegistryConnLifecycle walks bind, disconnect, and rebind, including the
// stale-connection cases around a reconnect.
func TestRegistryConnLifecycle(t *testing.T) {
	reg := NewRegistry()
	u := newUser("Alice")
	u.ConnID = "conn-1"
	reg.Add(u)

	got, ok := reg.ResolveConn("conn-1")
	require.True(t, ok)
	assert.Same(t, u, got)

	gone, ok := reg.MarkDisconnected("conn-1")
	require.True(t, ok)
	assert.Same(t, u, gone)
	assert.False(t, u.Online)
	assert.False(t, u.DisconnectedAt.IsZero())
	_, ok = reg.ResolveConn("conn-1")
	assert.False(t, ok, "disconnected conn no longer resolves")

	// Double disconnect of the same conn id is a no-op.
	_, ok = reg.MarkDisconnected("conn-1")
	assert.False(t, ok)

	reg.Rebind(u, "conn-2")
	assert.True(t, u.Online)
	assert.True(t, u.DisconnectedAt.IsZero())
	got, ok = reg.ResolveConn("conn-2")
	require.True(t, ok)
	assert.Same(t, u, got)

	// The old conn id went stale with the rebind, so a late close event from
	// it must not knock the user offline.
	_, ok = reg.MarkDisconnected("conn-1")
	assert.False(t, ok)
	assert.True(t, u.Online)

	reg.Delete(u.ID)
	_, ok = reg.Get(u.ID)
	assert.False(t, ok)
	_, ok = reg.ResolveConn("conn-2")
	assert.False(t, ok)
}

// TestRoomStoreOnEmpty: the store wires room teardown so an emptied room
// deletes itself.
func TestRoomStoreOnEmpty(t *testing.T) {
	s := NewRoomStore()
	host := newUser("Host")
	r := s.CreateRoom(host, false)

	r.Mu.Lock()
	r.RemoveUserUnsafe(host.ID)
	empty := len(r.Members) == 0
	onEmpty := r.OnEmpty
	r.Mu.Unlock()

	require.True(t, empty)
	onEmpty(r.Code)
	assert.Equal(t, 0, s.Len())
}
