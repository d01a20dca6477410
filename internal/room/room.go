// internal/room/room.go
package room

import (
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sweetdream/tavern/internal/game"
	"github.com/sweetdream/tavern/internal/models"
)

var (
	ErrNotHostMode     = errors.New("virtual players are only available in host mode")
	ErrVirtualNotFound = errors.New("virtual player not found")
)

// Phase gates which actions are currently legal in a room, independent of
// the active game's own internal phase.
type Phase string

const (
	PhaseWaiting  Phase = "waiting"
	PhasePlaying  Phase = "playing"
	PhaseFinished Phase = "finished"
)

// Room is an ephemeral grouping of users identified by a short code. It owns
// host assignment, seat numbering, the virtual-player roster, and at most
// one active game.
type Room struct {
	Code     string    `json:"code"`
	HostID   uuid.UUID `json:"hostId"`
	HostMode bool      `json:"hostMode"`

	// Members maps userID -> user. order keeps the member join order so seat
	// numbering and host promotion stay deterministic.
	Members map[uuid.UUID]*models.User `json:"-"`
	order   []uuid.UUID

	// Virtuals are host-declared pseudo-members, seated after real members.
	Virtuals []*models.VirtualPlayer `json:"-"`

	// Connections holds the live websocket connections of online members.
	Connections map[uuid.UUID]*Connection `json:"-"`

	// Active game. Kind tags which pointer is live; starting a game replaces
	// the previous instance wholesale.
	Phase   Phase      `json:"phase"`
	Kind    game.Kind  `json:"gameKind,omitempty"`
	Bomb    *game.NumberBomb `json:"-"`
	Tianjiu *game.Tianjiu    `json:"-"`

	Created time.Time `json:"created"`

	// OnEmpty is called after the last member is removed, typically wired by
	// the store to delete the room.
	OnEmpty func(code string) `json:"-"`

	// Mu protects all room state. Methods with the Unsafe suffix assume the
	// caller holds it.
	Mu sync.Mutex `json:"-"`
}

// Connection is a single user's live presence in a room.
type Connection struct {
	ConnID string
	UserID uuid.UUID
	Cancel func()

	// OutChan feeds the connection's write pump.
	OutChan chan map[string]interface{}
}

// Write pushes a message onto the connection's OutChan without blocking.
// Drops (with a log line) if the channel is closed or full.
func (conn *Connection) Write(msg map[string]interface{}) {
	select {
	case conn.OutChan <- msg:
	default:
		msgType, _ := msg["type"].(string)
		log.Printf("Connection %s: OutChan closed or full, dropped message type %q", conn.ConnID, msgType)
	}
}

// WriteError sends a sender-only error event.
func (conn *Connection) WriteError(msg string) {
	conn.Write(map[string]interface{}{
		"type": "error",
		"data": map[string]interface{}{"message": msg},
	})
}

// NewRoom creates a room with the given code and host as its only member.
func NewRoom(code string, host *models.User, hostMode bool) *Room {
	r := &Room{
		Code:        code,
		HostID:      host.ID,
		HostMode:    hostMode,
		Members:     make(map[uuid.UUID]*models.User),
		Connections: make(map[uuid.UUID]*Connection),
		Phase:       PhaseWaiting,
		Created:     time.Now(),
	}
	r.AddUserUnsafe(host)
	return r
}

// AddUserUnsafe inserts a member and records the room on the user.
// Assumes lock is held (or the room is not yet shared).
func (r *Room) AddUserUnsafe(u *models.User) {
	if _, exists := r.Members[u.ID]; exists {
		return
	}
	r.Members[u.ID] = u
	r.order = append(r.order, u.ID)
	u.RoomID = r.Code
}

// RemoveUserUnsafe removes a member. If the removed user was host and other
// members remain, the earliest-joined remaining member is promoted and
// returned so the caller can broadcast a host change. Assumes lock is held.
func (r *Room) RemoveUserUnsafe(userID uuid.UUID) *models.User {
	if _, exists := r.Members[userID]; !exists {
		return nil
	}
	delete(r.Members, userID)
	for i, id := range r.order {
		if id == userID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	if r.HostID == userID && len(r.order) > 0 {
		next := r.Members[r.order[0]]
		r.HostID = next.ID
		return next
	}
	return nil
}

// SeatListUnsafe recomputes the seat list from scratch: host at 1, the other
// members at 2..N in join order, then virtual players with continuing
// numbers. Assumes lock is held.
func (r *Room) SeatListUnsafe() []models.Seat {
	seats := make([]models.Seat, 0, len(r.order)+len(r.Virtuals))

	if host, ok := r.Members[r.HostID]; ok {
		seats = append(seats, models.Seat{
			ID:       host.ID.String(),
			Nickname: host.Nickname,
			Number:   1,
			IsHost:   true,
		})
	}
	for _, id := range r.order {
		if id == r.HostID {
			continue
		}
		u := r.Members[id]
		seats = append(seats, models.Seat{
			ID:       u.ID.String(),
			Nickname: u.Nickname,
			Number:   len(seats) + 1,
		})
	}
	for _, vp := range r.Virtuals {
		seats = append(seats, models.Seat{
			ID:        vp.ID.String(),
			Nickname:  vp.Nickname,
			Number:    len(seats) + 1,
			IsVirtual: true,
		})
	}
	return seats
}

// AddVirtualUnsafe appends a virtual player to the roster. Assumes lock is held.
func (r *Room) AddVirtualUnsafe(nickname string) (*models.VirtualPlayer, error) {
	if !r.HostMode {
		return nil, ErrNotHostMode
	}
	vp := &models.VirtualPlayer{ID: uuid.New(), Nickname: nickname}
	r.Virtuals = append(r.Virtuals, vp)
	return vp, nil
}

// RemoveVirtualUnsafe removes a virtual player by id. Assumes lock is held.
func (r *Room) RemoveVirtualUnsafe(id string) (*models.VirtualPlayer, error) {
	if !r.HostMode {
		return nil, ErrNotHostMode
	}
	for i, vp := range r.Virtuals {
		if vp.ID.String() == id {
			r.Virtuals = append(r.Virtuals[:i], r.Virtuals[i+1:]...)
			return vp, nil
		}
	}
	return nil, ErrVirtualNotFound
}

// AttachConnUnsafe registers a live connection for a member, replacing and
// tearing down any previous connection. Assumes lock is held.
func (r *Room) AttachConnUnsafe(conn *Connection) {
	if old, ok := r.Connections[conn.UserID]; ok && old != conn {
		close(old.OutChan)
		if old.Cancel != nil {
			old.Cancel()
		}
	}
	r.Connections[conn.UserID] = conn
}

// DetachConnUnsafe drops the connection for userID if connID still owns it.
// A stale disconnect from an already-replaced connection is a no-op.
// Assumes lock is held.
func (r *Room) DetachConnUnsafe(userID uuid.UUID, connID string) {
	if conn, ok := r.Connections[userID]; ok && conn.ConnID == connID {
		delete(r.Connections, userID)
	}
}

// BroadcastAllUnsafe sends msg to every live connection in the room.
// Writes are non-blocking, so holding the lock here is safe. Assumes lock is held.
func (r *Room) BroadcastAllUnsafe(msg map[string]interface{}) {
	for _, conn := range r.Connections {
		conn.Write(msg)
	}
}
