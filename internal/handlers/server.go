// internal/handlers/server.go
package handlers

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/sweetdream/tavern/internal/models"
	"github.com/sweetdream/tavern/internal/room"
)

// DefaultGraceWindow is how long a disconnected user's room membership is
// preserved pending reconnect.
const DefaultGraceWindow = 30 * time.Second

// SessionServer is the session coordinator: it owns the room store and user
// registry, resolves the acting user for every inbound action, enforces host
// authority and game-phase preconditions, and emits the resulting events.
//
// Every action produces at most one room-wide broadcast family or one
// sender-only error, never both. All room state is mutated under the room's
// lock, so two actions in the same room never race.
type SessionServer struct {
	Rooms *room.RoomStore
	Users *room.Registry

	// Grace is the disconnect grace window. Tests shrink it.
	Grace time.Duration

	logger *logrus.Logger

	reapMu     sync.Mutex
	reapTimers map[uuid.UUID]*time.Timer
}

// NewSessionServer builds a coordinator with empty stores and the default
// grace window.
func NewSessionServer(logger *logrus.Logger) *SessionServer {
	if logger == nil {
		logger = logrus.New()
	}
	return &SessionServer{
		Rooms:      room.NewRoomStore(),
		Users:      room.NewRegistry(),
		Grace:      DefaultGraceWindow,
		logger:     logger,
		reapTimers: make(map[uuid.UUID]*time.Timer),
	}
}

// HandleDisconnect marks the connection's user offline and schedules their
// removal after the grace window. If the user reconnects first, the timer is
// cancelled (and the callback re-checks online status anyway, so even a
// stale timer is harmless).
func (s *SessionServer) HandleDisconnect(conn *room.Connection) {
	u, ok := s.Users.MarkDisconnected(conn.ConnID)
	if !ok {
		return
	}
	s.logger.Infof("user %s (%s) disconnected, waiting %s for reconnect", u.Nickname, u.ID, s.Grace)

	if r, ok := s.Rooms.GetRoom(u.RoomID); ok {
		r.Mu.Lock()
		r.DetachConnUnsafe(u.ID, conn.ConnID)
		r.Mu.Unlock()
	}

	s.scheduleReap(u.ID)
}

// scheduleReap arms (or re-arms) the grace timer for a user.
func (s *SessionServer) scheduleReap(userID uuid.UUID) {
	s.reapMu.Lock()
	defer s.reapMu.Unlock()
	if t, ok := s.reapTimers[userID]; ok {
		t.Stop()
	}
	s.reapTimers[userID] = time.AfterFunc(s.Grace, func() {
		s.reapIfStillOffline(userID)
	})
}

// cancelReap disarms a pending grace timer, e.g. after a reconnect.
func (s *SessionServer) cancelReap(userID uuid.UUID) {
	s.reapMu.Lock()
	defer s.reapMu.Unlock()
	if t, ok := s.reapTimers[userID]; ok {
		t.Stop()
		delete(s.reapTimers, userID)
	}
}

// reapIfStillOffline removes a user whose grace window expired without a
// reconnect. The online re-check makes a stale timer a no-op.
func (s *SessionServer) reapIfStillOffline(userID uuid.UUID) {
	s.reapMu.Lock()
	delete(s.reapTimers, userID)
	s.reapMu.Unlock()

	u, ok := s.Users.Get(userID)
	if !ok || u.Online {
		return
	}
	s.logger.Infof("user %s (%s) did not reconnect in time, removing", u.Nickname, u.ID)
	if u.RoomID != "" {
		s.removeUserFromRoom(u)
	}
	s.Users.Delete(userID)
}

// removeUserFromRoom detaches u from their room: membership removal, host
// transfer, the membership-changed broadcasts, and empty-room teardown.
func (s *SessionServer) removeUserFromRoom(u *models.User) {
	r, ok := s.Rooms.GetRoom(u.RoomID)
	if !ok {
		return
	}

	r.Mu.Lock()
	newHost := r.RemoveUserUnsafe(u.ID)
	delete(r.Connections, u.ID)
	empty := len(r.Members) == 0
	if !empty {
		r.BroadcastAllUnsafe(event("userListUpdate", r.SeatListUnsafe()))
		r.BroadcastAllUnsafe(systemChat(u.Nickname + " left the room"))
		if newHost != nil {
			r.BroadcastAllUnsafe(event("hostChanged", map[string]interface{}{
				"newHostId":       newHost.ID.String(),
				"newHostNickname": newHost.Nickname,
			}))
		}
	}
	onEmpty := r.OnEmpty
	r.Mu.Unlock()

	u.RoomID = ""
	if empty && onEmpty != nil {
		onEmpty(r.Code)
	}
}

// event wraps a payload in the outbound envelope.
func event(typ string, data interface{}) map[string]interface{} {
	msg := map[string]interface{}{"type": typ}
	if data != nil {
		msg["data"] = data
	}
	return msg
}

// systemChat builds a system-attributed chat broadcast.
func systemChat(message string) map[string]interface{} {
	return event("chatMessage", map[string]interface{}{
		"type":    "system",
		"message": message,
	})
}

// stringField extracts a string field from a decoded packet.
func stringField(data map[string]interface{}, key string) string {
	v, _ := data[key].(string)
	return v
}

// seatNumber looks up a participant's display number in a seat list,
// defaulting to 1 when absent.
func seatNumber(seats []models.Seat, id string) int {
	for _, seat := range seats {
		if seat.ID == id {
			return seat.Number
		}
	}
	return 1
}
