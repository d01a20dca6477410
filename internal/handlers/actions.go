// internal/handlers/actions.go
package handlers

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sweetdream/tavern/internal/game"
	"github.com/sweetdream/tavern/internal/models"
	"github.com/sweetdream/tavern/internal/room"
)

// HandleAction dispatches one decoded inbound packet. Resolution, authority,
// and phase checks all happen here or in the delegated handler; failures go
// back to the sender only, successes broadcast to the room.
func (s *SessionServer) HandleAction(conn *room.Connection, packet map[string]interface{}) {
	action, _ := packet["type"].(string)
	data, _ := packet["data"].(map[string]interface{})
	if data == nil {
		data = map[string]interface{}{}
	}

	switch action {
	case "createRoom":
		s.handleCreateRoom(conn, data)
	case "joinRoom":
		s.handleJoinRoom(conn, data)
	case "reconnectToRoom":
		s.handleReconnectToRoom(conn, data)
	case "leaveRoom":
		s.handleLeaveRoom(conn)
	case "chatMessage":
		s.handleChatMessage(conn, data)
	case "startNumberBomb":
		s.handleStartNumberBomb(conn)
	case "numberBombGuess":
		s.handleNumberBombGuess(conn, data)
	case "startTianjiuPoker":
		s.handleStartTianjiuPoker(conn)
	case "drawTianjiuCard":
		s.handleDrawTianjiuCard(conn)
	case "handleTianjiuCardEffect":
		s.handleTianjiuCardEffect(conn, data)
	case "useReservedCard":
		s.handleUseReservedCard(conn, data)
	case "finishTianjiuRound":
		s.handleFinishTianjiuRound(conn)
	case "addVirtualPlayer":
		s.handleAddVirtualPlayer(conn, data)
	case "removeVirtualPlayer":
		s.handleRemoveVirtualPlayer(conn, data)
	default:
		s.logger.Warnf("unknown action %q from connection %s", action, conn.ConnID)
		conn.WriteError(fmt.Sprintf("unknown action type: %s", action))
	}
}

// actor resolves the acting user and their room from the connection. On
// failure it replies to the sender and returns ok=false.
func (s *SessionServer) actor(conn *room.Connection) (*models.User, *room.Room, bool) {
	u, ok := s.Users.ResolveConn(conn.ConnID)
	if !ok || u.RoomID == "" {
		conn.WriteError("invalid user state")
		return nil, nil, false
	}
	r, ok := s.Rooms.GetRoom(u.RoomID)
	if !ok {
		conn.WriteError("invalid user state")
		return nil, nil, false
	}
	return u, r, true
}

func (s *SessionServer) handleCreateRoom(conn *room.Connection, data map[string]interface{}) {
	nickname := stringField(data, "nickname")
	if nickname == "" {
		conn.WriteError("nickname is required")
		return
	}
	hostMode, _ := data["hostMode"].(bool)

	u := &models.User{
		ID:       uuid.New(),
		Nickname: nickname,
		ConnID:   conn.ConnID,
		Online:   true,
	}
	r := s.Rooms.CreateRoom(u, hostMode)
	s.Users.Add(u)
	conn.UserID = u.ID

	r.Mu.Lock()
	r.AttachConnUnsafe(conn)
	seats := r.SeatListUnsafe()
	r.Mu.Unlock()

	conn.Write(event("roomCreated", map[string]interface{}{
		"roomId":     r.Code,
		"userId":     u.ID.String(),
		"userNumber": 1,
		"isHost":     true,
		"hostMode":   hostMode,
	}))
	conn.Write(event("userListUpdate", seats))

	s.logger.Infof("room %s created by %s (%s), %d rooms live", r.Code, nickname, u.ID, s.Rooms.Len())
}

func (s *SessionServer) handleJoinRoom(conn *room.Connection, data map[string]interface{}) {
	nickname := stringField(data, "nickname")
	if nickname == "" {
		conn.WriteError("nickname is required")
		return
	}
	r, ok := s.Rooms.GetRoom(stringField(data, "roomId"))
	if !ok {
		conn.WriteError("room not found")
		return
	}
	s.joinRoom(conn, r, nickname)
}

// joinRoom runs the fresh-join flow shared by joinRoom and the
// reconnectToRoom fallback: mint a user, seat them, announce them.
func (s *SessionServer) joinRoom(conn *room.Connection, r *room.Room, nickname string) {
	u := &models.User{
		ID:       uuid.New(),
		Nickname: nickname,
		ConnID:   conn.ConnID,
		Online:   true,
	}
	s.Users.Add(u)
	conn.UserID = u.ID

	r.Mu.Lock()
	r.AddUserUnsafe(u)
	r.AttachConnUnsafe(conn)
	seats := r.SeatListUnsafe()

	conn.Write(event("roomJoined", map[string]interface{}{
		"roomId":     r.Code,
		"userId":     u.ID.String(),
		"userNumber": seatNumber(seats, u.ID.String()),
		"isHost":     u.ID == r.HostID,
	}))
	r.BroadcastAllUnsafe(event("userListUpdate", seats))
	r.BroadcastAllUnsafe(systemChat(nickname + " joined the room"))
	r.Mu.Unlock()

	s.logger.Infof("user %s (%s) joined room %s", nickname, u.ID, r.Code)
}

func (s *SessionServer) handleReconnectToRoom(conn *room.Connection, data map[string]interface{}) {
	r, ok := s.Rooms.GetRoom(stringField(data, "roomId"))
	if !ok {
		conn.WriteError("room not found")
		return
	}

	userID, err := uuid.Parse(stringField(data, "userId"))
	var u *models.User
	if err == nil {
		u, _ = s.Users.Get(userID)
	}
	if u == nil || u.RoomID != r.Code {
		// Unknown or stale id: treat as a fresh join so a wiped client
		// never hard-fails.
		nickname := stringField(data, "nickname")
		if nickname == "" {
			conn.WriteError("nickname is required")
			return
		}
		s.joinRoom(conn, r, nickname)
		return
	}

	s.Users.Rebind(u, conn.ConnID)
	s.cancelReap(u.ID)
	conn.UserID = u.ID

	r.Mu.Lock()
	r.AttachConnUnsafe(conn)
	seats := r.SeatListUnsafe()

	conn.Write(event("roomJoined", map[string]interface{}{
		"roomId":     r.Code,
		"userId":     u.ID.String(),
		"userNumber": seatNumber(seats, u.ID.String()),
		"isHost":     u.ID == r.HostID,
	}))
	conn.Write(event("userListUpdate", seats))

	// Replay the in-progress game so a refreshed client lands mid-round.
	if r.Phase == room.PhasePlaying {
		switch {
		case r.Kind == game.KindNumberBomb && r.Bomb != nil:
			conn.Write(event("gameStarted", map[string]interface{}{
				"gameType":        string(game.KindNumberBomb),
				"currentPlayerId": r.Bomb.Current.ID,
				"rangeMin":        r.Bomb.Min,
				"rangeMax":        r.Bomb.Max,
				"bombNumber":      r.Bomb.Target,
			}))
		case r.Kind == game.KindTianjiu && r.Tianjiu != nil:
			conn.Write(event("gameStarted", map[string]interface{}{
				"gameType":  string(game.KindTianjiu),
				"gameState": r.Tianjiu.Snapshot(),
			}))
		}
	}
	r.Mu.Unlock()

	s.logger.Infof("user %s (%s) reconnected to room %s", u.Nickname, u.ID, r.Code)
}

func (s *SessionServer) handleLeaveRoom(conn *room.Connection) {
	u, _, ok := s.actor(conn)
	if !ok {
		return
	}
	s.cancelReap(u.ID)
	s.removeUserFromRoom(u)
	s.Users.Delete(u.ID)
	conn.UserID = uuid.Nil
	s.logger.Infof("user %s (%s) left their room", u.Nickname, u.ID)
}

func (s *SessionServer) handleChatMessage(conn *room.Connection, data map[string]interface{}) {
	u, r, ok := s.actor(conn)
	if !ok {
		return
	}
	message := stringField(data, "message")

	r.Mu.Lock()
	number := seatNumber(r.SeatListUnsafe(), u.ID.String())
	r.BroadcastAllUnsafe(event("chatMessage", map[string]interface{}{
		"type":       "user",
		"userId":     u.ID.String(),
		"nickname":   u.Nickname,
		"userNumber": number,
		"message":    message,
		"timestamp":  time.Now().UnixMilli(),
	}))
	r.Mu.Unlock()
}

func (s *SessionServer) handleAddVirtualPlayer(conn *room.Connection, data map[string]interface{}) {
	u, r, ok := s.actor(conn)
	if !ok {
		return
	}
	nickname := stringField(data, "nickname")
	if nickname == "" {
		conn.WriteError("nickname is required")
		return
	}

	r.Mu.Lock()
	defer r.Mu.Unlock()
	if r.HostID != u.ID {
		conn.WriteError("only the host may manage virtual players")
		return
	}
	vp, err := r.AddVirtualUnsafe(nickname)
	if err != nil {
		conn.WriteError(err.Error())
		return
	}
	conn.Write(event("virtualPlayerAdded", map[string]interface{}{
		"playerId": vp.ID.String(),
		"nickname": vp.Nickname,
	}))
	r.BroadcastAllUnsafe(event("userListUpdate", r.SeatListUnsafe()))
}

func (s *SessionServer) handleRemoveVirtualPlayer(conn *room.Connection, data map[string]interface{}) {
	u, r, ok := s.actor(conn)
	if !ok {
		return
	}

	r.Mu.Lock()
	defer r.Mu.Unlock()
	if r.HostID != u.ID {
		conn.WriteError("only the host may manage virtual players")
		return
	}
	vp, err := r.RemoveVirtualUnsafe(stringField(data, "playerId"))
	if err != nil {
		conn.WriteError(err.Error())
		return
	}
	conn.Write(event("virtualPlayerRemoved", map[string]interface{}{
		"playerId": vp.ID.String(),
	}))
	r.BroadcastAllUnsafe(event("userListUpdate", r.SeatListUnsafe()))
}
