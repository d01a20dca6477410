// internal/handlers/game_actions.go
package handlers

import (
	"strconv"

	"github.com/sweetdream/tavern/internal/game"
	"github.com/sweetdream/tavern/internal/room"
)

func (s *SessionServer) handleStartNumberBomb(conn *room.Connection) {
	u, r, ok := s.actor(conn)
	if !ok {
		return
	}

	r.Mu.Lock()
	defer r.Mu.Unlock()
	if r.HostID != u.ID {
		conn.WriteError("only the host may start the game")
		return
	}

	g := game.NewNumberBomb(nil)
	current, err := g.Start(r.SeatListUnsafe())
	if err != nil {
		conn.WriteError(err.Error())
		return
	}
	r.Bomb = g
	r.Tianjiu = nil
	r.Kind = game.KindNumberBomb
	r.Phase = room.PhasePlaying

	r.BroadcastAllUnsafe(event("gameStarted", map[string]interface{}{
		"gameType":        string(game.KindNumberBomb),
		"currentPlayerId": current.ID,
		"rangeMin":        g.Min,
		"rangeMax":        g.Max,
		"bombNumber":      g.Target,
	}))
	s.logger.Infof("room %s: number bomb started, %s goes first", r.Code, current.Nickname)
}

func (s *SessionServer) handleNumberBombGuess(conn *room.Connection, data map[string]interface{}) {
	u, r, ok := s.actor(conn)
	if !ok {
		return
	}

	r.Mu.Lock()
	defer r.Mu.Unlock()
	if r.Kind != game.KindNumberBomb || r.Bomb == nil || r.Phase != room.PhasePlaying {
		conn.WriteError("invalid game state")
		return
	}

	seats := r.SeatListUnsafe()
	res, err := r.Bomb.Guess(u.ID.String(), rawNumber(data["number"]), seats)
	if err != nil {
		conn.WriteError(err.Error())
		return
	}

	if res.Outcome == game.OutcomeBomb {
		r.Phase = room.PhaseFinished
		payload := map[string]interface{}{
			"gameType":   string(game.KindNumberBomb),
			"result":     "bomb",
			"bombNumber": res.Target,
			"loser":      res.Loser.ID,
		}
		if res.Winner != nil {
			payload["winner"] = res.Winner.ID
		}
		r.BroadcastAllUnsafe(event("gameFinished", payload))
		s.logger.Infof("room %s: bomb %d hit by %s", r.Code, res.Target, u.Nickname)
		return
	}

	r.BroadcastAllUnsafe(event("gameUpdate", map[string]interface{}{
		"gameType":        string(game.KindNumberBomb),
		"rangeMin":        res.Min,
		"rangeMax":        res.Max,
		"currentPlayerId": res.Next.ID,
		"guess": map[string]interface{}{
			"number":         res.Guess,
			"playerNickname": u.Nickname,
			"playerNumber":   seatNumber(seats, u.ID.String()),
		},
	}))
}

func (s *SessionServer) handleStartTianjiuPoker(conn *room.Connection) {
	u, r, ok := s.actor(conn)
	if !ok {
		return
	}

	r.Mu.Lock()
	defer r.Mu.Unlock()
	if r.HostID != u.ID {
		conn.WriteError("only the host may start the game")
		return
	}

	t := game.NewTianjiu(nil)
	if err := t.Start(r.SeatListUnsafe()); err != nil {
		conn.WriteError(err.Error())
		return
	}
	r.Tianjiu = t
	r.Bomb = nil
	r.Kind = game.KindTianjiu
	r.Phase = room.PhasePlaying

	r.BroadcastAllUnsafe(event("gameStarted", map[string]interface{}{
		"gameType":  string(game.KindTianjiu),
		"gameState": t.Snapshot(),
	}))
	s.logger.Infof("room %s: tianjiu poker started", r.Code)
}

// tianjiu fetches the active tianjiu game, replying with a phase violation
// if the room is running something else. Assumes the room lock is held.
func tianjiu(conn *room.Connection, r *room.Room) (*game.Tianjiu, bool) {
	if r.Kind != game.KindTianjiu || r.Tianjiu == nil || r.Phase != room.PhasePlaying {
		conn.WriteError("invalid game state")
		return nil, false
	}
	return r.Tianjiu, true
}

func (s *SessionServer) handleDrawTianjiuCard(conn *room.Connection) {
	u, r, ok := s.actor(conn)
	if !ok {
		return
	}

	r.Mu.Lock()
	defer r.Mu.Unlock()
	if r.HostID != u.ID {
		conn.WriteError("only the host may draw cards")
		return
	}
	t, ok := tianjiu(conn, r)
	if !ok {
		return
	}

	res, err := t.DrawCard(r.SeatListUnsafe())
	if err != nil {
		conn.WriteError(err.Error())
		return
	}
	r.BroadcastAllUnsafe(event("tianjiuCardDrawn", map[string]interface{}{
		"card":      string(res.Card),
		"effect":    res.Effect,
		"player":    res.Player,
		"gameState": t.Snapshot(),
	}))
	s.logger.Infof("room %s: drew %s for %s", r.Code, res.Card, res.Player.Nickname)
}

func (s *SessionServer) handleTianjiuCardEffect(conn *room.Connection, data map[string]interface{}) {
	_, r, ok := s.actor(conn)
	if !ok {
		return
	}

	r.Mu.Lock()
	defer r.Mu.Unlock()
	t, ok := tianjiu(conn, r)
	if !ok {
		return
	}

	action := stringField(data, "action")
	inner, _ := data["data"].(map[string]interface{})
	res, err := t.HandleCardEffect(action, inner, r.SeatListUnsafe())
	if err != nil {
		conn.WriteError(err.Error())
		return
	}

	payload := map[string]interface{}{
		"action":    string(res.Action),
		"card":      string(res.Card),
		"effect":    res.Effect,
		"player":    res.Player,
		"gameState": t.Snapshot(),
	}
	if res.Target != nil {
		payload["target"] = *res.Target
	}
	r.BroadcastAllUnsafe(event("tianjiuCardEffect", payload))
}

func (s *SessionServer) handleUseReservedCard(conn *room.Connection, data map[string]interface{}) {
	u, r, ok := s.actor(conn)
	if !ok {
		return
	}

	r.Mu.Lock()
	defer r.Mu.Unlock()
	t, ok := tianjiu(conn, r)
	if !ok {
		return
	}

	res, err := t.UseReservedCard(u.ID.String(), stringField(data, "targetUserId"), r.SeatListUnsafe())
	if err != nil {
		conn.WriteError(err.Error())
		return
	}

	payload := map[string]interface{}{
		"player":    res.Player,
		"gameState": t.Snapshot(),
	}
	if res.Target != nil {
		payload["target"] = *res.Target
	}
	r.BroadcastAllUnsafe(event("tianjiuReservedCardUsed", payload))
}

func (s *SessionServer) handleFinishTianjiuRound(conn *room.Connection) {
	u, r, ok := s.actor(conn)
	if !ok {
		return
	}

	r.Mu.Lock()
	defer r.Mu.Unlock()
	if r.HostID != u.ID {
		conn.WriteError("only the host may finish the round")
		return
	}
	t, ok := tianjiu(conn, r)
	if !ok {
		return
	}

	t.FinishRound()
	r.BroadcastAllUnsafe(event("tianjiuRoundFinished", map[string]interface{}{
		"gameState": t.Snapshot(),
	}))
}

// rawNumber renders a guess field as the string the game parser expects.
// Clients send either a JSON number or a string.
func rawNumber(v interface{}) string {
	switch n := v.(type) {
	case string:
		return n
	case float64:
		return strconv.FormatFloat(n, 'f', -1, 64)
	default:
		return ""
	}
}
