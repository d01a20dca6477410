// internal/game/game.go
package game

import "errors"

// Kind discriminates which game a room is running. A room holds at most one
// active game; starting a new one replaces the old instance wholesale.
type Kind string

const (
	KindNumberBomb Kind = "numberBomb"
	KindTianjiu    Kind = "tianjiuPoker"
)

// ErrNotEnoughPlayers is returned when a game is started or advanced with
// fewer than two participants on the seat list.
var ErrNotEnoughPlayers = errors.New("at least 2 players are required")
