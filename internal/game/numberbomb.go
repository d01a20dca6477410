// internal/game/numberbomb.go
package game

import (
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/sweetdream/tavern/internal/models"
)

var (
	ErrGameFinished = errors.New("the game is already over")
	ErrNotYourTurn  = errors.New("not your turn")
)

// GuessOutcome tags the result of a guess.
type GuessOutcome string

const (
	OutcomeBomb     GuessOutcome = "bomb"
	OutcomeContinue GuessOutcome = "continue"
)

// GuessResult is the structured outcome of an accepted guess.
type GuessResult struct {
	Outcome GuessOutcome
	Guess   int

	// Continue fields: the narrowed range and the next turn holder.
	Min  int
	Max  int
	Next models.Seat

	// Bomb fields. Winner is nil unless exactly two participants were at the
	// table when the bomb went off; with more players the winner is undefined.
	Target int
	Loser  models.Seat
	Winner *models.Seat
}

// NumberBomb is the number-elimination game: a hidden target in [1,100] and
// a guessing interval that shrinks until someone names the target and loses.
//
// The game never snapshots the roster. Every call receives the room's
// current seat list, so turn order follows the live table: if a participant
// joins or leaves mid-game, "next player" shifts with them.
type NumberBomb struct {
	Target int
	Min    int
	Max    int

	// Current is the seat whose turn it is.
	Current models.Seat

	Finished bool
	Winner   *models.Seat
	Loser    *models.Seat

	rng *rand.Rand
}

// NewNumberBomb creates a game with a uniformly random target. Pass a seeded
// rng for deterministic behavior; nil uses a time-seeded source.
func NewNumberBomb(rng *rand.Rand) *NumberBomb {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &NumberBomb{
		Target: rng.Intn(100) + 1,
		Min:    1,
		Max:    100,
		rng:    rng,
	}
}

// Start picks a random starting participant from the seat list. Virtual
// participants are eligible like everyone else.
func (g *NumberBomb) Start(seats []models.Seat) (models.Seat, error) {
	if len(seats) < 2 {
		return models.Seat{}, ErrNotEnoughPlayers
	}
	g.Current = seats[g.rng.Intn(len(seats))]
	return g.Current, nil
}

// Guess processes one guess by actorID against the current interval. The raw
// value arrives as the client sent it and is parsed here; anything that is
// not an integer inside [Min,Max] is rejected with the range quoted.
func (g *NumberBomb) Guess(actorID, raw string, seats []models.Seat) (*GuessResult, error) {
	if g.Finished {
		return nil, ErrGameFinished
	}
	if g.Current.ID != actorID {
		return nil, ErrNotYourTurn
	}

	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < g.Min || n > g.Max {
		return nil, fmt.Errorf("enter a number between %d and %d", g.Min, g.Max)
	}

	if n == g.Target {
		g.Finished = true
		loser := g.Current
		g.Loser = &loser
		res := &GuessResult{
			Outcome: OutcomeBomb,
			Guess:   n,
			Target:  g.Target,
			Loser:   loser,
		}
		if len(seats) == 2 {
			for _, s := range seats {
				if s.ID != actorID {
					winner := s
					g.Winner = &winner
					res.Winner = &winner
					break
				}
			}
		}
		return res, nil
	}

	if n < g.Target {
		g.Min = n + 1
	} else {
		g.Max = n - 1
	}

	// Advance to the next participant in the seat list as it stands right
	// now, wrapping around the table.
	idx := -1
	for i, s := range seats {
		if s.ID == actorID {
			idx = i
			break
		}
	}
	g.Current = seats[(idx+1)%len(seats)]

	return &GuessResult{
		Outcome: OutcomeContinue,
		Guess:   n,
		Min:     g.Min,
		Max:     g.Max,
		Next:    g.Current,
	}, nil
}
