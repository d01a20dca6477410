// internal/game/tianjiu_test.go
package game

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sweetdream/tavern/internal/models"
)

func tianjiuSeats() []models.Seat {
	return []models.Seat{
		{ID: "alice", Nickname: "Alice", Number: 1, IsHost: true},
		{ID: "bob", Nickname: "Bob", Number: 2},
		{ID: "carol", Nickname: "Carol", Number: 3},
	}
}

// drawUntil draws until the given card comes up. Draws are with replacement,
// so any card shows up eventually; the cap keeps a broken deck from hanging
// the test.
func drawUntil(t *testing.T, g *Tianjiu, seats []models.Seat, kind CardKind) *DrawResult {
	t.Helper()
	for i := 0; i < 10000; i++ {
		res, err := g.DrawCard(seats)
		require.NoError(t, err)
		if res.Card == kind {
			return res
		}
		g.FinishRound()
	}
	t.Fatalf("card %s never drawn in 10000 tries", kind)
	return nil
}

// TestTianjiuStart checks preconditions and the initial phase.
func TestTianjiuStart(t *testing.T) {
	g := NewTianjiu(rand.New(rand.NewSource(1)))

	err := g.Start([]models.Seat{{ID: "alone"}})
	assert.ErrorIs(t, err, ErrNotEnoughPlayers)

	require.NoError(t, g.Start(tianjiuSeats()))
	assert.Equal(t, TianjiuWaiting, g.Phase)
	assert.Empty(t, g.ReservedHolders())
}

// TestTianjiuDrawCard verifies a draw picks a known card, a seated player,
// and advances the phase.
func TestTianjiuDrawCard(t *testing.T) {
	g := NewTianjiu(rand.New(rand.NewSource(2)))
	seats := tianjiuSeats()
	require.NoError(t, g.Start(seats))

	res, err := g.DrawCard(seats)
	require.NoError(t, err)
	assert.Equal(t, TianjiuCardDrawn, g.Phase)
	assert.Contains(t, deck, res.Card)
	assert.Equal(t, EffectText(res.Card), res.Effect)

	ids := []string{"alice", "bob", "carol"}
	assert.Contains(t, ids, res.Player.ID, "drawn player must be seated")
}

// TestTianjiuDrawWithReplacement: every card in the deck shows up across many
// draws, and no draw ever removes a card.
func TestTianjiuDrawWithReplacement(t *testing.T) {
	g := NewTianjiu(rand.New(rand.NewSource(5)))
	seats := tianjiuSeats()
	require.NoError(t, g.Start(seats))

	seen := make(map[CardKind]int)
	for i := 0; i < 2000; i++ {
		res, err := g.DrawCard(seats)
		require.NoError(t, err)
		seen[res.Card]++
		g.FinishRound()
	}
	assert.Len(t, seen, DeckSize(), "every card appears given enough draws")
	for kind, n := range seen {
		assert.Greater(t, n, 1, "card %s should repeat, the deck never depletes", kind)
	}
}

// TestTianjiuEffectWithoutDraw rejects effect handling before any card is
// drawn.
func TestTianjiuEffectWithoutDraw(t *testing.T) {
	g := NewTianjiu(rand.New(rand.NewSource(4)))
	require.NoError(t, g.Start(tianjiuSeats()))

	_, err := g.HandleCardEffect("show", nil, tianjiuSeats())
	assert.ErrorIs(t, err, ErrNoCardDrawn)
}

// TestTianjiuShowEffect: a plain card resolves by echoing its effect text.
func TestTianjiuShowEffect(t *testing.T) {
	g := NewTianjiu(rand.New(rand.NewSource(4)))
	seats := tianjiuSeats()
	require.NoError(t, g.Start(seats))
	drawUntil(t, g, seats, CardFive)

	res, err := g.HandleCardEffect("show", nil, seats)
	require.NoError(t, err)
	assert.Equal(t, EffectShow, res.Action)
	assert.Equal(t, CardFive, res.Card)
	assert.Equal(t, EffectText(CardFive), res.Effect)
	assert.Nil(t, res.Target)
	assert.Equal(t, TianjiuEffectActive, g.Phase)
}

// TestTianjiuDesignate: an ace demands a seated target.
func TestTianjiuDesignate(t *testing.T) {
	g := NewTianjiu(rand.New(rand.NewSource(6)))
	seats := tianjiuSeats()
	require.NoError(t, g.Start(seats))
	drawUntil(t, g, seats, CardAce)

	_, err := g.HandleCardEffect("show", map[string]interface{}{}, seats)
	assert.ErrorIs(t, err, ErrTargetRequired)

	_, err = g.HandleCardEffect("show", map[string]interface{}{"targetUserId": "nobody"}, seats)
	assert.ErrorIs(t, err, ErrTargetNotFound)

	res, err := g.HandleCardEffect("show", map[string]interface{}{"targetUserId": "bob"}, seats)
	require.NoError(t, err)
	assert.Equal(t, EffectDesignate, res.Action)
	require.NotNil(t, res.Target)
	assert.Equal(t, "bob", res.Target.ID)
}

// TestTianjiuReserveFlow: reserving the small joker banks it for the drawer,
// who can later cash it in exactly once.
func TestTianjiuReserveFlow(t *testing.T) {
	g := NewTianjiu(rand.New(rand.NewSource(8)))
	seats := tianjiuSeats()
	require.NoError(t, g.Start(seats))
	drawn := drawUntil(t, g, seats, CardSmallJoker)

	res, err := g.HandleCardEffect("reserve", nil, seats)
	require.NoError(t, err)
	assert.Equal(t, EffectReserved, res.Action)
	assert.Contains(t, g.ReservedHolders(), drawn.Player.ID)

	g.FinishRound()

	used, err := g.UseReservedCard(drawn.Player.ID, "carol", seats)
	require.NoError(t, err)
	assert.Equal(t, drawn.Player.ID, used.Player.ID)
	require.NotNil(t, used.Target)
	assert.Equal(t, "carol", used.Target.ID)
	assert.Empty(t, g.ReservedHolders(), "banked card is consumed on use")

	_, err = g.UseReservedCard(drawn.Player.ID, "carol", seats)
	assert.ErrorIs(t, err, ErrNoReservedCard, "a card only cashes in once")
}

// TestTianjiuUseReservedWithoutBank rejects players with nothing banked.
func TestTianjiuUseReservedWithoutBank(t *testing.T) {
	g := NewTianjiu(rand.New(rand.NewSource(9)))
	seats := tianjiuSeats()
	require.NoError(t, g.Start(seats))

	_, err := g.UseReservedCard("alice", "bob", seats)
	assert.ErrorIs(t, err, ErrNoReservedCard)
}

// TestTianjiuFinishRound clears the table for the next draw but keeps banked
// cards.
func TestTianjiuFinishRound(t *testing.T) {
	g := NewTianjiu(rand.New(rand.NewSource(10)))
	seats := tianjiuSeats()
	require.NoError(t, g.Start(seats))
	drawUntil(t, g, seats, CardSmallJoker)
	_, err := g.HandleCardEffect("reserve", nil, seats)
	require.NoError(t, err)

	g.FinishRound()
	assert.Equal(t, TianjiuWaiting, g.Phase)
	assert.Empty(t, string(g.CurrentCard))
	assert.Nil(t, g.CurrentSeat)
	assert.Len(t, g.ReservedHolders(), 1, "banked cards survive round resets")
}

// TestTianjiuSnapshot round-trips the wire-facing state at each phase.
func TestTianjiuSnapshot(t *testing.T) {
	g := NewTianjiu(rand.New(rand.NewSource(11)))
	seats := tianjiuSeats()
	require.NoError(t, g.Start(seats))

	snap := g.Snapshot()
	assert.Equal(t, "waiting", snap["gamePhase"])
	assert.NotContains(t, snap, "currentCard")
	assert.NotContains(t, snap, "currentPlayer")

	res, err := g.DrawCard(seats)
	require.NoError(t, err)
	snap = g.Snapshot()
	assert.Equal(t, "card_drawn", snap["gamePhase"])
	assert.Equal(t, string(res.Card), snap["currentCard"])
	assert.Equal(t, res.Player, snap["currentPlayer"])
}
