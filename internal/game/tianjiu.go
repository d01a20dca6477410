// internal/game/tianjiu.go
package game

import (
	"errors"
	"math/rand"
	"time"

	"github.com/sweetdream/tavern/internal/models"
)

var (
	ErrNoCardDrawn    = errors.New("no card has been drawn this round")
	ErrTargetRequired = errors.New("a target player is required")
	ErrTargetNotFound = errors.New("target player is not at the table")
	ErrNoReservedCard = errors.New("no reserved card to use")
)

// CardKind identifies one card in the tianjiu deck.
type CardKind string

const (
	CardAce        CardKind = "A"
	CardTwo        CardKind = "2"
	CardThree      CardKind = "3"
	CardFour       CardKind = "4"
	CardFive       CardKind = "5"
	CardSix        CardKind = "6"
	CardSeven      CardKind = "7"
	CardEight      CardKind = "8"
	CardNine       CardKind = "9"
	CardTen        CardKind = "10"
	CardJack       CardKind = "J"
	CardQueen      CardKind = "Q"
	CardKing       CardKind = "K"
	CardSmallJoker CardKind = "small_jocker" // label matches the client asset name
)

// cardBehavior selects how a card resolves when its effect is handled.
type cardBehavior int

const (
	behaviorShow      cardBehavior = iota // echo the static effect text
	behaviorDesignate                     // drawer names a target who drinks
	behaviorReserve                       // drawer may bank the card for later
)

type cardSpec struct {
	Effect   string
	Behavior cardBehavior
}

// deck is the closed card set. Draws sample it uniformly WITH replacement:
// the same card can come up round after round, it never depletes.
var deck = []CardKind{
	CardAce, CardTwo, CardThree, CardFour, CardFive, CardSix, CardSeven,
	CardEight, CardNine, CardTen, CardJack, CardQueen, CardKing,
	CardSmallJoker,
}

// cardTable maps each card to its effect text and resolution behavior. The
// texts are table flavor, not logic.
var cardTable = map[CardKind]cardSpec{
	CardAce:   {Effect: "Designate a drink: pick any player at the table to take a drink.", Behavior: behaviorDesignate},
	CardTwo:   {Effect: "Take a drink yourself.", Behavior: behaviorShow},
	CardThree: {Effect: "The players on either side of you each take a drink.", Behavior: behaviorShow},
	CardFour:  {Effect: "Invent a table rule; anyone who breaks it before the next 4 drinks.", Behavior: behaviorShow},
	CardFive:  {Effect: "Everyone at the table drinks.", Behavior: behaviorShow},
	CardSix:   {Effect: "Start a toast; the last player to raise their glass drinks.", Behavior: behaviorShow},
	CardSeven: {Effect: "Truth: answer one question from the table honestly, or drink twice.", Behavior: behaviorShow},
	CardEight: {Effect: "Dare: the table picks a dare for you, or you drink twice.", Behavior: behaviorShow},
	CardNine:  {Effect: "Rhyme time: say a word; go around the table rhyming until someone fails and drinks.", Behavior: behaviorShow},
	CardTen:   {Effect: "Sit this one out: you are safe until the next card is drawn.", Behavior: behaviorShow},
	CardJack:  {Effect: "Categories: name a category; go around the table until someone is stumped and drinks.", Behavior: behaviorShow},
	CardQueen: {Effect: "Question master: until the next Q, anyone who answers your questions drinks.", Behavior: behaviorShow},
	CardKing:  {Effect: "Pour a splash into the center cup; whoever draws the next K drinks it.", Behavior: behaviorShow},
	CardSmallJoker: {
		Effect:   "Lucky charm: bank this card and cash it in later to make any player drink.",
		Behavior: behaviorReserve,
	},
}

// TianjiuPhase is the per-round phase of the card-draw game.
type TianjiuPhase string

const (
	TianjiuWaiting      TianjiuPhase = "waiting"
	TianjiuCardDrawn    TianjiuPhase = "card_drawn"
	TianjiuEffectActive TianjiuPhase = "effect_active"
)

// EffectAction tags how a handled card effect resolved.
type EffectAction string

const (
	EffectReserved  EffectAction = "reserved"
	EffectDesignate EffectAction = "designate_drink"
	EffectShow      EffectAction = "show_effect"
)

// DrawResult describes one card draw.
type DrawResult struct {
	Card   CardKind
	Effect string
	Player models.Seat
}

// EffectResult describes how the current card's effect resolved.
type EffectResult struct {
	Action EffectAction
	Card   CardKind
	Effect string
	Player models.Seat
	Target *models.Seat
}

// ReservedResult describes a banked card being cashed in.
type ReservedResult struct {
	Player models.Seat
	Target *models.Seat
}

// Tianjiu is the card-draw game. It loops waiting -> card_drawn ->
// effect_active -> waiting round after round; there is no terminal state,
// the host simply stops drawing (or the room switches games).
type Tianjiu struct {
	Phase       TianjiuPhase
	CurrentCard CardKind
	CurrentSeat *models.Seat

	// Reserved holds seat ids of participants who banked a small joker.
	Reserved map[string]bool

	rng *rand.Rand
}

// NewTianjiu creates a fresh game in the waiting phase. Pass a seeded rng
// for deterministic behavior; nil uses a time-seeded source.
func NewTianjiu(rng *rand.Rand) *Tianjiu {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Tianjiu{
		Phase:    TianjiuWaiting,
		Reserved: make(map[string]bool),
		rng:      rng,
	}
}

// Start resets the game to the waiting phase.
func (t *Tianjiu) Start(seats []models.Seat) error {
	if len(seats) < 2 {
		return ErrNotEnoughPlayers
	}
	t.Phase = TianjiuWaiting
	t.CurrentCard = ""
	t.CurrentSeat = nil
	return nil
}

// DrawCard picks one card and one participant, each uniformly at random.
// Everyone on the seat list is eligible, host and virtual players included.
func (t *Tianjiu) DrawCard(seats []models.Seat) (*DrawResult, error) {
	if len(seats) < 2 {
		return nil, ErrNotEnoughPlayers
	}
	kind := deck[t.rng.Intn(len(deck))]
	seat := seats[t.rng.Intn(len(seats))]

	t.CurrentCard = kind
	t.CurrentSeat = &seat
	t.Phase = TianjiuCardDrawn

	return &DrawResult{
		Card:   kind,
		Effect: cardTable[kind].Effect,
		Player: seat,
	}, nil
}

// HandleCardEffect resolves the currently drawn card. The branch is taken on
// the card itself, not the requested action: the small joker may be reserved,
// the ace demands a target, everything else just shows its effect text.
func (t *Tianjiu) HandleCardEffect(action string, data map[string]interface{}, seats []models.Seat) (*EffectResult, error) {
	if t.CurrentSeat == nil || t.CurrentCard == "" {
		return nil, ErrNoCardDrawn
	}

	spec := cardTable[t.CurrentCard]
	res := &EffectResult{
		Card:   t.CurrentCard,
		Effect: spec.Effect,
		Player: *t.CurrentSeat,
	}

	switch {
	case spec.Behavior == behaviorReserve && action == "reserve":
		t.Reserved[t.CurrentSeat.ID] = true
		res.Action = EffectReserved
	case spec.Behavior == behaviorDesignate:
		targetID, _ := data["targetUserId"].(string)
		if targetID == "" {
			return nil, ErrTargetRequired
		}
		target, ok := findSeat(seats, targetID)
		if !ok {
			return nil, ErrTargetNotFound
		}
		res.Action = EffectDesignate
		res.Target = &target
	default:
		res.Action = EffectShow
	}

	t.Phase = TianjiuEffectActive
	return res, nil
}

// UseReservedCard consumes a banked small joker held by userID, optionally
// aimed at targetID.
func (t *Tianjiu) UseReservedCard(userID, targetID string, seats []models.Seat) (*ReservedResult, error) {
	if !t.Reserved[userID] {
		return nil, ErrNoReservedCard
	}
	delete(t.Reserved, userID)

	res := &ReservedResult{}
	if seat, ok := findSeat(seats, userID); ok {
		res.Player = seat
	} else {
		res.Player = models.Seat{ID: userID}
	}
	if targetID != "" {
		if target, ok := findSeat(seats, targetID); ok {
			res.Target = &target
		}
	}
	return res, nil
}

// FinishRound clears the drawn card and returns to the waiting phase so the
// host can draw again.
func (t *Tianjiu) FinishRound() {
	t.CurrentCard = ""
	t.CurrentSeat = nil
	t.Phase = TianjiuWaiting
}

// ReservedHolders lists the seat ids currently holding a banked card.
func (t *Tianjiu) ReservedHolders() []string {
	holders := make([]string, 0, len(t.Reserved))
	for id := range t.Reserved {
		holders = append(holders, id)
	}
	return holders
}

// Snapshot returns the wire-facing game state clients fold into their local
// view after every tianjiu event.
func (t *Tianjiu) Snapshot() map[string]interface{} {
	state := map[string]interface{}{
		"gamePhase":     string(t.Phase),
		"reservedCards": t.ReservedHolders(),
	}
	if t.CurrentCard != "" {
		state["currentCard"] = string(t.CurrentCard)
	}
	if t.CurrentSeat != nil {
		state["currentPlayer"] = *t.CurrentSeat
	}
	return state
}

// EffectText returns the static effect string for a card label.
func EffectText(kind CardKind) string {
	return cardTable[kind].Effect
}

// DeckSize reports the number of distinct cards in the deck.
func DeckSize() int {
	return len(deck)
}

func findSeat(seats []models.Seat, id string) (models.Seat, bool) {
	for _, s := range seats {
		if s.ID == id {
			return s, true
		}
	}
	return models.Seat{}, false
}
