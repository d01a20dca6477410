// internal/models/seat.go
package models

import "github.com/google/uuid"

// Seat is one entry in a room's recomputed seat list. Numbers are never
// stored on the user; the room rebuilds the whole list on demand so they
// stay contiguous no matter the join/leave history. The host is always
// seat 1.
type Seat struct {
	ID        string `json:"id"`
	Nickname  string `json:"nickname"`
	Number    int    `json:"number"`
	IsHost    bool   `json:"isHost"`
	IsVirtual bool   `json:"isVirtual,omitempty"`
}

// VirtualPlayer is a host-declared pseudo-member with no live connection,
// used in host mode so a single real user can run a full table.
type VirtualPlayer struct {
	ID       uuid.UUID `json:"id"`
	Nickname string    `json:"nickname"`
}
