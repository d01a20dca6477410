// internal/models/user.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// User is a participant identity that survives reconnects. The connection id
// is transient and reassigned whenever the user opens a new websocket.
type User struct {
	ID       uuid.UUID `json:"id"`
	Nickname string    `json:"nickname"`

	// ConnID is the current websocket connection identifier, empty while offline.
	ConnID string `json:"-"`

	// RoomID is the code of the room the user belongs to, empty if none.
	RoomID string `json:"roomId,omitempty"`

	Online         bool      `json:"online"`
	DisconnectedAt time.Time `json:"-"`
}
