// internal/room/room_store.go
package room

import (
	"log"
	"math/rand"
	"strings"
	"sync"

	"github.com/sweetdream/tavern/internal/models"
)

const (
	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	codeLength   = 6
)

// RoomStore manages the live rooms in memory. Codes are case-insensitive
// and stored uppercased.
type RoomStore struct {
	mu    sync.Mutex
	rooms map[string]*Room
}

// NewRoomStore initializes an empty store.
func NewRoomStore() *RoomStore {
	return &RoomStore{
		rooms: make(map[string]*Room),
	}
}

// CreateRoom generates a fresh unique code, builds a room with host as the
// sole member, wires OnEmpty to delete the room, and registers it.
func (s *RoomStore) CreateRoom(host *models.User, hostMode bool) *Room {
	s.mu.Lock()
	defer s.mu.Unlock()

	code := s.newCodeLocked()
	r := NewRoom(code, host, hostMode)
	r.OnEmpty = func(code string) {
		s.DeleteRoom(code)
	}
	s.rooms[code] = r
	log.Printf("RoomStore: created room %s (hostMode=%v), %d rooms live", code, hostMode, len(s.rooms))
	return r
}

// GetRoom looks up a room by code, case-insensitively.
func (s *RoomStore) GetRoom(code string) (*Room, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[strings.ToUpper(code)]
	return r, ok
}

// DeleteRoom removes a room from the store.
func (s *RoomStore) DeleteRoom(code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	code = strings.ToUpper(code)
	if _, ok := s.rooms[code]; ok {
		delete(s.rooms, code)
		log.Printf("RoomStore: deleted room %s, %d rooms live", code, len(s.rooms))
	}
}

// Len reports the number of live rooms.
func (s *RoomStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rooms)
}

// newCodeLocked draws random codes until one misses the live set. Assumes
// the store lock is held.
func (s *RoomStore) newCodeLocked() string {
	for {
		b := make([]byte, codeLength)
		for i := range b {
			b[i] = codeAlphabet[rand.Intn(len(codeAlphabet))]
		}
		code := string(b)
		if _, taken := s.rooms[code]; !taken {
			return code
		}
	}
}
