// internal/room/registry.go
package room

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sweetdream/tavern/internal/models"
)

// Registry owns the process-wide user records and the index from transient
// connection ids to users. Every inbound action authenticates its actor by
// resolving the connection here; there is no separate login step.
type Registry struct {
	mu    sync.Mutex
	users map[uuid.UUID]*models.User
	conns map[string]uuid.UUID
}

// NewRegistry initializes an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		users: make(map[uuid.UUID]*models.User),
		conns: make(map[string]uuid.UUID),
	}
}

// Add registers a user and binds their current connection.
func (reg *Registry) Add(u *models.User) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	reg.users[u.ID] = u
	if u.ConnID != "" {
		reg.conns[u.ConnID] = u.ID
	}
}

// Get looks up a user by id.
func (reg *Registry) Get(id uuid.UUID) (*models.User, bool) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	u, ok := reg.users[id]
	return u, ok
}

// ResolveConn maps a connection id to its owning user.
func (reg *Registry) ResolveConn(connID string) (*models.User, bool) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	id, ok := reg.conns[connID]
	if !ok {
		return nil, false
	}
	u, ok := reg.users[id]
	return u, ok
}

// Rebind attaches a new connection to an existing user and marks them
// online, dropping the previous connection index entry if any.
func (reg *Registry) Rebind(u *models.User, connID string) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	if u.ConnID != "" {
		delete(reg.conns, u.ConnID)
	}
	u.ConnID = connID
	u.Online = true
	u.DisconnectedAt = time.Time{}
	reg.conns[connID] = u.ID
}

// MarkDisconnected flags the user owning connID as offline and stamps the
// disconnect time. Returns the user so the caller can schedule removal.
// A connID that was already replaced by a reconnect resolves to nothing.
func (reg *Registry) MarkDisconnected(connID string) (*models.User, bool) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	id, ok := reg.conns[connID]
	if !ok {
		return nil, false
	}
	u := reg.users[id]
	if u == nil || u.ConnID != connID {
		return nil, false
	}
	delete(reg.conns, connID)
	u.ConnID = ""
	u.Online = false
	u.DisconnectedAt = time.Now()
	return u, true
}

// Delete removes a user record and any connection index entry.
func (reg *Registry) Delete(id uuid.UUID) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	if u, ok := reg.users[id]; ok {
		if u.ConnID != "" {
			delete(reg.conns, u.ConnID)
		}
		delete(reg.users, id)
	}
}

// Len reports the number of known users.
func (reg *Registry) Len() int {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	return len(reg.users)
}
