package ws

import (
	"sync"

	"github.com/google/uuid"
)

// Registry maps a user to at most one live connection. A later Bind for the
// same user replaces the earlier one.
type Registry struct {
	mu      sync.RWMutex
	clients map[uuid.UUID]*Client
}

func NewRegistry() *Registry {
	return &Registry{clients: make(map[uuid.UUID]*Client)}
}

// Bind makes c the connection for userID and returns the one it replaced.
func (r *Registry) Bind(userID uuid.UUID, c *Client) *Client {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev := r.clients[userID]
	r.clients[userID] = c
	if prev == c {
		return nil
	}
	return prev
}

// Unbind drops whatever connection userID has. It is a no-op when there is none.
func (r *Registry) Unbind(userID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.clients, userID)
}

// Release unbinds userID only while c is still its connection, so a closing
// socket cannot evict a newer one.
func (r *Registry) Release(userID uuid.UUID, c *Client) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.clients[userID] != c {
		return false
	}
	delete(r.clients, userID)
	return true
}

func (r *Registry) Lookup(userID uuid.UUID) (*Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.clients[userID]
	return c, ok
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}
