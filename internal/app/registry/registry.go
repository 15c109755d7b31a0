package registry

import (
	"linkup/internal/core/contracts"
	"linkup/internal/core/domain"
	"sort"
	"sync"

	"github.com/samber/lo"
)

// Stats is a point-in-time size of the registry.
type Stats struct {
	Connections int
	Users       int
}

// Registry maps each online user to the set of its live connections.
// Mutations take the write lock; lookups take the read lock and return copies,
// so callers never observe a set that is being modified. No I/O is performed
// while the lock is held.
type Registry struct {
	mu     sync.RWMutex
	byUser map[string]map[string]contracts.Client // user_id → conn_id → client
	byConn map[string]string                      // conn_id → user_id
	closed bool
	onSize func(Stats)

	// hookMu orders hook calls; each call reads the size it publishes.
	hookMu sync.Mutex
}

func NewRegistry() *Registry {
	return &Registry{
		byUser: make(map[string]map[string]contracts.Client),
		byConn: make(map[string]string),
	}
}

// OnResize installs a hook called with the current size after every mutation.
// Calls are serialised and run outside the registry lock; the last call always
// carries the size after the last mutation.
func (r *Registry) OnResize(fn func(Stats)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onSize = fn
}

func (r *Registry) Register(c contracts.Client) (bool, error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return false, domain.ErrRegistryClosed
	}
	connID, userID := c.ID(), c.UserID()
	if _, taken := r.byConn[connID]; taken {
		r.mu.Unlock()
		return false, domain.ErrHandleRegistered
	}
	handles, ok := r.byUser[userID]
	if !ok {
		handles = make(map[string]contracts.Client)
		r.byUser[userID] = handles
	}
	handles[connID] = c
	r.byConn[connID] = userID
	r.mu.Unlock()

	r.publishSize()
	return !ok, nil
}

func (r *Registry) Unregister(c contracts.Client) bool {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return false
	}
	connID := c.ID()
	userID, ok := r.byConn[connID]
	if !ok {
		r.mu.Unlock()
		return false
	}
	handles := r.byUser[userID]
	// Only the instance that was registered may remove the slot.
	if handles[connID] != c {
		r.mu.Unlock()
		return false
	}
	delete(handles, connID)
	delete(r.byConn, connID)
	wentOffline := len(handles) == 0
	if wentOffline {
		delete(r.byUser, userID)
	}
	r.mu.Unlock()

	r.publishSize()
	return wentOffline
}

func (r *Registry) Lookup(userID string) []contracts.Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return lo.Values(r.byUser[userID])
}

func (r *Registry) OnlineUsers() []string {
	r.mu.RLock()
	users := lo.Keys(r.byUser)
	r.mu.RUnlock()
	sort.Strings(users)
	return users
}

func (r *Registry) Clients() []contracts.Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]contracts.Client, 0, len(r.byConn))
	for _, handles := range r.byUser {
		for _, c := range handles {
			out = append(out, c)
		}
	}
	return out
}

func (r *Registry) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.statsLocked()
}

// Close empties the registry and refuses further registrations. The handles
// that were live are returned for the caller to close.
func (r *Registry) Close() []contracts.Client {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	out := make([]contracts.Client, 0, len(r.byConn))
	for _, handles := range r.byUser {
		for _, c := range handles {
			out = append(out, c)
		}
	}
	r.byUser = make(map[string]map[string]contracts.Client)
	r.byConn = make(map[string]string)
	r.mu.Unlock()

	r.publishSize()
	return out
}

func (r *Registry) publishSize() {
	r.hookMu.Lock()
	defer r.hookMu.Unlock()
	r.mu.RLock()
	stats, hook := r.statsLocked(), r.onSize
	r.mu.RUnlock()
	if hook != nil {
		hook(stats)
	}
}

func (r *Registry) statsLocked() Stats {
	return Stats{Connections: len(r.byConn), Users: len(r.byUser)}
}
