// Package registry tracks which connection ids are currently live.
//
// Every other component treats a connection id as an opaque token and asks
// the registry before acting on it: the matchmaking queue to discard stale
// waiters, the signaling relay to drop messages aimed at vanished targets.
package registry

import "sync"

// Registry is a concurrency-safe set of live connection ids.
//
// Unregister of an unknown id is a no-op. Once Unregister returns, IsLive
// must not report the id as live again until a fresh Register, even under
// concurrent lookups during a disconnect race.
type Registry struct {
	mu   sync.RWMutex
	live map[string]struct{}
}

func New() *Registry {
	return &Registry{
		live: make(map[string]struct{}),
	}
}

func (r *Registry) Register(id string) {
	r.mu.Lock()
	r.live[id] = struct{}{}
	r.mu.Unlock()
}

func (r *Registry) Unregister(id string) {
	r.mu.Lock()
	delete(r.live, id)
	r.mu.Unlock()
}

func (r *Registry) IsLive(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.live[id]
	return ok
}

// Count returns the number of live connections. Used for logging and the
// readiness endpoint.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.live)
}
