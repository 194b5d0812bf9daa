package session

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// Registry holds live sessions. A session that is not touched for the TTL
// expires and its corpus and transcript are dropped.
type Registry struct {
	cache *cache.Cache
}

func NewRegistry(ttl time.Duration, log *slog.Logger) *Registry {
	cleanup := ttl / 4
	if cleanup < time.Minute {
		cleanup = time.Minute
	}
	c := cache.New(ttl, cleanup)
	c.OnEvicted(func(id string, _ any) {
		log.Info("session ended", "session_id", id)
	})
	return &Registry{cache: c}
}

// Create starts a new empty session.
func (r *Registry) Create() *State {
	s := New(uuid.NewString())
	r.cache.Set(s.ID, s, cache.DefaultExpiration)
	return s
}

// Get looks up a session and extends its lifetime.
func (r *Registry) Get(id string) (*State, bool) {
	x, found := r.cache.Get(id)
	if !found {
		return nil, false
	}
	s := x.(*State)
	r.cache.Set(id, s, cache.DefaultExpiration)
	return s, true
}

// Delete ends a session. It reports whether the session existed.
func (r *Registry) Delete(id string) bool {
	if _, found := r.cache.Get(id); !found {
		return false
	}
	r.cache.Delete(id)
	return true
}

// Count returns the number of live sessions, including expired ones not yet
// cleaned up.
func (r *Registry) Count() int {
	return r.cache.ItemCount()
}
