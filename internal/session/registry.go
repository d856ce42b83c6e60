// Package session keeps the live flow controllers of an API process.
package session

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/juanrdzmb/fitsmartv3/internal/flow"
)

// ErrNotFound is returned for unknown or expired sessions.
var ErrNotFound = errors.New("session not found")

// Config bounds the registry.
type Config struct {
	MaxSessions int           `yaml:"max_sessions"`
	TTL         time.Duration `yaml:"ttl"`
}

// DefaultConfig keeps up to 1000 sessions for two hours of inactivity.
func DefaultConfig() Config {
	return Config{MaxSessions: 1000, TTL: 2 * time.Hour}
}

// Registry maps session IDs to controllers. Least recently used sessions
// are evicted when full; idle ones expire after the TTL.
type Registry struct {
	cache *expirable.LRU[string, *flow.Controller]
	deps  flow.Deps
	log   *slog.Logger
}

// New creates a Registry whose controllers share deps.
func New(cfg Config, deps flow.Deps, log *slog.Logger) *Registry {
	def := DefaultConfig()
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = def.MaxSessions
	}
	if cfg.TTL <= 0 {
		cfg.TTL = def.TTL
	}
	r := &Registry{deps: deps, log: log}
	r.cache = expirable.NewLRU[string, *flow.Controller](cfg.MaxSessions, r.evicted, cfg.TTL)
	return r
}

// Create starts a new session.
func (r *Registry) Create() *flow.Controller {
	id := uuid.NewString()
	c := flow.New(id, r.deps, r.log)
	r.cache.Add(id, c)
	r.log.Info("session created", "session", id, "live", r.cache.Len())
	return c
}

// Get returns a live session and marks it recently used.
func (r *Registry) Get(id string) (*flow.Controller, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	c, ok := r.cache.Get(id)
	if !ok {
		return nil, ErrNotFound
	}
	return c, nil
}

// Remove ends a session. It reports whether the session existed.
func (r *Registry) Remove(id string) bool {
	return r.cache.Remove(id)
}

// Len returns the number of live sessions.
func (r *Registry) Len() int { return r.cache.Len() }

// Drain waits for every in-flight stage call of every live session.
func (r *Registry) Drain(ctx context.Context) error {
	for _, c := range r.cache.Values() {
		if err := c.Drain(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (r *Registry) evicted(id string, c *flow.Controller) {
	r.log.Debug("session evicted", "session", id, "stage", c.Snapshot().State.Name())
}
