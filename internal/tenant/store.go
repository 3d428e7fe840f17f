package tenant

import (
	"sync"
	"time"
)

// Defaults seed File and Interval for tenants created after this point.
// Existing tenants keep whatever they already have.
type Defaults struct {
	File     string
	Interval time.Duration
}

// Store is the in-memory tenant registry keyed by chat id.
// All accessors return copies; callers never see internal pointers.
type Store struct {
	mu       sync.RWMutex
	tenants  map[int64]*Config
	defaults Defaults
}

func NewStore(d Defaults) *Store {
	return &Store{
		tenants:  make(map[int64]*Config),
		defaults: d,
	}
}

func (s *Store) SetDefaults(d Defaults) {
	s.mu.Lock()
	s.defaults = d
	s.mu.Unlock()
}

func (s *Store) Defaults() Defaults {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.defaults
}

func (s *Store) Get(id int64) (Config, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.tenants[id]
	if !ok {
		return Config{}, false
	}
	return cloneConfig(c), true
}

func (s *Store) GetOrCreate(id int64) Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneConfig(s.getOrCreateLocked(id))
}

// Update mutates one tenant under the lock and returns the result.
// The tenant is created with defaults first if it does not exist.
func (s *Store) Update(id int64, fn func(*Config)) Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.getOrCreateLocked(id)
	fn(c)
	// Re-own the slice in case fn assigned one the caller still holds.
	c.Repos = append([]string(nil), c.Repos...)
	return cloneConfig(c)
}

func (s *Store) IDs() []int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]int64, 0, len(s.tenants))
	for id := range s.tenants {
		out = append(out, id)
	}
	return out
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tenants)
}

func (s *Store) getOrCreateLocked(id int64) *Config {
	if c, ok := s.tenants[id]; ok {
		return c
	}
	c := &Config{
		File:     s.defaults.File,
		Interval: s.defaults.Interval,
	}
	s.tenants[id] = c
	return c
}

func cloneConfig(c *Config) Config {
	out := *c
	out.Repos = append([]string(nil), c.Repos...)
	return out
}
