package server

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/derekprior/potdraw/internal/draw"
	"github.com/derekprior/potdraw/internal/schedule"
)

// Record is a stored draw and, once generated, its fixtures.
type Record struct {
	ID        string
	Seed      int64
	CreatedAt time.Time
	Pairing   *draw.Pairing
	Fixtures  *schedule.Result
}

// Store keeps draws in memory for the lifetime of the server.
type Store struct {
	mu      sync.RWMutex
	records map[string]*Record
}

func NewStore() *Store {
	return &Store{records: make(map[string]*Record)}
}

// Add stores a new draw under a fresh id.
func (s *Store) Add(seed int64, p *draw.Pairing) Record {
	r := &Record{
		ID:        uuid.New().String(),
		Seed:      seed,
		CreatedAt: time.Now().UTC(),
		Pairing:   p,
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[r.ID] = r
	return *r
}

// Get returns a copy of the record so callers can read it without holding
// the lock.
func (s *Store) Get(id string) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[id]
	if !ok {
		return Record{}, false
	}
	return *r, true
}

// SetFixtures replaces the fixtures of a stored draw.
func (s *Store) SetFixtures(id string, result *schedule.Result) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[id]
	if !ok {
		return false
	}
	r.Fixtures = result
	return true
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
