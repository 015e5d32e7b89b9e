package models

import (
	"errors"
	"sync"
	"time"
)

var (
	// ErrJourneyLimit is returned when MaxJourneys is reached and a new
	// patient shows up.
	ErrJourneyLimit = errors.New("journey capacity reached")
)

// ColdStorageInterface is implemented by the cold storage layer. Stale
// journeys are evicted through it and lazily restored when their patient
// produces a new event.
type ColdStorageInterface interface {
	Has(patientID string) bool
	Evict(patientID string, journey *Journey)
	Restore(patientID string) (*Journey, error)
}

// JourneyStore holds one journey per patient. The outer map is guarded by an
// RWMutex; every journey additionally carries its own mutex, and Mutate runs
// the read-recompute-write cycle under it, so concurrent events for the same
// patient are serialized while distinct patients proceed in parallel.
type JourneyStore struct {
	mu          sync.RWMutex
	journeys    map[string]*Journey
	maxJourneys int
}

func NewJourneyStore(maxJourneys int) *JourneyStore {
	return &JourneyStore{
		journeys:    make(map[string]*Journey),
		maxJourneys: maxJourneys,
	}
}

// Mutate runs fn on the patient's journey under its per-journey lock. When
// create is true a missing journey is created lazily (double-checked under
// the write lock, like any other keyed lazy init). The bool result reports
// whether the journey existed or was created.
func (s *JourneyStore) Mutate(patientID string, create bool, fn func(j *Journey) error) (bool, error) {
	s.mu.RLock()
	j, ok := s.journeys[patientID]
	s.mu.RUnlock()

	if !ok {
		if !create {
			return false, nil
		}
		s.mu.Lock()
		j, ok = s.journeys[patientID]
		if !ok {
			if s.maxJourneys > 0 && len(s.journeys) >= s.maxJourneys {
				s.mu.Unlock()
				return false, ErrJourneyLimit
			}
			j = NewJourney(patientID)
			s.journeys[patientID] = j
		}
		s.mu.Unlock()
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	return true, fn(j)
}

// Get returns a deep copy of the patient's journey, safe to read without
// further locking.
func (s *JourneyStore) Get(patientID string) (*Journey, bool) {
	s.mu.RLock()
	j, ok := s.journeys[patientID]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.Clone(), true
}

func (s *JourneyStore) Has(patientID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.journeys[patientID]
	return ok
}

func (s *JourneyStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.journeys)
}

// Counts reports total and converted journey counts. Journeys are small and
// few, so taking each journey lock in turn is cheap.
func (s *JourneyStore) Counts() (total, converted int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, j := range s.journeys {
		total++
		j.mu.Lock()
		if j.Converted {
			converted++
		}
		j.mu.Unlock()
	}
	return total, converted
}

// Snapshot deep-copies the whole store. Persistence and reporting work on
// snapshots only.
func (s *JourneyStore) Snapshot() map[string]*Journey {
	s.mu.RLock()
	defer s.mu.RUnlock()

	copyMap := make(map[string]*Journey, len(s.journeys))
	for k, j := range s.journeys {
		j.mu.Lock()
		copyMap[k] = j.Clone()
		j.mu.Unlock()
	}
	return copyMap
}

// Put replaces the store contents. Used on restore from disk.
func (s *JourneyStore) Put(journeys map[string]*Journey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if journeys == nil {
		journeys = make(map[string]*Journey)
	}
	s.journeys = journeys
}

// PutIfAbsent inserts a restored journey unless a concurrent mutation
// already recreated one for the same patient.
func (s *JourneyStore) PutIfAbsent(patientID string, j *Journey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.journeys[patientID]; !ok {
		s.journeys[patientID] = j
	}
}

// EvictStale removes unconverted journeys whose newest touchpoint is older
// than retention and returns them for hand-off to cold storage. Converted
// journeys are kept hot: reporting reads them. A retention of zero disables
// eviction.
func (s *JourneyStore) EvictStale(now time.Time, retention time.Duration) map[string]*Journey {
	if retention <= 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := make(map[string]*Journey)
	for k, j := range s.journeys {
		j.mu.Lock()
		stale := !j.Converted && len(j.TouchPoints) > 0 && now.Sub(j.LastTouchTime()) > retention
		j.mu.Unlock()
		if stale {
			evicted[k] = j
			delete(s.journeys, k)
		}
	}
	return evicted
}
