package store

import (
	"errors"
	"sync"
	"time"
)

var (
	// ErrNotFound is returned when no records exist for a key.
	ErrNotFound = errors.New("no records for key")
)

// Record is anything that carries the time it was observed.
type Record interface {
	ObservedAt() time.Time
}

// MemoryStore is a concurrency-safe, retention-bounded history of records per key.
type MemoryStore[T Record] struct {
	mu sync.RWMutex

	// key -> records in insertion (time) order
	data map[string][]T

	maxHistory int           // max number of records per key
	maxAge     time.Duration // optional max age for records
	now        func() time.Time
}

// NewMemoryStore creates a store. maxHistory <= 0 and maxAge <= 0 mean unlimited.
func NewMemoryStore[T Record](maxHistory int, maxAge time.Duration) *MemoryStore[T] {
	return &MemoryStore[T]{
		data:       make(map[string][]T),
		maxHistory: maxHistory,
		maxAge:     maxAge,
		now:        time.Now,
	}
}

// Save appends a record for key and enforces retention.
func (s *MemoryStore[T]) Save(key string, rec T) {
	s.mu.Lock()
	defer s.mu.Unlock()

	history := append(s.data[key], rec)

	if s.maxHistory > 0 && len(history) > s.maxHistory {
		history = history[len(history)-s.maxHistory:]
	}

	if s.maxAge > 0 {
		cutoff := s.now().Add(-s.maxAge)
		i := 0
		for ; i < len(history); i++ {
			if !history[i].ObservedAt().Before(cutoff) {
				break
			}
		}
		history = history[i:]
	}

	s.data[key] = history
}

// Latest returns the most recent record for key that is still within maxAge.
func (s *MemoryStore[T]) Latest(key string) (T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var zero T
	history := s.data[key]
	if len(history) == 0 {
		return zero, ErrNotFound
	}

	latest := history[len(history)-1]
	if s.maxAge > 0 && latest.ObservedAt().Before(s.now().Add(-s.maxAge)) {
		return zero, ErrNotFound
	}
	return latest, nil
}

// Range returns the records for key observed between from and to (inclusive).
func (s *MemoryStore[T]) Range(key string, from, to time.Time) ([]T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []T
	for _, rec := range s.data[key] {
		at := rec.ObservedAt()
		if !at.Before(from) && !at.After(to) {
			result = append(result, rec)
		}
	}

	if len(result) == 0 {
		return nil, ErrNotFound
	}
	return result, nil
}

// Keys returns the number of keys with at least one record.
func (s *MemoryStore[T]) Keys() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, h := range s.data {
		if len(h) > 0 {
			n++
		}
	}
	return n
}
