// Package memory provides an in-memory scan store for development and
// testing.
package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/presencelab/presence-scanner/internal/scan"
)

// Store keeps scan records in a map guarded by a RWMutex.
type Store struct {
	mu    sync.RWMutex
	scans map[string]scan.Record
}

// NewStore constructs a Store.
func NewStore() *Store {
	return &Store{scans: make(map[string]scan.Record)}
}

// CreateScan stores a new record; duplicate IDs are rejected.
func (s *Store) CreateScan(_ context.Context, rec scan.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.scans[rec.ID]; exists {
		return errors.New("scan already exists")
	}
	s.scans[rec.ID] = rec
	return nil
}

// UpdateScan replaces an existing record.
func (s *Store) UpdateScan(_ context.Context, rec scan.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.scans[rec.ID]; !ok {
		return scan.ErrNotFound
	}
	s.scans[rec.ID] = rec
	return nil
}

// GetScan fetches a record by ID.
func (s *Store) GetScan(_ context.Context, scanID string) (scan.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.scans[scanID]
	if !ok {
		return scan.Record{}, scan.ErrNotFound
	}
	return rec, nil
}

// ListScansByRestaurant returns every scan for a restaurant, newest first.
func (s *Store) ListScansByRestaurant(_ context.Context, restaurantID string) ([]scan.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []scan.Record
	for _, rec := range s.scans {
		if rec.Restaurant.ID == restaurantID {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}
