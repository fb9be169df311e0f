package store

import (
	"context"
	"sync"

	"github.com/eintrusts/MahacapV2/internal/domain"
)

// MemoryRecordStore keeps records for the lifetime of the process.
// Values are cloned on the way in and out so callers never share state
// with the store.
type MemoryRecordStore struct {
	mu      sync.RWMutex
	records map[string]domain.CityRecord
}

func NewMemoryRecordStore() *MemoryRecordStore {
	return &MemoryRecordStore{records: map[string]domain.CityRecord{}}
}

var _ RecordStore = (*MemoryRecordStore)(nil)

func (s *MemoryRecordStore) Get(_ context.Context, city string) (domain.CityRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.records[city].Clone(), nil
}

func (s *MemoryRecordStore) Put(_ context.Context, city string, rec domain.CityRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[city] = rec.Clone()
	return nil
}

func (s *MemoryRecordStore) Update(_ context.Context, city string, fn func(rec *domain.CityRecord) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.records[city].Clone()
	if err := fn(&rec); err != nil {
		return err
	}
	s.records[city] = rec
	return nil
}

func (s *MemoryRecordStore) Snapshot(_ context.Context) (domain.CityRecords, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(domain.CityRecords, len(s.records))
	for city, rec := range s.records {
		out[city] = rec.Clone()
	}
	return out, nil
}

func (s *MemoryRecordStore) Replace(_ context.Context, recs domain.CityRecords) error {
	next := make(map[string]domain.CityRecord, len(recs))
	for city, rec := range recs {
		next[city] = rec.Clone()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = next
	return nil
}

func (s *MemoryRecordStore) Merge(_ context.Context, recs domain.CityRecords) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for city, rec := range recs {
		s.records[city] = rec.Clone()
	}
	return nil
}
