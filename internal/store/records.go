package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/eintrusts/MahacapV2/internal/domain"
)

// RecordStore holds one CityRecord per city name. Records of different
// cities are independent; there is no cross-city transaction.
type RecordStore interface {
	// Get returns the stored record, or the zero record when the city has none.
	Get(ctx context.Context, city string) (domain.CityRecord, error)
	// Put replaces exactly one city's record.
	Put(ctx context.Context, city string, rec domain.CityRecord) error
	// Update runs fn against the current record and stores the result
	// atomically with respect to other Updates of the same city.
	Update(ctx context.Context, city string, fn func(rec *domain.CityRecord) error) error
	// Snapshot returns every stored record.
	Snapshot(ctx context.Context) (domain.CityRecords, error)
	// Replace drops all records and stores recs instead.
	Replace(ctx context.Context, recs domain.CityRecords) error
	// Merge puts each record of recs, keeping cities not present in recs.
	Merge(ctx context.Context, recs domain.CityRecords) error
}

func encodeRecord(rec domain.CityRecord) ([]byte, error) {
	b, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encode city record: %w", err)
	}
	return b, nil
}

func decodeRecord(raw []byte) (domain.CityRecord, error) {
	var rec domain.CityRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return domain.CityRecord{}, fmt.Errorf("decode city record: %w", err)
	}
	return rec, nil
}
