package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/eintrusts/MahacapV2/internal/domain"
)

const createCityRecordsTable = `
CREATE TABLE IF NOT EXISTS city_records (
	city_name  TEXT PRIMARY KEY,
	record     JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

const upsertCityRecord = `
INSERT INTO city_records (city_name, record, updated_at)
VALUES ($1, $2, now())
ON CONFLICT (city_name)
DO UPDATE SET record = EXCLUDED.record, updated_at = now()`

// PostgresRecordStore keeps one JSONB row per city.
type PostgresRecordStore struct {
	db *sql.DB
}

func NewPostgresRecordStore(db *sql.DB) *PostgresRecordStore {
	return &PostgresRecordStore{db: db}
}

var _ RecordStore = (*PostgresRecordStore)(nil)

// EnsureSchema creates the city_records table when missing.
func (r *PostgresRecordStore) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createCityRecordsTable); err != nil {
		return fmt.Errorf("create city_records: %w", err)
	}
	return nil
}

func (r *PostgresRecordStore) Get(ctx context.Context, city string) (domain.CityRecord, error) {
	var raw []byte
	err := r.db.QueryRowContext(ctx, `SELECT record FROM city_records WHERE city_name = $1`, city).Scan(&raw)
	if err != nil {
		if err == sql.ErrNoRows {
			return domain.CityRecord{}, nil
		}
		return domain.CityRecord{}, fmt.Errorf("select city record %s: %w", city, err)
	}
	return decodeRecord(raw)
}

func (r *PostgresRecordStore) Put(ctx context.Context, city string, rec domain.CityRecord) error {
	b, err := encodeRecord(rec)
	if err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, upsertCityRecord, city, b); err != nil {
		return fmt.Errorf("upsert city record %s: %w", city, err)
	}
	return nil
}

func (r *PostgresRecordStore) Update(ctx context.Context, city string, fn func(rec *domain.CityRecord) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	rec := domain.CityRecord{}
	var raw []byte
	err = tx.QueryRowContext(ctx, `SELECT record FROM city_records WHERE city_name = $1 FOR UPDATE`, city).Scan(&raw)
	switch {
	case err == sql.ErrNoRows:
	case err != nil:
		return fmt.Errorf("lock city record %s: %w", city, err)
	default:
		if rec, err = decodeRecord(raw); err != nil {
			return err
		}
	}

	if err := fn(&rec); err != nil {
		return err
	}
	b, err := encodeRecord(rec)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, upsertCityRecord, city, b); err != nil {
		return fmt.Errorf("upsert city record %s: %w", city, err)
	}
	return tx.Commit()
}

func (r *PostgresRecordStore) Snapshot(ctx context.Context) (domain.CityRecords, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT city_name, record FROM city_records`)
	if err != nil {
		return nil, fmt.Errorf("select city records: %w", err)
	}
	defer rows.Close()

	out := domain.CityRecords{}
	for rows.Next() {
		var (
			city string
			raw  []byte
		)
		if err := rows.Scan(&city, &raw); err != nil {
			return nil, fmt.Errorf("scan city record: %w", err)
		}
		rec, err := decodeRecord(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", city, err)
		}
		out[city] = rec
	}
	return out, rows.Err()
}

func (r *PostgresRecordStore) Replace(ctx context.Context, recs domain.CityRecords) error {
	return r.writeAll(ctx, recs, true)
}

func (r *PostgresRecordStore) Merge(ctx context.Context, recs domain.CityRecords) error {
	return r.writeAll(ctx, recs, false)
}

func (r *PostgresRecordStore) writeAll(ctx context.Context, recs domain.CityRecords, truncate bool) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if truncate {
		if _, err := tx.ExecContext(ctx, `DELETE FROM city_records`); err != nil {
			return fmt.Errorf("clear city records: %w", err)
		}
	}
	for city, rec := range recs {
		b, err := encodeRecord(rec)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, upsertCityRecord, city, b); err != nil {
			return fmt.Errorf("upsert city record %s: %w", city, err)
		}
	}
	return tx.Commit()
}
