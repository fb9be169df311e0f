package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"

	"github.com/eintrusts/MahacapV2/internal/domain"
)

// DefaultRedisKey is the hash that holds city name -> record JSON.
const DefaultRedisKey = "mahacap:city_records"

// maxUpdateAttempts bounds optimistic retries when a WATCHed hash changes under us.
const maxUpdateAttempts = 5

// RedisRecordStore keeps all records in a single Redis hash.
type RedisRecordStore struct {
	c   *redis.Client
	key string
}

func NewRedisRecordStore(c *redis.Client, key string) *RedisRecordStore {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisRecordStore{c: c, key: key}
}

var _ RecordStore = (*RedisRecordStore)(nil)

func (r *RedisRecordStore) Get(ctx context.Context, city string) (domain.CityRecord, error) {
	raw, err := r.c.HGet(ctx, r.key, city).Bytes()
	if err != nil {
		if err == redis.Nil {
			return domain.CityRecord{}, nil
		}
		return domain.CityRecord{}, fmt.Errorf("redis hget %s: %w", city, err)
	}
	return decodeRecord(raw)
}

func (r *RedisRecordStore) Put(ctx context.Context, city string, rec domain.CityRecord) error {
	b, err := encodeRecord(rec)
	if err != nil {
		return err
	}
	return r.c.HSet(ctx, r.key, city, b).Err()
}

func (r *RedisRecordStore) Update(ctx context.Context, city string, fn func(rec *domain.CityRecord) error) error {
	txf := func(tx *redis.Tx) error {
		rec := domain.CityRecord{}
		raw, err := tx.HGet(ctx, r.key, city).Bytes()
		switch {
		case err == redis.Nil:
		case err != nil:
			return fmt.Errorf("redis hget %s: %w", city, err)
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
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.HSet(ctx, r.key, city, b)
			return nil
		})
		return err
	}

	for i := 0; i < maxUpdateAttempts; i++ {
		err := r.c.Watch(ctx, txf, r.key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("redis update %s: too much contention", city)
}

func (r *RedisRecordStore) Snapshot(ctx context.Context) (domain.CityRecords, error) {
	all, err := r.c.HGetAll(ctx, r.key).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hgetall: %w", err)
	}
	out := make(domain.CityRecords, len(all))
	for city, raw := range all {
		rec, err := decodeRecord([]byte(raw))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", city, err)
		}
		out[city] = rec
	}
	return out, nil
}

func (r *RedisRecordStore) Replace(ctx context.Context, recs domain.CityRecords) error {
	fields, err := r.fields(recs)
	if err != nil {
		return err
	}
	_, err = r.c.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, r.key)
		if len(fields) > 0 {
			p.HSet(ctx, r.key, fields)
		}
		return nil
	})
	return err
}

func (r *RedisRecordStore) Merge(ctx context.Context, recs domain.CityRecords) error {
	fields, err := r.fields(recs)
	if err != nil || len(fields) == 0 {
		return err
	}
	return r.c.HSet(ctx, r.key, fields).Err()
}

func (r *RedisRecordStore) fields(recs domain.CityRecords) (map[string]interface{}, error) {
	fields := make(map[string]interface{}, len(recs))
	for city, rec := range recs {
		b, err := encodeRecord(rec)
		if err != nil {
			return nil, err
		}
		fields[city] = b
	}
	return fields, nil
}
