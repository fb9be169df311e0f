package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eintrusts/MahacapV2/internal/domain"
)

func setupMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *PostgresRecordStore) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return db, mock, NewPostgresRecordStore(db)
}

func TestPostgresRecordStore_GetMissingIsZero(t *testing.T) {
	db, mock, repo := setupMockDB(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT record FROM city_records`).
		WithArgs("Pune").
		WillReturnError(sql.ErrNoRows)

	rec, err := repo.Get(context.Background(), "Pune")
	require.NoError(t, err)
	assert.Equal(t, domain.CityRecord{}, rec)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRecordStore_GetDecodesJSONB(t *testing.T) {
	db, mock, repo := setupMockDB(t)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"record"}).
		AddRow([]byte(`{"District":"Pune","Population":{"Male":5,"Female":6,"Total":11},"GHG":{"Energy":12.5}}`))
	mock.ExpectQuery(`SELECT record FROM city_records`).
		WithArgs("Pune").
		WillReturnRows(rows)

	rec, err := repo.Get(context.Background(), "Pune")
	require.NoError(t, err)
	assert.Equal(t, "Pune", rec.District)
	assert.Equal(t, int64(11), rec.Population.Total())
	assert.Equal(t, 12.5, rec.GHG[domain.GHGEnergy])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRecordStore_PutUpserts(t *testing.T) {
	db, mock, repo := setupMockDB(t)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO city_records`).
		WithArgs("Thane", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Put(context.Background(), "Thane", domain.CityRecord{District: "Thane"}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRecordStore_UpdateLocksRowInTx(t *testing.T) {
	db, mock, repo := setupMockDB(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT record FROM city_records WHERE city_name = \$1 FOR UPDATE`).
		WithArgs("Nashik").
		WillReturnRows(sqlmock.NewRows([]string{"record"}).AddRow([]byte(`{"District":"Nashik"}`)))
	mock.ExpectExec(`INSERT INTO city_records`).
		WithArgs("Nashik", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	var seen string
	err := repo.Update(context.Background(), "Nashik", func(r *domain.CityRecord) error {
		seen = r.District
		r.SetSection(&domain.Mobility{EVStations: 12})
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "Nashik", seen)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRecordStore_UpdateRollsBackOnError(t *testing.T) {
	db, mock, repo := setupMockDB(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).
		WithArgs("Nashik").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	boom := errors.New("invalid")
	err := repo.Update(context.Background(), "Nashik", func(r *domain.CityRecord) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRecordStore_Snapshot(t *testing.T) {
	db, mock, repo := setupMockDB(t)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"city_name", "record"}).
		AddRow("Akola", []byte(`{"District":"Akola"}`)).
		AddRow("Latur", []byte(`{"District":"Latur"}`))
	mock.ExpectQuery(`SELECT city_name, record FROM city_records`).WillReturnRows(rows)

	snap, err := repo.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Len(t, snap, 2)
	assert.Equal(t, "Latur", snap["Latur"].District)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRecordStore_ReplaceClearsFirst(t *testing.T) {
	db, mock, repo := setupMockDB(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM city_records`).WillReturnResult(sqlmock.NewResult(0, 4))
	mock.ExpectExec(`INSERT INTO city_records`).
		WithArgs("Akola", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Replace(context.Background(), domain.CityRecords{"Akola": {District: "Akola"}}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRecordStore_EnsureSchema(t *testing.T) {
	db, mock, repo := setupMockDB(t)
	defer db.Close()

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS city_records`).WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, repo.EnsureSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
