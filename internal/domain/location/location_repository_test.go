package location

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skycast/skycast-api/internal/types"
)

func newMockRepo(t *testing.T) (*RepositoryImpl, pgxmock.PgxPoolIface) {
	t.Helper()
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mockPool.Close)
	return NewLocationRepository(mockPool, slog.Default()), mockPool
}

func locationColumns() []string {
	return []string{"id", "name", "country", "state", "lat", "lon", "created_at", "updated_at"}
}

func TestFindByCoordinates(t *testing.T) {
	ctx := context.Background()

	t.Run("returns the matching location", func(t *testing.T) {
		repo, mockPool := newMockRepo(t)
		id := uuid.New()
		now := time.Now()

		rows := pgxmock.NewRows(locationColumns()).
			AddRow(id, "Paris", "FR", (*string)(nil), 48.8566, 2.3522, now, now)
		mockPool.ExpectQuery("SELECT id, name, country, state, lat, lon").
			WithArgs(48.8566, 2.3522).
			WillReturnRows(rows)

		loc, err := repo.FindByCoordinates(ctx, 48.8566, 2.3522)

		require.NoError(t, err)
		assert.Equal(t, id, loc.ID)
		assert.Equal(t, "Paris", loc.Name)
		assert.Nil(t, loc.State)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("maps missing row to ErrNotFound", func(t *testing.T) {
		repo, mockPool := newMockRepo(t)
		mockPool.ExpectQuery("SELECT id, name, country, state, lat, lon").
			WithArgs(0.0, 0.0).
			WillReturnError(pgx.ErrNoRows)

		_, err := repo.FindByCoordinates(ctx, 0, 0)

		assert.ErrorIs(t, err, types.ErrNotFound)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("inserts with the supplied attributes", func(t *testing.T) {
		repo, mockPool := newMockRepo(t)
		id := uuid.New()
		now := time.Now()
		state := "Île-de-France"

		rows := pgxmock.NewRows(locationColumns()).
			AddRow(id, "Paris", "FR", &state, 48.8566, 2.3522, now, now)
		mockPool.ExpectQuery("INSERT INTO locations").
			WithArgs("Paris", "FR", &state, 48.8566, 2.3522).
			WillReturnRows(rows)

		loc, err := repo.Create(ctx, types.LocationParams{
			Name:      "Paris",
			Country:   "FR",
			State:     &state,
			Latitude:  48.8566,
			Longitude: 2.3522,
		})

		require.NoError(t, err)
		assert.Equal(t, id, loc.ID)
		require.NotNil(t, loc.State)
		assert.Equal(t, state, *loc.State)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("defaults country to Unknown when absent", func(t *testing.T) {
		repo, mockPool := newMockRepo(t)
		id := uuid.New()
		now := time.Now()

		rows := pgxmock.NewRows(locationColumns()).
			AddRow(id, "Somewhere", types.CountryUnknown, (*string)(nil), 1.0, 2.0, now, now)
		mockPool.ExpectQuery("INSERT INTO locations").
			WithArgs("Somewhere", types.CountryUnknown, (*string)(nil), 1.0, 2.0).
			WillReturnRows(rows)

		loc, err := repo.Create(ctx, types.LocationParams{
			Name:      "Somewhere",
			Latitude:  1.0,
			Longitude: 2.0,
		})

		require.NoError(t, err)
		assert.Equal(t, types.CountryUnknown, loc.Country)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("maps unique violation to ErrConflict", func(t *testing.T) {
		repo, mockPool := newMockRepo(t)
		mockPool.ExpectQuery("INSERT INTO locations").
			WithArgs("Paris", "FR", (*string)(nil), 48.8566, 2.3522).
			WillReturnError(&pgconn.PgError{Code: "23505"})

		_, err := repo.Create(ctx, types.LocationParams{
			Name:      "Paris",
			Country:   "FR",
			Latitude:  48.8566,
			Longitude: 2.3522,
		})

		assert.ErrorIs(t, err, types.ErrConflict)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestGetByID(t *testing.T) {
	ctx := context.Background()

	t.Run("maps missing row to ErrNotFound", func(t *testing.T) {
		repo, mockPool := newMockRepo(t)
		id := uuid.New()
		mockPool.ExpectQuery("SELECT id, name, country, state, lat, lon").
			WithArgs(id).
			WillReturnError(pgx.ErrNoRows)

		_, err := repo.GetByID(ctx, id)

		assert.ErrorIs(t, err, types.ErrNotFound)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}
