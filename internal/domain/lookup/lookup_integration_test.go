//go:build integration

package lookup

import (
	"context"
	"log"
	"log/slog"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skycast/skycast-api/internal/domain/favorites"
	"github.com/skycast/skycast-api/internal/domain/history"
	"github.com/skycast/skycast-api/internal/domain/location"
	"github.com/skycast/skycast-api/internal/types"
)

var testLookupDB *pgxpool.Pool
var testLookupService Service

func TestMain(m *testing.M) {
	if err := godotenv.Load("../../../.env.test"); err != nil {
		log.Println("Warning: .env.test file not found for lookup integration tests.")
	}

	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		log.Fatal("TEST_DATABASE_URL environment variable is not set for lookup integration tests")
	}

	config, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		log.Fatalf("Unable to parse TEST_DATABASE_URL: %v\n", err)
	}
	config.MaxConns = 5

	testLookupDB, err = pgxpool.NewWithConfig(context.Background(), config)
	if err != nil {
		log.Fatalf("Unable to create connection pool for lookup tests: %v\n", err)
	}
	defer testLookupDB.Close()

	if err := testLookupDB.Ping(context.Background()); err != nil {
		log.Fatalf("Unable to ping test database for lookup tests: %v\n", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	locRepo := location.NewLocationRepository(testLookupDB, logger)
	favRepo := favorites.NewFavoritesRepository(testLookupDB, logger)
	histRepo := history.NewHistoryRepository(testLookupDB, logger)
	testLookupService = NewLookupService(locRepo, favRepo, histRepo, logger)

	os.Exit(m.Run())
}

func clearLookupTables(t *testing.T) {
	t.Helper()
	for _, table := range []string{"location_history", "favorite_locations", "locations"} {
		_, err := testLookupDB.Exec(context.Background(), "DELETE FROM "+table)
		require.NoError(t, err, "Failed to clear %s table", table)
	}
}

func TestIntegrationParisVisitScenario(t *testing.T) {
	clearLookupTables(t)
	ctx := context.Background()

	params := types.LocationParams{Name: "Paris", Country: "FR", Latitude: 48.8566, Longitude: 2.3522}

	first, err := testLookupService.RecordVisit(ctx, params, types.Anonymous)
	require.NoError(t, err)

	second, err := testLookupService.RecordVisit(ctx, params, types.Anonymous)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID, "second visit must reuse the location")

	var count int
	var visitCount int
	err = testLookupDB.QueryRow(ctx,
		"SELECT COUNT(*), MAX(visit_count) FROM location_history WHERE location_id = $1", first.ID).
		Scan(&count, &visitCount)
	require.NoError(t, err)
	assert.Equal(t, 1, count, "repeat visits must not create new rows")
	assert.Equal(t, 2, visitCount)
}

func TestIntegrationFavoriteLifecycle(t *testing.T) {
	clearLookupTables(t)
	ctx := context.Background()

	identity := types.NewIdentity("u1")
	params := types.LocationParams{Name: "New York", Country: "US", Latitude: 40.7128, Longitude: -74.0060}

	loc, fav, err := testLookupService.AddFavorite(ctx, params, identity)
	require.NoError(t, err)
	require.NotNil(t, fav)

	isFav, err := testLookupService.CheckFavorite(ctx, loc.ID, identity)
	require.NoError(t, err)
	assert.True(t, isFav)

	_, _, err = testLookupService.AddFavorite(ctx, params, identity)
	assert.ErrorIs(t, err, types.ErrAlreadyFavorited)

	list, err := testLookupService.ListFavorites(ctx, identity)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, testLookupService.RemoveFavorite(ctx, loc.ID, identity))

	isFav, err = testLookupService.CheckFavorite(ctx, loc.ID, identity)
	require.NoError(t, err)
	assert.False(t, isFav)

	// Removing again is still a success.
	require.NoError(t, testLookupService.RemoveFavorite(ctx, loc.ID, identity))
}

func TestIntegrationHistoryLimitAndClear(t *testing.T) {
	clearLookupTables(t)
	ctx := context.Background()

	identity := types.NewIdentity("u1")
	other := types.NewIdentity("u2")

	cities := []types.LocationParams{
		{Name: "Paris", Country: "FR", Latitude: 48.8566, Longitude: 2.3522},
		{Name: "Lyon", Country: "FR", Latitude: 45.7640, Longitude: 4.8357},
		{Name: "Nice", Country: "FR", Latitude: 43.7102, Longitude: 7.2620},
		{Name: "Lille", Country: "FR", Latitude: 50.6292, Longitude: 3.0573},
		{Name: "Nantes", Country: "FR", Latitude: 47.2184, Longitude: -1.5536},
	}
	for _, city := range cities {
		_, err := testLookupService.RecordVisit(ctx, city, identity)
		require.NoError(t, err)
	}
	_, err := testLookupService.RecordVisit(ctx, cities[0], other)
	require.NoError(t, err)

	limited, err := testLookupService.ListHistory(ctx, identity, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
	assert.Equal(t, "Nantes", limited[0].Name, "most recent visit first")

	require.NoError(t, testLookupService.ClearHistory(ctx, identity))

	cleared, err := testLookupService.ListHistory(ctx, identity, 0)
	require.NoError(t, err)
	assert.Empty(t, cleared)

	otherHistory, err := testLookupService.ListHistory(ctx, other, 0)
	require.NoError(t, err)
	assert.Len(t, otherHistory, 1, "clear must not touch another identity")
}

func TestIntegrationAnonymousScopeIsSeparate(t *testing.T) {
	clearLookupTables(t)
	ctx := context.Background()

	params := types.LocationParams{Name: "Paris", Country: "FR", Latitude: 48.8566, Longitude: 2.3522}

	_, _, err := testLookupService.AddFavorite(ctx, params, types.Anonymous)
	require.NoError(t, err)

	anonList, err := testLookupService.ListFavorites(ctx, types.Anonymous)
	require.NoError(t, err)
	assert.Len(t, anonList, 1)

	userList, err := testLookupService.ListFavorites(ctx, types.NewIdentity("u1"))
	require.NoError(t, err)
	assert.Empty(t, userList, "anonymous scope is not visible to named identities")
}
