package location

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/skycast/skycast-api/internal/types"
)

var _ Repository = (*RepositoryImpl)(nil)

// Repository is the canonical store of geographic points, keyed by exact
// coordinate identity. Duplicate checking is the caller's responsibility;
// Create inserts unconditionally and only the unique constraint on
// (lat, lon) stands between two concurrent creators.
type Repository interface {
	FindByCoordinates(ctx context.Context, lat, lon float64) (*types.Location, error)
	Create(ctx context.Context, params types.LocationParams) (*types.Location, error)
	GetByID(ctx context.Context, id uuid.UUID) (*types.Location, error)
}

// Querier is the subset of pgxpool.Pool the repository needs; narrow so
// tests can substitute a mock pool.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type RepositoryImpl struct {
	logger *slog.Logger
	pgpool Querier
}

func NewLocationRepository(pgpool Querier, logger *slog.Logger) *RepositoryImpl {
	return &RepositoryImpl{
		logger: logger,
		pgpool: pgpool,
	}
}

// FindByCoordinates looks up a location by bit-identical coordinates.
// Should the unique constraint ever be dropped and duplicates appear, the
// earliest created row wins, with the lowest id as the final tiebreak.
func (r *RepositoryImpl) FindByCoordinates(ctx context.Context, lat, lon float64) (*types.Location, error) {
	ctx, span := otel.Tracer("LocationRepository").Start(ctx, "FindByCoordinates", trace.WithAttributes(
		attribute.Float64("location.lat", lat),
		attribute.Float64("location.lon", lon),
	))
	defer span.End()

	l := r.logger.With(slog.String("method", "FindByCoordinates"))

	query := `
        SELECT id, name, country, state, lat, lon, created_at, updated_at
        FROM locations
        WHERE lat = $1 AND lon = $2
        ORDER BY created_at ASC, id ASC
        LIMIT 1
    `

	var loc types.Location
	err := r.pgpool.QueryRow(ctx, query, lat, lon).Scan(
		&loc.ID,
		&loc.Name,
		&loc.Country,
		&loc.State,
		&loc.Latitude,
		&loc.Longitude,
		&loc.CreatedAt,
		&loc.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Ok, "Location not found")
			return nil, types.ErrNotFound
		}
		l.ErrorContext(ctx, "Failed to find location by coordinates", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Database query failed")
		return nil, fmt.Errorf("failed to find location by coordinates (%f, %f): %w", lat, lon, err)
	}

	span.SetAttributes(attribute.String("location.id", loc.ID.String()))
	span.SetStatus(codes.Ok, "Location found")

	return &loc, nil
}

// Create inserts a new location without checking for duplicates. A unique
// violation on (lat, lon) means a concurrent creator won the race; it is
// surfaced as types.ErrConflict so the caller can re-fetch.
func (r *RepositoryImpl) Create(ctx context.Context, params types.LocationParams) (*types.Location, error) {
	ctx, span := otel.Tracer("LocationRepository").Start(ctx, "Create", trace.WithAttributes(
		attribute.String("location.name", params.Name),
		attribute.Float64("location.lat", params.Latitude),
		attribute.Float64("location.lon", params.Longitude),
	))
	defer span.End()

	l := r.logger.With(slog.String("method", "Create"))

	country := params.Country
	if country == "" {
		country = types.CountryUnknown
	}

	query := `
        INSERT INTO locations (name, country, state, lat, lon)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id, name, country, state, lat, lon, created_at, updated_at
    `

	var loc types.Location
	err := r.pgpool.QueryRow(ctx, query,
		params.Name,
		country,
		params.State,
		params.Latitude,
		params.Longitude,
	).Scan(
		&loc.ID,
		&loc.Name,
		&loc.Country,
		&loc.State,
		&loc.Latitude,
		&loc.Longitude,
		&loc.CreatedAt,
		&loc.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // Unique violation
			l.WarnContext(ctx, "Concurrent create for the same coordinates",
				slog.Float64("lat", params.Latitude),
				slog.Float64("lon", params.Longitude))
			span.SetStatus(codes.Error, "Duplicate coordinates")
			return nil, fmt.Errorf("location already exists at (%f, %f): %w",
				params.Latitude, params.Longitude, types.ErrConflict)
		}
		l.ErrorContext(ctx, "Failed to insert location", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Database insert failed")
		return nil, fmt.Errorf("failed to insert location: %w", err)
	}

	l.InfoContext(ctx, "Location created",
		slog.String("location_id", loc.ID.String()),
		slog.String("name", loc.Name))
	span.SetAttributes(attribute.String("location.id", loc.ID.String()))
	span.SetStatus(codes.Ok, "Location created")

	return &loc, nil
}

// GetByID fetches a single location by surrogate id.
func (r *RepositoryImpl) GetByID(ctx context.Context, id uuid.UUID) (*types.Location, error) {
	ctx, span := otel.Tracer("LocationRepository").Start(ctx, "GetByID", trace.WithAttributes(
		attribute.String("location.id", id.String()),
	))
	defer span.End()

	query := `
        SELECT id, name, country, state, lat, lon, created_at, updated_at
        FROM locations
        WHERE id = $1
    `

	var loc types.Location
	err := r.pgpool.QueryRow(ctx, query, id).Scan(
		&loc.ID,
		&loc.Name,
		&loc.Country,
		&loc.State,
		&loc.Latitude,
		&loc.Longitude,
		&loc.CreatedAt,
		&loc.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Ok, "Location not found")
			return nil, types.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Failed to get location by id",
			slog.Any("error", err),
			slog.String("location_id", id.String()))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Database query failed")
		return nil, fmt.Errorf("failed to get location %s: %w", id, err)
	}

	span.SetStatus(codes.Ok, "Location found")
	return &loc, nil
}
