package favorites

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Masterminds/squirrel"
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

// Repository is the set of (location, identity) pairs a user has saved.
// Add does not re-check for an existing pair; the facade performs the
// IsFavorite check first and the unique constraint backstops the race.
type Repository interface {
	ListFavorites(ctx context.Context, identity types.Identity) ([]types.Location, error)
	Add(ctx context.Context, locationID uuid.UUID, identity types.Identity) (*types.Favorite, error)
	Remove(ctx context.Context, locationID uuid.UUID, identity types.Identity) error
	IsFavorite(ctx context.Context, locationID uuid.UUID, identity types.Identity) (bool, error)
}

// Querier is the subset of pgxpool.Pool the repository needs.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type RepositoryImpl struct {
	logger *slog.Logger
	pgpool Querier
}

func NewFavoritesRepository(pgpool Querier, logger *slog.Logger) *RepositoryImpl {
	return &RepositoryImpl{
		logger: logger,
		pgpool: pgpool,
	}
}

// ListFavorites returns the saved locations for an identity, newest
// favorited first. The anonymous identity scopes to NULL user_id rows
// only, never to all identities.
func (r *RepositoryImpl) ListFavorites(ctx context.Context, identity types.Identity) ([]types.Location, error) {
	ctx, span := otel.Tracer("FavoritesRepository").Start(ctx, "ListFavorites", trace.WithAttributes(
		attribute.String("user.identity", identity.String()),
	))
	defer span.End()

	l := r.logger.With(slog.String("method", "ListFavorites"))

	builder := squirrel.Select(
		"l.id", "l.name", "l.country", "l.state", "l.lat", "l.lon",
		"l.created_at", "l.updated_at",
	).
		From("favorite_locations f").
		Join("locations l ON l.id = f.location_id").
		Where(squirrel.Expr("f.user_id IS NOT DISTINCT FROM ?", identity.NullString())).
		OrderBy("f.created_at DESC", "f.id DESC").
		PlaceholderFormat(squirrel.Dollar)

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build favorites query: %w", err)
	}

	rows, err := r.pgpool.Query(ctx, query, args...)
	if err != nil {
		l.ErrorContext(ctx, "Failed to query favorites", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Database query failed")
		return nil, fmt.Errorf("failed to query favorites: %w", err)
	}
	defer rows.Close()

	var locations []types.Location
	for rows.Next() {
		var loc types.Location
		err := rows.Scan(
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
			l.ErrorContext(ctx, "Failed to scan favorite row", slog.Any("error", err))
			span.RecordError(err)
			return nil, fmt.Errorf("failed to scan favorite row: %w", err)
		}
		locations = append(locations, loc)
	}

	if err = rows.Err(); err != nil {
		l.ErrorContext(ctx, "Error iterating favorite rows", slog.Any("error", err))
		span.RecordError(err)
		return nil, fmt.Errorf("error iterating favorite rows: %w", err)
	}

	span.SetAttributes(attribute.Int("results.count", len(locations)))
	span.SetStatus(codes.Ok, "Favorites retrieved")

	return locations, nil
}

// Add inserts a favorite for the (location, identity) pair. A unique
// violation means the pair already exists and is reported as
// types.ErrAlreadyFavorited.
func (r *RepositoryImpl) Add(ctx context.Context, locationID uuid.UUID, identity types.Identity) (*types.Favorite, error) {
	ctx, span := otel.Tracer("FavoritesRepository").Start(ctx, "Add", trace.WithAttributes(
		attribute.String("location.id", locationID.String()),
		attribute.String("user.identity", identity.String()),
	))
	defer span.End()

	l := r.logger.With(slog.String("method", "Add"))

	query := `
        INSERT INTO favorite_locations (location_id, user_id)
        VALUES ($1, $2)
        RETURNING id, location_id, created_at
    `

	var fav types.Favorite
	err := r.pgpool.QueryRow(ctx, query, locationID, identity.NullString()).Scan(
		&fav.ID,
		&fav.LocationID,
		&fav.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // Unique violation
			span.SetStatus(codes.Error, "Favorite already exists")
			return nil, fmt.Errorf("favorite exists for location %s: %w",
				locationID, types.ErrAlreadyFavorited)
		}
		l.ErrorContext(ctx, "Failed to insert favorite",
			slog.Any("error", err),
			slog.String("location_id", locationID.String()))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Database insert failed")
		return nil, fmt.Errorf("failed to insert favorite: %w", err)
	}
	fav.UserID = identity

	l.InfoContext(ctx, "Favorite added",
		slog.String("favorite_id", fav.ID.String()),
		slog.String("location_id", locationID.String()))
	span.SetAttributes(attribute.String("favorite.id", fav.ID.String()))
	span.SetStatus(codes.Ok, "Favorite added")

	return &fav, nil
}

// Remove deletes the favorite for the pair. Removing a favorite that does
// not exist is a no-op, not an error.
func (r *RepositoryImpl) Remove(ctx context.Context, locationID uuid.UUID, identity types.Identity) error {
	ctx, span := otel.Tracer("FavoritesRepository").Start(ctx, "Remove", trace.WithAttributes(
		attribute.String("location.id", locationID.String()),
		attribute.String("user.identity", identity.String()),
	))
	defer span.End()

	l := r.logger.With(slog.String("method", "Remove"))

	query := `
        DELETE FROM favorite_locations
        WHERE location_id = $1 AND user_id IS NOT DISTINCT FROM $2
    `

	tag, err := r.pgpool.Exec(ctx, query, locationID, identity.NullString())
	if err != nil {
		l.ErrorContext(ctx, "Failed to remove favorite",
			slog.Any("error", err),
			slog.String("location_id", locationID.String()))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Database delete failed")
		return fmt.Errorf("failed to remove favorite: %w", err)
	}

	l.InfoContext(ctx, "Favorite removed",
		slog.String("location_id", locationID.String()),
		slog.Int64("rows_affected", tag.RowsAffected()))
	span.SetAttributes(attribute.Int64("rows.affected", tag.RowsAffected()))
	span.SetStatus(codes.Ok, "Favorite removed")

	return nil
}

// IsFavorite reports whether the pair is currently saved.
func (r *RepositoryImpl) IsFavorite(ctx context.Context, locationID uuid.UUID, identity types.Identity) (bool, error) {
	ctx, span := otel.Tracer("FavoritesRepository").Start(ctx, "IsFavorite", trace.WithAttributes(
		attribute.String("location.id", locationID.String()),
		attribute.String("user.identity", identity.String()),
	))
	defer span.End()

	query := `
        SELECT EXISTS (
            SELECT 1 FROM favorite_locations
            WHERE location_id = $1 AND user_id IS NOT DISTINCT FROM $2
        )
    `

	var exists bool
	err := r.pgpool.QueryRow(ctx, query, locationID, identity.NullString()).Scan(&exists)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to check favorite",
			slog.Any("error", err),
			slog.String("location_id", locationID.String()))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Database query failed")
		return false, fmt.Errorf("failed to check favorite: %w", err)
	}

	span.SetAttributes(attribute.Bool("favorite.exists", exists))
	span.SetStatus(codes.Ok, "Favorite checked")

	return exists, nil
}
