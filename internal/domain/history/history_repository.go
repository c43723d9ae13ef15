package history

import (
	"context"
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

// DefaultListLimit caps listing when the caller does not supply a limit.
const DefaultListLimit = 10

var _ Repository = (*RepositoryImpl)(nil)

// Repository tracks visits as one row per (location, identity) pair with a
// counter and recency timestamp.
type Repository interface {
	ListHistory(ctx context.Context, identity types.Identity, limit int) ([]types.Location, error)
	RecordVisit(ctx context.Context, locationID uuid.UUID, identity types.Identity) (*types.HistoryEntry, error)
	Clear(ctx context.Context, identity types.Identity) error
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

func NewHistoryRepository(pgpool Querier, logger *slog.Logger) *RepositoryImpl {
	return &RepositoryImpl{
		logger: logger,
		pgpool: pgpool,
	}
}

// ListHistory returns the identity's visited locations, most recently
// visited first, truncated to limit (DefaultListLimit when limit <= 0).
func (r *RepositoryImpl) ListHistory(ctx context.Context, identity types.Identity, limit int) ([]types.Location, error) {
	ctx, span := otel.Tracer("HistoryRepository").Start(ctx, "ListHistory", trace.WithAttributes(
		attribute.String("user.identity", identity.String()),
		attribute.Int("limit", limit),
	))
	defer span.End()

	l := r.logger.With(slog.String("method", "ListHistory"))

	if limit <= 0 {
		limit = DefaultListLimit
	}

	query := `
        SELECT l.id, l.name, l.country, l.state, l.lat, l.lon,
               l.created_at, l.updated_at
        FROM location_history h
        JOIN locations l ON l.id = h.location_id
        WHERE h.user_id IS NOT DISTINCT FROM $1
        ORDER BY h.last_visited DESC
        LIMIT $2
    `

	rows, err := r.pgpool.Query(ctx, query, identity.NullString(), limit)
	if err != nil {
		l.ErrorContext(ctx, "Failed to query history", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Database query failed")
		return nil, fmt.Errorf("failed to query history: %w", err)
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
			l.ErrorContext(ctx, "Failed to scan history row", slog.Any("error", err))
			span.RecordError(err)
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		locations = append(locations, loc)
	}

	if err = rows.Err(); err != nil {
		l.ErrorContext(ctx, "Error iterating history rows", slog.Any("error", err))
		span.RecordError(err)
		return nil, fmt.Errorf("error iterating history rows: %w", err)
	}

	span.SetAttributes(attribute.Int("results.count", len(locations)))
	span.SetStatus(codes.Ok, "History retrieved")

	return locations, nil
}

// RecordVisit upserts the visit in a single statement so the
// increment-or-create cannot race with a concurrent visit: a first visit
// inserts with count 1, any later visit increments the counter and
// refreshes the timestamp.
func (r *RepositoryImpl) RecordVisit(ctx context.Context, locationID uuid.UUID, identity types.Identity) (*types.HistoryEntry, error) {
	ctx, span := otel.Tracer("HistoryRepository").Start(ctx, "RecordVisit", trace.WithAttributes(
		attribute.String("location.id", locationID.String()),
		attribute.String("user.identity", identity.String()),
	))
	defer span.End()

	l := r.logger.With(slog.String("method", "RecordVisit"))

	query := `
        INSERT INTO location_history (location_id, user_id)
        VALUES ($1, $2)
        ON CONFLICT (location_id, user_id)
        DO UPDATE SET visit_count = location_history.visit_count + 1,
                      last_visited = now()
        RETURNING id, location_id, visit_count, last_visited
    `

	var entry types.HistoryEntry
	err := r.pgpool.QueryRow(ctx, query, locationID, identity.NullString()).Scan(
		&entry.ID,
		&entry.LocationID,
		&entry.VisitCount,
		&entry.LastVisited,
	)
	if err != nil {
		l.ErrorContext(ctx, "Failed to record visit",
			slog.Any("error", err),
			slog.String("location_id", locationID.String()))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Database upsert failed")
		return nil, fmt.Errorf("failed to record visit: %w", err)
	}
	entry.UserID = identity

	l.InfoContext(ctx, "Visit recorded",
		slog.String("location_id", locationID.String()),
		slog.Int("visit_count", entry.VisitCount))
	span.SetAttributes(attribute.Int("visit.count", entry.VisitCount))
	span.SetStatus(codes.Ok, "Visit recorded")

	return &entry, nil
}

// Clear deletes all history rows scoped to the identity. Clearing an
// empty history is a no-op; other identities are untouched.
func (r *RepositoryImpl) Clear(ctx context.Context, identity types.Identity) error {
	ctx, span := otel.Tracer("HistoryRepository").Start(ctx, "Clear", trace.WithAttributes(
		attribute.String("user.identity", identity.String()),
	))
	defer span.End()

	l := r.logger.With(slog.String("method", "Clear"))

	query := `
        DELETE FROM location_history
        WHERE user_id IS NOT DISTINCT FROM $1
    `

	tag, err := r.pgpool.Exec(ctx, query, identity.NullString())
	if err != nil {
		l.ErrorContext(ctx, "Failed to clear history", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Database delete failed")
		return fmt.Errorf("failed to clear history: %w", err)
	}

	l.InfoContext(ctx, "History cleared",
		slog.Int64("rows_affected", tag.RowsAffected()))
	span.SetAttributes(attribute.Int64("rows.affected", tag.RowsAffected()))
	span.SetStatus(codes.Ok, "History cleared")

	return nil
}
