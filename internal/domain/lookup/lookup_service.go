package lookup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/skycast/skycast-api/internal/domain/favorites"
	"github.com/skycast/skycast-api/internal/domain/history"
	"github.com/skycast/skycast-api/internal/domain/location"
	"github.com/skycast/skycast-api/internal/types"
)

var _ Service = (*ServiceImpl)(nil)

// Service is the single orchestration point for the location registry and
// the favorites/history ledgers. It is stateless between calls.
type Service interface {
	ResolveOrCreateLocation(ctx context.Context, params types.LocationParams) (*types.Location, error)
	AddFavorite(ctx context.Context, params types.LocationParams, identity types.Identity) (*types.Location, *types.Favorite, error)
	RemoveFavorite(ctx context.Context, locationID uuid.UUID, identity types.Identity) error
	CheckFavorite(ctx context.Context, locationID uuid.UUID, identity types.Identity) (bool, error)
	ListFavorites(ctx context.Context, identity types.Identity) ([]types.Location, error)
	RecordVisit(ctx context.Context, params types.LocationParams, identity types.Identity) (*types.Location, error)
	ListHistory(ctx context.Context, identity types.Identity, limit int) ([]types.Location, error)
	ClearHistory(ctx context.Context, identity types.Identity) error
}

type ServiceImpl struct {
	logger    *slog.Logger
	locations location.Repository
	favorites favorites.Repository
	history   history.Repository
	validate  *validator.Validate
}

func NewLookupService(
	locations location.Repository,
	favorites favorites.Repository,
	history history.Repository,
	logger *slog.Logger,
) *ServiceImpl {
	return &ServiceImpl{
		logger:    logger,
		locations: locations,
		favorites: favorites,
		history:   history,
		validate:  validator.New(),
	}
}

// validateParams rejects malformed attributes before any store round trip.
func (s *ServiceImpl) validateParams(params types.LocationParams) error {
	if err := s.validate.Struct(params); err != nil {
		return fmt.Errorf("%w: invalid location attributes: %v", types.ErrBadRequest, err)
	}
	return nil
}

// ResolveOrCreateLocation finds the registry entry for the exact
// coordinates or creates one. When a concurrent creator wins the race the
// insert fails on the coordinate constraint and the existing row is
// re-fetched, so both callers end up with the same location.
func (s *ServiceImpl) ResolveOrCreateLocation(ctx context.Context, params types.LocationParams) (*types.Location, error) {
	ctx, span := otel.Tracer("LookupService").Start(ctx, "ResolveOrCreateLocation", trace.WithAttributes(
		attribute.Float64("location.lat", params.Latitude),
		attribute.Float64("location.lon", params.Longitude),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "ResolveOrCreateLocation"))

	if err := s.validateParams(params); err != nil {
		span.SetStatus(codes.Error, "Validation failed")
		return nil, err
	}

	loc, err := s.locations.FindByCoordinates(ctx, params.Latitude, params.Longitude)
	if err == nil {
		span.SetAttributes(attribute.String("location.id", loc.ID.String()))
		span.SetStatus(codes.Ok, "Location resolved")
		return loc, nil
	}
	if !errors.Is(err, types.ErrNotFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Lookup failed")
		return nil, err
	}

	loc, err = s.locations.Create(ctx, params)
	if err != nil {
		if errors.Is(err, types.ErrConflict) {
			l.InfoContext(ctx, "Lost create race, re-fetching existing location",
				slog.Float64("lat", params.Latitude),
				slog.Float64("lon", params.Longitude))
			loc, err = s.locations.FindByCoordinates(ctx, params.Latitude, params.Longitude)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, "Re-fetch after conflict failed")
				return nil, fmt.Errorf("failed to re-fetch location after create conflict: %w", err)
			}
			span.SetAttributes(attribute.String("location.id", loc.ID.String()))
			span.SetStatus(codes.Ok, "Location resolved after conflict")
			return loc, nil
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "Create failed")
		return nil, err
	}

	l.InfoContext(ctx, "Location created",
		slog.String("location_id", loc.ID.String()),
		slog.String("name", loc.Name))
	span.SetAttributes(attribute.String("location.id", loc.ID.String()))
	span.SetStatus(codes.Ok, "Location created")

	return loc, nil
}

// AddFavorite resolves the location and saves it for the identity. A
// repeat add yields types.ErrAlreadyFavorited, either from the explicit
// check here or from the ledger's constraint backstop when two adds race.
func (s *ServiceImpl) AddFavorite(ctx context.Context, params types.LocationParams, identity types.Identity) (*types.Location, *types.Favorite, error) {
	ctx, span := otel.Tracer("LookupService").Start(ctx, "AddFavorite", trace.WithAttributes(
		attribute.String("user.identity", identity.String()),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "AddFavorite"))

	loc, err := s.ResolveOrCreateLocation(ctx, params)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Location resolution failed")
		return nil, nil, err
	}

	isFav, err := s.favorites.IsFavorite(ctx, loc.ID, identity)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Favorite check failed")
		return nil, nil, err
	}
	if isFav {
		span.SetStatus(codes.Error, "Already favorited")
		return nil, nil, fmt.Errorf("location %s: %w", loc.ID, types.ErrAlreadyFavorited)
	}

	fav, err := s.favorites.Add(ctx, loc.ID, identity)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Favorite add failed")
		return nil, nil, err
	}

	l.InfoContext(ctx, "Favorite added",
		slog.String("location_id", loc.ID.String()),
		slog.String("favorite_id", fav.ID.String()))
	span.SetStatus(codes.Ok, "Favorite added")

	return loc, fav, nil
}

// RemoveFavorite deletes the saved pair; removing a non-existent favorite
// succeeds.
func (s *ServiceImpl) RemoveFavorite(ctx context.Context, locationID uuid.UUID, identity types.Identity) error {
	ctx, span := otel.Tracer("LookupService").Start(ctx, "RemoveFavorite")
	defer span.End()

	if err := s.favorites.Remove(ctx, locationID, identity); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Favorite remove failed")
		return err
	}

	span.SetStatus(codes.Ok, "Favorite removed")
	return nil
}

// CheckFavorite reports whether the pair is saved.
func (s *ServiceImpl) CheckFavorite(ctx context.Context, locationID uuid.UUID, identity types.Identity) (bool, error) {
	return s.favorites.IsFavorite(ctx, locationID, identity)
}

// ListFavorites returns the identity's saved locations, newest first.
func (s *ServiceImpl) ListFavorites(ctx context.Context, identity types.Identity) ([]types.Location, error) {
	return s.favorites.ListFavorites(ctx, identity)
}

// RecordVisit resolves the location and upserts the visit record.
func (s *ServiceImpl) RecordVisit(ctx context.Context, params types.LocationParams, identity types.Identity) (*types.Location, error) {
	ctx, span := otel.Tracer("LookupService").Start(ctx, "RecordVisit", trace.WithAttributes(
		attribute.String("user.identity", identity.String()),
	))
	defer span.End()

	loc, err := s.ResolveOrCreateLocation(ctx, params)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Location resolution failed")
		return nil, err
	}

	if _, err := s.history.RecordVisit(ctx, loc.ID, identity); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Visit recording failed")
		return nil, err
	}

	span.SetAttributes(attribute.String("location.id", loc.ID.String()))
	span.SetStatus(codes.Ok, "Visit recorded")

	return loc, nil
}

// ListHistory returns the identity's recently visited locations.
func (s *ServiceImpl) ListHistory(ctx context.Context, identity types.Identity, limit int) ([]types.Location, error) {
	return s.history.ListHistory(ctx, identity, limit)
}

// ClearHistory wipes the identity's visit records.
func (s *ServiceImpl) ClearHistory(ctx context.Context, identity types.Identity) error {
	return s.history.Clear(ctx, identity)
}
