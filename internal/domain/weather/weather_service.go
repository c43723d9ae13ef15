package weather

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/patrickmn/go-cache"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/skycast/skycast-api/internal/types"
)

var _ Service = (*ServiceImpl)(nil)

// Provider is the slice of the weather client the service depends on.
type Provider interface {
	CurrentConditions(ctx context.Context, lat, lon float64) (*types.CurrentConditions, error)
	ForecastAndAlerts(ctx context.Context, lat, lon float64) ([]types.DailyForecast, []types.WeatherAlert, error)
	AirQuality(ctx context.Context, lat, lon float64) (*types.AirQuality, error)
	Geocode(ctx context.Context, query string, limit int) ([]types.GeocodeResult, error)
}

// Service proxies the weather provider for the dashboard.
type Service interface {
	GetBundle(ctx context.Context, lat, lon float64) (*types.WeatherBundle, error)
	Geocode(ctx context.Context, query string, limit int) ([]types.GeocodeResult, error)
}

type ServiceImpl struct {
	logger   *slog.Logger
	provider Provider
	cache    *cache.Cache
}

func NewWeatherService(provider Provider, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{
		logger:   logger,
		provider: provider,
		cache:    cache.New(5*time.Minute, 10*time.Minute),
	}
}

// GetBundle fetches current conditions, the daily forecast, air quality
// and alerts for one coordinate. The three upstream calls run
// concurrently and the assembled bundle is memoized for a few minutes.
func (s *ServiceImpl) GetBundle(ctx context.Context, lat, lon float64) (*types.WeatherBundle, error) {
	ctx, span := otel.Tracer("WeatherService").Start(ctx, "GetBundle", trace.WithAttributes(
		attribute.Float64("location.lat", lat),
		attribute.Float64("location.lon", lon),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "GetBundle"))

	cacheKey := fmt.Sprintf("bundle:%f:%f", lat, lon)
	if cached, found := s.cache.Get(cacheKey); found {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		span.SetStatus(codes.Ok, "Bundle served from cache")
		return cached.(*types.WeatherBundle), nil
	}

	bundle := &types.WeatherBundle{
		Latitude:  lat,
		Longitude: lon,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		current, err := s.provider.CurrentConditions(gctx, lat, lon)
		if err != nil {
			return fmt.Errorf("current conditions: %w", err)
		}
		bundle.Current = current
		return nil
	})

	g.Go(func() error {
		daily, alerts, err := s.provider.ForecastAndAlerts(gctx, lat, lon)
		if err != nil {
			return fmt.Errorf("forecast: %w", err)
		}
		bundle.Daily = daily
		bundle.Alerts = alerts
		return nil
	})

	g.Go(func() error {
		air, err := s.provider.AirQuality(gctx, lat, lon)
		if err != nil {
			return fmt.Errorf("air quality: %w", err)
		}
		bundle.AirQuality = air
		return nil
	})

	if err := g.Wait(); err != nil {
		l.ErrorContext(ctx, "Failed to fetch weather bundle", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Provider fetch failed")
		return nil, err
	}

	bundle.FetchedAt = time.Now().UTC()
	s.cache.Set(cacheKey, bundle, cache.DefaultExpiration)

	l.InfoContext(ctx, "Weather bundle fetched",
		slog.Float64("lat", lat),
		slog.Float64("lon", lon),
		slog.Int("forecast_days", len(bundle.Daily)),
		slog.Int("alerts", len(bundle.Alerts)))
	span.SetAttributes(attribute.Int("forecast.days", len(bundle.Daily)))
	span.SetStatus(codes.Ok, "Bundle fetched")

	return bundle, nil
}

// Geocode resolves a search query through the provider.
func (s *ServiceImpl) Geocode(ctx context.Context, query string, limit int) ([]types.GeocodeResult, error) {
	ctx, span := otel.Tracer("WeatherService").Start(ctx, "Geocode", trace.WithAttributes(
		attribute.String("query", query),
	))
	defer span.End()

	if query == "" {
		span.SetStatus(codes.Error, "Empty query")
		return nil, fmt.Errorf("%w: search query is required", types.ErrBadRequest)
	}

	results, err := s.provider.Geocode(ctx, query, limit)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to geocode query",
			slog.String("query", query),
			slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Geocode failed")
		return nil, err
	}

	span.SetAttributes(attribute.Int("results.count", len(results)))
	span.SetStatus(codes.Ok, "Geocoded")

	return results, nil
}
