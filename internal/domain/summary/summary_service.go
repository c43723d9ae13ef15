package summary

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/skycast/skycast-api/internal/domain/weather"
	"github.com/skycast/skycast-api/internal/llm"
	"github.com/skycast/skycast-api/internal/types"
)

var _ Service = (*ServiceImpl)(nil)

// Service produces natural-language summaries of current conditions.
type Service interface {
	Summarize(ctx context.Context, locationName string, lat, lon float64) (string, error)
}

type ServiceImpl struct {
	logger  *slog.Logger
	weather weather.Service
	chat    llm.ChatClient
	cache   *cache.Cache
}

func NewSummaryService(weatherSvc weather.Service, chat llm.ChatClient, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{
		logger:  logger,
		weather: weatherSvc,
		chat:    chat,
		cache:   cache.New(10*time.Minute, 15*time.Minute),
	}
}

// Summarize fetches the weather bundle for the coordinate and asks the
// model for a short plain-language summary. Results are cached per
// coordinate so repeated dashboard loads do not re-bill the model.
func (s *ServiceImpl) Summarize(ctx context.Context, locationName string, lat, lon float64) (string, error) {
	ctx, span := otel.Tracer("SummaryService").Start(ctx, "Summarize", trace.WithAttributes(
		attribute.String("location.name", locationName),
		attribute.Float64("location.lat", lat),
		attribute.Float64("location.lon", lon),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "Summarize"))

	cacheKey := fmt.Sprintf("summary:%f:%f", lat, lon)
	if cached, found := s.cache.Get(cacheKey); found {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		span.SetStatus(codes.Ok, "Summary served from cache")
		return cached.(string), nil
	}

	bundle, err := s.weather.GetBundle(ctx, lat, lon)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Weather fetch failed")
		return "", err
	}

	prompt := buildPrompt(locationName, bundle)

	text, err := s.chat.GenerateContent(ctx, prompt)
	if err != nil {
		l.ErrorContext(ctx, "Failed to generate summary",
			slog.String("model", s.chat.Model()),
			slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Generation failed")
		return "", fmt.Errorf("%w: %v", types.ErrUpstreamUnavailable, err)
	}

	s.cache.Set(cacheKey, text, cache.DefaultExpiration)

	l.InfoContext(ctx, "Summary generated",
		slog.String("location", locationName),
		slog.String("model", s.chat.Model()),
		slog.Int("length", len(text)))
	span.SetAttributes(attribute.Int("summary.length", len(text)))
	span.SetStatus(codes.Ok, "Summary generated")

	return text, nil
}

func buildPrompt(locationName string, bundle *types.WeatherBundle) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Write a short, friendly weather summary for %s.\n", locationName)
	if bundle.Current != nil {
		fmt.Fprintf(&b, "Current: %.1f°C (feels like %.1f°C), %s, humidity %d%%, wind %.1f m/s.\n",
			bundle.Current.Temperature,
			bundle.Current.FeelsLike,
			bundle.Current.Description,
			bundle.Current.Humidity,
			bundle.Current.WindSpeed)
	}
	if len(bundle.Daily) > 0 {
		today := bundle.Daily[0]
		fmt.Fprintf(&b, "Today: %s, %.1f°C to %.1f°C.\n",
			today.Description, today.TempMin, today.TempMax)
	}
	if bundle.AirQuality != nil {
		fmt.Fprintf(&b, "Air quality index: %d (1 good to 5 very poor).\n", bundle.AirQuality.AQI)
	}
	for _, alert := range bundle.Alerts {
		fmt.Fprintf(&b, "Active alert: %s.\n", alert.Event)
	}
	b.WriteString("Keep it to two or three sentences, no markdown.")

	return b.String()
}
