// Package weatherapi is the OpenWeather-compatible provider client. It
// covers the five upstream surfaces the dashboard needs: current
// conditions, daily forecast, air quality, alerts and direct geocoding.
package weatherapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"

	"github.com/skycast/skycast-api/internal/types"
)

const forecastDays = 8

var (
	errRateLimited = errors.New("rate limited")
	errServerError = errors.New("server error")
	errBadStatus   = errors.New("unexpected status code")
)

// BackoffConfig controls retry behaviour on transient upstream failures.
type BackoffConfig struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// Client talks to the weather provider. All methods map upstream failures
// to types.ErrUpstreamUnavailable; retries never escape this layer.
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	apiKey     string
	baseURL    string
	backoff    BackoffConfig
	circuit    *gobreaker.CircuitBreaker
}

func NewClient(httpClient *http.Client, apiKey, baseURL string, logger *slog.Logger) *Client {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "openweather",
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})

	return &Client{
		httpClient: httpClient,
		logger:     logger,
		apiKey:     apiKey,
		baseURL:    baseURL,
		backoff: BackoffConfig{
			MaxRetries:      3,
			InitialInterval: 500 * time.Millisecond,
			MaxInterval:     5 * time.Second,
		},
		circuit: cb,
	}
}

// get executes the request through the circuit breaker with exponential
// backoff on rate limits and server errors.
func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	if c.apiKey == "" {
		return fmt.Errorf("%w: weather api key is not configured", types.ErrUpstreamUnavailable)
	}

	params.Set("appid", c.apiKey)
	endpoint := fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())

	var attempt int
	var lastErr error

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return fmt.Errorf("failed to build weather request: %w", err)
		}

		result, err := c.circuit.Execute(func() (interface{}, error) {
			resp, execErr := c.httpClient.Do(req)
			if execErr != nil {
				return nil, execErr
			}
			if resp.StatusCode == http.StatusTooManyRequests {
				resp.Body.Close()
				return nil, errRateLimited
			}
			if resp.StatusCode >= 500 {
				resp.Body.Close()
				return nil, errServerError
			}
			if resp.StatusCode < 200 || resp.StatusCode >= 300 {
				resp.Body.Close()
				return nil, fmt.Errorf("%w: %d", errBadStatus, resp.StatusCode)
			}
			return resp, nil
		})
		if err == nil {
			resp := result.(*http.Response)
			defer resp.Body.Close()
			if decodeErr := json.NewDecoder(resp.Body).Decode(out); decodeErr != nil {
				return fmt.Errorf("failed to decode weather response: %w", decodeErr)
			}
			return nil
		}

		lastErr = err

		retryable := errors.Is(err, errRateLimited) || errors.Is(err, errServerError)
		if !retryable || attempt >= c.backoff.MaxRetries {
			c.logger.WarnContext(ctx, "Weather request failed",
				slog.String("path", path),
				slog.Int("attempts", attempt+1),
				slog.Any("error", lastErr))
			return fmt.Errorf("%w: %v", types.ErrUpstreamUnavailable, lastErr)
		}

		interval := time.Duration(float64(c.backoff.InitialInterval) * math.Pow(2, float64(attempt)))
		if interval > c.backoff.MaxInterval {
			interval = c.backoff.MaxInterval
		}
		attempt++

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
}

// CurrentConditions fetches the present reading for a coordinate.
func (c *Client) CurrentConditions(ctx context.Context, lat, lon float64) (*types.CurrentConditions, error) {
	params := url.Values{}
	params.Set("lat", fmt.Sprintf("%f", lat))
	params.Set("lon", fmt.Sprintf("%f", lon))
	params.Set("units", "metric")

	var payload struct {
		Dt      int64 `json:"dt"`
		Weather []struct {
			Main        string `json:"main"`
			Description string `json:"description"`
			Icon        string `json:"icon"`
		} `json:"weather"`
		Main struct {
			Temp      float64 `json:"temp"`
			FeelsLike float64 `json:"feels_like"`
			Humidity  int     `json:"humidity"`
			Pressure  int     `json:"pressure"`
		} `json:"main"`
		Wind struct {
			Speed float64 `json:"speed"`
			Deg   int     `json:"deg"`
		} `json:"wind"`
		Clouds struct {
			All int `json:"all"`
		} `json:"clouds"`
		Visibility int `json:"visibility"`
		Sys        struct {
			Sunrise int64 `json:"sunrise"`
			Sunset  int64 `json:"sunset"`
		} `json:"sys"`
	}

	if err := c.get(ctx, "/data/2.5/weather", params, &payload); err != nil {
		return nil, err
	}

	current := &types.CurrentConditions{
		ObservedAt:  time.Unix(payload.Dt, 0).UTC(),
		Temperature: payload.Main.Temp,
		FeelsLike:   payload.Main.FeelsLike,
		Humidity:    payload.Main.Humidity,
		Pressure:    payload.Main.Pressure,
		WindSpeed:   payload.Wind.Speed,
		WindDeg:     payload.Wind.Deg,
		Clouds:      payload.Clouds.All,
		Visibility:  payload.Visibility,
		Sunrise:     time.Unix(payload.Sys.Sunrise, 0).UTC(),
		Sunset:      time.Unix(payload.Sys.Sunset, 0).UTC(),
	}
	if len(payload.Weather) > 0 {
		current.Condition = payload.Weather[0].Main
		current.Description = payload.Weather[0].Description
		current.Icon = payload.Weather[0].Icon
	}

	return current, nil
}

// ForecastAndAlerts fetches the daily forecast window plus any active
// alerts in a single upstream call.
func (c *Client) ForecastAndAlerts(ctx context.Context, lat, lon float64) ([]types.DailyForecast, []types.WeatherAlert, error) {
	params := url.Values{}
	params.Set("lat", fmt.Sprintf("%f", lat))
	params.Set("lon", fmt.Sprintf("%f", lon))
	params.Set("units", "metric")
	params.Set("exclude", "minutely,hourly")

	var payload struct {
		Daily []struct {
			Dt   int64 `json:"dt"`
			Temp struct {
				Min float64 `json:"min"`
				Max float64 `json:"max"`
			} `json:"temp"`
			Humidity  int     `json:"humidity"`
			WindSpeed float64 `json:"wind_speed"`
			Rain      float64 `json:"rain"`
			Snow      float64 `json:"snow"`
			Weather   []struct {
				Main        string `json:"main"`
				Description string `json:"description"`
				Icon        string `json:"icon"`
			} `json:"weather"`
		} `json:"daily"`
		Alerts []struct {
			SenderName  string `json:"sender_name"`
			Event       string `json:"event"`
			Start       int64  `json:"start"`
			End         int64  `json:"end"`
			Description string `json:"description"`
		} `json:"alerts"`
	}

	if err := c.get(ctx, "/data/3.0/onecall", params, &payload); err != nil {
		return nil, nil, err
	}

	daily := make([]types.DailyForecast, 0, forecastDays)
	for i, d := range payload.Daily {
		if i >= forecastDays {
			break
		}
		day := types.DailyForecast{
			Date:          time.Unix(d.Dt, 0).UTC(),
			TempMin:       d.Temp.Min,
			TempMax:       d.Temp.Max,
			Humidity:      d.Humidity,
			WindSpeed:     d.WindSpeed,
			Precipitation: d.Rain + d.Snow,
		}
		if len(d.Weather) > 0 {
			day.Condition = d.Weather[0].Main
			day.Description = d.Weather[0].Description
			day.Icon = d.Weather[0].Icon
		}
		daily = append(daily, day)
	}

	alerts := make([]types.WeatherAlert, 0, len(payload.Alerts))
	for _, a := range payload.Alerts {
		alerts = append(alerts, types.WeatherAlert{
			Sender:      a.SenderName,
			Event:       a.Event,
			Start:       time.Unix(a.Start, 0).UTC(),
			End:         time.Unix(a.End, 0).UTC(),
			Description: a.Description,
		})
	}

	return daily, alerts, nil
}

// AirQuality fetches the air quality index and pollutant concentrations.
func (c *Client) AirQuality(ctx context.Context, lat, lon float64) (*types.AirQuality, error) {
	params := url.Values{}
	params.Set("lat", fmt.Sprintf("%f", lat))
	params.Set("lon", fmt.Sprintf("%f", lon))

	var payload struct {
		List []struct {
			Dt   int64 `json:"dt"`
			Main struct {
				AQI int `json:"aqi"`
			} `json:"main"`
			Components map[string]float64 `json:"components"`
		} `json:"list"`
	}

	if err := c.get(ctx, "/data/2.5/air_pollution", params, &payload); err != nil {
		return nil, err
	}
	if len(payload.List) == 0 {
		return nil, fmt.Errorf("%w: empty air quality response", types.ErrUpstreamUnavailable)
	}

	first := payload.List[0]
	return &types.AirQuality{
		AQI:        first.Main.AQI,
		Components: first.Components,
		MeasuredAt: time.Unix(first.Dt, 0).UTC(),
	}, nil
}

// Geocode resolves a free-text query to candidate coordinates.
func (c *Client) Geocode(ctx context.Context, query string, limit int) ([]types.GeocodeResult, error) {
	if limit <= 0 {
		limit = 5
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("limit", fmt.Sprintf("%d", limit))

	var payload []struct {
		Name    string  `json:"name"`
		Country string  `json:"country"`
		State   string  `json:"state"`
		Lat     float64 `json:"lat"`
		Lon     float64 `json:"lon"`
	}

	if err := c.get(ctx, "/geo/1.0/direct", params, &payload); err != nil {
		return nil, err
	}

	results := make([]types.GeocodeResult, 0, len(payload))
	for _, p := range payload {
		results = append(results, types.GeocodeResult{
			Name:      p.Name,
			Country:   p.Country,
			State:     p.State,
			Latitude:  p.Lat,
			Longitude: p.Lon,
		})
	}

	return results, nil
}
