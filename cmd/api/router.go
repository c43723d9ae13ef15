package main

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"golang.org/x/time/rate"

	"github.com/skycast/skycast-api/pkg/middleware"
	"github.com/skycast/skycast-api/pkg/observability"
)

// SetupRouter configures all routes and returns the HTTP handler
func SetupRouter(deps *Dependencies) http.Handler {
	mux := http.NewServeMux()

	deps.LookupHandler.Register(mux)
	deps.WeatherHandler.Register(mux)
	deps.SummaryHandler.Register(mux)

	registerUtilityRoutes(mux, deps)

	var handler http.Handler = mux
	handler = observability.Metrics(handler)
	handler = middleware.Logging(deps.Logger)(handler)
	if deps.Config.Server.RateLimitPerSecond > 0 && deps.Config.Server.RateLimitBurst > 0 {
		limiter := rate.NewLimiter(
			rate.Limit(float64(deps.Config.Server.RateLimitPerSecond)),
			deps.Config.Server.RateLimitBurst,
		)
		handler = middleware.RateLimit(limiter)(handler)
	}
	handler = middleware.Recovery(deps.Logger)(handler)
	handler = middleware.RequestID("X-Request-ID")(handler)

	// Enable CORS for the browser dashboard
	corsHandler := cors.New(cors.Options{
		AllowedOrigins: deps.Config.Server.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{
			"Accept-Encoding",
			"Content-Type",
			"X-Request-ID",
			"X-User-ID",
		},
		AllowCredentials: true,
	})

	return corsHandler.Handler(handler)
}

// registerUtilityRoutes registers health check, metrics, and other utility routes
func registerUtilityRoutes(mux *http.ServeMux, deps *Dependencies) {
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := deps.DB.Health(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("database unhealthy"))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	deps.Logger.Info("registered health check", "path", "/health")

	mux.Handle("/metrics", promhttp.Handler())
	deps.Logger.Info("registered metrics", "path", "/metrics")
}
