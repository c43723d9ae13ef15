package weather

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/skycast/skycast-api/internal/types"
	"github.com/skycast/skycast-api/pkg/httputil"
)

// Handler exposes the weather proxy endpoints.
type Handler struct {
	svc    Service
	logger *slog.Logger
}

func NewHandler(svc Service, logger *slog.Logger) *Handler {
	return &Handler{
		svc:    svc,
		logger: logger,
	}
}

// Register wires the weather routes onto the mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/weather", h.GetWeather)
	mux.HandleFunc("GET /api/geocode", h.Geocode)
}

func coordinatesFromQuery(r *http.Request) (float64, float64, error) {
	lat, err := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
	if err != nil || lat < -90 || lat > 90 {
		return 0, 0, fmt.Errorf("%w: invalid lat", types.ErrBadRequest)
	}
	lon, err := strconv.ParseFloat(r.URL.Query().Get("lon"), 64)
	if err != nil || lon < -180 || lon > 180 {
		return 0, 0, fmt.Errorf("%w: invalid lon", types.ErrBadRequest)
	}
	return lat, lon, nil
}

// GetWeather handles GET /api/weather?lat=&lon=.
func (h *Handler) GetWeather(w http.ResponseWriter, r *http.Request) {
	lat, lon, err := coordinatesFromQuery(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	bundle, err := h.svc.GetBundle(r.Context(), lat, lon)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, bundle)
}

// Geocode handles GET /api/geocode?q=.
func (h *Handler) Geocode(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			limit = n
		}
	}

	results, err := h.svc.Geocode(r.Context(), r.URL.Query().Get("q"), limit)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if results == nil {
		results = []types.GeocodeResult{}
	}
	httputil.WriteJSON(w, http.StatusOK, results)
}
