package summary

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/skycast/skycast-api/internal/types"
	"github.com/skycast/skycast-api/pkg/httputil"
)

// Handler exposes the AI summary endpoint.
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

// Register wires the summary route onto the mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/summary", h.GetSummary)
}

// GetSummary handles GET /api/summary?name=&lat=&lon=.
func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		httputil.WriteError(w, fmt.Errorf("%w: name is required", types.ErrBadRequest))
		return
	}

	lat, err := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
	if err != nil || lat < -90 || lat > 90 {
		httputil.WriteError(w, fmt.Errorf("%w: invalid lat", types.ErrBadRequest))
		return
	}
	lon, err := strconv.ParseFloat(r.URL.Query().Get("lon"), 64)
	if err != nil || lon < -180 || lon > 180 {
		httputil.WriteError(w, fmt.Errorf("%w: invalid lon", types.ErrBadRequest))
		return
	}

	text, err := h.svc.Summarize(r.Context(), name, lat, lon)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{"summary": text})
}
