package lookup

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/skycast/skycast-api/internal/types"
	"github.com/skycast/skycast-api/pkg/httputil"
)

// IdentityHeader carries the optional opaque user id. Requests without it
// operate in the shared anonymous scope.
const IdentityHeader = "X-User-ID"

// Handler exposes the facade over JSON endpoints.
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

// Register wires the favorites and history routes onto the mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/favorites", h.ListFavorites)
	mux.HandleFunc("POST /api/favorites", h.AddFavorite)
	mux.HandleFunc("GET /api/favorites/{id}", h.CheckFavorite)
	mux.HandleFunc("DELETE /api/favorites/{id}", h.RemoveFavorite)
	mux.HandleFunc("GET /api/history", h.ListHistory)
	mux.HandleFunc("POST /api/history", h.RecordVisit)
	mux.HandleFunc("DELETE /api/history", h.ClearHistory)
}

func identityFromRequest(r *http.Request) types.Identity {
	return types.NewIdentity(r.Header.Get(IdentityHeader))
}

func decodeParams(r *http.Request) (types.LocationParams, error) {
	var params types.LocationParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		return params, fmt.Errorf("%w: malformed request body: %v", types.ErrBadRequest, err)
	}
	return params, nil
}

func locationIDFromPath(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid location id: %v", types.ErrBadRequest, err)
	}
	return id, nil
}

// ListFavorites handles GET /api/favorites.
func (h *Handler) ListFavorites(w http.ResponseWriter, r *http.Request) {
	locations, err := h.svc.ListFavorites(r.Context(), identityFromRequest(r))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if locations == nil {
		locations = []types.Location{}
	}
	httputil.WriteJSON(w, http.StatusOK, locations)
}

// AddFavorite handles POST /api/favorites.
func (h *Handler) AddFavorite(w http.ResponseWriter, r *http.Request) {
	params, err := decodeParams(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	loc, fav, err := h.svc.AddFavorite(r.Context(), params, identityFromRequest(r))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, map[string]any{
		"location": loc,
		"favorite": fav,
	})
}

// CheckFavorite handles GET /api/favorites/{id}.
func (h *Handler) CheckFavorite(w http.ResponseWriter, r *http.Request) {
	locationID, err := locationIDFromPath(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	isFav, err := h.svc.CheckFavorite(r.Context(), locationID, identityFromRequest(r))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"is_favorite": isFav})
}

// RemoveFavorite handles DELETE /api/favorites/{id}. Removing a favorite
// that does not exist still returns 204.
func (h *Handler) RemoveFavorite(w http.ResponseWriter, r *http.Request) {
	locationID, err := locationIDFromPath(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.svc.RemoveFavorite(r.Context(), locationID, identityFromRequest(r)); err != nil {
		httputil.WriteError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListHistory handles GET /api/history.
func (h *Handler) ListHistory(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			httputil.WriteError(w, fmt.Errorf("%w: invalid limit: %v", types.ErrBadRequest, err))
			return
		}
		limit = n
	}

	locations, err := h.svc.ListHistory(r.Context(), identityFromRequest(r), limit)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if locations == nil {
		locations = []types.Location{}
	}
	httputil.WriteJSON(w, http.StatusOK, locations)
}

// RecordVisit handles POST /api/history.
func (h *Handler) RecordVisit(w http.ResponseWriter, r *http.Request) {
	params, err := decodeParams(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	loc, err := h.svc.RecordVisit(r.Context(), params, identityFromRequest(r))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, loc)
}

// ClearHistory handles DELETE /api/history.
func (h *Handler) ClearHistory(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.ClearHistory(r.Context(), identityFromRequest(r)); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
