package lookup

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/skycast/skycast-api/internal/types"
)

type MockLookupService struct {
	mock.Mock
}

func (m *MockLookupService) ResolveOrCreateLocation(ctx context.Context, params types.LocationParams) (*types.Location, error) {
	args := m.Called(ctx, params)
	loc, _ := args.Get(0).(*types.Location)
	return loc, args.Error(1)
}

func (m *MockLookupService) AddFavorite(ctx context.Context, params types.LocationParams, identity types.Identity) (*types.Location, *types.Favorite, error) {
	args := m.Called(ctx, params, identity)
	loc, _ := args.Get(0).(*types.Location)
	fav, _ := args.Get(1).(*types.Favorite)
	return loc, fav, args.Error(2)
}

func (m *MockLookupService) RemoveFavorite(ctx context.Context, locationID uuid.UUID, identity types.Identity) error {
	args := m.Called(ctx, locationID, identity)
	return args.Error(0)
}

func (m *MockLookupService) CheckFavorite(ctx context.Context, locationID uuid.UUID, identity types.Identity) (bool, error) {
	args := m.Called(ctx, locationID, identity)
	return args.Bool(0), args.Error(1)
}

func (m *MockLookupService) ListFavorites(ctx context.Context, identity types.Identity) ([]types.Location, error) {
	args := m.Called(ctx, identity)
	locations, _ := args.Get(0).([]types.Location)
	return locations, args.Error(1)
}

func (m *MockLookupService) RecordVisit(ctx context.Context, params types.LocationParams, identity types.Identity) (*types.Location, error) {
	args := m.Called(ctx, params, identity)
	loc, _ := args.Get(0).(*types.Location)
	return loc, args.Error(1)
}

func (m *MockLookupService) ListHistory(ctx context.Context, identity types.Identity, limit int) ([]types.Location, error) {
	args := m.Called(ctx, identity, limit)
	locations, _ := args.Get(0).([]types.Location)
	return locations, args.Error(1)
}

func (m *MockLookupService) ClearHistory(ctx context.Context, identity types.Identity) error {
	args := m.Called(ctx, identity)
	return args.Error(0)
}

func newHandlerMux(svc Service) *http.ServeMux {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	mux := http.NewServeMux()
	NewHandler(svc, logger).Register(mux)
	return mux
}

func TestHandlerIdentityHeader(t *testing.T) {
	t.Run("header becomes a named identity", func(t *testing.T) {
		svc := new(MockLookupService)
		mux := newHandlerMux(svc)

		svc.On("ListFavorites", mock.Anything, types.NewIdentity("u1")).Return([]types.Location{}, nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/api/favorites", nil)
		req.Header.Set(IdentityHeader, "u1")
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		svc.AssertExpectations(t)
	})

	t.Run("missing header is the anonymous scope", func(t *testing.T) {
		svc := new(MockLookupService)
		mux := newHandlerMux(svc)

		svc.On("ListFavorites", mock.Anything, types.Anonymous).Return(nil, nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/api/favorites", nil)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "[]\n", rec.Body.String(), "nil list must serialize as an empty array")
		svc.AssertExpectations(t)
	})
}

func TestHandlerAddFavorite(t *testing.T) {
	body := `{"name":"Paris","country":"FR","latitude":48.8566,"longitude":2.3522}`

	t.Run("returns 201 with location and favorite", func(t *testing.T) {
		svc := new(MockLookupService)
		mux := newHandlerMux(svc)

		loc := &types.Location{ID: uuid.New(), Name: "Paris"}
		fav := &types.Favorite{ID: uuid.New(), LocationID: loc.ID}
		svc.On("AddFavorite", mock.Anything, mock.Anything, types.NewIdentity("u1")).Return(loc, fav, nil).Once()

		req := httptest.NewRequest(http.MethodPost, "/api/favorites", strings.NewReader(body))
		req.Header.Set(IdentityHeader, "u1")
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusCreated, rec.Code)

		var resp map[string]json.RawMessage
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Contains(t, resp, "location")
		assert.Contains(t, resp, "favorite")
	})

	t.Run("repeat add maps to 409", func(t *testing.T) {
		svc := new(MockLookupService)
		mux := newHandlerMux(svc)

		svc.On("AddFavorite", mock.Anything, mock.Anything, mock.Anything).
			Return(nil, nil, types.ErrAlreadyFavorited).Once()

		req := httptest.NewRequest(http.MethodPost, "/api/favorites", strings.NewReader(body))
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("malformed body maps to 400 without reaching the service", func(t *testing.T) {
		svc := new(MockLookupService)
		mux := newHandlerMux(svc)

		req := httptest.NewRequest(http.MethodPost, "/api/favorites", strings.NewReader("{not json"))
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		svc.AssertNotCalled(t, "AddFavorite", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestHandlerRemoveFavorite(t *testing.T) {
	t.Run("returns 204", func(t *testing.T) {
		svc := new(MockLookupService)
		mux := newHandlerMux(svc)

		id := uuid.New()
		svc.On("RemoveFavorite", mock.Anything, id, types.Anonymous).Return(nil).Once()

		req := httptest.NewRequest(http.MethodDelete, "/api/favorites/"+id.String(), nil)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("invalid id maps to 400", func(t *testing.T) {
		svc := new(MockLookupService)
		mux := newHandlerMux(svc)

		req := httptest.NewRequest(http.MethodDelete, "/api/favorites/not-a-uuid", nil)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHandlerHistory(t *testing.T) {
	t.Run("limit query parameter is forwarded", func(t *testing.T) {
		svc := new(MockLookupService)
		mux := newHandlerMux(svc)

		svc.On("ListHistory", mock.Anything, types.Anonymous, 3).Return([]types.Location{}, nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/api/history?limit=3", nil)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		svc.AssertExpectations(t)
	})

	t.Run("non-numeric limit maps to 400", func(t *testing.T) {
		svc := new(MockLookupService)
		mux := newHandlerMux(svc)

		req := httptest.NewRequest(http.MethodGet, "/api/history?limit=abc", nil)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("record visit returns the resolved location", func(t *testing.T) {
		svc := new(MockLookupService)
		mux := newHandlerMux(svc)

		loc := &types.Location{ID: uuid.New(), Name: "Paris"}
		svc.On("RecordVisit", mock.Anything, mock.Anything, types.NewIdentity("u1")).Return(loc, nil).Once()

		body := `{"name":"Paris","country":"FR","latitude":48.8566,"longitude":2.3522}`
		req := httptest.NewRequest(http.MethodPost, "/api/history", strings.NewReader(body))
		req.Header.Set(IdentityHeader, "u1")
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)

		var resolved types.Location
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resolved))
		assert.Equal(t, loc.ID, resolved.ID)
	})

	t.Run("clear returns 204", func(t *testing.T) {
		svc := new(MockLookupService)
		mux := newHandlerMux(svc)

		svc.On("ClearHistory", mock.Anything, types.NewIdentity("u1")).Return(nil).Once()

		req := httptest.NewRequest(http.MethodDelete, "/api/history", nil)
		req.Header.Set(IdentityHeader, "u1")
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code)
		svc.AssertExpectations(t)
	})
}
