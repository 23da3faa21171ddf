package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "discord-giveaway-bot/internal/common/errors"
	"discord-giveaway-bot/internal/common/middleware"
	"discord-giveaway-bot/internal/features/giveaway/models"
	giveawayservice "discord-giveaway-bot/internal/features/giveaway/service"
)

type stubService struct {
	giveawayservice.GiveawayService

	giveaways     map[string]*models.Giveaway
	historyLimit  int
	historyOffset int
}

func (s *stubService) GetByID(_ context.Context, id string) (*models.Giveaway, error) {
	g, ok := s.giveaways[id]
	if !ok {
		return nil, apperrors.NewGiveawayNotFoundError(id)
	}
	return g, nil
}

func (s *stubService) List(_ context.Context, state models.GiveawayState) ([]*models.Giveaway, error) {
	var out []*models.Giveaway
	for _, g := range s.giveaways {
		if state == "" || g.State == state {
			out = append(out, g)
		}
	}
	return out, nil
}

func (s *stubService) Cancel(_ context.Context, id string) (*models.Giveaway, error) {
	g, ok := s.giveaways[id]
	if !ok {
		return nil, apperrors.NewGiveawayNotFoundError(id)
	}
	if g.State != models.GiveawayStateOpen {
		return nil, apperrors.NewGiveawayClosedError(id)
	}
	g.State = models.GiveawayStateConcluded
	g.Outcome = &models.Outcome{Kind: models.OutcomeCancelled}
	return g, nil
}

func (s *stubService) History(_ context.Context, limit, offset int) ([]*models.Giveaway, error) {
	s.historyLimit, s.historyOffset = limit, offset
	return []*models.Giveaway{}, nil
}

func setupRouter(svc giveawayservice.GiveawayService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(middleware.RequestID())
	api := router.Group("/api/v1", middleware.RequireAdminToken("secret", zerolog.Nop()))
	NewGiveawayHandler(svc, zerolog.Nop()).RegisterRoutes(api)
	return router
}

func do(router *gin.Engine, method, path string, authorized bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if authorized {
		req.Header.Set("Authorization", "Bearer secret")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func newStub() *stubService {
	return &stubService{giveaways: map[string]*models.Giveaway{
		"1": {ID: "1", Prize: "Nitro", State: models.GiveawayStateOpen},
		"2": {ID: "2", Prize: "Key", State: models.GiveawayStateConcluded},
	}}
}

func TestRequiresToken(t *testing.T) {
	router := setupRouter(newStub())

	w := do(router, http.MethodGet, "/api/v1/giveaways", false)
	assert.Equal(t, http.StatusForbidden, w.Code)

	var body middleware.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.False(t, body.Success)
	assert.Equal(t, apperrors.ErrCodeForbidden, body.Error.Code)
	assert.NotEmpty(t, body.RequestID)
}

func TestList(t *testing.T) {
	router := setupRouter(newStub())

	w := do(router, http.MethodGet, "/api/v1/giveaways?state=open", true)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Giveaways []models.Giveaway `json:"giveaways"`
		Total     int               `json:"total"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Total)
	assert.Equal(t, "1", body.Giveaways[0].ID)

	w = do(router, http.MethodGet, "/api/v1/giveaways?state=bogus", true)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetByID(t *testing.T) {
	router := setupRouter(newStub())

	w := do(router, http.MethodGet, "/api/v1/giveaways/1", true)
	require.Equal(t, http.StatusOK, w.Code)
	var g models.Giveaway
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &g))
	assert.Equal(t, "Nitro", g.Prize)

	w = do(router, http.MethodGet, "/api/v1/giveaways/404", true)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(router, http.MethodGet, "/api/v1/giveaways/not-an-id", true)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCancel(t *testing.T) {
	router := setupRouter(newStub())

	w := do(router, http.MethodPost, "/api/v1/giveaways/1/cancel", true)
	require.Equal(t, http.StatusOK, w.Code)
	var g models.Giveaway
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &g))
	require.NotNil(t, g.Outcome)
	assert.Equal(t, models.OutcomeCancelled, g.Outcome.Kind)

	w = do(router, http.MethodPost, "/api/v1/giveaways/2/cancel", true)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestHistoryPaging(t *testing.T) {
	svc := newStub()
	router := setupRouter(svc)

	w := do(router, http.MethodGet, "/api/v1/giveaways/history?limit=5&offset=10", true)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 5, svc.historyLimit)
	assert.Equal(t, 10, svc.historyOffset)

	w = do(router, http.MethodGet, "/api/v1/giveaways/history?limit=1000", true)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, defaultHistoryLimit, svc.historyLimit)

	w = do(router, http.MethodGet, "/api/v1/giveaways/history?offset=-1", true)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
