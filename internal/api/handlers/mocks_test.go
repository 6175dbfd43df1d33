package handlers

import (
	"context"
	"net/http/httptest"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"

	"github.com/irfndi/mto-floor-go/internal/cache"
	"github.com/irfndi/mto-floor-go/internal/engine"
	"github.com/irfndi/mto-floor-go/internal/feeds"
	"github.com/irfndi/mto-floor-go/internal/models"
	"github.com/irfndi/mto-floor-go/internal/resilience"
	"github.com/irfndi/mto-floor-go/internal/services"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type MockGameService struct {
	mock.Mock
}

func (m *MockGameService) ListGames(ctx context.Context, q services.SlateQuery) (*services.Slate, error) {
	args := m.Called(ctx, q)
	if s := args.Get(0); s != nil {
		return s.(*services.Slate), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockGameService) Schedule(ctx context.Context, q services.SlateQuery) (feeds.Result, error) {
	args := m.Called(ctx, q)
	return args.Get(0).(feeds.Result), args.Error(1)
}

func (m *MockGameService) Odds(ctx context.Context, sport string) (feeds.Result, error) {
	args := m.Called(ctx, sport)
	return args.Get(0).(feeds.Result), args.Error(1)
}

func (m *MockGameService) FeedHealth() []models.FeedHealth {
	args := m.Called()
	return args.Get(0).([]models.FeedHealth)
}

type MockPredictionService struct {
	mock.Mock
}

func (m *MockPredictionService) PredictGame(ctx context.Context, q services.SlateQuery, gameID string) (models.MTOPrediction, bool, error) {
	args := m.Called(ctx, q, gameID)
	return args.Get(0).(models.MTOPrediction), args.Bool(1), args.Error(2)
}

func (m *MockPredictionService) Evaluate(in engine.Input) (models.MTOPrediction, error) {
	args := m.Called(in)
	return args.Get(0).(models.MTOPrediction), args.Error(1)
}

type MockBreakerRegistry struct {
	mock.Mock
}

func (m *MockBreakerRegistry) GetAllStats() map[string]resilience.CircuitBreakerStats {
	args := m.Called()
	return args.Get(0).(map[string]resilience.CircuitBreakerStats)
}

func (m *MockBreakerRegistry) ResetAll() {
	m.Called()
}

type MockManagedCache struct {
	mock.Mock
}

func (m *MockManagedCache) Stats() cache.Stats {
	args := m.Called()
	return args.Get(0).(cache.Stats)
}

func (m *MockManagedCache) Clear(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

type MockHealthChecker struct {
	mock.Mock
}

func (m *MockHealthChecker) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func performRequest(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

