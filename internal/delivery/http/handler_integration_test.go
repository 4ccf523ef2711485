package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/pillwise/backend/config"
	"github.com/pillwise/backend/internal/domain"
	"github.com/pillwise/backend/internal/infrastructure/runstore"
	"github.com/pillwise/backend/internal/usecase"
)

// TestMain sets up test environment before running tests
func TestMain(m *testing.M) {
	// Set Gin to test mode once for all tests
	gin.SetMode(gin.TestMode)

	os.Exit(m.Run())
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Port:           "3001",
			Environment:    "test",
			AllowedOrigins: []string{"http://localhost:5173", "http://localhost:3000"},
		},
		RateLimit: config.RateLimitConfig{PerIP: 0},
	}
}

// setupTestRouter creates a router around recommender, which may be nil
func setupTestRouter(t *testing.T, recommender Recommender) *gin.Engine {
	t.Helper()
	logger := zaptest.NewLogger(t)
	return SetupRouter(testConfig(), NewHandler(recommender, logger), logger)
}

// --- Mock collaborators for the end-to-end pipeline ---

type stubReasoning struct {
	mu      sync.Mutex
	replies map[string]string
	calls   map[string]int
}

func (s *stubReasoning) Complete(ctx context.Context, stage, instruction string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.calls == nil {
		s.calls = map[string]int{}
	}
	s.calls[stage]++
	return s.replies[stage], nil
}

type stubFetcher map[string][]domain.ProductListing

func (f stubFetcher) Fetch(ctx context.Context, term string) []domain.ProductListing {
	if l, ok := f[term]; ok {
		return l
	}
	return []domain.ProductListing{}
}

const (
	analysisReply = `{"required_nutrients":[{"name":"오메가3","rationale":"혈행 개선"}],"risk_factors":[],"search_keywords":["오메가3","비타민 D"],"initial_summary":"혈행 건강에 집중하세요."}`
	selectionReply = `{"selected_product":{"name":"California Gold Nutrition, Omega-3 Premium Fish Oil","price":"₩9,800","link":"https://kr.iherb.com/pr/cgn-omega-3/62118","details_summary":"고순도 피쉬오일"},"selection_rationale":"가성비가 가장 좋습니다.","warning":""}`
	safetyReply    = `{"verification_status":"Caution","detailed_message":"와파린과 병용 시 출혈 위험이 있습니다."}`
)

func newPipeline(t *testing.T, replies map[string]string) (*usecase.RecommendationService, *stubReasoning) {
	t.Helper()
	logger := zaptest.NewLogger(t)

	reasoning := &stubReasoning{replies: replies}
	fetcher := stubFetcher{
		"오메가3": {
			{Name: "California Gold Nutrition, Omega-3 Premium Fish Oil", Price: "₩9,800", NumericPrice: 9800, Link: "https://kr.iherb.com/pr/cgn-omega-3/62118"},
			{Name: "Sports Research, Triple Strength Omega-3", Price: "₩38,000", NumericPrice: 38000, Link: "https://kr.iherb.com/pr/sports-research-omega/11"},
		},
	}
	store := runstore.NewMemoryStore(time.Hour, time.Hour)
	t.Cleanup(func() { _ = store.Close() })

	svc := usecase.NewRecommendationService(usecase.RecommendationServiceConfig{
		Analysis:   usecase.NewAnalysisStage(reasoning, 3, logger),
		Keywords:   usecase.NewKeywordPreprocessor(3, logger),
		Collection: usecase.NewCollectionStage(fetcher, logger),
		Selection:  usecase.NewSelectionStage(reasoning, usecase.NewMatchingService(usecase.MatchConfig{}, logger), logger),
		Safety:     usecase.NewSafetyStage(reasoning, logger),
		Runs:       store,
	}, logger)
	return svc, reasoning
}

func postJSON(router *gin.Engine, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

const profileBody = `{"health_goal":"혈행 개선","diseases_diagnoses":"","medications_allergies":"와파린","budget_range":"price_50000_100000","gender":"female","age_group":"fifties"}`

// TestHealthCheckEndpoint tests the health check endpoint
func TestHealthCheckEndpoint(t *testing.T) {
	t.Run("returns healthy status", func(t *testing.T) {
		router := setupTestRouter(t, nil)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))

		require.Equal(t, http.StatusOK, w.Code)
		var response map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, "healthy", response["status"])
		assert.Equal(t, "pillwise-backend", response["service"])
		assert.NotEmpty(t, response["version"])
	})

	t.Run("accepts GET requests only", func(t *testing.T) {
		router := setupTestRouter(t, nil)

		for _, method := range []string{"POST", "PUT", "DELETE", "PATCH"} {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(method, "/health", nil))
			assert.Equal(t, http.StatusNotFound, w.Code, method)
		}
	})

	t.Run("root answers for the web client", func(t *testing.T) {
		router := setupTestRouter(t, nil)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "백엔드 서버 가동중")
	})
}

func TestMetricsEndpoint(t *testing.T) {
	router := setupTestRouter(t, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}

// TestRecommendEndpoint exercises the full pipeline through the router
func TestRecommendEndpoint(t *testing.T) {
	t.Run("returns the aggregated recommendation", func(t *testing.T) {
		svc, reasoning := newPipeline(t, map[string]string{
			"analysis": analysisReply, "selection": selectionReply, "safety": safetyReply,
		})
		router := setupTestRouter(t, svc)

		w := postJSON(router, "/api/v1/recommendations", profileBody)

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var resp domain.RecommendationResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

		assert.NotEmpty(t, resp.RunID)
		assert.Equal(t, resp.RunID, w.Header().Get("X-Run-ID"))
		assert.Equal(t, "혈행 건강에 집중하세요.", resp.InitialRecommendation)
		assert.Equal(t, []string{"오메가3", "비타민 D"}, resp.RecommendedIngredients)
		assert.Len(t, resp.RawProducts, 2)
		require.NotNil(t, resp.FinalRecommendation)
		assert.Equal(t, int64(9800), resp.FinalRecommendation.NumericPrice)
		assert.Equal(t, domain.SafetyCaution, resp.VerificationStatus)
		assert.True(t, strings.HasSuffix(resp.Verification, domain.ConsultationDisclaimer))
		assert.Equal(t, 1, reasoning.calls["safety"])

		// the run record is retrievable afterwards
		rw := httptest.NewRecorder()
		router.ServeHTTP(rw, httptest.NewRequest("GET", "/api/v1/recommendations/runs/"+resp.RunID, nil))
		require.Equal(t, http.StatusOK, rw.Code)
		var run domain.RunRecord
		require.NoError(t, json.Unmarshal(rw.Body.Bytes(), &run))
		assert.Equal(t, domain.RunCompleted, run.State)
		assert.NotContains(t, rw.Body.String(), "와파린", "run records carry no health text")
	})

	t.Run("legacy paths reach the same pipeline", func(t *testing.T) {
		svc, _ := newPipeline(t, map[string]string{
			"analysis": analysisReply, "selection": selectionReply, "safety": safetyReply,
		})
		router := setupTestRouter(t, svc)

		for _, path := range []string{"/api/recommend", "/api/analyze-and-recommend"} {
			w := postJSON(router, path, profileBody)
			assert.Equal(t, http.StatusOK, w.Code, path)
		}
	})

	t.Run("keeps nulls in the response shape when nothing was found", func(t *testing.T) {
		svc, reasoning := newPipeline(t, map[string]string{
			"analysis": `{"required_nutrients":[{"name":"루테인","rationale":"눈"}],"risk_factors":[],"search_keywords":["루테인"],"initial_summary":"눈 건강"}`,
		})
		router := setupTestRouter(t, svc)

		w := postJSON(router, "/api/v1/recommendations", profileBody)

		require.Equal(t, http.StatusOK, w.Code)
		var raw map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &raw))
		assert.Nil(t, raw["finalRecommendation"])
		assert.Equal(t, []any{}, raw["rawProducts"])
		assert.Equal(t, "skipped", raw["verificationStatus"])
		assert.Equal(t, "검색된 제품이 없습니다.", raw["selectionRationale"])
		assert.Equal(t, 0, reasoning.calls["selection"])
	})

	t.Run("invalid selection JSON yields the failure response", func(t *testing.T) {
		svc, reasoning := newPipeline(t, map[string]string{
			"analysis":  analysisReply,
			"selection": `{"selected_product": oops}`,
		})
		router := setupTestRouter(t, svc)

		w := postJSON(router, "/api/v1/recommendations", profileBody)

		require.Equal(t, http.StatusInternalServerError, w.Code)
		var response map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, "프로세스 중단", response["error"])
		assert.Contains(t, response["details"], "selection")
		assert.NotContains(t, response, "finalRecommendation")
		assert.Equal(t, 0, reasoning.calls["safety"])

		runID := w.Header().Get("X-Run-ID")
		require.NotEmpty(t, runID)
		rw := httptest.NewRecorder()
		router.ServeHTTP(rw, httptest.NewRequest("GET", "/api/v1/recommendations/runs/"+runID, nil))
		var run domain.RunRecord
		require.NoError(t, json.Unmarshal(rw.Body.Bytes(), &run))
		assert.Equal(t, domain.RunFailed, run.State)
	})

	t.Run("returns 400 for missing health goal", func(t *testing.T) {
		svc, reasoning := newPipeline(t, nil)
		router := setupTestRouter(t, svc)

		w := postJSON(router, "/api/v1/recommendations", `{"budget_range":"price_under_50000"}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "health_goal")
		assert.Equal(t, 0, reasoning.calls["analysis"])
	})

	t.Run("returns 400 for unknown budget", func(t *testing.T) {
		svc, _ := newPipeline(t, nil)
		router := setupTestRouter(t, svc)

		w := postJSON(router, "/api/v1/recommendations", `{"health_goal":"면역","budget_range":"free"}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("returns 400 for invalid JSON", func(t *testing.T) {
		svc, _ := newPipeline(t, nil)
		router := setupTestRouter(t, svc)

		w := postJSON(router, "/api/v1/recommendations", `{invalid json}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("returns 501 without a recommender", func(t *testing.T) {
		router := setupTestRouter(t, nil)

		w := postJSON(router, "/api/v1/recommendations", profileBody)

		assert.Equal(t, http.StatusNotImplemented, w.Code)
		assert.Contains(t, w.Body.String(), "not configured")
	})
}

func TestGetRunEndpoint(t *testing.T) {
	t.Run("unknown run is 404", func(t *testing.T) {
		svc, _ := newPipeline(t, nil)
		router := setupTestRouter(t, svc)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/recommendations/runs/nope", nil))

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("store outage is 503", func(t *testing.T) {
		router := setupTestRouter(t, failingRecommender{})

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/recommendations/runs/any", nil))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}

type failingRecommender struct{}

func (failingRecommender) Recommend(ctx context.Context, profile domain.UserProfile) (*domain.RecommendationResponse, error) {
	return nil, domain.ErrReasoningUnavailable
}

func (failingRecommender) GetRun(ctx context.Context, id string) (*domain.RunRecord, error) {
	return nil, domain.ErrRunStoreUnavailable
}

func TestRecommendEndpoint_TransportFailure(t *testing.T) {
	router := setupTestRouter(t, failingRecommender{})

	w := postJSON(router, "/api/recommend", profileBody)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"프로세스 중단","details":"reasoning capability unavailable"}`, w.Body.String())
}

// TestCORSIntegration tests CORS headers work end-to-end with full router
func TestCORSIntegration(t *testing.T) {
	router := setupTestRouter(t, nil)

	req := httptest.NewRequest("OPTIONS", "/api/recommend", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "POST")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

// TestJSONResponses tests that API responses are valid JSON
func TestJSONResponses(t *testing.T) {
	endpoints := []struct {
		method string
		path   string
	}{
		{"GET", "/"},
		{"GET", "/health"},
		{"POST", "/api/v1/recommendations"},
		{"GET", "/api/v1/recommendations/runs/abc"},
	}

	for _, endpoint := range endpoints {
		t.Run(endpoint.method+" "+endpoint.path, func(t *testing.T) {
			router := setupTestRouter(t, nil)

			req := httptest.NewRequest(endpoint.method, endpoint.path, nil)
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))
			var response map[string]any
			assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		})
	}
}
