package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/pillwise/backend/internal/domain"
	"github.com/pillwise/backend/internal/usecase"
)

const (
	serviceName    = "pillwise-backend"
	serviceVersion = "1.0.0"

	// processAborted is the error reported whenever a run fails before completion
	processAborted = "프로세스 중단"
)

// Recommender runs the recommendation pipeline and exposes its run records
type Recommender interface {
	Recommend(ctx context.Context, profile domain.UserProfile) (*domain.RecommendationResponse, error)
	GetRun(ctx context.Context, id string) (*domain.RunRecord, error)
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	recommender Recommender
	logger      *zap.Logger
}

// NewHandler creates a new HTTP handler. A nil recommender makes the
// recommendation endpoints answer 501.
func NewHandler(recommender Recommender, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{recommender: recommender, logger: logger}
}

// Root answers the bare liveness probe used by the web client
func (h *Handler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "백엔드 서버 가동중."})
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": serviceName,
		"version": serviceVersion,
	})
}

// Recommend handles POST /api/v1/recommendations and its legacy aliases
func (h *Handler) Recommend(c *gin.Context) {
	if h.recommender == nil {
		c.JSON(http.StatusNotImplemented, gin.H{
			"error": "Recommendation service not configured",
		})
		return
	}

	var profile domain.UserProfile
	if err := c.ShouldBindJSON(&profile); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid request",
			"details": err.Error(),
		})
		return
	}

	resp, err := h.recommender.Recommend(c.Request.Context(), profile)
	if err != nil {
		h.handleRecommendError(c, err)
		return
	}

	c.Header("X-Run-ID", resp.RunID)
	c.JSON(http.StatusOK, resp)
}

// GetRun handles GET /api/v1/recommendations/runs/:id
func (h *Handler) GetRun(c *gin.Context) {
	if h.recommender == nil {
		c.JSON(http.StatusNotImplemented, gin.H{
			"error": "Recommendation service not configured",
		})
		return
	}

	run, err := h.recommender.GetRun(c.Request.Context(), c.Param("id"))
	switch {
	case err == nil:
		c.JSON(http.StatusOK, run)
	case errors.Is(err, domain.ErrRunNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
	default:
		h.logger.Error("failed to load run", zap.String("run_id", c.Param("id")), zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "run store unavailable"})
	}
}

// handleRecommendError maps pipeline errors to HTTP responses
func (h *Handler) handleRecommendError(c *gin.Context, err error) {
	_ = c.Error(err)

	if errors.Is(err, domain.ErrInvalidRequest) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid request",
			"details": err.Error(),
		})
		return
	}

	var perr *usecase.PipelineError
	if errors.As(err, &perr) {
		c.Header("X-Run-ID", perr.RunID)
	}
	c.JSON(http.StatusInternalServerError, gin.H{
		"error":   processAborted,
		"details": err.Error(),
	})
}
