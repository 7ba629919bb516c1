package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/gib-ens/gasless-registrar/internal/domain"
)

// JobHandler serves redeem job step status polling.
type JobHandler struct {
	resolver BundleResolver
	logger   *zap.Logger
}

// NewJobHandler creates a new JobHandler.
func NewJobHandler(resolver BundleResolver, logger *zap.Logger) *JobHandler {
	return &JobHandler{resolver: resolver, logger: logger}
}

// StepStatus handles GET /api/event/:policy/job/:jobId/step/:stepId
//
// Derivation failures surface as an "error" state rather than an opaque
// 500 so the polling client can keep its state machine in sync.
func (h *JobHandler) StepStatus(c *gin.Context) {
	bundle, err := h.resolver.ForPolicy(c.Request.Context(), c.Param("policy"))
	if err != nil {
		if errors.Is(err, domain.ErrPolicyNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "policy not found"})
			return
		}
		h.logger.Error("Failed to resolve policy", zap.Error(err), zap.String("policy", c.Param("policy")))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	job, err := bundle.Redeem.GetByID(c.Request.Context(), c.Param("jobId"))
	if err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
			return
		}
		h.logger.Error("Failed to load job", zap.Error(err), zap.String("jobId", c.Param("jobId")))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	status, err := bundle.Redeem.StepStatus(c.Request.Context(), job, c.Param("stepId"))
	if err != nil {
		if errors.Is(err, domain.ErrStepNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "step not found"})
			return
		}
		h.logger.Error("Failed to derive step status",
			zap.Error(err),
			zap.String("jobId", job.ID),
			zap.String("stepId", c.Param("stepId")))
		c.JSON(http.StatusOK, gin.H{"stepId": c.Param("stepId"), "state": "error"})
		return
	}
	c.JSON(http.StatusOK, status)
}
