package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/gib-ens/gasless-registrar/internal/domain"
	"github.com/gib-ens/gasless-registrar/internal/service"
)

// BundleResolver resolves policy names to wired service bundles.
type BundleResolver interface {
	ForPolicy(ctx context.Context, name string) (*service.Bundle, error)
}

// RegistrationHandler serves availability checks and redeem job creation.
type RegistrationHandler struct {
	resolver BundleResolver
	logger   *zap.Logger
}

// NewRegistrationHandler creates a new RegistrationHandler.
func NewRegistrationHandler(resolver BundleResolver, logger *zap.Logger) *RegistrationHandler {
	return &RegistrationHandler{resolver: resolver, logger: logger}
}

func (h *RegistrationHandler) bundle(c *gin.Context) (*service.Bundle, common.Address, bool) {
	addr := c.Param("address")
	if !common.IsHexAddress(addr) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid address"})
		return nil, common.Address{}, false
	}
	bundle, err := h.resolver.ForPolicy(c.Request.Context(), c.Param("policy"))
	if err != nil {
		if errors.Is(err, domain.ErrPolicyNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "policy not found"})
		} else {
			h.logger.Error("Failed to resolve policy", zap.Error(err), zap.String("policy", c.Param("policy")))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		}
		return nil, common.Address{}, false
	}
	return bundle, common.HexToAddress(addr), true
}

// Check handles GET /:policy/:address/:domain/check
func (h *RegistrationHandler) Check(c *gin.Context) {
	bundle, owner, ok := h.bundle(c)
	if !ok {
		return
	}
	result, err := bundle.Redeem.Availability(c.Request.Context(), owner, c.Param("domain"))
	if err != nil {
		h.logger.Error("Availability check failed", zap.Error(err), zap.String("domain", c.Param("domain")))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(http.StatusOK, result)
}

// Register handles POST /:policy/:address/:domain/register
func (h *RegistrationHandler) Register(c *gin.Context) {
	bundle, owner, ok := h.bundle(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	availability, err := bundle.Redeem.Availability(ctx, owner, c.Param("domain"))
	if err != nil {
		h.logger.Error("Availability check failed", zap.Error(err), zap.String("domain", c.Param("domain")))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	if !availability.IsAvailable {
		c.JSON(http.StatusNotFound, availability)
		return
	}

	job, err := bundle.Redeem.Start(ctx, owner, availability)
	switch {
	case errors.Is(err, domain.ErrAlreadyActive):
		// Redirect the caller to the job that is already running.
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "jobId": job.ID})
	case err != nil:
		h.logger.Error("Failed to start redeem job", zap.Error(err), zap.String("owner", owner.Hex()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	default:
		c.JSON(http.StatusCreated, job)
	}
}

// Current handles GET /:policy/:address/current
func (h *RegistrationHandler) Current(c *gin.Context) {
	bundle, owner, ok := h.bundle(c)
	if !ok {
		return
	}
	job, err := bundle.Redeem.GetCurrent(c.Request.Context(), owner)
	if err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no active redeem job"})
			return
		}
		h.logger.Error("Failed to load current job", zap.Error(err), zap.String("owner", owner.Hex()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(http.StatusOK, job)
}
