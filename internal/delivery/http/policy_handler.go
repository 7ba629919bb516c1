package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/gib-ens/gasless-registrar/internal/domain"
)

// PolicyHandler exposes the public view of a sponsorship policy.
type PolicyHandler struct {
	resolver BundleResolver
	logger   *zap.Logger
}

// NewPolicyHandler creates a new PolicyHandler.
func NewPolicyHandler(resolver BundleResolver, logger *zap.Logger) *PolicyHandler {
	return &PolicyHandler{resolver: resolver, logger: logger}
}

// Get handles GET /:policy
func (h *PolicyHandler) Get(c *gin.Context) {
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
	c.JSON(http.StatusOK, bundle.Policy.Public())
}
