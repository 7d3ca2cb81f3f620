package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/repurpost/oauth-service/internal/domain"
	"github.com/repurpost/oauth-service/internal/dto"
	"github.com/repurpost/oauth-service/internal/service"
)

// OAuthHandler handles connection status and lifecycle requests
type OAuthHandler struct {
	tokenManager service.TokenManager
}

// NewOAuthHandler creates a new OAuth handler
func NewOAuthHandler(tokenManager service.TokenManager) *OAuthHandler {
	return &OAuthHandler{
		tokenManager: tokenManager,
	}
}

// GetStatus lists the caller's connected platforms
// @Summary List connected platforms
// @Tags oauth
// @Security BearerAuth
// @Produce json
// @Success 200 {object} dto.StatusResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /oauth/status [get]
func (h *OAuthHandler) GetStatus(c *gin.Context) {
	profileID := c.GetString(ContextProfileID)

	summaries, err := h.tokenManager.GetConnections(c.Request.Context(), profileID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error:   "Internal server error",
			Message: "Failed to load connections",
		})
		return
	}

	platforms := make([]dto.PlatformStatus, 0, len(summaries))
	total := 0
	for _, s := range summaries {
		if s.IsActive {
			total++
		}
		platforms = append(platforms, dto.PlatformStatus{
			Platform:    s.Platform,
			DisplayName: s.DisplayName,
			Username:    s.Username,
			ConnectedAt: s.ConnectedAt,
			ExpiresAt:   s.ExpiresAt,
			IsActive:    s.IsActive,
		})
	}

	c.JSON(http.StatusOK, dto.StatusResponse{
		ConnectedPlatforms: platforms,
		TotalConnected:     total,
	})
}

// CheckHealth reports the health of one platform connection
// @Summary Check connection health
// @Tags oauth
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body dto.HealthCheckRequest true "Health check request"
// @Success 200 {object} dto.HealthResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Router /oauth/status [post]
func (h *OAuthHandler) CheckHealth(c *gin.Context) {
	var req dto.HealthCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Validation failed",
			Message: err.Error(),
		})
		return
	}

	profileID := c.GetString(ContextProfileID)

	status, err := h.tokenManager.CheckConnectionHealth(c.Request.Context(), profileID, req.Platform)
	if err != nil {
		if errors.Is(err, domain.ErrUnknownProvider) {
			c.JSON(http.StatusBadRequest, dto.ErrorResponse{
				Error:   "Validation failed",
				Message: err.Error(),
				Details: gin.H{"field": "platform"},
			})
			return
		}
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error:   "Internal server error",
			Message: "Failed to check connection health",
		})
		return
	}

	c.JSON(http.StatusOK, dto.HealthResponse{
		Healthy: status.Healthy,
		Message: status.Message,
	})
}

// Disconnect removes one platform connection
// @Summary Disconnect a platform
// @Tags oauth
// @Security BearerAuth
// @Produce json
// @Success 200 {object} dto.SuccessResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /oauth/connections/{provider} [delete]
func (h *OAuthHandler) Disconnect(c *gin.Context) {
	profileID := c.GetString(ContextProfileID)
	providerName := c.Param("provider")

	err := h.tokenManager.Disconnect(c.Request.Context(), profileID, providerName)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrUnknownProvider):
			c.JSON(http.StatusBadRequest, dto.ErrorResponse{
				Error:   "Validation failed",
				Message: err.Error(),
				Details: gin.H{"field": "provider"},
			})
		case errors.Is(err, service.ErrNotConnected):
			c.JSON(http.StatusNotFound, dto.ErrorResponse{
				Error:   "Not found",
				Message: "Platform is not connected",
			})
		default:
			c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
				Error:   "Internal server error",
				Message: "Failed to disconnect platform",
			})
		}
		return
	}

	c.JSON(http.StatusOK, dto.SuccessResponse{
		Message: "Platform disconnected",
	})
}
