package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/repurpost/oauth-service/internal/domain"
	"github.com/repurpost/oauth-service/internal/dto"
	"github.com/repurpost/oauth-service/internal/service"
)

// CredentialsHandler handles BYOK app credential requests
type CredentialsHandler struct {
	credentials service.CredentialsService
}

// NewCredentialsHandler creates a new credentials handler
func NewCredentialsHandler(credentials service.CredentialsService) *CredentialsHandler {
	return &CredentialsHandler{
		credentials: credentials,
	}
}

// Get returns masked stored credentials for a provider
// @Summary Describe stored API credentials
// @Tags credentials
// @Security BearerAuth
// @Produce json
// @Success 200 {object} service.CredentialsSummary
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /credentials/{provider} [get]
func (h *CredentialsHandler) Get(c *gin.Context) {
	profileID := c.GetString(ContextProfileID)
	providerName := c.Param("provider")

	summary, err := h.credentials.Describe(c.Request.Context(), profileID, providerName)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

// Save stores user-supplied app credentials for a provider
// @Summary Save API credentials
// @Tags credentials
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body dto.SaveCredentialsRequest true "Credentials"
// @Success 200 {object} dto.SuccessResponse
// @Failure 400 {object} dto.ErrorResponse
// @Router /credentials/{provider} [put]
func (h *CredentialsHandler) Save(c *gin.Context) {
	var req dto.SaveCredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Validation failed",
			Message: err.Error(),
		})
		return
	}

	profileID := c.GetString(ContextProfileID)
	providerName := c.Param("provider")

	err := h.credentials.Save(c.Request.Context(), profileID, providerName, req.ClientID, req.ClientSecret, req.AppName)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.SuccessResponse{
		Message: "Credentials saved",
	})
}

// Delete removes stored credentials for a provider
// @Summary Delete API credentials
// @Tags credentials
// @Security BearerAuth
// @Produce json
// @Success 200 {object} dto.SuccessResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /credentials/{provider} [delete]
func (h *CredentialsHandler) Delete(c *gin.Context) {
	profileID := c.GetString(ContextProfileID)
	providerName := c.Param("provider")

	if err := h.credentials.Delete(c.Request.Context(), profileID, providerName); err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.SuccessResponse{
		Message: "Credentials deleted",
	})
}

func (h *CredentialsHandler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrUnknownProvider), errors.Is(err, service.ErrValidation):
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Validation failed",
			Message: err.Error(),
		})
	case errors.Is(err, service.ErrNotConnected):
		c.JSON(http.StatusNotFound, dto.ErrorResponse{
			Error:   "Not found",
			Message: "No credentials stored for this provider",
		})
	default:
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error:   "Internal server error",
			Message: "Failed to process credentials request",
		})
	}
}
