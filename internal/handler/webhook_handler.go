package handler

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/repurpost/oauth-service/internal/dto"
	"github.com/repurpost/oauth-service/internal/service"
	"go.uber.org/zap"
)

// WebhookHandler handles provider-initiated compliance callbacks
type WebhookHandler struct {
	tokenManager      service.TokenManager
	metaAppSecret     string
	deletionStatusURL string
	logger            *zap.Logger
}

// NewWebhookHandler creates a new webhook handler
func NewWebhookHandler(tokenManager service.TokenManager, metaAppSecret, deletionStatusURL string, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		tokenManager:      tokenManager,
		metaAppSecret:     metaAppSecret,
		deletionStatusURL: deletionStatusURL,
		logger:            logger,
	}
}

// deletionPayload is the decoded body of a Meta signed_request
type deletionPayload struct {
	UserID    string `json:"user_id"`
	Algorithm string `json:"algorithm"`
	IssuedAt  int64  `json:"issued_at"`
}

// MetaDataDeletion handles Meta's data-deletion callback. Meta posts a
// signed_request form field; the signature must verify against the app
// secret before anything is deleted.
func (h *WebhookHandler) MetaDataDeletion(c *gin.Context) {
	if h.metaAppSecret == "" {
		// No secret configured means signatures cannot be verified; fail
		// closed instead of deleting on unauthenticated input
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error:   "Internal server error",
			Message: "Data deletion callback is not configured",
		})
		return
	}

	signedRequest := c.PostForm("signed_request")
	if signedRequest == "" {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Validation failed",
			Message: "signed_request is required",
		})
		return
	}

	payload, err := h.parseSignedRequest(signedRequest)
	if err != nil {
		h.logger.Warn("Rejected data deletion callback", zap.Error(err))
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Validation failed",
			Message: "Invalid signed_request",
		})
		return
	}

	deleted, err := h.tokenManager.DisconnectByProviderUser(c.Request.Context(), "meta", payload.UserID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error:   "Internal server error",
			Message: "Failed to process deletion request",
		})
		return
	}

	confirmationCode := uuid.New().String()
	h.logger.Info("Data deletion request processed",
		zap.String("provider_user_id", payload.UserID),
		zap.Int64("deleted", deleted),
		zap.String("confirmation_code", confirmationCode),
	)

	c.JSON(http.StatusOK, dto.DataDeletionResponse{
		URL:              fmt.Sprintf("%s?code=%s", h.deletionStatusURL, confirmationCode),
		ConfirmationCode: confirmationCode,
	})
}

// parseSignedRequest verifies and decodes a Meta signed_request:
// base64url(signature) "." base64url(json payload), where the signature is
// HMAC-SHA256 of the encoded payload under the app secret.
func (h *WebhookHandler) parseSignedRequest(signedRequest string) (*deletionPayload, error) {
	parts := strings.SplitN(signedRequest, ".", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("malformed signed_request")
	}

	signature, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return nil, fmt.Errorf("failed to decode signature: %w", err)
	}

	mac := hmac.New(sha256.New, []byte(h.metaAppSecret))
	mac.Write([]byte(parts[1]))
	if !hmac.Equal(signature, mac.Sum(nil)) {
		return nil, fmt.Errorf("signature mismatch")
	}

	payloadBytes, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, fmt.Errorf("failed to decode payload: %w", err)
	}

	var payload deletionPayload
	if err := json.Unmarshal(payloadBytes, &payload); err != nil {
		return nil, fmt.Errorf("failed to parse payload: %w", err)
	}

	if payload.UserID == "" {
		return nil, fmt.Errorf("payload missing user_id")
	}

	return &payload, nil
}
