package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/repurpost/oauth-service/internal/dto"
	"github.com/repurpost/oauth-service/internal/utils"
)

// Context keys set by AuthMiddleware
const (
	ContextProfileID = "profile_id"
	ContextTier      = "tier"
)

// AuthMiddleware validates the caller JWT and adds profile id and tier to context
func AuthMiddleware(jwtManager *utils.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, dto.ErrorResponse{
				Error:   "Unauthorized",
				Message: "Authorization header is required",
			})
			c.Abort()
			return
		}

		// Extract token from "Bearer <token>"
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, dto.ErrorResponse{
				Error:   "Unauthorized",
				Message: "Invalid authorization header format",
			})
			c.Abort()
			return
		}

		claims, err := jwtManager.ValidateToken(parts[1])
		if err != nil {
			c.JSON(http.StatusUnauthorized, dto.ErrorResponse{
				Error:   "Unauthorized",
				Message: "Invalid or expired token",
			})
			c.Abort()
			return
		}

		c.Set(ContextProfileID, claims.ProfileID)
		c.Set(ContextTier, claims.Tier)

		c.Next()
	}
}
