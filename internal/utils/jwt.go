package utils

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/repurpost/oauth-service/internal/domain"
)

// CallerClaims identifies an authenticated caller of the service
type CallerClaims struct {
	ProfileID string
	Tier      domain.Tier
	Exp       int64
	Iat       int64
}

// JWTManager validates and issues HS256 caller tokens
type JWTManager struct {
	secret      []byte
	tokenExpiry time.Duration
}

// NewJWTManager creates a new JWT manager
func NewJWTManager(secret string, tokenExpiry time.Duration) *JWTManager {
	return &JWTManager{
		secret:      []byte(secret),
		tokenExpiry: tokenExpiry,
	}
}

// GenerateToken issues a signed caller token carrying the profile id and tier
func (j *JWTManager) GenerateToken(profileID string, tier domain.Tier) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"profile_id": profileID,
		"tier":       tier.String(),
		"exp":        now.Add(j.tokenExpiry).Unix(),
		"iat":        now.Unix(),
	})

	tokenString, err := token.SignedString(j.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, nil
}

// ValidateToken validates a caller token and returns its claims
func (j *JWTManager) ValidateToken(tokenString string) (*CallerClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return j.secret, nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("invalid token claims")
	}

	profileID, ok := claims["profile_id"].(string)
	if !ok {
		return nil, fmt.Errorf("invalid profile_id in token")
	}

	tier, _ := claims["tier"].(string)

	exp, ok := claims["exp"].(float64)
	if !ok {
		return nil, fmt.Errorf("invalid exp in token")
	}

	iat, ok := claims["iat"].(float64)
	if !ok {
		return nil, fmt.Errorf("invalid iat in token")
	}

	callerClaims := &CallerClaims{
		ProfileID: profileID,
		Tier:      domain.ParseTier(tier),
		Exp:       int64(exp),
		Iat:       int64(iat),
	}

	if time.Now().Unix() > callerClaims.Exp {
		return nil, fmt.Errorf("token is expired")
	}

	return callerClaims, nil
}
