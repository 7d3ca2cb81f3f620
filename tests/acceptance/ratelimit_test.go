package acceptance

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/repurpost/oauth-service/internal/domain"
	"github.com/repurpost/oauth-service/internal/dto"
)

func (s *Suite) TestRateLimit_FreeTierExhaustion() {
	token := s.issueToken("rl-free", domain.TierFree)
	limit := 5 // FREE policy in the test config

	for i := 1; i <= limit; i++ {
		resp := s.authorizedRequest("GET", "/api/v1/oauth/status", token, nil)
		resp.Body.Close()
		s.Equal(http.StatusOK, resp.StatusCode, "request %d should be allowed", i)

		s.Equal(strconv.Itoa(limit), resp.Header.Get("X-RateLimit-Limit"))
		s.Equal(strconv.Itoa(limit-i), resp.Header.Get("X-RateLimit-Remaining"))
		s.NotEmpty(resp.Header.Get("X-RateLimit-Reset"))
	}

	resp := s.authorizedRequest("GET", "/api/v1/oauth/status", token, nil)
	defer resp.Body.Close()
	s.Equal(http.StatusTooManyRequests, resp.StatusCode)
	s.NotEmpty(resp.Header.Get("Retry-After"))

	var limitResp dto.RateLimitExceededResponse
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&limitResp))
	s.Equal("RATE_LIMIT_EXCEEDED", limitResp.Code)
	s.Equal(limit, limitResp.Limit)
	s.Equal(int64(limit+1), limitResp.Current)
	s.GreaterOrEqual(limitResp.RetryAfter, int64(1))
	s.False(limitResp.ResetAt.IsZero())
}

func (s *Suite) TestRateLimit_TiersDoNotShareBuckets() {
	profileID := "rl-tiers"
	freeToken := s.issueToken(profileID, domain.TierFree)

	// Exhaust the FREE bucket for this profile
	for i := 0; i <= 5; i++ {
		resp := s.authorizedRequest("GET", "/api/v1/oauth/status", freeToken, nil)
		resp.Body.Close()
	}
	resp := s.authorizedRequest("GET", "/api/v1/oauth/status", freeToken, nil)
	resp.Body.Close()
	s.Equal(http.StatusTooManyRequests, resp.StatusCode)

	// The same profile under PRO runs against a separate, larger bucket
	proToken := s.issueToken(profileID, domain.TierPro)
	resp = s.authorizedRequest("GET", "/api/v1/oauth/status", proToken, nil)
	defer resp.Body.Close()
	s.Equal(http.StatusOK, resp.StatusCode)
	s.Equal("20", resp.Header.Get("X-RateLimit-Limit"))
}

func (s *Suite) TestRateLimit_ProfilesAreIsolated() {
	first := s.issueToken("rl-profile-1", domain.TierFree)
	second := s.issueToken("rl-profile-2", domain.TierFree)

	for i := 0; i <= 5; i++ {
		resp := s.authorizedRequest("GET", "/api/v1/oauth/status", first, nil)
		resp.Body.Close()
	}
	resp := s.authorizedRequest("GET", "/api/v1/oauth/status", first, nil)
	resp.Body.Close()
	s.Equal(http.StatusTooManyRequests, resp.StatusCode)

	resp = s.authorizedRequest("GET", "/api/v1/oauth/status", second, nil)
	defer resp.Body.Close()
	s.Equal(http.StatusOK, resp.StatusCode)
}
