package acceptance

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/repurpost/oauth-service/internal/domain"
	"github.com/repurpost/oauth-service/internal/dto"
)

func (s *Suite) authorizedRequest(method, path, token string, body []byte) *http.Response {
	var req *http.Request
	var err error
	if body != nil {
		req, err = http.NewRequest(method, s.BaseURL+path, bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req, err = http.NewRequest(method, s.BaseURL+path, nil)
	}
	s.Require().NoError(err)
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))

	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	return resp
}

func (s *Suite) TestStatus_Empty() {
	token := s.issueToken("status-empty", domain.TierFree)

	resp := s.authorizedRequest("GET", "/api/v1/oauth/status", token, nil)
	defer resp.Body.Close()

	s.Equal(http.StatusOK, resp.StatusCode)

	var statusResp dto.StatusResponse
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&statusResp))
	s.Empty(statusResp.ConnectedPlatforms)
	s.Zero(statusResp.TotalConnected)
}

func (s *Suite) TestStatus_WithConnections() {
	profileID := "status-conns"
	expiry := time.Now().Add(time.Hour)
	s.seedConnection(profileID, domain.ProviderMeta, "meta-access", "meta-refresh", &expiry,
		[]byte(`{"user_id":"fb-1","username":"creator_one"}`))
	s.seedConnection(profileID, domain.ProviderGoogle, "google-access", "google-refresh", nil, nil)

	token := s.issueToken(profileID, domain.TierCreator)
	resp := s.authorizedRequest("GET", "/api/v1/oauth/status", token, nil)
	defer resp.Body.Close()

	s.Equal(http.StatusOK, resp.StatusCode)

	var statusResp dto.StatusResponse
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&statusResp))
	s.Len(statusResp.ConnectedPlatforms, 2)
	s.Equal(2, statusResp.TotalConnected)

	for _, p := range statusResp.ConnectedPlatforms {
		if p.Platform == "meta" {
			s.Equal("cr*********", p.Username, "usernames must be masked")
			s.NotNil(p.ExpiresAt)
		}
	}
}

func (s *Suite) TestStatus_Unauthorized() {
	resp, err := http.Get(s.BaseURL + "/api/v1/oauth/status")
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func (s *Suite) TestHealth_NotConnected() {
	token := s.issueToken("health-none", domain.TierFree)
	body, _ := json.Marshal(dto.HealthCheckRequest{Platform: "youtube"})

	resp := s.authorizedRequest("POST", "/api/v1/oauth/status", token, body)
	defer resp.Body.Close()

	s.Equal(http.StatusOK, resp.StatusCode)

	var healthResp dto.HealthResponse
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&healthResp))
	s.False(healthResp.Healthy)
	s.Contains(healthResp.Message, "not connected")
}

func (s *Suite) TestHealth_Connected() {
	profileID := "health-ok"
	expiry := time.Now().Add(time.Hour)
	s.seedConnection(profileID, domain.ProviderGoogle, "access", "refresh", &expiry, nil)

	token := s.issueToken(profileID, domain.TierFree)
	// The alias resolves to the same stored connection
	body, _ := json.Marshal(dto.HealthCheckRequest{Platform: "youtube"})

	resp := s.authorizedRequest("POST", "/api/v1/oauth/status", token, body)
	defer resp.Body.Close()

	s.Equal(http.StatusOK, resp.StatusCode)

	var healthResp dto.HealthResponse
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&healthResp))
	s.True(healthResp.Healthy)
}

func (s *Suite) TestHealth_ExpiredToken() {
	profileID := "health-expired"
	expiry := time.Now().Add(-time.Hour)
	s.seedConnection(profileID, domain.ProviderTikTok, "access", "refresh", &expiry, nil)

	token := s.issueToken(profileID, domain.TierFree)
	body, _ := json.Marshal(dto.HealthCheckRequest{Platform: "tiktok"})

	resp := s.authorizedRequest("POST", "/api/v1/oauth/status", token, body)
	defer resp.Body.Close()

	s.Equal(http.StatusOK, resp.StatusCode)

	var healthResp dto.HealthResponse
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&healthResp))
	s.False(healthResp.Healthy)
	s.Contains(healthResp.Message, "expired")
}

func (s *Suite) TestHealth_UnknownPlatform() {
	token := s.issueToken("health-unknown", domain.TierFree)
	body, _ := json.Marshal(dto.HealthCheckRequest{Platform: "myspace"})

	resp := s.authorizedRequest("POST", "/api/v1/oauth/status", token, body)
	defer resp.Body.Close()

	s.Equal(http.StatusBadRequest, resp.StatusCode)
}

func (s *Suite) TestDisconnect_Success() {
	profileID := "disconnect-ok"
	s.seedConnection(profileID, domain.ProviderMeta, "access", "refresh", nil, nil)

	token := s.issueToken(profileID, domain.TierFree)

	// Disconnect through an alias of the stored canonical provider
	resp := s.authorizedRequest("DELETE", "/api/v1/oauth/connections/instagram", token, nil)
	resp.Body.Close()
	s.Equal(http.StatusOK, resp.StatusCode)

	resp = s.authorizedRequest("DELETE", "/api/v1/oauth/connections/facebook", token, nil)
	defer resp.Body.Close()
	s.Equal(http.StatusNotFound, resp.StatusCode)
}

func (s *Suite) TestDisconnect_UnknownProvider() {
	token := s.issueToken("disconnect-unknown", domain.TierFree)

	resp := s.authorizedRequest("DELETE", "/api/v1/oauth/connections/myspace", token, nil)
	defer resp.Body.Close()
	s.Equal(http.StatusBadRequest, resp.StatusCode)
}
