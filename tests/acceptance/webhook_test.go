package acceptance

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/repurpost/oauth-service/internal/domain"
	"github.com/repurpost/oauth-service/internal/dto"
)

// signMetaRequest builds a signed_request the way Meta does: HMAC-SHA256 of
// the base64url payload under the app secret
func (s *Suite) signMetaRequest(secret string, payload map[string]interface{}) string {
	payloadJSON, err := json.Marshal(payload)
	s.Require().NoError(err)
	encodedPayload := base64.RawURLEncoding.EncodeToString(payloadJSON)

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(encodedPayload))
	signature := base64.RawURLEncoding.EncodeToString(mac.Sum(nil))

	return signature + "." + encodedPayload
}

func (s *Suite) postDataDeletion(signedRequest string) *http.Response {
	form := url.Values{}
	form.Set("signed_request", signedRequest)

	resp, err := http.Post(
		s.BaseURL+"/webhooks/meta/data-deletion",
		"application/x-www-form-urlencoded",
		strings.NewReader(form.Encode()),
	)
	s.Require().NoError(err)
	return resp
}

func (s *Suite) TestDataDeletion_RemovesConnection() {
	profileID := "deletion-target"
	s.seedConnection(profileID, domain.ProviderMeta, "access", "refresh", nil,
		[]byte(`{"user_id":"fb-del-123","username":"deleted_user"}`))

	signed := s.signMetaRequest(testMetaAppSecret, map[string]interface{}{
		"user_id":   "fb-del-123",
		"algorithm": "HMAC-SHA256",
		"issued_at": 1700000000,
	})

	resp := s.postDataDeletion(signed)
	defer resp.Body.Close()
	s.Equal(http.StatusOK, resp.StatusCode)

	var deletionResp dto.DataDeletionResponse
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&deletionResp))
	s.NotEmpty(deletionResp.ConfirmationCode)
	s.Contains(deletionResp.URL, deletionResp.ConfirmationCode)

	// The connection is gone from the store
	token := s.issueToken(profileID, domain.TierFree)
	statusResp := s.authorizedRequest("GET", "/api/v1/oauth/status", token, nil)
	defer statusResp.Body.Close()

	var status dto.StatusResponse
	s.Require().NoError(json.NewDecoder(statusResp.Body).Decode(&status))
	s.Zero(status.TotalConnected)
}

func (s *Suite) TestDataDeletion_BadSignature() {
	profileID := "deletion-protected"
	s.seedConnection(profileID, domain.ProviderMeta, "access", "refresh", nil,
		[]byte(`{"user_id":"fb-safe-456"}`))

	signed := s.signMetaRequest("attacker-secret", map[string]interface{}{
		"user_id": "fb-safe-456",
	})

	resp := s.postDataDeletion(signed)
	defer resp.Body.Close()
	s.Equal(http.StatusBadRequest, resp.StatusCode)

	// The connection survives a forged request
	token := s.issueToken(profileID, domain.TierFree)
	statusResp := s.authorizedRequest("GET", "/api/v1/oauth/status", token, nil)
	defer statusResp.Body.Close()

	var status dto.StatusResponse
	s.Require().NoError(json.NewDecoder(statusResp.Body).Decode(&status))
	s.Equal(1, status.TotalConnected)
}
