package acceptance

import (
	"encoding/json"
	"net/http"

	"github.com/repurpost/oauth-service/internal/domain"
	"github.com/repurpost/oauth-service/internal/dto"
	"github.com/repurpost/oauth-service/internal/service"
)

func (s *Suite) TestCredentials_SaveDescribeDelete() {
	profileID := "creds-flow"
	token := s.issueToken(profileID, domain.TierPro)

	body, _ := json.Marshal(dto.SaveCredentialsRequest{
		ClientID:     "client-id-abcdef",
		ClientSecret: "client-secret-0123456789",
		AppName:      "My Twitter App",
	})

	resp := s.authorizedRequest("PUT", "/api/v1/credentials/twitter", token, body)
	resp.Body.Close()
	s.Equal(http.StatusOK, resp.StatusCode)

	resp = s.authorizedRequest("GET", "/api/v1/credentials/twitter", token, nil)
	s.Equal(http.StatusOK, resp.StatusCode)

	var summary service.CredentialsSummary
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&summary))
	resp.Body.Close()

	s.Equal("twitter", summary.Provider)
	s.Equal("My Twitter App", summary.AppName)
	s.True(summary.IsValid)
	s.NotEmpty(summary.ClientIDMasked)
	s.NotEqual("client-id-abcdef", summary.ClientIDMasked, "client id must be masked")

	resp = s.authorizedRequest("DELETE", "/api/v1/credentials/x", token, nil)
	resp.Body.Close()
	s.Equal(http.StatusOK, resp.StatusCode, "aliases address the same stored credentials")

	resp = s.authorizedRequest("GET", "/api/v1/credentials/twitter", token, nil)
	defer resp.Body.Close()
	s.Equal(http.StatusNotFound, resp.StatusCode)
}

func (s *Suite) TestCredentials_ValidationRejected() {
	token := s.issueToken("creds-invalid", domain.TierFree)

	body, _ := json.Marshal(dto.SaveCredentialsRequest{
		ClientID:     "client-id-abcdef",
		ClientSecret: "short",
	})

	resp := s.authorizedRequest("PUT", "/api/v1/credentials/twitter", token, body)
	defer resp.Body.Close()
	s.Equal(http.StatusBadRequest, resp.StatusCode)
}

func (s *Suite) TestCredentials_StoredEncrypted() {
	profileID := "creds-encrypted"
	token := s.issueToken(profileID, domain.TierPro)

	body, _ := json.Marshal(dto.SaveCredentialsRequest{
		ClientID:     "client-id-abcdef",
		ClientSecret: "client-secret-0123456789",
	})

	resp := s.authorizedRequest("PUT", "/api/v1/credentials/twitter", token, body)
	resp.Body.Close()
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	// The database row must hold ciphertext, never the raw credentials
	var clientIDEnc, clientSecretEnc string
	err := s.Postgres.DB.QueryRow(
		`SELECT client_id_enc, client_secret_enc FROM user_api_credentials WHERE profile_id = $1`,
		profileID,
	).Scan(&clientIDEnc, &clientSecretEnc)
	s.Require().NoError(err)

	s.NotEqual("client-id-abcdef", clientIDEnc)
	s.NotEqual("client-secret-0123456789", clientSecretEnc)

	clientID, err := s.Cipher.Decrypt(clientIDEnc)
	s.Require().NoError(err)
	s.Equal("client-id-abcdef", clientID)
}
