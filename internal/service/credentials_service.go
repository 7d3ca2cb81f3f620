package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/repurpost/oauth-service/internal/domain"
	"github.com/repurpost/oauth-service/internal/repository"
	"github.com/repurpost/oauth-service/internal/utils"
	"go.uber.org/zap"
)

// credentialsService implements CredentialsService
type credentialsService struct {
	credsRepo repository.APICredentialsRepository
	cipher    *utils.TokenCipher
	logger    *zap.Logger
}

// NewCredentialsService creates a new BYOK credentials service
func NewCredentialsService(credsRepo repository.APICredentialsRepository, cipher *utils.TokenCipher, logger *zap.Logger) CredentialsService {
	return &credentialsService{
		credsRepo: credsRepo,
		cipher:    cipher,
		logger:    logger,
	}
}

// Save validates, encrypts and stores user-supplied app credentials
func (s *credentialsService) Save(ctx context.Context, profileID, providerName, clientID, clientSecret, appName string) error {
	p, err := domain.ResolveProvider(providerName)
	if err != nil {
		return err
	}

	if clientID == "" || clientSecret == "" {
		return fmt.Errorf("client id and client secret are required: %w", ErrValidation)
	}
	if len(clientID) < 8 || len(clientSecret) < 16 {
		return fmt.Errorf("client credentials look truncated: %w", ErrValidation)
	}

	clientIDEnc, err := s.cipher.Encrypt(clientID)
	if err != nil {
		return fmt.Errorf("failed to encrypt client id: %w", err)
	}
	clientSecretEnc, err := s.cipher.Encrypt(clientSecret)
	if err != nil {
		return fmt.Errorf("failed to encrypt client secret: %w", err)
	}

	now := time.Now()
	creds := &domain.APICredentials{
		ProfileID:       profileID,
		Provider:        p,
		ClientIDEnc:     clientIDEnc,
		ClientSecretEnc: clientSecretEnc,
		AppName:         appName,
		IsValid:         true,
		LastTestedAt:    &now,
	}

	if err := s.credsRepo.Upsert(ctx, creds); err != nil {
		return fmt.Errorf("failed to save api credentials: %w", err)
	}

	s.logger.Info("API credentials saved",
		zap.String("profile_id", profileID),
		zap.String("provider", p.String()),
	)

	return nil
}

// Describe returns the masked view of stored credentials
func (s *credentialsService) Describe(ctx context.Context, profileID, providerName string) (*CredentialsSummary, error) {
	p, err := domain.ResolveProvider(providerName)
	if err != nil {
		return nil, err
	}

	creds, err := s.credsRepo.Get(ctx, profileID, p)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", p, ErrNotConnected)
		}
		return nil, fmt.Errorf("failed to load api credentials: %w", err)
	}

	clientID, err := s.cipher.Decrypt(creds.ClientIDEnc)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt client id: %w", err)
	}

	return &CredentialsSummary{
		Provider:       p.String(),
		AppName:        creds.AppName,
		ClientIDMasked: utils.MaskIdentifier(clientID),
		IsValid:        creds.IsValid,
		LastError:      creds.LastError,
		LastTestedAt:   creds.LastTestedAt,
	}, nil
}

// Delete removes stored credentials
func (s *credentialsService) Delete(ctx context.Context, profileID, providerName string) error {
	p, err := domain.ResolveProvider(providerName)
	if err != nil {
		return err
	}

	if err := s.credsRepo.Delete(ctx, profileID, p); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%s: %w", p, ErrNotConnected)
		}
		return fmt.Errorf("failed to delete api credentials: %w", err)
	}

	return nil
}
