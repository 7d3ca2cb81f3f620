package handler

import (
	"context"

	"github.com/repurpost/oauth-service/internal/domain"
	"github.com/repurpost/oauth-service/internal/service"
)

// fakeTokenManager scripts TokenManager responses for handler tests
type fakeTokenManager struct {
	connections    []service.ConnectionSummary
	connectionsErr error

	health    *service.HealthStatus
	healthErr error

	disconnectErr error

	deleted   int64
	deleteErr error

	lastDeletedProvider string
	lastDeletedUserID   string
}

func (f *fakeTokenManager) GetValidAccessToken(context.Context, string, string) (string, error) {
	return "", nil
}

func (f *fakeTokenManager) CheckConnectionHealth(_ context.Context, _ string, providerName string) (*service.HealthStatus, error) {
	if _, err := domain.ResolveProvider(providerName); err != nil {
		return nil, err
	}
	if f.healthErr != nil {
		return nil, f.healthErr
	}
	return f.health, nil
}

func (f *fakeTokenManager) GetConnections(context.Context, string) ([]service.ConnectionSummary, error) {
	return f.connections, f.connectionsErr
}

func (f *fakeTokenManager) SaveConnection(context.Context, string, string, service.SaveConnectionParams) error {
	return nil
}

func (f *fakeTokenManager) Disconnect(_ context.Context, _ string, providerName string) error {
	if _, err := domain.ResolveProvider(providerName); err != nil {
		return err
	}
	return f.disconnectErr
}

func (f *fakeTokenManager) DisconnectAll(context.Context, string) error {
	return nil
}

func (f *fakeTokenManager) DisconnectByProviderUser(_ context.Context, providerName, providerUserID string) (int64, error) {
	f.lastDeletedProvider = providerName
	f.lastDeletedUserID = providerUserID
	return f.deleted, f.deleteErr
}
