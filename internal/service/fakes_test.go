package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/repurpost/oauth-service/internal/domain"
	"github.com/repurpost/oauth-service/internal/repository"
	"golang.org/x/oauth2"
)

// fakeConnRepo is an in-memory ConnectionRepository for service tests
type fakeConnRepo struct {
	mu    sync.Mutex
	conns map[string]*domain.Connection
}

func newFakeConnRepo() *fakeConnRepo {
	return &fakeConnRepo{conns: make(map[string]*domain.Connection)}
}

func connKey(profileID string, p domain.Provider) string {
	return profileID + "/" + p.String()
}

func cloneConn(c *domain.Connection) *domain.Connection {
	clone := *c
	if c.ExpiresAt != nil {
		expiry := *c.ExpiresAt
		clone.ExpiresAt = &expiry
	}
	return &clone
}

func (r *fakeConnRepo) Upsert(_ context.Context, conn *domain.Connection) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := connKey(conn.ProfileID, conn.Provider)
	stored := cloneConn(conn)
	now := time.Now()
	if existing, ok := r.conns[key]; ok {
		stored.ID = existing.ID
		stored.CreatedAt = existing.CreatedAt
	} else {
		stored.ID = uuid.New().String()
		stored.CreatedAt = now
	}
	stored.UpdatedAt = now
	r.conns[key] = stored
	return nil
}

func (r *fakeConnRepo) Get(_ context.Context, profileID string, p domain.Provider) (*domain.Connection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.conns[connKey(profileID, p)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneConn(conn), nil
}

func (r *fakeConnRepo) GetByProfile(_ context.Context, profileID string) ([]*domain.Connection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result []*domain.Connection
	for _, conn := range r.conns {
		if conn.ProfileID == profileID {
			result = append(result, cloneConn(conn))
		}
	}
	return result, nil
}

func (r *fakeConnRepo) SetActive(_ context.Context, profileID string, p domain.Provider, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.conns[connKey(profileID, p)]
	if !ok {
		return repository.ErrNotFound
	}
	conn.IsActive = active
	return nil
}

func (r *fakeConnRepo) Delete(_ context.Context, profileID string, p domain.Provider) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := connKey(profileID, p)
	if _, ok := r.conns[key]; !ok {
		return repository.ErrNotFound
	}
	delete(r.conns, key)
	return nil
}

func (r *fakeConnRepo) DeleteAllForProfile(_ context.Context, profileID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for key, conn := range r.conns {
		if conn.ProfileID == profileID {
			delete(r.conns, key)
		}
	}
	return nil
}

func (r *fakeConnRepo) DeleteByProviderUser(_ context.Context, p domain.Provider, providerUserID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var deleted int64
	for key, conn := range r.conns {
		if conn.Provider != p {
			continue
		}
		var meta map[string]interface{}
		if err := json.Unmarshal(conn.Metadata, &meta); err != nil {
			continue
		}
		if id, ok := meta["user_id"].(string); ok && id == providerUserID {
			delete(r.conns, key)
			deleted++
		}
	}
	return deleted, nil
}

// fakeCredsRepo is an in-memory APICredentialsRepository for service tests
type fakeCredsRepo struct {
	mu    sync.Mutex
	creds map[string]*domain.APICredentials
}

func newFakeCredsRepo() *fakeCredsRepo {
	return &fakeCredsRepo{creds: make(map[string]*domain.APICredentials)}
}

func (r *fakeCredsRepo) Upsert(_ context.Context, creds *domain.APICredentials) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	clone := *creds
	if clone.ID == "" {
		clone.ID = uuid.New().String()
	}
	r.creds[connKey(creds.ProfileID, creds.Provider)] = &clone
	return nil
}

func (r *fakeCredsRepo) Get(_ context.Context, profileID string, p domain.Provider) (*domain.APICredentials, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	creds, ok := r.creds[connKey(profileID, p)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	clone := *creds
	return &clone, nil
}

func (r *fakeCredsRepo) MarkTested(_ context.Context, profileID string, p domain.Provider, valid bool, lastError *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	creds, ok := r.creds[connKey(profileID, p)]
	if !ok {
		return repository.ErrNotFound
	}
	now := time.Now()
	creds.IsValid = valid
	creds.LastError = lastError
	creds.LastTestedAt = &now
	return nil
}

func (r *fakeCredsRepo) Delete(_ context.Context, profileID string, p domain.Provider) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := connKey(profileID, p)
	if _, ok := r.creds[key]; !ok {
		return repository.ErrNotFound
	}
	delete(r.creds, key)
	return nil
}

// fakeRefresher scripts provider refresh outcomes and counts calls
type fakeRefresher struct {
	mu sync.Mutex

	refreshCalls int
	clientCalls  int

	lastClientID     string
	lastClientSecret string

	refreshFn func(p domain.Provider, refreshToken string) (*oauth2.Token, error)
	clientFn  func(p domain.Provider, refreshToken string) (*oauth2.Token, error)
}

func (f *fakeRefresher) Configured(domain.Provider) bool { return true }

func (f *fakeRefresher) Refresh(_ context.Context, p domain.Provider, refreshToken string) (*oauth2.Token, error) {
	f.mu.Lock()
	f.refreshCalls++
	fn := f.refreshFn
	f.mu.Unlock()

	return fn(p, refreshToken)
}

func (f *fakeRefresher) RefreshWithClient(_ context.Context, p domain.Provider, clientID, clientSecret, refreshToken string) (*oauth2.Token, error) {
	f.mu.Lock()
	f.clientCalls++
	f.lastClientID = clientID
	f.lastClientSecret = clientSecret
	fn := f.clientFn
	f.mu.Unlock()

	return fn(p, refreshToken)
}

func (f *fakeRefresher) calls() (refresh, client int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.refreshCalls, f.clientCalls
}
