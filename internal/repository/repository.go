package repository

import (
	"github.com/repurpost/oauth-service/pkg/database"
)

// Repositories holds all repository interfaces
type Repositories struct {
	Connection     ConnectionRepository
	APICredentials APICredentialsRepository
}

// NewRepositories creates all repositories
func NewRepositories(db *database.Postgres) *Repositories {
	return &Repositories{
		Connection:     NewConnectionRepository(db),
		APICredentials: NewAPICredentialsRepository(db),
	}
}
