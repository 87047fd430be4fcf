// Package identity stores identities, their roles and push device tokens in
// PostgreSQL and implements sign-up, sign-in, profile edits and role
// management on top of them.
package identity

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/gophadmin/internal/dbx"
	"github.com/dmitrijs2005/gophadmin/internal/server/models"
)

// Repository is the persistence port of the identity service.
type Repository interface {
	Create(ctx context.Context, u *models.Identity) (*models.Identity, error)
	GetByID(ctx context.Context, id string) (*models.Identity, error)
	GetByEmail(ctx context.Context, email string) (*models.Identity, error)
	SetRoles(ctx context.Context, userID string, roles []string) error
	UpdateProfile(ctx context.Context, u *models.Identity) (*models.Identity, error)
	Permissions(ctx context.Context, userID string) ([]models.Permission, error)
	List(ctx context.Context, q models.QueryOptions) ([]models.Identity, int64, error)
	AddDeviceToken(ctx context.Context, t *models.DeviceToken) error
	DeviceTokens(ctx context.Context, userID string) ([]string, error)
}

// Manager vends repositories bound to a connection or transaction and runs
// schema migrations.
type Manager interface {
	RunMigrations(ctx context.Context, db *sql.DB) error
	Identities(db dbx.DBTX) Repository
}
