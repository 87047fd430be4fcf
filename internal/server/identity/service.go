package identity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/mail"
	"slices"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophadmin/internal/common"
	"github.com/dmitrijs2005/gophadmin/internal/dbx"
	"github.com/dmitrijs2005/gophadmin/internal/logging"
	"github.com/dmitrijs2005/gophadmin/internal/server/auth"
	"github.com/dmitrijs2005/gophadmin/internal/server/config"
	"github.com/dmitrijs2005/gophadmin/internal/server/models"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 8

// AssignableRoles are the labels an administrator may grant.
var AssignableRoles = []string{common.RoleAdmin, common.RoleEditor, common.RoleUser}

// ProfileUpdate carries the fields of a profile edit; nil fields are kept.
type ProfileUpdate struct {
	DisplayName *string             `json:"displayName,omitempty"`
	Profile     *models.Profile     `json:"profile,omitempty"`
	Preferences *models.Preferences `json:"preferences,omitempty"`
}

// Service implements account flows on top of a Manager's repositories.
type Service struct {
	db                          *sql.DB
	manager                     Manager
	logger                      logging.Logger
	jwtSecret                   []byte
	accessTokenValidityDuration time.Duration
}

func NewService(db *sql.DB, m Manager, cfg *config.Config, logger logging.Logger) *Service {
	return &Service{
		db:                          db,
		manager:                     m,
		logger:                      logger.With("module", "identity"),
		jwtSecret:                   []byte(cfg.SecretKey),
		accessTokenValidityDuration: cfg.AccessTokenValidityDuration,
	}
}

// Register creates an account with the default "user" role.
func (s *Service) Register(ctx context.Context, email, password, displayName string) (*models.Identity, error) {
	email = strings.TrimSpace(email)
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, fmt.Errorf("%w: invalid email", common.ErrorValidation)
	}
	if len(password) < minPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", common.ErrorValidation, minPasswordLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, common.ErrorInternal
	}

	u := &models.Identity{
		ID:           uuid.NewString(),
		Email:        email,
		DisplayName:  strings.TrimSpace(displayName),
		Roles:        []string{common.RoleUser},
		PasswordHash: string(hash),
	}

	if err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.manager.Identities(tx)
		if _, err := repo.Create(ctx, u); err != nil {
			return err
		}
		return repo.SetRoles(ctx, u.ID, u.Roles)
	}); err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, err
		}
		return nil, fmt.Errorf("error creating user: %w", err)
	}

	s.logger.Info(ctx, "user registered", "user_id", u.ID)
	u.PasswordHash = ""
	return u, nil
}

// Login checks credentials and returns a signed access token.
func (s *Service) Login(ctx context.Context, email, password string) (string, *models.Identity, error) {
	u, err := s.manager.Identities(s.db).GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return "", nil, common.ErrorUnauthorized
		}
		return "", nil, common.ErrorInternal
	}

	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return "", nil, common.ErrorUnauthorized
	}
	u.PasswordHash = ""

	token, err := auth.GenerateToken(u, s.jwtSecret, s.accessTokenValidityDuration)
	if err != nil {
		return "", nil, common.ErrorInternal
	}
	return token, u, nil
}

// EnsureExternal returns the stored record of a principal verified by an
// external provider, creating it on first sight. Roles carried by the
// provider are kept when known, otherwise the account starts as "user".
func (s *Service) EnsureExternal(ctx context.Context, ext *models.Identity) (*models.Identity, error) {
	if ext == nil || strings.TrimSpace(ext.ID) == "" {
		return nil, fmt.Errorf("%w: identity id is required", common.ErrorValidation)
	}

	repo := s.manager.Identities(s.db)
	u, err := repo.GetByID(ctx, ext.ID)
	if err == nil {
		u.PasswordHash = ""
		return u, nil
	}
	if !errors.Is(err, common.ErrorNotFound) {
		return nil, err
	}

	var roles []string
	for _, r := range ext.Roles {
		if slices.Contains(AssignableRoles, r) && !slices.Contains(roles, r) {
			roles = append(roles, r)
		}
	}
	if len(roles) == 0 {
		roles = []string{common.RoleUser}
	}

	u = &models.Identity{
		ID:          ext.ID,
		Email:       strings.TrimSpace(ext.Email),
		DisplayName: strings.TrimSpace(ext.DisplayName),
		Roles:       roles,
		Provider:    ext.Provider,
	}
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.manager.Identities(tx)
		if _, err := repo.Create(ctx, u); err != nil {
			return err
		}
		return repo.SetRoles(ctx, u.ID, u.Roles)
	})
	if errors.Is(err, common.ErrorAlreadyExists) {
		// a concurrent request may have created it first
		if existing, getErr := repo.GetByID(ctx, ext.ID); getErr == nil {
			existing.PasswordHash = ""
			return existing, nil
		}
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("error provisioning user: %w", err)
	}

	s.logger.Info(ctx, "external user provisioned", "user_id", u.ID, "provider", u.Provider)
	return u, nil
}

// Get loads an identity with its effective permissions.
func (s *Service) Get(ctx context.Context, id string) (*models.Identity, error) {
	repo := s.manager.Identities(s.db)

	u, err := repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	u.PasswordHash = ""

	perms, err := repo.Permissions(ctx, id)
	if err != nil {
		return nil, err
	}
	u.Permissions = perms
	return u, nil
}

// UpdateProfile applies a profile edit and returns the stored identity.
func (s *Service) UpdateProfile(ctx context.Context, id string, upd ProfileUpdate) (*models.Identity, error) {
	var out *models.Identity
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.manager.Identities(tx)

		u, err := repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if upd.DisplayName != nil {
			u.DisplayName = strings.TrimSpace(*upd.DisplayName)
		}
		if upd.Profile != nil {
			u.Profile = upd.Profile
		}
		if upd.Preferences != nil {
			u.Preferences = upd.Preferences
		}

		out, err = repo.UpdateProfile(ctx, u)
		return err
	})
	if err != nil {
		return nil, err
	}
	out.PasswordHash = ""
	return out, nil
}

// SetRoles replaces the roles of a user. The first role is the primary one.
func (s *Service) SetRoles(ctx context.Context, id string, roles []string) (*models.Identity, error) {
	if len(roles) == 0 {
		return nil, fmt.Errorf("%w: at least one role is required", common.ErrorValidation)
	}
	seen := make(map[string]bool, len(roles))
	for _, r := range roles {
		if !slices.Contains(AssignableRoles, r) {
			return nil, fmt.Errorf("%w: unknown role %q", common.ErrorValidation, r)
		}
		if seen[r] {
			return nil, fmt.Errorf("%w: duplicate role %q", common.ErrorValidation, r)
		}
		seen[r] = true
	}

	var out *models.Identity
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.manager.Identities(tx)

		u, err := repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := repo.SetRoles(ctx, id, roles); err != nil {
			return err
		}
		u.Roles = roles
		out = u
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "roles changed", "user_id", id, "roles", roles)
	out.PasswordHash = ""
	return out, nil
}

// List returns one page of identities and the total match count.
func (s *Service) List(ctx context.Context, q models.QueryOptions) ([]models.Identity, int64, error) {
	return s.manager.Identities(s.db).List(ctx, q)
}

// RegisterDevice stores a push token for the user.
func (s *Service) RegisterDevice(ctx context.Context, userID, token, platform string) (*models.DeviceToken, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, fmt.Errorf("%w: token is required", common.ErrorValidation)
	}

	t := &models.DeviceToken{
		ID:       uuid.NewString(),
		UserID:   userID,
		Token:    token,
		Platform: platform,
	}
	if err := s.manager.Identities(s.db).AddDeviceToken(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// DeviceTokens lists the push tokens of a user.
func (s *Service) DeviceTokens(ctx context.Context, userID string) ([]string, error) {
	return s.manager.Identities(s.db).DeviceTokens(ctx, userID)
}
