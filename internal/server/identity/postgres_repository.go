package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/gophadmin/internal/common"
	"github.com/dmitrijs2005/gophadmin/internal/dbx"
	"github.com/dmitrijs2005/gophadmin/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
)

const pgUniqueViolation = "23505"

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const userColumns = `u.id, COALESCE(u.email, ''), u.display_name, u.password_hash, u.profile, u.preferences, u.created_at, u.updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanIdentity(row scanner) (*models.Identity, error) {
	u := &models.Identity{}
	var profile, prefs []byte
	if err := row.Scan(&u.ID, &u.Email, &u.DisplayName, &u.PasswordHash, &profile, &prefs, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	if len(profile) > 0 {
		u.Profile = &models.Profile{}
		if err := json.Unmarshal(profile, u.Profile); err != nil {
			return nil, fmt.Errorf("decode profile: %w", err)
		}
	}
	if len(prefs) > 0 {
		u.Preferences = &models.Preferences{}
		if err := json.Unmarshal(prefs, u.Preferences); err != nil {
			return nil, fmt.Errorf("decode preferences: %w", err)
		}
	}
	return u, nil
}

// jsonArg encodes an optional sub-record for a JSONB column; nil stays NULL.
func jsonArg[T any](v *T) (any, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (r *PostgresRepository) Create(ctx context.Context, u *models.Identity) (*models.Identity, error) {
	profile, err := jsonArg(u.Profile)
	if err != nil {
		return nil, err
	}
	prefs, err := jsonArg(u.Preferences)
	if err != nil {
		return nil, err
	}

	query :=
		`INSERT INTO users (id, email, display_name, password_hash, profile, preferences)
		 VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6)
		 RETURNING created_at, updated_at
		 `

	err = r.db.QueryRowContext(ctx, query,
		u.ID, u.Email, u.DisplayName, u.PasswordHash, profile, prefs).Scan(&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return u, nil
}

func (r *PostgresRepository) get(ctx context.Context, where string, arg any) (*models.Identity, error) {
	query := `SELECT ` + userColumns + ` FROM users u WHERE ` + where

	u, err := scanIdentity(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if err = dbx.NotFound(err); errors.Is(err, common.ErrorNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	roles, err := r.roles(ctx, []string{u.ID})
	if err != nil {
		return nil, err
	}
	u.Roles = roles[u.ID]
	return u, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Identity, error) {
	return r.get(ctx, `u.id = $1`, id)
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.Identity, error) {
	return r.get(ctx, `lower(u.email) = lower($1)`, email)
}

// roles loads the ordered role labels of the given users.
func (r *PostgresRepository) roles(ctx context.Context, ids []string) (map[string][]string, error) {
	out := make(map[string][]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	ph := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		ph[i] = "$" + strconv.Itoa(i+1)
		args[i] = id
	}
	query := `SELECT user_id, role FROM user_roles WHERE user_id IN (` + strings.Join(ph, ", ") + `) ORDER BY user_id, position`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id, role string
		if err := rows.Scan(&id, &role); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out[id] = append(out[id], role)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

// SetRoles replaces the roles of a user; the first one becomes the primary
// role. Callers wrap it in a transaction.
func (r *PostgresRepository) SetRoles(ctx context.Context, userID string, roles []string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM user_roles WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	for i, role := range roles {
		_, err := r.db.ExecContext(ctx,
			`INSERT INTO user_roles (user_id, role, position) VALUES ($1, $2, $3)`,
			userID, role, i)
		if err != nil {
			return fmt.Errorf("db error: %w", err)
		}
	}
	return nil
}

func (r *PostgresRepository) UpdateProfile(ctx context.Context, u *models.Identity) (*models.Identity, error) {
	profile, err := jsonArg(u.Profile)
	if err != nil {
		return nil, err
	}
	prefs, err := jsonArg(u.Preferences)
	if err != nil {
		return nil, err
	}

	query :=
		`UPDATE users SET display_name = $2, profile = $3, preferences = $4, updated_at = now()
		 WHERE id = $1
		 RETURNING updated_at
		 `

	if err := r.db.QueryRowContext(ctx, query, u.ID, u.DisplayName, profile, prefs).Scan(&u.UpdatedAt); err != nil {
		if err = dbx.NotFound(err); errors.Is(err, common.ErrorNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return u, nil
}

func (r *PostgresRepository) Permissions(ctx context.Context, userID string) ([]models.Permission, error) {
	query :=
		`SELECT DISTINCT p.id, p.name, p.resource, p.action
		 FROM permissions p
		 JOIN role_permissions rp ON rp.permission_id = p.id
		 JOIN user_roles ur ON ur.role = rp.role
		 WHERE ur.user_id = $1
		 ORDER BY p.id
		 `

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var perms []models.Permission
	for rows.Next() {
		var p models.Permission
		if err := rows.Scan(&p.ID, &p.Name, &p.Resource, &p.Action); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		perms = append(perms, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return perms, nil
}

// List returns one page of identities matching q and the total number of
// matches.
func (r *PostgresRepository) List(ctx context.Context, q models.QueryOptions) ([]models.Identity, int64, error) {
	lq, err := compileQuery(q)
	if err != nil {
		return nil, 0, err
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM users u`+lq.where, lq.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("db error: %w", err)
	}

	n := len(lq.args)
	query := `SELECT ` + userColumns + ` FROM users u` + lq.where + lq.orderBy +
		` LIMIT $` + strconv.Itoa(n+1) + ` OFFSET $` + strconv.Itoa(n+2)
	args := append(append([]any{}, lq.args...), lq.limit, lq.offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var users []models.Identity
	var ids []string
	for rows.Next() {
		u, err := scanIdentity(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("db error: %w", err)
		}
		u.PasswordHash = ""
		users = append(users, *u)
		ids = append(ids, u.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("db error: %w", err)
	}

	roles, err := r.roles(ctx, ids)
	if err != nil {
		return nil, 0, err
	}
	for i := range users {
		users[i].Roles = roles[users[i].ID]
	}
	return users, total, nil
}

// AddDeviceToken registers a push token. A token already registered moves
// to the new owner.
func (r *PostgresRepository) AddDeviceToken(ctx context.Context, t *models.DeviceToken) error {
	query :=
		`INSERT INTO device_tokens (id, user_id, token, platform)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (token) DO UPDATE SET user_id = EXCLUDED.user_id, platform = EXCLUDED.platform
		 RETURNING id
		 `

	if err := r.db.QueryRowContext(ctx, query, t.ID, t.UserID, t.Token, t.Platform).Scan(&t.ID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) DeviceTokens(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT token FROM device_tokens WHERE user_id = $1 ORDER BY created_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var tokens []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		tokens = append(tokens, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return tokens, nil
}
