package profiles

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/donationhub/internal/common"
	"github.com/dmitrijs2005/donationhub/internal/dbx"
	"github.com/dmitrijs2005/donationhub/internal/server/models"
)

var tables = map[models.Role]string{
	models.RoleDonor:       "donors",
	models.RoleBeneficiary: "beneficiaries",
}

func tableFor(role models.Role) (string, error) {
	t, ok := tables[role]
	if !ok {
		return "", fmt.Errorf("%w: unknown role %q", common.ErrorBadRequest, role)
	}
	return t, nil
}

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, role models.Role, userID string) (*models.RoleProfile, error) {
	table, err := tableFor(role)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(
		`INSERT INTO %s (user_id)
         VALUES ($1)
		 RETURNING id, created_at, updated_at
		 `, table)

	p := &models.RoleProfile{Role: role, UserID: userID}
	if err := r.db.QueryRowContext(ctx, query, userID).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if dbx.IsUniqueViolation(err, "") {
			return nil, common.ErrorConflict
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return p, nil
}

func (r *PostgresRepository) GetCredentialsByEmail(ctx context.Context, role models.Role, email string) (*models.Credentials, error) {
	table, err := tableFor(role)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(
		`SELECT p.id, p.created_at, p.updated_at,
		        u.id, u.name, u.last_name_1, u.last_name_2, u.email, u.password, u.verified, u.created_at, u.updated_at
		 FROM %s p
		 JOIN users u ON u.id = p.user_id
		 WHERE u.email = $1 AND u.deleted_at IS NULL AND p.deleted_at IS NULL
		 `, table)

	c := &models.Credentials{Profile: models.RoleProfile{Role: role}}
	u := &c.User
	err = r.db.QueryRowContext(ctx, query, email).Scan(
		&c.Profile.ID, &c.Profile.CreatedAt, &c.Profile.UpdatedAt,
		&u.ID, &u.Name, &u.LastName1, &u.LastName2, &u.Email, &u.PasswordHash, &u.Verified, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	c.Profile.UserID = u.ID

	return c, nil
}

func (r *PostgresRepository) GetByUserID(ctx context.Context, role models.Role, userID string) (*models.RoleProfile, error) {
	table, err := tableFor(role)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(
		`SELECT id, created_at, updated_at
		 FROM %s
		 WHERE user_id = $1 AND deleted_at IS NULL
		 `, table)

	p := &models.RoleProfile{Role: role, UserID: userID}
	if err := r.db.QueryRowContext(ctx, query, userID).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return p, nil
}
