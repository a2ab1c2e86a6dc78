package tokens

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/donationhub/internal/common"
	"github.com/dmitrijs2005/donationhub/internal/dbx"
	"github.com/dmitrijs2005/donationhub/internal/server/models"
)

// PostgresRepository implements Repository over dbx.DBTX
// (satisfied by *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Save(ctx context.Context, token *models.Token) error {
	query := `
		INSERT INTO tokens (token, user_id, token_type_id, expires_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query, token.Token, token.UserID, token.TokenTypeID, token.ExpiresAt).
		Scan(&token.ID, &token.CreatedAt, &token.UpdatedAt)
	if err != nil {
		if dbx.IsUniqueViolation(err, "tokens_token_key") {
			return common.ErrorDuplicate
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetByValue(ctx context.Context, token string) (*models.Token, error) {
	query := `
		SELECT id, token, user_id, token_type_id, expires_at, created_at, updated_at
		FROM tokens
		WHERE token = $1 AND deleted_at IS NULL
	`
	t := &models.Token{}
	err := r.db.QueryRowContext(ctx, query, token).
		Scan(&t.ID, &t.Token, &t.UserID, &t.TokenTypeID, &t.ExpiresAt, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return t, nil
}

func (r *PostgresRepository) RevokeByValue(ctx context.Context, userID string, token string) error {
	query := `
		UPDATE tokens
		SET deleted_at = now(), updated_at = now()
		WHERE token = $1 AND user_id = $2 AND deleted_at IS NULL
	`
	res, err := r.db.ExecContext(ctx, query, token, userID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) GetTypeIDByKey(ctx context.Context, key string) (string, error) {
	query := `
		SELECT id
		FROM token_types
		WHERE key = $1
	`
	var id string
	if err := r.db.QueryRowContext(ctx, query, key).Scan(&id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", common.ErrorNotFound
		}
		return "", fmt.Errorf("db error: %w", err)
	}
	return id, nil
}

func (r *PostgresRepository) PurgeExpired(ctx context.Context, expiredBefore, revokedBefore time.Time) (int64, error) {
	query := `
		DELETE FROM tokens
		WHERE expires_at < $1 OR (deleted_at IS NOT NULL AND deleted_at < $2)
	`
	res, err := r.db.ExecContext(ctx, query, expiredBefore, revokedBefore)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
