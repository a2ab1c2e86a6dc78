// Package tokens declares the store for persisted refresh tokens.
package tokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/donationhub/internal/server/models"
)

// Repository persists refresh tokens. Revocation is a soft delete, and every
// lookup only sees live rows.
type Repository interface {
	// Save inserts token and fills its ID and timestamps. A token value that
	// already exists yields common.ErrorDuplicate.
	Save(ctx context.Context, token *models.Token) error

	// GetByValue returns the live row for token, or common.ErrorNotFound.
	GetByValue(ctx context.Context, token string) (*models.Token, error)

	// RevokeByValue soft-deletes the live row matching both token and userID.
	// It returns common.ErrorNotFound when no such row exists, which is also
	// what a concurrent caller that lost the race observes.
	RevokeByValue(ctx context.Context, userID string, token string) error

	// GetTypeIDByKey resolves a token_types key, or common.ErrorNotFound.
	GetTypeIDByKey(ctx context.Context, key string) (string, error)

	// PurgeExpired hard-deletes rows that expired before expiredBefore or were
	// revoked before revokedBefore, returning how many were removed.
	PurgeExpired(ctx context.Context, expiredBefore, revokedBefore time.Time) (int64, error)
}
