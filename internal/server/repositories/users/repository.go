// Package users declares and implements persistence for User records.
package users

import (
	"context"

	"github.com/dmitrijs2005/donationhub/internal/server/models"
)

type Repository interface {
	// Create inserts user and fills its ID and timestamps. A taken email
	// yields common.ErrorConflict.
	Create(ctx context.Context, user *models.User) (*models.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
}
