// Package profiles persists role profiles. Donors and beneficiaries live in
// separate tables with the same shape, so one implementation serves both.
package profiles

import (
	"context"

	"github.com/dmitrijs2005/donationhub/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, role models.Role, userID string) (*models.RoleProfile, error)
	// GetCredentialsByEmail returns the role profile and its user, password
	// hash included. It yields common.ErrorNotFound when the email has no
	// profile of that role.
	GetCredentialsByEmail(ctx context.Context, role models.Role, email string) (*models.Credentials, error)
	GetByUserID(ctx context.Context, role models.Role, userID string) (*models.RoleProfile, error)
}
