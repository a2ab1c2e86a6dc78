// Package requests persists beneficiary requests.
package requests

import (
	"context"

	"github.com/dmitrijs2005/donationhub/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, r *models.Request) error
	ListByBeneficiary(ctx context.Context, beneficiaryID string, limit, offset int) ([]models.Request, error)
	CountByBeneficiary(ctx context.Context, beneficiaryID string) (int64, error)
}
