// Package donations persists donation listings.
package donations

import (
	"context"

	"github.com/dmitrijs2005/donationhub/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, d *models.Donation) error
	// List returns the donations matching filter, newest first.
	List(ctx context.Context, filter models.DonationFilter, limit, offset int) ([]models.Donation, error)
	Count(ctx context.Context, filter models.DonationFilter) (int64, error)
}
