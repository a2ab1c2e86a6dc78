// Package lookups reads the seeded key -> id reference tables.
package lookups

import (
	"context"

	"github.com/dmitrijs2005/donationhub/internal/server/models"
)

type Repository interface {
	List(ctx context.Context, table models.LookupTable) ([]models.LookupEntry, error)
}
