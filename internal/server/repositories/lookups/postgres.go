package lookups

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/donationhub/internal/common"
	"github.com/dmitrijs2005/donationhub/internal/dbx"
	"github.com/dmitrijs2005/donationhub/internal/server/models"
)

var allowed = map[models.LookupTable]struct{}{
	models.TableTokenTypes:        {},
	models.TableCategories:        {},
	models.TableDonationStatus:    {},
	models.TableRequestStatus:     {},
	models.TableCollectionCenters: {},
}

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// List returns every row of table ordered by key.
func (r *PostgresRepository) List(ctx context.Context, table models.LookupTable) ([]models.LookupEntry, error) {
	if _, ok := allowed[table]; !ok {
		return nil, fmt.Errorf("%w: unknown lookup table %q", common.ErrorInternal, table)
	}

	query := fmt.Sprintf(`SELECT id, key FROM %s ORDER BY key`, table)

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []models.LookupEntry
	for rows.Next() {
		var e models.LookupEntry
		if err := rows.Scan(&e.ID, &e.Key); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}
