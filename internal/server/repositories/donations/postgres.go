package donations

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/donationhub/internal/dbx"
	"github.com/dmitrijs2005/donationhub/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, d *models.Donation) error {
	query :=
		`INSERT INTO donations (donor_id, category_id, collection_center_id, donation_status_id, name, description, image_key)
         VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, created_at, updated_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		d.DonorID, d.CategoryID, d.CollectionCenterID, d.StatusID, d.Name, d.Description, d.ImageKey).
		Scan(&d.ID, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

// where renders the WHERE clause for filter and its positional args.
func where(filter models.DonationFilter) (string, []any) {
	conds := []string{"deleted_at IS NULL"}
	var args []any

	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if filter.StatusID != "" {
		add("donation_status_id = $%d", filter.StatusID)
	}
	if filter.Name != "" {
		add("name ILIKE $%d", "%"+filter.Name+"%")
	}
	if filter.CategoryID != "" {
		add("category_id = $%d", filter.CategoryID)
	}
	if filter.CollectionCenterID != "" {
		add("collection_center_id = $%d", filter.CollectionCenterID)
	}

	return "WHERE " + strings.Join(conds, " AND "), args
}

func (r *PostgresRepository) List(ctx context.Context, filter models.DonationFilter, limit, offset int) ([]models.Donation, error) {
	cond, args := where(filter)
	args = append(args, limit, offset)

	query := fmt.Sprintf(
		`SELECT id, donor_id, category_id, collection_center_id, donation_status_id, name, description,
		        COALESCE(image_key, ''), created_at, updated_at
		 FROM donations
		 %s
		 ORDER BY created_at DESC
		 LIMIT $%d OFFSET $%d`, cond, len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make([]models.Donation, 0, limit)
	for rows.Next() {
		var d models.Donation
		if err := rows.Scan(&d.ID, &d.DonorID, &d.CategoryID, &d.CollectionCenterID, &d.StatusID,
			&d.Name, &d.Description, &d.ImageKey, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}

func (r *PostgresRepository) Count(ctx context.Context, filter models.DonationFilter) (int64, error) {
	cond, args := where(filter)
	query := `SELECT COUNT(*) FROM donations ` + cond

	var n int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
