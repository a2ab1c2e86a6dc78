package requests

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/donationhub/internal/dbx"
	"github.com/dmitrijs2005/donationhub/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, req *models.Request) error {
	query :=
		`INSERT INTO requests (beneficiary_id, category_id, collection_center_id, request_status_id, description)
         VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at, updated_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		req.BeneficiaryID, req.CategoryID, req.CollectionCenterID, req.StatusID, req.Description).
		Scan(&req.ID, &req.CreatedAt, &req.UpdatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

func (r *PostgresRepository) ListByBeneficiary(ctx context.Context, beneficiaryID string, limit, offset int) ([]models.Request, error) {
	query :=
		`SELECT id, beneficiary_id, category_id, collection_center_id, request_status_id, description, created_at, updated_at
		 FROM requests
		 WHERE beneficiary_id = $1 AND deleted_at IS NULL
		 ORDER BY created_at DESC
		 LIMIT $2 OFFSET $3`

	rows, err := r.db.QueryContext(ctx, query, beneficiaryID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make([]models.Request, 0, limit)
	for rows.Next() {
		var req models.Request
		if err := rows.Scan(&req.ID, &req.BeneficiaryID, &req.CategoryID, &req.CollectionCenterID,
			&req.StatusID, &req.Description, &req.CreatedAt, &req.UpdatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}

func (r *PostgresRepository) CountByBeneficiary(ctx context.Context, beneficiaryID string) (int64, error) {
	query := `SELECT COUNT(*) FROM requests WHERE beneficiary_id = $1 AND deleted_at IS NULL`

	var n int64
	if err := r.db.QueryRowContext(ctx, query, beneficiaryID).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
