package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/dmitrijs2005/donationhub/internal/common"
	"github.com/dmitrijs2005/donationhub/internal/logging"
	"github.com/dmitrijs2005/donationhub/internal/server/models"
	"github.com/dmitrijs2005/donationhub/internal/server/repositories/repomanager"
)

// NewRequest is what a beneficiary submits.
type NewRequest struct {
	Description        string
	CategoryID         string
	CollectionCenterID string
}

type RequestService struct {
	db           *sql.DB
	repomanager  repomanager.RepositoryManager
	lookups      Lookups
	defaultLimit int
	logger       logging.Logger
}

func NewRequestService(db *sql.DB, m repomanager.RepositoryManager, lookups Lookups, defaultLimit int, logger logging.Logger) *RequestService {
	return &RequestService{
		db:           db,
		repomanager:  m,
		lookups:      lookups,
		defaultLimit: defaultLimit,
		logger:       logger.With("module", "requests"),
	}
}

func (s *RequestService) beneficiary(ctx context.Context, userID string) (*models.RoleProfile, error) {
	p, err := s.repomanager.Profiles(s.db).GetByUserID(ctx, models.RoleBeneficiary, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorForbidden
		}
		s.logger.Error(ctx, "beneficiary lookup failed", "error", err)
		return nil, common.ErrorInternal
	}
	return p, nil
}

// CreateRequest stores a request in the requested state.
func (s *RequestService) CreateRequest(ctx context.Context, userID string, in NewRequest) (*models.Request, error) {
	in.Description = strings.TrimSpace(in.Description)
	if in.Description == "" {
		return nil, badRequest("description is required")
	}

	b, err := s.beneficiary(ctx, userID)
	if err != nil {
		return nil, err
	}

	if !s.lookups.Has(models.TableCategories, in.CategoryID) {
		return nil, notFound("category")
	}
	if !s.lookups.Has(models.TableCollectionCenters, in.CollectionCenterID) {
		return nil, notFound("collection center")
	}

	statusID, err := s.lookups.ID(models.TableRequestStatus, common.RequestStatusRequested)
	if err != nil {
		s.logger.Error(ctx, "requested status missing", "error", err)
		return nil, common.ErrorInternal
	}

	r := &models.Request{
		BeneficiaryID:      b.ID,
		CategoryID:         in.CategoryID,
		CollectionCenterID: in.CollectionCenterID,
		StatusID:           statusID,
		Description:        in.Description,
	}
	if err := s.repomanager.Requests(s.db).Create(ctx, r); err != nil {
		s.logger.Error(ctx, "request not stored", "error", err)
		return nil, common.ErrorInternal
	}

	s.logger.Info(ctx, "request created", "request_id", r.ID, "beneficiary_id", b.ID)
	return r, nil
}

// ListRequests returns the caller's own requests, newest first.
func (s *RequestService) ListRequests(ctx context.Context, userID string, page PageRequest) (*Page[models.Request], error) {
	page = page.normalize(s.defaultLimit)

	b, err := s.beneficiary(ctx, userID)
	if err != nil {
		return nil, err
	}

	repo := s.repomanager.Requests(s.db)
	total, err := repo.CountByBeneficiary(ctx, b.ID)
	if err != nil {
		s.logger.Error(ctx, "request count failed", "error", err)
		return nil, common.ErrorInternal
	}

	rows, err := repo.ListByBeneficiary(ctx, b.ID, page.Limit, page.Offset())
	if err != nil {
		s.logger.Error(ctx, "request list failed", "error", err)
		return nil, common.ErrorInternal
	}
	if rows == nil {
		rows = []models.Request{}
	}

	return &Page[models.Request]{Items: rows, Meta: newMeta(page, total)}, nil
}
