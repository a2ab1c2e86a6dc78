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

// ImageStore hands out presigned URLs for donation images.
type ImageStore interface {
	PresignUpload(ctx context.Context) (key string, url string, err error)
	PresignDownload(ctx context.Context, key string) (string, error)
}

// Lookups answers reference-table questions.
type Lookups interface {
	ID(table models.LookupTable, key string) (string, error)
	Has(table models.LookupTable, id string) bool
}

// DonationListing is a donation as shown in the public listing.
type DonationListing struct {
	models.Donation
	ImageURL string `json:"image_url,omitempty"`
}

// NewDonation is what a donor submits.
type NewDonation struct {
	Name               string
	Description        string
	CategoryID         string
	CollectionCenterID string
	WithImage          bool
}

// CreatedDonation carries the stored row and, when an image was requested,
// the URL the client must PUT it to.
type CreatedDonation struct {
	Donation  models.Donation `json:"donation"`
	UploadURL string          `json:"upload_url,omitempty"`
}

// DonationFilter is the client-facing listing filter.
type DonationFilter struct {
	Name               string
	CategoryID         string
	CollectionCenterID string
}

type DonationService struct {
	db           *sql.DB
	repomanager  repomanager.RepositoryManager
	lookups      Lookups
	images       ImageStore
	defaultLimit int
	logger       logging.Logger
}

func NewDonationService(db *sql.DB, m repomanager.RepositoryManager, lookups Lookups, images ImageStore,
	defaultLimit int, logger logging.Logger) *DonationService {
	return &DonationService{
		db:           db,
		repomanager:  m,
		lookups:      lookups,
		images:       images,
		defaultLimit: defaultLimit,
		logger:       logger.With("module", "donations"),
	}
}

// ListDonations returns pending donations, newest first.
func (s *DonationService) ListDonations(ctx context.Context, page PageRequest, filter DonationFilter) (*Page[DonationListing], error) {
	page = page.normalize(s.defaultLimit)

	pendingID, err := s.lookups.ID(models.TableDonationStatus, common.DonationStatusPending)
	if err != nil {
		s.logger.Error(ctx, "pending status missing", "error", err)
		return nil, common.ErrorInternal
	}

	f := models.DonationFilter{
		StatusID:           pendingID,
		Name:               strings.TrimSpace(filter.Name),
		CategoryID:         filter.CategoryID,
		CollectionCenterID: filter.CollectionCenterID,
	}

	repo := s.repomanager.Donations(s.db)
	total, err := repo.Count(ctx, f)
	if err != nil {
		s.logger.Error(ctx, "donation count failed", "error", err)
		return nil, common.ErrorInternal
	}

	rows, err := repo.List(ctx, f, page.Limit, page.Offset())
	if err != nil {
		s.logger.Error(ctx, "donation list failed", "error", err)
		return nil, common.ErrorInternal
	}

	items := make([]DonationListing, 0, len(rows))
	for _, d := range rows {
		item := DonationListing{Donation: d}
		if d.ImageKey != "" && s.images != nil {
			url, err := s.images.PresignDownload(ctx, d.ImageKey)
			if err != nil {
				s.logger.Warn(ctx, "image url not presigned", "donation_id", d.ID, "error", err)
			}
			item.ImageURL = url
		}
		items = append(items, item)
	}

	return &Page[DonationListing]{Items: items, Meta: newMeta(page, total)}, nil
}

// CreateDonation stores a pending donation for the donor profile of userID.
func (s *DonationService) CreateDonation(ctx context.Context, userID string, in NewDonation) (*CreatedDonation, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	switch {
	case in.Name == "":
		return nil, badRequest("name is required")
	case in.Description == "":
		return nil, badRequest("description is required")
	}

	donor, err := s.repomanager.Profiles(s.db).GetByUserID(ctx, models.RoleDonor, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorForbidden
		}
		s.logger.Error(ctx, "donor lookup failed", "error", err)
		return nil, common.ErrorInternal
	}

	if !s.lookups.Has(models.TableCategories, in.CategoryID) {
		return nil, notFound("category")
	}
	if !s.lookups.Has(models.TableCollectionCenters, in.CollectionCenterID) {
		return nil, notFound("collection center")
	}

	pendingID, err := s.lookups.ID(models.TableDonationStatus, common.DonationStatusPending)
	if err != nil {
		s.logger.Error(ctx, "pending status missing", "error", err)
		return nil, common.ErrorInternal
	}

	out := &CreatedDonation{}
	d := models.Donation{
		DonorID:            donor.ID,
		CategoryID:         in.CategoryID,
		CollectionCenterID: in.CollectionCenterID,
		StatusID:           pendingID,
		Name:               in.Name,
		Description:        in.Description,
	}

	if in.WithImage {
		if s.images == nil {
			return nil, badRequest("image uploads are disabled")
		}
		d.ImageKey, out.UploadURL, err = s.images.PresignUpload(ctx)
		if err != nil {
			s.logger.Error(ctx, "upload url not presigned", "error", err)
			return nil, common.ErrorInternal
		}
	}

	if err := s.repomanager.Donations(s.db).Create(ctx, &d); err != nil {
		s.logger.Error(ctx, "donation not stored", "error", err)
		return nil, common.ErrorInternal
	}
	out.Donation = d

	s.logger.Info(ctx, "donation created", "donation_id", d.ID, "donor_id", donor.ID)
	return out, nil
}
