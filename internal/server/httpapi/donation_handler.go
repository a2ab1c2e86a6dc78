package httpapi

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/dmitrijs2005/donationhub/internal/common"
	"github.com/dmitrijs2005/donationhub/internal/server/models"
	"github.com/dmitrijs2005/donationhub/internal/server/services"
)

type createDonationRequest struct {
	Name               string `json:"name"`
	Description        string `json:"description"`
	CategoryID         string `json:"category_id"`
	CollectionCenterID string `json:"collection_center_id"`
	WithImage          bool   `json:"with_image"`
}

type createRequestRequest struct {
	Description        string `json:"description"`
	CategoryID         string `json:"category_id"`
	CollectionCenterID string `json:"collection_center_id"`
}

func intParam(q url.Values, name string) (int, error) {
	raw := q.Get(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", common.ErrorBadRequest, name)
	}
	return v, nil
}

func pageFromQuery(q url.Values) (services.PageRequest, error) {
	page, err := intParam(q, "page")
	if err != nil {
		return services.PageRequest{}, err
	}
	limit, err := intParam(q, "limit")
	if err != nil {
		return services.PageRequest{}, err
	}
	return services.PageRequest{Page: page, Limit: limit}, nil
}

func (s *HTTPServer) listDonations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := pageFromQuery(q)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	res, err := s.donations.ListDonations(r.Context(), page, services.DonationFilter{
		Name:               q.Get("name"),
		CategoryID:         q.Get("category_id"),
		CollectionCenterID: q.Get("collection_center_id"),
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, "donations", res.Items, res.Meta)
}

func (s *HTTPServer) createDonation(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r.Context())

	var req createDonationRequest
	if err := decode(w, r, &req, false); err != nil {
		s.fail(w, r, err)
		return
	}

	res, err := s.donations.CreateDonation(r.Context(), userID, services.NewDonation{
		Name:               req.Name,
		Description:        req.Description,
		CategoryID:         req.CategoryID,
		CollectionCenterID: req.CollectionCenterID,
		WithImage:          req.WithImage,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, "donation created", res, nil)
}

func (s *HTTPServer) listRequests(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r.Context())

	page, err := pageFromQuery(r.URL.Query())
	if err != nil {
		s.fail(w, r, err)
		return
	}

	res, err := s.requests.ListRequests(r.Context(), userID, page)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, "requests", res.Items, res.Meta)
}

func (s *HTTPServer) createRequest(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r.Context())

	var req createRequestRequest
	if err := decode(w, r, &req, false); err != nil {
		s.fail(w, r, err)
		return
	}

	res, err := s.requests.CreateRequest(r.Context(), userID, services.NewRequest{
		Description:        req.Description,
		CategoryID:         req.CategoryID,
		CollectionCenterID: req.CollectionCenterID,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, "request created", res, nil)
}

func (s *HTTPServer) listReference(table models.LookupTable) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, string(table), s.reference.Entries(table), nil)
	}
}
