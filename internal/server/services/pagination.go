package services

import "math"

// MaxPageLimit caps the page size a client may ask for.
const MaxPageLimit = 100

// MaxPage keeps Offset from overflowing for any allowed limit.
const MaxPage = math.MaxInt / MaxPageLimit

// PageRequest is the raw page/limit pair a client sent.
type PageRequest struct {
	Page  int
	Limit int
}

func (p PageRequest) normalize(defaultLimit int) PageRequest {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Page > MaxPage {
		p.Page = MaxPage
	}
	if p.Limit < 1 {
		p.Limit = defaultLimit
	}
	if p.Limit < 1 {
		p.Limit = 1
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	return p
}

// Offset is the number of rows preceding the page.
func (p PageRequest) Offset() int {
	return (p.Page - 1) * p.Limit
}

// Meta describes the page that was returned.
type Meta struct {
	Page       int   `json:"page"`
	PerPage    int   `json:"per_page"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

func newMeta(p PageRequest, total int64) Meta {
	return Meta{
		Page:       p.Page,
		PerPage:    p.Limit,
		Total:      total,
		TotalPages: calcTotalPages(total, p.Limit),
	}
}

func calcTotalPages(total int64, limit int) int {
	if total <= 0 || limit <= 0 {
		return 0
	}
	return int((total + int64(limit) - 1) / int64(limit))
}

// Page is one slice of a listing.
type Page[T any] struct {
	Items []T
	Meta  Meta
}
