package models

import "time"

// Donation is an item a donor offers.
type Donation struct {
	ID                 string    `json:"id"`
	DonorID            string    `json:"donor_id"`
	CategoryID         string    `json:"category_id"`
	CollectionCenterID string    `json:"collection_center_id"`
	StatusID           string    `json:"status_id"`
	Name               string    `json:"name"`
	Description        string    `json:"description"`
	ImageKey           string    `json:"image_key,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// DonationFilter narrows a donation listing. Empty fields do not filter.
type DonationFilter struct {
	StatusID           string
	Name               string
	CategoryID         string
	CollectionCenterID string
}

// Request is a beneficiary's ask for an item.
type Request struct {
	ID                 string    `json:"id"`
	BeneficiaryID      string    `json:"beneficiary_id"`
	CategoryID         string    `json:"category_id"`
	CollectionCenterID string    `json:"collection_center_id"`
	StatusID           string    `json:"status_id"`
	Description        string    `json:"description"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}
