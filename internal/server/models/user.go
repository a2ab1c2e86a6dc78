// Package models defines server-side data models persisted in the database.
package models

import "time"

// User is the identity record shared by donors and beneficiaries.
// PasswordHash never leaves the server; outward views use Profile.
type User struct {
	ID           string
	Name         string
	LastName1    string
	LastName2    *string
	Email        string
	PasswordHash string
	Verified     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
