package models

import "time"

// Token is a persisted refresh token. A row with DeletedAt == nil is live.
type Token struct {
	ID          string
	Token       string
	UserID      string
	TokenTypeID string
	ExpiresAt   time.Time
	DeletedAt   *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
