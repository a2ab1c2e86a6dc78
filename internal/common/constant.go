package common

// Cookie names used to carry tokens between the HTTP API and browsers.
const (
	AccessTokenCookieName  = "access_token"
	RefreshTokenCookieName = "refresh_token"
)

// Token type keys seeded into the token_types table.
const (
	TokenTypeRefresh = "refresh"
	TokenTypeRecover = "recover"
	TokenTypeVerify  = "verify"
)

// Reference keys the server relies on at runtime.
const (
	DonationStatusPending   = "pending"
	DonationStatusAccepted  = "accepted"
	DonationStatusDelivered = "delivered"
	DonationStatusCancelled = "cancelled"

	RequestStatusRequested = "requested"
	RequestStatusFulfilled = "fulfilled"
	RequestStatusPending   = "pending"
	RequestStatusCancelled = "cancelled"
)
