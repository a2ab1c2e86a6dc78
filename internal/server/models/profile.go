package models

import (
	"fmt"
	"time"
)

// Role is the kind of role profile wrapping a User.
type Role string

const (
	RoleDonor       Role = "donor"
	RoleBeneficiary Role = "beneficiary"
)

// ParseRole accepts the lowercase role names used in routes and payloads.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleDonor, RoleBeneficiary:
		return Role(s), nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// RoleProfile is a donor or beneficiary record. Its ID is independent from
// the wrapped user's ID.
type RoleProfile struct {
	ID        string
	Role      Role
	UserID    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Credentials is what sign-in needs to know about a role profile.
type Credentials struct {
	Profile RoleProfile
	User    User
}

// Profile is the outward view of a signed-in role profile.
type Profile struct {
	ID        string  `json:"id"`
	Role      Role    `json:"role"`
	UserID    string  `json:"user_id"`
	Name      string  `json:"name"`
	LastName1 string  `json:"last_name_1"`
	LastName2 *string `json:"last_name_2,omitempty"`
	Email     string  `json:"email"`
	Verified  bool    `json:"verified"`
}

// NewProfile combines a role record and its user, dropping the password hash.
func NewProfile(rp RoleProfile, u User) Profile {
	return Profile{
		ID:        rp.ID,
		Role:      rp.Role,
		UserID:    u.ID,
		Name:      u.Name,
		LastName1: u.LastName1,
		LastName2: u.LastName2,
		Email:     u.Email,
		Verified:  u.Verified,
	}
}
