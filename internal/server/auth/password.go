package auth

import (
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// DefaultHashCost matches the work factor used for stored passwords.
const DefaultHashCost = 10

// BcryptVerifier hashes and checks passwords with bcrypt.
type BcryptVerifier struct {
	cost int

	// dummy is compared against when an account does not exist so that
	// unknown emails cost as much as wrong passwords.
	dummyOnce sync.Once
	dummy     []byte
}

func NewBcryptVerifier(cost int) *BcryptVerifier {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultHashCost
	}
	return &BcryptVerifier{cost: cost}
}

func (v *BcryptVerifier) Hash(plain string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), v.cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Verify reports whether plain matches storedHash. An empty or malformed
// hash never matches.
func (v *BcryptVerifier) Verify(plain, storedHash string) bool {
	if storedHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(plain)) == nil
}

// Burn performs a throwaway comparison.
func (v *BcryptVerifier) Burn(plain string) {
	v.dummyOnce.Do(func() {
		v.dummy, _ = bcrypt.GenerateFromPassword([]byte("donationhub-dummy-password"), v.cost)
	})
	_ = bcrypt.CompareHashAndPassword(v.dummy, []byte(plain))
}
