package auth

import "time"

// DefaultRotationThreshold is the fraction of the refresh lifetime below which
// a refresh token gets replaced.
const DefaultRotationThreshold = 0.25

// RotationPolicy decides whether a refresh call must rotate the refresh token.
type RotationPolicy struct {
	Lifetime  time.Duration
	Threshold float64
}

func NewRotationPolicy(lifetime time.Duration, threshold float64) RotationPolicy {
	if threshold <= 0 || threshold >= 1 {
		threshold = DefaultRotationThreshold
	}
	return RotationPolicy{Lifetime: lifetime, Threshold: threshold}
}

// ShouldRotate reports whether the time left before expiresAt is below
// Threshold of Lifetime. An already expired token always rotates.
func (p RotationPolicy) ShouldRotate(expiresAt, now time.Time) bool {
	remaining := expiresAt.Sub(now)
	return remaining < time.Duration(float64(p.Lifetime)*p.Threshold)
}
