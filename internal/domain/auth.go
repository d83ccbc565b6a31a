package domain

import "time"

// RefreshToken is the persisted form of an issued refresh token. Only the hash is stored.
type RefreshToken struct {
	ID        string
	UserID    string
	TokenHash string
	ExpiresAt time.Time
	RotatedAt *time.Time
	CreatedAt time.Time
}

// Usable reports whether the token can still be exchanged at now.
func (t *RefreshToken) Usable(now time.Time) bool {
	return t.RotatedAt == nil && now.Before(t.ExpiresAt)
}

// LoginAttempt is one recorded login try for an (email, ip) pair.
type LoginAttempt struct {
	Email     string
	IP        string
	Timestamp time.Time
	Success   bool
}

// TokenPair is returned by login and refresh.
type TokenPair struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}
