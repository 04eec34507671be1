package model

import (
	"time"
)

// Session is the credential issued by a successful pairing. Only the
// SHA-256 hash of the token is stored; the raw token is returned to the
// device exactly once. Sessions are immutable and expire lazily.
type Session struct {
	ID        string    `db:"id" json:"id"`
	TokenHash string    `db:"token_hash" json:"-"`
	UserID    string    `db:"user_id" json:"userId"`
	DeviceID  string    `db:"device_id" json:"deviceId"`
	IssuedAt  time.Time `db:"issued_at" json:"issuedAt"`
	ExpiresAt time.Time `db:"expires_at" json:"expiresAt"`
}

func (s *Session) IsExpired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
