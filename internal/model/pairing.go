package model

import (
	"time"
)

// PairingCode is a short-lived, single-use secret that binds a device to a
// user account. A code transitions pending -> consumed at most once.
type PairingCode struct {
	Code             string            `db:"code" json:"code"`
	UserID           string            `db:"user_id" json:"userId"`
	ExpectedDeviceID *string           `db:"expected_device_id" json:"expectedDeviceId,omitempty"`
	Status           PairingCodeStatus `db:"status" json:"status"`
	ConsumedBy       *string           `db:"consumed_by" json:"consumedBy,omitempty"`
	ConsumedAt       *time.Time        `db:"consumed_at" json:"consumedAt,omitempty"`
	ExpiresAt        time.Time         `db:"expires_at" json:"expiresAt"`
	CreatedAt        time.Time         `db:"created_at" json:"createdAt"`
}

func (p *PairingCode) IsExpired(now time.Time) bool {
	return now.After(p.ExpiresAt)
}

// EffectiveStatus reports the observed state: a pending code past its
// expiry reads as expired without a separate write.
func (p *PairingCode) EffectiveStatus(now time.Time) PairingCodeStatus {
	if p.Status == PairingStatusPending && p.IsExpired(now) {
		return PairingStatusExpired
	}
	return p.Status
}

type CreatePairingCodeParams struct {
	Code             string
	UserID           string
	ExpectedDeviceID *string
	ExpiresAt        time.Time
}
