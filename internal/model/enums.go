package model

// PairingCodeStatus is the lifecycle state of a pairing code.
// Only "pending" and "consumed" are ever persisted; "expired" is
// computed on read from expires_at.
type PairingCodeStatus string

const (
	PairingStatusPending  PairingCodeStatus = "pending"
	PairingStatusConsumed PairingCodeStatus = "consumed"
	PairingStatusExpired  PairingCodeStatus = "expired"
)
