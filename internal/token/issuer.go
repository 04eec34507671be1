// Package token issues opaque session credentials.
package token

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/devpair/pairing-server-go/internal/model"
	"github.com/devpair/pairing-server-go/internal/util"
)

// tokenBytes gives 256 bits of entropy per token, far beyond the point
// where a uniqueness check would matter.
const tokenBytes = 32

// Issuer mints session tokens from crypto/rand. A math/rand source is not
// acceptable here: tokens are bearer credentials.
type Issuer struct {
	ttl time.Duration
}

func NewIssuer(ttl time.Duration) *Issuer {
	return &Issuer{ttl: ttl}
}

func (i *Issuer) TTL() time.Duration {
	return i.ttl
}

// Issue creates a session bound to the given identities and returns it
// together with the raw token. The session carries only the token hash;
// the raw token exists nowhere else.
func (i *Issuer) Issue(userID, deviceID string) (*model.Session, string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return nil, "", fmt.Errorf("generate token: %w", err)
	}
	raw := hex.EncodeToString(buf)

	now := time.Now().UTC()
	session := &model.Session{
		ID:        uuid.NewString(),
		TokenHash: util.HashToken(raw),
		UserID:    userID,
		DeviceID:  deviceID,
		IssuedAt:  now,
		ExpiresAt: now.Add(i.ttl),
	}
	return session, raw, nil
}
