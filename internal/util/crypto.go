package util

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// HashToken returns the hex SHA-256 of a token. Repositories only ever see
// this hash, never the raw credential.
func HashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

func ConstantTimeEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// MaskCode redacts a pairing code for log output.
func MaskCode(code string) string {
	if len(code) <= 2 {
		return "******"
	}
	return code[:2] + "****"
}
