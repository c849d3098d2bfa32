package handoff

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

const tokenBytes = 32

// NewToken returns a fresh single-use token and its storable hash. The raw
// token goes into the external link; only the hash is persisted.
func NewToken() (raw, hash string, err error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("generate token: %w", err)
	}
	raw = base64.RawURLEncoding.EncodeToString(buf)
	return raw, HashToken(raw), nil
}

// HashToken returns the hex sha256 of a raw token. Deterministic so the
// store can look requests up by hash; tokens carry enough entropy that no
// salt is needed.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// MatchesToken reports whether raw hashes to the stored hash, compared in
// constant time.
func MatchesToken(storedHash, raw string) bool {
	return subtle.ConstantTimeCompare([]byte(storedHash), []byte(HashToken(raw))) == 1
}
