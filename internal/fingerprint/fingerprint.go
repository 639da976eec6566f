// Package fingerprint provides deterministic claim normalization and
// hashing. Every other component uses these hashes for identity and cache
// keys, so two texts that differ only in case, spacing or trailing
// punctuation must collide here.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode"
)

// HashLength is the number of hex characters kept from the digest.
const HashLength = 16

// Normalize lowercases, trims, collapses internal whitespace and strips
// trailing sentence punctuation.
func Normalize(claim string) string {
	s := strings.ToLower(strings.TrimSpace(claim))
	s = strings.TrimRight(s, ".!? \t")

	var b strings.Builder
	b.Grow(len(s))
	space := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			space = true
			continue
		}
		if space && b.Len() > 0 {
			b.WriteByte(' ')
		}
		space = false
		b.WriteRune(r)
	}
	return b.String()
}

// Hash returns the claim's identity: the first 16 hex characters of the
// sha256 of its normalized form.
func Hash(claim string) string {
	sum := sha256.Sum256([]byte(Normalize(claim)))
	return hex.EncodeToString(sum[:])[:HashLength]
}

// CacheKey builds a versioned cache key for a claim hash plus a context
// discriminator. Personal and sacred results carry the user ID in the
// discriminator so they are never served across users.
func CacheKey(claimHash, discriminator string) string {
	return "fieldgate:v1:" + claimHash + ":" + discriminator
}
