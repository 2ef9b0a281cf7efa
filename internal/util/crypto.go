package util

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"math/big"
)

// alphanumeric is the alphabet for authorization codes and access tokens.
const alphanumeric = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// RandomAlphanumeric returns a string of length n drawn uniformly from
// letters and digits using crypto/rand.
func RandomAlphanumeric(n int) (string, error) {
	buf := make([]byte, n)
	limit := big.NewInt(int64(len(alphanumeric)))
	for i := range buf {
		idx, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", err
		}
		buf[i] = alphanumeric[idx.Int64()]
	}
	return string(buf), nil
}

// SHA256Hex returns the SHA-256 hash of s as a lowercase hex string.
// Intended for high-entropy values such as access tokens, where a salt
// adds nothing.
func SHA256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// SecureCompare compares two strings in constant time.
func SecureCompare(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
