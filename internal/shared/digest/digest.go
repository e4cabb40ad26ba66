// Package digest provides content addressing for capsule bundles and
// compiled artifacts.
package digest

import (
	"crypto/sha256"
	"encoding/hex"
)

// Algorithm identifies the hashing algorithm in use
type Algorithm string

const (
	SHA256 Algorithm = "sha256"
)

// Hasher computes content digests
type Hasher struct {
	algorithm Algorithm
}

// NewHasher creates a hasher for the given algorithm
func NewHasher(algorithm Algorithm) *Hasher {
	return &Hasher{algorithm: algorithm}
}

// DefaultHasher returns a hasher with the default algorithm
func DefaultHasher() *Hasher {
	return NewHasher(SHA256)
}

// Sum computes the hex digest of data
func (h *Hasher) Sum(data []byte) string {
	switch h.algorithm {
	case SHA256:
		sum := sha256.Sum256(data)
		return hex.EncodeToString(sum[:])
	default:
		sum := sha256.Sum256(data)
		return hex.EncodeToString(sum[:])
	}
}

// SumString computes the hex digest of a string
func (h *Hasher) SumString(s string) string {
	return h.Sum([]byte(s))
}

// Verify checks data against an expected hex digest
func (h *Hasher) Verify(data []byte, expected string) bool {
	return h.Sum(data) == expected
}

// Short returns the first 8 characters of a digest for display
func Short(full string) string {
	if len(full) < 8 {
		return full
	}
	return full[:8]
}
