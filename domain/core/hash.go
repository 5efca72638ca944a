package core

import (
	"crypto/sha256"
	"encoding/hex"
)

// Hash represents a cryptographic hash
type Hash string

// NewHash creates a new hash from data
func NewHash(data []byte) Hash {
	sum := sha256.Sum256(data)
	return Hash(hex.EncodeToString(sum[:]))
}

// String returns the string representation
func (h Hash) String() string {
	return string(h)
}

// IsEmpty checks if the hash is empty
func (h Hash) IsEmpty() bool {
	return h == ""
}

// Equals checks if two hashes are equal
func (h Hash) Equals(other Hash) bool {
	return h == other
}

// DatasetFingerprint identifies the exact table contents a result was computed from
type DatasetFingerprint Hash

// NewDatasetFingerprint creates a fingerprint from serialized table contents
func NewDatasetFingerprint(data []byte) DatasetFingerprint {
	return DatasetFingerprint(NewHash(data))
}

// String returns the string representation
func (f DatasetFingerprint) String() string { return Hash(f).String() }

// IsEmpty checks if the fingerprint is empty
func (f DatasetFingerprint) IsEmpty() bool { return Hash(f).IsEmpty() }
