package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Fields returns the digest of a note's field values joined with the 0x1f
// unit separator, the same serialization the store uses. Used as the ETag
// for optimistic concurrency on note updates.
func Fields(values []string) string {
	return Sum([]byte(strings.Join(values, "\x1f")))
}
