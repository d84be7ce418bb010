// Package sha256 fingerprints published payloads so downstream consumers can
// drop redelivered duplicates.
package sha256

import (
	"crypto/sha256"
	"encoding/hex"
)

// AttributeKey is the message attribute carrying the payload fingerprint.
const AttributeKey = "payload_sha256"

// Fingerprint returns the lowercase hex SHA-256 digest of data.
func Fingerprint(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
