package security

import (
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// LookupDigest returns the keyed BLAKE2b-256 digest of a retrieval pair.
//
// The email is trimmed and lower-cased; last4 is only trimmed so matching stays exact.
func LookupDigest(secret, email, last4 string) (string, error) {
	key := []byte(secret)
	if len(key) > blake2b.Size {
		sum := blake2b.Sum256(key)
		key = sum[:]
	}
	h, err := blake2b.New256(key)
	if err != nil {
		return "", fmt.Errorf("lookup digest: %w", err)
	}
	h.Write([]byte(strings.ToLower(strings.TrimSpace(email))))
	h.Write([]byte{'|'})
	h.Write([]byte(strings.TrimSpace(last4)))
	return hex.EncodeToString(h.Sum(nil)), nil
}
