// Package cryptoutil holds small helpers for key material shared by the
// config layer and the receipt signer.
package cryptoutil

import (
	"encoding/hex"
	"fmt"
)

// IsHexString reports whether s consists entirely of hexadecimal characters
// (0-9, a-f, A-F). It returns true for an empty string — callers should check
// length separately when a minimum size is required.
func IsHexString(s string) bool {
	for _, c := range s {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') && (c < 'A' || c > 'F') {
			return false
		}
	}
	return true
}

// ResolveKey turns an operator-supplied key string into raw key bytes.
// Even-length hex strings of at least 2*minBytes characters are decoded;
// anything else is taken as raw bytes. The result must be at least minBytes
// long either way.
func ResolveKey(key string, minBytes int) ([]byte, error) {
	if len(key) >= 2*minBytes && len(key)%2 == 0 && IsHexString(key) {
		decoded, err := hex.DecodeString(key)
		if err != nil {
			return nil, fmt.Errorf("decoding hex key: %w", err)
		}
		if len(decoded) < minBytes {
			return nil, fmt.Errorf("hex key must decode to at least %d bytes (got %d)", minBytes, len(decoded))
		}
		return decoded, nil
	}
	if len(key) < minBytes {
		return nil, fmt.Errorf("key must be at least %d bytes or %d+ hex characters (got %d)", minBytes, 2*minBytes, len(key))
	}
	return []byte(key), nil
}
