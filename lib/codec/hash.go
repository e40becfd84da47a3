// Copyright 2026 The Crucible Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// HashPrefix is the algorithm tag carried by every content hash in
// the system. A hash string is always "sha256:" followed by 64
// lowercase hex characters.
const HashPrefix = "sha256:"

// IDHexLength is the number of leading hash hex characters that form
// the tail of a content-derived ID.
const IDHexLength = 16

// Hash computes the content hash of value: SHA-256 over the canonical
// form followed by a single newline, UTF-8 encoded. The trailing
// newline makes the hashed bytes identical to the canonical artifact
// file a downstream tool would write and re-hash.
func Hash(value any) (string, error) {
	canonical, err := Canonicalize(value)
	if err != nil {
		return "", err
	}
	digest := sha256.Sum256([]byte(canonical + "\n"))
	return HashPrefix + hex.EncodeToString(digest[:]), nil
}

// DeriveID derives a content-addressed ID for value: the prefix, an
// underscore, and the first 16 hex characters of the content hash.
// IDs are derived, never assigned: two structurally identical values
// always receive the same ID, and an ID can be recomputed from the
// value at any time to detect tampering.
func DeriveID(prefix string, value any) (string, error) {
	if prefix == "" {
		return "", fmt.Errorf("deriving ID: empty prefix")
	}
	hash, err := Hash(value)
	if err != nil {
		return "", err
	}
	return prefix + "_" + hash[len(HashPrefix):len(HashPrefix)+IDHexLength], nil
}

// ValidHash reports whether s has the canonical content hash shape:
// "sha256:" followed by exactly 64 lowercase hex characters.
func ValidHash(s string) bool {
	if !strings.HasPrefix(s, HashPrefix) {
		return false
	}
	rest := s[len(HashPrefix):]
	if len(rest) != 64 {
		return false
	}
	return isLowerHex(rest)
}

// ValidID reports whether id has the canonical content-derived ID
// shape for the given prefix: "<prefix>_" followed by exactly 16
// lowercase hex characters.
func ValidID(id, prefix string) bool {
	if !strings.HasPrefix(id, prefix+"_") {
		return false
	}
	rest := id[len(prefix)+1:]
	if len(rest) != IDHexLength {
		return false
	}
	return isLowerHex(rest)
}

func isLowerHex(s string) bool {
	for _, r := range s {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			return false
		}
	}
	return true
}
