// Copyright 2026 The Crucible Authors
// SPDX-License-Identifier: Apache-2.0

// Package binhash provides streaming SHA256 hashing for files on
// disk, in the same sha256:<64 hex> format the canonical codec uses
// for in-memory values. Evidence records executor identity as the
// digest of the executor binary itself, so a replayed run can prove
// which exact build produced it.
package binhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// Prefix is the digest format marker shared with canonical content
// hashes.
const Prefix = "sha256:"

// HashFile streams the file at path through SHA256 and returns the
// formatted digest. Memory usage is constant regardless of file size.
func HashFile(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening %s for hashing: %w", path, err)
	}
	defer file.Close()

	hasher := sha256.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return "", fmt.Errorf("hashing %s: %w", path, err)
	}
	return Prefix + hex.EncodeToString(hasher.Sum(nil)), nil
}

// HashReader streams an already-open reader through SHA256. Used by
// the output collector to hash harvested files without a second open.
func HashReader(reader io.Reader) (string, int64, error) {
	hasher := sha256.New()
	written, err := io.Copy(hasher, reader)
	if err != nil {
		return "", written, fmt.Errorf("hashing stream: %w", err)
	}
	return Prefix + hex.EncodeToString(hasher.Sum(nil)), written, nil
}

// Self hashes the running executable. This is the executor_id stamped
// into evidence: ephemeral for hashing purposes, but invaluable in an
// audit trail.
func Self() (string, error) {
	executable, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("locating own executable: %w", err)
	}
	return HashFile(executable)
}

// ParseDigest validates a formatted digest and returns the raw 32
// bytes. It rejects missing prefixes, wrong lengths, and non-hex
// characters.
func ParseDigest(formatted string) ([32]byte, error) {
	var digest [32]byte
	if len(formatted) != len(Prefix)+64 || formatted[:len(Prefix)] != Prefix {
		return digest, fmt.Errorf("digest %q is not in %s<64 hex> form", formatted, Prefix)
	}
	decoded, err := hex.DecodeString(formatted[len(Prefix):])
	if err != nil {
		return digest, fmt.Errorf("parsing digest: %w", err)
	}
	copy(digest[:], decoded)
	return digest, nil
}
