// Copyright 2026 The Crucible Authors
// SPDX-License-Identifier: Apache-2.0

// Package runstore persists kernel artifacts (run results, bundles,
// evidence) as content-addressed blobs on disk. Values are encoded
// with deterministic CBOR, compressed, and addressed by keyed BLAKE3
// over the uncompressed encoding, so a stored artifact can always be
// verified against its reference. Sealed packs add authenticated
// encryption for artifacts that leave the machine.
//
// The store is append-only: a blob, once written, is never modified.
// Writing the same value twice is a no-op that returns the same
// reference.
package runstore

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/zeebo/blake3"

	"github.com/crucible-foundation/crucible/lib/codec"
)

// RefPrefix marks a runstore reference.
const RefPrefix = "b3:"

// Domain separation keys for BLAKE3 keyed hashing. The byte values
// are the ASCII domain name, zero-padded to 32 bytes, so they are
// inspectable in hex dumps. Changing them invalidates every existing
// reference in that domain.
var (
	recordDomainKey = [32]byte{
		'c', 'r', 'u', 'c', 'i', 'b', 'l', 'e', '.', 's', 't', 'o', 'r', 'e', '.',
		'r', 'e', 'c', 'o', 'r', 'd', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	}
	packDomainKey = [32]byte{
		'c', 'r', 'u', 'c', 'i', 'b', 'l', 'e', '.', 's', 't', 'o', 'r', 'e', '.',
		'p', 'a', 'c', 'k', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	}
)

// Ref is a formatted runstore reference: "b3:" + 64 lowercase hex.
type Ref string

// Valid reports whether the reference has the required shape.
func (r Ref) Valid() bool {
	s := string(r)
	if len(s) != len(RefPrefix)+64 || !strings.HasPrefix(s, RefPrefix) {
		return false
	}
	for _, c := range s[len(RefPrefix):] {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

// digest returns the raw 32 bytes of a valid reference.
func (r Ref) digest() ([32]byte, error) {
	var digest [32]byte
	if !r.Valid() {
		return digest, fmt.Errorf("malformed store reference %q", r)
	}
	decoded, err := hex.DecodeString(string(r)[len(RefPrefix):])
	if err != nil {
		return digest, err
	}
	copy(digest[:], decoded)
	return digest, nil
}

// hashRecord computes the record-domain reference for encoded bytes.
func hashRecord(encoded []byte) Ref {
	return keyedRef(recordDomainKey, encoded)
}

func keyedRef(key [32]byte, data []byte) Ref {
	hasher, err := blake3.NewKeyed(key[:])
	if err != nil {
		panic("runstore: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	hasher.Write(data)
	return Ref(RefPrefix + hex.EncodeToString(hasher.Sum(nil)))
}

// Store is a directory of content-addressed blobs.
type Store struct {
	root string
}

// Open prepares a store rooted at dir, creating it if needed.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(filepath.Join(dir, "objects"), 0o755); err != nil {
		return nil, fmt.Errorf("opening store %s: %w", dir, err)
	}
	return &Store{root: dir}, nil
}

// Root returns the store's directory.
func (s *Store) Root() string {
	return s.root
}

// blobPath fans blobs out over 256 subdirectories by the first hex
// byte of the digest.
func (s *Store) blobPath(ref Ref) string {
	hexDigest := string(ref)[len(RefPrefix):]
	return filepath.Join(s.root, "objects", hexDigest[:2], hexDigest)
}

// Put encodes a value and stores it, returning its reference. The
// write is atomic (temp file + rename) so a crash never leaves a
// half-written blob under its final name.
func (s *Store) Put(value any) (Ref, error) {
	encoded, err := codec.MarshalCBOR(value)
	if err != nil {
		return "", fmt.Errorf("encoding for store: %w", err)
	}
	ref := hashRecord(encoded)

	target := s.blobPath(ref)
	if _, err := os.Stat(target); err == nil {
		return ref, nil
	}

	blob, err := encodeBlob(encoded)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", err
	}
	temp, err := os.CreateTemp(filepath.Dir(target), ".put-*")
	if err != nil {
		return "", err
	}
	tempName := temp.Name()
	if _, err := temp.Write(blob); err != nil {
		temp.Close()
		os.Remove(tempName)
		return "", err
	}
	if err := temp.Close(); err != nil {
		os.Remove(tempName)
		return "", err
	}
	if err := os.Rename(tempName, target); err != nil {
		os.Remove(tempName)
		return "", err
	}
	return ref, nil
}

// Get loads a stored value by reference into out, verifying the
// content against the reference before decoding. A blob that does not
// hash to its own name is corrupt and refused.
func (s *Store) Get(ref Ref, out any) error {
	if _, err := ref.digest(); err != nil {
		return err
	}
	blob, err := os.ReadFile(s.blobPath(ref))
	if err != nil {
		return fmt.Errorf("reading %s: %w", ref, err)
	}

	encoded, err := decodeBlob(blob)
	if err != nil {
		return fmt.Errorf("blob %s: %w", ref, err)
	}
	if hashRecord(encoded) != ref {
		return fmt.Errorf("blob %s fails content verification", ref)
	}
	return codec.UnmarshalCBOR(encoded, out)
}

// Has reports whether a blob exists for the reference.
func (s *Store) Has(ref Ref) bool {
	if !ref.Valid() {
		return false
	}
	_, err := os.Stat(s.blobPath(ref))
	return err == nil
}

// List returns every reference in the store, sorted.
func (s *Store) List() ([]Ref, error) {
	var refs []Ref
	objects := filepath.Join(s.root, "objects")
	fanouts, err := os.ReadDir(objects)
	if err != nil {
		return nil, err
	}
	for _, fanout := range fanouts {
		if !fanout.IsDir() {
			continue
		}
		entries, err := os.ReadDir(filepath.Join(objects, fanout.Name()))
		if err != nil {
			return nil, err
		}
		for _, entry := range entries {
			ref := Ref(RefPrefix + entry.Name())
			if ref.Valid() {
				refs = append(refs, ref)
			}
		}
	}
	return refs, nil
}
