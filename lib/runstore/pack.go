// Copyright 2026 The Crucible Authors
// SPDX-License-Identifier: Apache-2.0

package runstore

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"
	"os"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"

	"github.com/crucible-foundation/crucible/lib/codec"
)

// PackKeySize is the required key length for sealing and opening
// packs.
const PackKeySize = 32

// packVersion is the sealed pack format version, prepended to every
// pack and authenticated as AAD so tampering with it fails the open.
const packVersion byte = 0x01

// hkdfInfoPack is the HKDF info string for pack encryption keys.
// Changing it invalidates every existing pack.
var hkdfInfoPack = []byte("crucible.pack.enc.v1")

// SealPack encrypts a stored record into a portable pack file:
//
//	[version: 1] [nonce: 24] [ciphertext+tag]
//
// The plaintext is the framed blob for the value. The encryption key
// is derived from masterKey via HKDF-SHA256 bound to the record's
// reference, and the version byte plus the reference digest are
// authenticated as AAD, so a pack cannot be swapped for another record's
// pack without failing authentication.
func SealPack(path string, masterKey []byte, value any) (Ref, error) {
	if len(masterKey) != PackKeySize {
		return "", fmt.Errorf("pack key must be %d bytes, got %d", PackKeySize, len(masterKey))
	}

	encoded, err := codec.MarshalCBOR(value)
	if err != nil {
		return "", fmt.Errorf("encoding for pack: %w", err)
	}
	ref := hashRecord(encoded)
	digest, err := ref.digest()
	if err != nil {
		return "", err
	}

	blob, err := encodeBlob(encoded)
	if err != nil {
		return "", err
	}

	key, err := derivePackKey(masterKey, digest)
	if err != nil {
		return "", err
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return "", fmt.Errorf("creating pack cipher: %w", err)
	}

	var nonce [chacha20poly1305.NonceSizeX]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", fmt.Errorf("generating pack nonce: %w", err)
	}

	sealed := make([]byte, 1+chacha20poly1305.NonceSizeX, 1+chacha20poly1305.NonceSizeX+len(blob)+aead.Overhead())
	sealed[0] = packVersion
	copy(sealed[1:], nonce[:])
	sealed = aead.Seal(sealed, nonce[:], blob, packAAD(packVersion, digest))

	if err := os.WriteFile(path, sealed, 0o600); err != nil {
		return "", fmt.Errorf("writing pack %s: %w", path, err)
	}
	return ref, nil
}

// OpenPack decrypts and verifies a pack file produced by SealPack.
// The expected reference must be known to the caller (it travels out
// of band, e.g. in the run result); this is what binds the pack to
// the record it claims to be.
func OpenPack(path string, masterKey []byte, expected Ref, out any) error {
	if len(masterKey) != PackKeySize {
		return fmt.Errorf("pack key must be %d bytes, got %d", PackKeySize, len(masterKey))
	}
	digest, err := expected.digest()
	if err != nil {
		return err
	}

	sealed, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading pack %s: %w", path, err)
	}
	minimum := 1 + chacha20poly1305.NonceSizeX + chacha20poly1305.Overhead
	if len(sealed) < minimum {
		return fmt.Errorf("pack is %d bytes, minimum is %d", len(sealed), minimum)
	}
	if sealed[0] != packVersion {
		return fmt.Errorf("pack version %d not supported (want %d)", sealed[0], packVersion)
	}

	key, err := derivePackKey(masterKey, digest)
	if err != nil {
		return err
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return fmt.Errorf("creating pack cipher: %w", err)
	}

	nonce := sealed[1 : 1+chacha20poly1305.NonceSizeX]
	ciphertext := sealed[1+chacha20poly1305.NonceSizeX:]
	blob, err := aead.Open(nil, nonce, ciphertext, packAAD(sealed[0], digest))
	if err != nil {
		return fmt.Errorf("pack authentication failed (wrong key, tampered data, or wrong reference): %w", err)
	}

	encoded, err := decodeBlob(blob)
	if err != nil {
		return err
	}
	if hashRecord(encoded) != expected {
		return fmt.Errorf("pack content does not match reference %s", expected)
	}
	return codec.UnmarshalCBOR(encoded, out)
}

// derivePackKey derives the per-record pack key: HKDF-SHA256 over the
// master key with the record digest folded into the info string. The
// salt is nil per RFC 5869; the master key is expected to be
// uniformly random already.
func derivePackKey(masterKey []byte, digest [32]byte) ([]byte, error) {
	info := make([]byte, len(hkdfInfoPack)+len(digest))
	copy(info, hkdfInfoPack)
	copy(info[len(hkdfInfoPack):], digest[:])

	reader := hkdf.New(sha256.New, masterKey, nil, info)
	key := make([]byte, PackKeySize)
	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, fmt.Errorf("HKDF pack key derivation failed: %w", err)
	}
	return key, nil
}

func packAAD(version byte, digest [32]byte) []byte {
	aad := make([]byte, 1+len(digest))
	aad[0] = version
	copy(aad[1:], digest[:])
	return aad
}
