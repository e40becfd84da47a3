// Copyright 2026 The Crucible Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec is the determinism substrate for Crucible. Every
// content hash and every content-derived ID in the system is computed
// over the canonical form produced here, so two structurally identical
// values always serialize to the same bytes, hash to the same digest,
// and receive the same ID across processes, platforms, and time.
//
// Two encodings live in this package:
//
//   - Canonical JSON (canonical.go, hash.go): the hash substrate.
//     Object keys sorted by UTF-16 code unit, minimal string escaping,
//     integer-only numbers. This is the form that defines identity for
//     bundles, proposals, and evidence.
//
//   - Deterministic CBOR (cbor.go): the storage encoding used by the
//     run store for on-disk blobs. Compact and binary-safe, but never
//     the substrate for identity: a blob's address is computed from
//     its encoded bytes, not from canonical JSON.
//
// Values that cannot be represented canonically (NaN, infinities,
// non-integral floats, integers beyond 2^53, channels, functions) are
// rejected with a CanonicalizationError naming the offending path.
// Nothing in this package ever guesses: an unsupported value is a hard
// error, because a silent approximation would fork identity.
package codec
