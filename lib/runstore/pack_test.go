// Copyright 2026 The Crucible Authors
// SPDX-License-Identifier: Apache-2.0

package runstore

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func packKey(fill byte) []byte {
	return bytes.Repeat([]byte{fill}, PackKeySize)
}

func TestSealOpenRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "result.pack")
	original := record{
		Kind:    "run_result",
		Payload: strings.Repeat("sealed kernel artifact ", 60),
		Tags:    []string{"export"},
	}

	ref, err := SealPack(path, packKey(0x42), original)
	if err != nil {
		t.Fatalf("SealPack: %v", err)
	}
	if !ref.Valid() {
		t.Fatalf("SealPack returned malformed reference %q", ref)
	}

	var loaded record
	if err := OpenPack(path, packKey(0x42), ref, &loaded); err != nil {
		t.Fatalf("OpenPack: %v", err)
	}
	if loaded.Kind != original.Kind || loaded.Payload != original.Payload {
		t.Error("sealed round trip lost record fields")
	}
}

func TestPackRefMatchesStoreRef(t *testing.T) {
	value := record{Kind: "bundle", Payload: "one value, one address"}

	store := openStore(t)
	stored, err := store.Put(value)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	sealed, err := SealPack(filepath.Join(t.TempDir(), "v.pack"), packKey(0x01), value)
	if err != nil {
		t.Fatalf("SealPack: %v", err)
	}
	if stored != sealed {
		t.Errorf("store ref %s != pack ref %s for the same value", stored, sealed)
	}
}

func TestOpenPackRejectsWrongKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "result.pack")
	ref, err := SealPack(path, packKey(0x42), record{Kind: "run_result", Payload: "secret"})
	if err != nil {
		t.Fatalf("SealPack: %v", err)
	}

	var out record
	if err := OpenPack(path, packKey(0x43), ref, &out); err == nil {
		t.Fatal("OpenPack accepted the wrong key")
	}
}

func TestOpenPackRejectsTampering(t *testing.T) {
	path := filepath.Join(t.TempDir(), "result.pack")
	ref, err := SealPack(path, packKey(0x42), record{Kind: "run_result", Payload: "tamper target"})
	if err != nil {
		t.Fatalf("SealPack: %v", err)
	}

	sealed, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	sealed[len(sealed)-1] ^= 0xff
	if err := os.WriteFile(path, sealed, 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	var out record
	if err := OpenPack(path, packKey(0x42), ref, &out); err == nil {
		t.Fatal("OpenPack accepted a tampered pack")
	}
}

func TestOpenPackRejectsWrongReference(t *testing.T) {
	dir := t.TempDir()
	pathA := filepath.Join(dir, "a.pack")
	pathB := filepath.Join(dir, "b.pack")

	if _, err := SealPack(pathA, packKey(0x42), record{Kind: "bundle", Payload: "a"}); err != nil {
		t.Fatalf("SealPack a: %v", err)
	}
	refB, err := SealPack(pathB, packKey(0x42), record{Kind: "bundle", Payload: "b"})
	if err != nil {
		t.Fatalf("SealPack b: %v", err)
	}

	// Opening a's pack while expecting b's reference must fail: the
	// reference is authenticated, so the key derivation and AAD both
	// diverge.
	var out record
	if err := OpenPack(pathA, packKey(0x42), refB, &out); err == nil {
		t.Fatal("OpenPack accepted a pack under the wrong reference")
	}
}

func TestPackKeyLengthEnforced(t *testing.T) {
	path := filepath.Join(t.TempDir(), "short.pack")
	if _, err := SealPack(path, []byte("short"), record{}); err == nil {
		t.Error("SealPack accepted a short key")
	}
	var out record
	if err := OpenPack(path, []byte("short"), Ref(RefPrefix+strings.Repeat("0", 64)), &out); err == nil {
		t.Error("OpenPack accepted a short key")
	}
}
