// Copyright 2026 The Crucible Authors
// SPDX-License-Identifier: Apache-2.0

package runstore

import (
	"os"
	"strings"
	"testing"
)

type record struct {
	Kind    string   `json:"kind"`
	Payload string   `json:"payload"`
	Tags    []string `json:"tags,omitempty"`
}

func openStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return store
}

func TestPutGetRoundTrip(t *testing.T) {
	store := openStore(t)
	original := record{
		Kind:    "run_result",
		Payload: strings.Repeat("deterministic context kernel ", 40),
		Tags:    []string{"bundle", "evidence"},
	}

	ref, err := store.Put(original)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if !ref.Valid() {
		t.Fatalf("Put returned malformed reference %q", ref)
	}

	var loaded record
	if err := store.Get(ref, &loaded); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if loaded.Kind != original.Kind || loaded.Payload != original.Payload {
		t.Error("round trip lost record fields")
	}
	if len(loaded.Tags) != len(original.Tags) {
		t.Errorf("tags = %v, want %v", loaded.Tags, original.Tags)
	}
}

func TestPutIsIdempotent(t *testing.T) {
	store := openStore(t)
	value := record{Kind: "bundle", Payload: "same bytes, same address"}

	first, err := store.Put(value)
	if err != nil {
		t.Fatalf("first Put: %v", err)
	}
	second, err := store.Put(value)
	if err != nil {
		t.Fatalf("second Put: %v", err)
	}
	if first != second {
		t.Errorf("same value produced %s then %s", first, second)
	}

	refs, err := store.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(refs) != 1 {
		t.Errorf("store holds %d blobs after duplicate Put, want 1", len(refs))
	}
}

func TestDistinctValuesGetDistinctRefs(t *testing.T) {
	store := openStore(t)
	a, err := store.Put(record{Kind: "bundle", Payload: "a"})
	if err != nil {
		t.Fatalf("Put a: %v", err)
	}
	b, err := store.Put(record{Kind: "bundle", Payload: "b"})
	if err != nil {
		t.Fatalf("Put b: %v", err)
	}
	if a == b {
		t.Error("distinct values share a reference")
	}
}

func TestHasAndList(t *testing.T) {
	store := openStore(t)
	ref, err := store.Put(record{Kind: "evidence", Payload: "x"})
	if err != nil {
		t.Fatalf("Put: %v", err)
	}

	if !store.Has(ref) {
		t.Error("Has = false for a stored blob")
	}
	absent := Ref(RefPrefix + strings.Repeat("0", 64))
	if store.Has(absent) {
		t.Error("Has = true for an absent blob")
	}
	if store.Has(Ref("b3:short")) {
		t.Error("Has = true for a malformed reference")
	}

	refs, err := store.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(refs) != 1 || refs[0] != ref {
		t.Errorf("List = %v, want [%s]", refs, ref)
	}
}

func TestGetDetectsCorruption(t *testing.T) {
	store := openStore(t)
	ref, err := store.Put(record{Kind: "bundle", Payload: strings.Repeat("tamper target ", 50)})
	if err != nil {
		t.Fatalf("Put: %v", err)
	}

	path := store.blobPath(ref)
	blob, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	blob[len(blob)-1] ^= 0xff
	if err := os.WriteFile(path, blob, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	var out record
	if err := store.Get(ref, &out); err == nil {
		t.Fatal("Get accepted a tampered blob")
	}
}

func TestGetRejectsMalformedRef(t *testing.T) {
	store := openStore(t)
	var out record
	if err := store.Get(Ref("sha256:wrongscheme"), &out); err == nil {
		t.Fatal("Get accepted a malformed reference")
	}
}

func TestRefValid(t *testing.T) {
	cases := []struct {
		ref  string
		want bool
	}{
		{RefPrefix + strings.Repeat("ab", 32), true},
		{RefPrefix + strings.Repeat("AB", 32), false},
		{RefPrefix + strings.Repeat("ab", 31), false},
		{"sha256:" + strings.Repeat("ab", 32), false},
		{strings.Repeat("ab", 32), false},
		{"", false},
	}
	for _, c := range cases {
		if got := Ref(c.ref).Valid(); got != c.want {
			t.Errorf("Valid(%q) = %v, want %v", c.ref, got, c.want)
		}
	}
}

func TestBlobRoundTripAllPayloads(t *testing.T) {
	cases := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"compressible", []byte(strings.Repeat("the same phrase over and over ", 100))},
		{"short", []byte("x")},
	}
	for _, c := range cases {
		blob, err := encodeBlob(c.data)
		if err != nil {
			t.Fatalf("%s: encodeBlob: %v", c.name, err)
		}
		decoded, err := decodeBlob(blob)
		if err != nil {
			t.Fatalf("%s: decodeBlob: %v", c.name, err)
		}
		if string(decoded) != string(c.data) {
			t.Errorf("%s: round trip changed payload", c.name)
		}
	}
}

func TestDecodeBlobRejectsBadHeader(t *testing.T) {
	if _, err := decodeBlob([]byte{blobVersion}); err == nil {
		t.Error("truncated blob accepted")
	}
	blob, err := encodeBlob([]byte("payload"))
	if err != nil {
		t.Fatalf("encodeBlob: %v", err)
	}
	blob[0] = 0x7f
	if _, err := decodeBlob(blob); err == nil {
		t.Error("unknown blob version accepted")
	}
}
