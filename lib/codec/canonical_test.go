// Copyright 2026 The Crucible Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"math"
	"strings"
	"testing"
)

func TestCanonicalizeSortsObjectKeys(t *testing.T) {
	value := map[string]any{
		"zebra":  1,
		"apple":  2,
		"Middle": 3,
	}
	got, err := Canonicalize(value)
	if err != nil {
		t.Fatalf("Canonicalize: %v", err)
	}
	want := `{"Middle":3,"apple":2,"zebra":1}`
	if got != want {
		t.Errorf("got %s, want %s", got, want)
	}
}

func TestCanonicalizeUTF16KeyOrder(t *testing.T) {
	// U+10000 (the first supplementary character) encodes as a
	// surrogate pair starting at 0xd800, which sorts BEFORE U+FFFD
	// (0xfffd) in UTF-16 code unit order. Byte-wise UTF-8 comparison
	// would put them the other way around.
	value := map[string]any{
		"�":     "replacement",
		"\U00010000": "supplementary",
	}
	got, err := Canonicalize(value)
	if err != nil {
		t.Fatalf("Canonicalize: %v", err)
	}
	supplementaryIndex := strings.Index(got, "supplementary")
	replacementIndex := strings.Index(got, "replacement")
	if supplementaryIndex > replacementIndex {
		t.Errorf("supplementary-plane key must sort before U+FFFD in UTF-16 order: %s", got)
	}
}

func TestCanonicalizeStringEscaping(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "hello", `"hello"`},
		{"quote and backslash", `a"b\c`, `"a\"b\\c"`},
		{"short escapes", "\b\t\n\f\r", `"\b\t\n\f\r"`},
		{"other control", "\x01\x1f", "\"\\u0001\\u001f\""},
		{"non-ascii literal", "héllo→", `"héllo→"`},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got, err := Canonicalize(test.input)
			if err != nil {
				t.Fatalf("Canonicalize: %v", err)
			}
			if got != test.want {
				t.Errorf("got %s, want %s", got, test.want)
			}
		})
	}
}

func TestCanonicalizeRejectsNonFinite(t *testing.T) {
	for _, value := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		if _, err := Canonicalize(map[string]any{"score": value}); err == nil {
			t.Errorf("expected error for %v", value)
		}
	}
}

func TestCanonicalizeRejectsNonIntegralFloat(t *testing.T) {
	_, err := Canonicalize(map[string]any{"confidence": 0.5})
	if err == nil {
		t.Fatal("expected error for non-integral float")
	}
	canonicalizationError, ok := err.(*CanonicalizationError)
	if !ok {
		t.Fatalf("expected *CanonicalizationError, got %T", err)
	}
	if canonicalizationError.Path != "$.confidence" {
		t.Errorf("path = %q, want $.confidence", canonicalizationError.Path)
	}
}

func TestCanonicalizeRejectsUnsafeInteger(t *testing.T) {
	_, err := Canonicalize([]any{int64(1) << 53})
	if err == nil {
		t.Fatal("expected error for integer beyond 2^53-1")
	}
	if !strings.Contains(err.Error(), "$[0]") {
		t.Errorf("error should name the array path: %v", err)
	}
}

func TestCanonicalizeErrorNamesNestedPath(t *testing.T) {
	value := map[string]any{
		"foo": []any{0, 1, map[string]any{"bad": math.NaN()}},
	}
	_, err := Canonicalize(value)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "$.foo[2].bad") {
		t.Errorf("error should name $.foo[2].bad: %v", err)
	}
}

func TestCanonicalizeRejectsUnsupportedKind(t *testing.T) {
	_, err := Canonicalize(map[string]any{"fn": func() {}})
	if err == nil {
		t.Fatal("expected error for function value")
	}
}

func TestCanonicalizeStructUsesJSONTags(t *testing.T) {
	type record struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
		Skip  string `json:"skip,omitempty"`
	}
	got, err := Canonicalize(record{Name: "x", Count: 2})
	if err != nil {
		t.Fatalf("Canonicalize: %v", err)
	}
	want := `{"count":2,"name":"x"}`
	if got != want {
		t.Errorf("got %s, want %s", got, want)
	}
}

func TestCanonicalizeNegativeZero(t *testing.T) {
	got, err := Canonicalize(math.Copysign(0, -1))
	if err != nil {
		t.Fatalf("Canonicalize: %v", err)
	}
	if got != "0" {
		t.Errorf("negative zero canonicalizes as %s, want 0", got)
	}
}

func TestCanonicalizeDeterministic(t *testing.T) {
	value := map[string]any{
		"goal":        "build a service",
		"constraints": []any{"go", "sqlite"},
		"nested":      map[string]any{"b": 1, "a": 2},
	}
	first, err := Canonicalize(value)
	if err != nil {
		t.Fatalf("Canonicalize: %v", err)
	}
	for i := 0; i < 50; i++ {
		again, err := Canonicalize(value)
		if err != nil {
			t.Fatalf("Canonicalize (iteration %d): %v", i, err)
		}
		if again != first {
			t.Fatalf("canonical form changed on iteration %d", i)
		}
	}
}

func TestVerifyRoundTrip(t *testing.T) {
	value := map[string]any{
		"id":      "node_0123456789abcdef",
		"scores":  []any{0, 50, 100},
		"unicode": "日本語 text",
	}
	if err := VerifyRoundTrip(value); err != nil {
		t.Errorf("VerifyRoundTrip: %v", err)
	}
}
