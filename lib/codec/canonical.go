// Copyright 2026 The Crucible Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"unicode/utf16"
)

// MaxSafeInteger is the largest integer magnitude representable
// exactly in an IEEE 754 double (2^53 - 1). Canonical form admits
// only integers within ±MaxSafeInteger so that every consumer,
// regardless of its native number type, reads back the exact value
// that was hashed.
const MaxSafeInteger = 1<<53 - 1

// CanonicalizationError reports a value that has no canonical form.
// Path locates the offending value in JSONPath-like notation
// ($.outputs[2].content). Canonicalization errors are always fatal:
// there is no approximate encoding that preserves identity.
type CanonicalizationError struct {
	Path   string
	Reason string
}

func (e *CanonicalizationError) Error() string {
	return fmt.Sprintf("cannot canonicalize value at %s: %s", e.Path, e.Reason)
}

// Canonicalize serializes value as canonical JSON: object keys sorted
// by UTF-16 code unit order, arrays in index order, strings with
// minimal escaping, and integer-only numbers. Two structurally equal
// values always produce byte-identical output.
//
// Structs are accepted and serialize according to their json tags;
// they are flattened through encoding/json before canonical ordering
// is applied, so omitempty and custom MarshalJSON behave exactly as
// they do for plain JSON output.
func Canonicalize(value any) (string, error) {
	var builder strings.Builder
	if err := writeCanonical(&builder, value, "$"); err != nil {
		return "", err
	}
	return builder.String(), nil
}

func writeCanonical(builder *strings.Builder, value any, path string) error {
	switch v := value.(type) {
	case nil:
		builder.WriteString("null")
		return nil

	case bool:
		if v {
			builder.WriteString("true")
		} else {
			builder.WriteString("false")
		}
		return nil

	case string:
		writeCanonicalString(builder, v)
		return nil

	case json.Number:
		return writeCanonicalNumber(builder, v, path)

	case int:
		return writeCanonicalInt(builder, int64(v), path)
	case int8:
		return writeCanonicalInt(builder, int64(v), path)
	case int16:
		return writeCanonicalInt(builder, int64(v), path)
	case int32:
		return writeCanonicalInt(builder, int64(v), path)
	case int64:
		return writeCanonicalInt(builder, v, path)

	case uint:
		return writeCanonicalUint(builder, uint64(v), path)
	case uint8:
		return writeCanonicalUint(builder, uint64(v), path)
	case uint16:
		return writeCanonicalUint(builder, uint64(v), path)
	case uint32:
		return writeCanonicalUint(builder, uint64(v), path)
	case uint64:
		return writeCanonicalUint(builder, v, path)

	case float32:
		return writeCanonicalFloat(builder, float64(v), path)
	case float64:
		return writeCanonicalFloat(builder, v, path)

	case map[string]any:
		return writeCanonicalObject(builder, v, path)

	case []any:
		builder.WriteByte('[')
		for index, element := range v {
			if index > 0 {
				builder.WriteByte(',')
			}
			elementPath := fmt.Sprintf("%s[%d]", path, index)
			if err := writeCanonical(builder, element, elementPath); err != nil {
				return err
			}
		}
		builder.WriteByte(']')
		return nil

	default:
		// Structs, typed maps, typed slices, pointers, and anything
		// implementing json.Marshaler: flatten through encoding/json
		// into the generic tree, then canonicalize that. The flattened
		// tree bottoms out in the cases above, so recursion terminates.
		tree, err := flattenValue(v, path)
		if err != nil {
			return err
		}
		return writeCanonical(builder, tree, path)
	}
}

// flattenValue converts an arbitrary Go value into the generic JSON
// tree (map[string]any / []any / json.Number / string / bool / nil)
// by marshaling and re-parsing it. Values encoding/json cannot
// represent (channels, functions, NaN, infinities, cyclic data) are
// reported as canonicalization errors at the current path.
func flattenValue(value any, path string) (any, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, &CanonicalizationError{Path: path, Reason: err.Error()}
	}
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	var tree any
	if err := decoder.Decode(&tree); err != nil {
		return nil, &CanonicalizationError{Path: path, Reason: "re-parsing flattened value: " + err.Error()}
	}
	return tree, nil
}

func writeCanonicalObject(builder *strings.Builder, object map[string]any, path string) error {
	keys := make([]string, 0, len(object))
	for key := range object {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		return compareUTF16(keys[i], keys[j]) < 0
	})

	builder.WriteByte('{')
	for index, key := range keys {
		if index > 0 {
			builder.WriteByte(',')
		}
		writeCanonicalString(builder, key)
		builder.WriteByte(':')
		memberPath := path + "." + key
		if err := writeCanonical(builder, object[key], memberPath); err != nil {
			return err
		}
	}
	builder.WriteByte('}')
	return nil
}

func writeCanonicalInt(builder *strings.Builder, value int64, path string) error {
	if value > MaxSafeInteger || value < -MaxSafeInteger {
		return &CanonicalizationError{Path: path, Reason: fmt.Sprintf("integer %d outside the safe range ±2^53-1", value)}
	}
	builder.WriteString(strconv.FormatInt(value, 10))
	return nil
}

func writeCanonicalUint(builder *strings.Builder, value uint64, path string) error {
	if value > MaxSafeInteger {
		return &CanonicalizationError{Path: path, Reason: fmt.Sprintf("integer %d outside the safe range ±2^53-1", value)}
	}
	builder.WriteString(strconv.FormatUint(value, 10))
	return nil
}

func writeCanonicalFloat(builder *strings.Builder, value float64, path string) error {
	if math.IsNaN(value) {
		return &CanonicalizationError{Path: path, Reason: "NaN has no canonical form"}
	}
	if math.IsInf(value, 0) {
		return &CanonicalizationError{Path: path, Reason: "infinity has no canonical form"}
	}
	if value != math.Trunc(value) {
		return &CanonicalizationError{Path: path, Reason: fmt.Sprintf("non-integral number %v has no canonical form", value)}
	}
	if math.Abs(value) > MaxSafeInteger {
		return &CanonicalizationError{Path: path, Reason: fmt.Sprintf("number %v outside the safe range ±2^53-1", value)}
	}
	// Negative zero canonicalizes as plain zero.
	if value == 0 {
		builder.WriteByte('0')
		return nil
	}
	builder.WriteString(strconv.FormatInt(int64(value), 10))
	return nil
}

func writeCanonicalNumber(builder *strings.Builder, number json.Number, path string) error {
	literal := number.String()
	if !strings.ContainsAny(literal, ".eE") {
		parsed, err := strconv.ParseInt(literal, 10, 64)
		if err != nil {
			return &CanonicalizationError{Path: path, Reason: fmt.Sprintf("integer literal %q exceeds 64-bit range", literal)}
		}
		return writeCanonicalInt(builder, parsed, path)
	}
	parsed, err := strconv.ParseFloat(literal, 64)
	if err != nil {
		return &CanonicalizationError{Path: path, Reason: fmt.Sprintf("unparseable number literal %q", literal)}
	}
	return writeCanonicalFloat(builder, parsed, path)
}

// writeCanonicalString writes a JSON string with minimal escaping:
// only the quote, the backslash, and control characters below 0x20
// are escaped. Everything else, including non-ASCII, is emitted as
// literal UTF-8. The short escapes \b \t \n \f \r are preferred over
// \u00xx where they exist.
func writeCanonicalString(builder *strings.Builder, value string) {
	builder.WriteByte('"')
	for _, r := range value {
		switch r {
		case '"':
			builder.WriteString(`\"`)
		case '\\':
			builder.WriteString(`\\`)
		case '\b':
			builder.WriteString(`\b`)
		case '\t':
			builder.WriteString(`\t`)
		case '\n':
			builder.WriteString(`\n`)
		case '\f':
			builder.WriteString(`\f`)
		case '\r':
			builder.WriteString(`\r`)
		default:
			if r < 0x20 {
				fmt.Fprintf(builder, `\u%04x`, r)
			} else {
				builder.WriteRune(r)
			}
		}
	}
	builder.WriteByte('"')
}

// compareUTF16 compares two strings by UTF-16 code unit order, the
// object key ordering canonical JSON requires. This differs from Go's
// native byte comparison only for strings containing characters
// outside the Basic Multilingual Plane: surrogate pairs (0xd800
// onward) sort before code points in the 0xe000–0xffff range.
func compareUTF16(a, b string) int {
	unitsA := utf16.Encode([]rune(a))
	unitsB := utf16.Encode([]rune(b))
	for i := 0; i < len(unitsA) && i < len(unitsB); i++ {
		if unitsA[i] != unitsB[i] {
			if unitsA[i] < unitsB[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(unitsA) < len(unitsB):
		return -1
	case len(unitsA) > len(unitsB):
		return 1
	default:
		return 0
	}
}

// VerifyRoundTrip confirms that value's canonical form survives a
// parse/re-canonicalize cycle unchanged. This is a determinism
// self-check, not a correctness check: a failure means the canonical
// encoder itself is unstable for this value, which must never happen
// for values the kernel emits.
func VerifyRoundTrip(value any) error {
	first, err := Canonicalize(value)
	if err != nil {
		return err
	}
	decoder := json.NewDecoder(strings.NewReader(first))
	decoder.UseNumber()
	var reparsed any
	if err := decoder.Decode(&reparsed); err != nil {
		return fmt.Errorf("re-parsing canonical form: %w", err)
	}
	second, err := Canonicalize(reparsed)
	if err != nil {
		return fmt.Errorf("re-canonicalizing parsed form: %w", err)
	}
	if first != second {
		return fmt.Errorf("canonical form is not idempotent: %d byte first pass, %d byte second pass", len(first), len(second))
	}
	return nil
}
