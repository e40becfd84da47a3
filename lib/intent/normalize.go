// Copyright 2026 The Crucible Authors
// SPDX-License-Identifier: Apache-2.0

package intent

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// RefusalError reports an intent the kernel declines to process.
// Refusals are not exceptions: the orchestrator surfaces them as a
// REFUSE outcome with the human-readable reason, and the run result
// is still produced.
type RefusalError struct {
	Reason string
}

func (e *RefusalError) Error() string {
	return "refusing intent: " + e.Reason
}

// Normalize returns the canonical form of an intent. Normalization is
// idempotent and deterministic:
//
//   - all strings are Unicode NFC
//   - CRLF and lone CR become LF
//   - trailing whitespace is stripped per line
//   - runs of blank lines collapse to a single blank line
//   - constraints are normalized, deduplicated, and sorted
//
// An intent whose goal is empty after normalization is refused.
func Normalize(raw Intent) (Intent, error) {
	goal := normalizeText(raw.Goal)
	if goal == "" {
		return Intent{}, &RefusalError{Reason: "intent has no goal"}
	}

	seen := make(map[string]bool)
	constraints := make([]string, 0, len(raw.Constraints))
	for _, constraint := range raw.Constraints {
		normalized := normalizeText(constraint)
		if normalized == "" || seen[normalized] {
			continue
		}
		seen[normalized] = true
		constraints = append(constraints, normalized)
	}
	sort.Strings(constraints)

	return Intent{
		Goal:        goal,
		Constraints: constraints,
		Context:     normalizeContext(raw.Context),
	}, nil
}

// normalizeText applies the full text normalization pipeline to a
// single string.
func normalizeText(s string) string {
	s = norm.NFC.String(s)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")

	lines := strings.Split(s, "\n")
	result := make([]string, 0, len(lines))
	previousBlank := false
	for _, line := range lines {
		line = strings.TrimRight(line, " \t")
		blank := line == ""
		if blank && previousBlank {
			continue
		}
		previousBlank = blank
		result = append(result, line)
	}
	return strings.TrimSpace(strings.Join(result, "\n"))
}

// normalizeContext applies NFC to string values in the context map.
// Keys and non-string values pass through untouched: context is
// opaque to the kernel, but mixed Unicode normal forms in it would
// make hashing of otherwise-identical intents diverge.
func normalizeContext(context map[string]any) map[string]any {
	if context == nil {
		return nil
	}
	result := make(map[string]any, len(context))
	for key, value := range context {
		if s, ok := value.(string); ok {
			result[norm.NFC.String(key)] = norm.NFC.String(s)
		} else {
			result[norm.NFC.String(key)] = value
		}
	}
	return result
}

// SanitizePath converts a path to the relative, forward-slash,
// non-traversing form required before a path may appear in any public
// artifact. Absolute prefixes and leading ".." segments are stripped.
// The result never identifies the host filesystem layout.
func SanitizePath(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	p = path.Clean(p)
	p = strings.TrimPrefix(p, "/")
	for strings.HasPrefix(p, "../") {
		p = strings.TrimPrefix(p, "../")
	}
	if p == ".." || p == "." || p == "" {
		return "."
	}
	return p
}

// ValidateRelativePath reports an error when p is not a clean
// relative path: absolute, traversing (".." segments), or containing
// backslashes. Used by components that must reject rather than fix a
// suspicious path.
func ValidateRelativePath(p string) error {
	if p == "" {
		return fmt.Errorf("empty path")
	}
	if strings.HasPrefix(p, "/") {
		return fmt.Errorf("absolute path %q not allowed", p)
	}
	if strings.Contains(p, "\\") {
		return fmt.Errorf("path %q contains backslashes", p)
	}
	cleaned := path.Clean(p)
	if cleaned != p {
		return fmt.Errorf("path %q is not in clean form (want %q)", p, cleaned)
	}
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return fmt.Errorf("path %q escapes its root", p)
	}
	return nil
}
