// Copyright 2026 The Crucible Authors
// SPDX-License-Identifier: Apache-2.0

// Package measure scores how ambiguous (entropy) and how concrete
// (density) a goal/constraints pair is. The scores are the oracle the
// decomposer consults at every step: high entropy and low density
// mean "keep splitting", low entropy and high density mean "this node
// is actionable as-is".
//
// Everything here is a pure function of its inputs: no clock, no
// randomness, no I/O. The exact weights are tuning choices; the
// binding contract is determinism, the 0–100 Score range, and
// monotonic sensitivity to unresolved references, schema gaps, and
// concrete constraints.
package measure

import "strings"

// Score is a bounded 0–100 quality scale. All scoring functions clamp
// into this range; a Score is never negative, never above 100, and
// integer-valued so it always has a canonical form.
type Score int

// ClampScore bounds v into the Score range.
func ClampScore(v int) Score {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return Score(v)
}

// EntropyMeasurement is the ambiguity profile of a goal/constraints
// pair. Higher EntropyScore means more ambiguous.
type EntropyMeasurement struct {
	EntropyScore       Score `json:"entropy_score"`
	UnresolvedRefs     int   `json:"unresolved_refs"`
	SchemaGaps         int   `json:"schema_gaps"`
	ContradictionCount int   `json:"contradiction_count"`
	BranchingFactor    int   `json:"branching_factor"`
}

// DensityMeasurement is the concreteness profile of a goal/constraints
// pair. Higher DensityScore means more actionable.
type DensityMeasurement struct {
	DensityScore        Score `json:"density_score"`
	ConcreteConstraints int   `json:"concrete_constraints"`
	SpecifiedOutputs    int   `json:"specified_outputs"`
	ConstraintDepth     int   `json:"constraint_depth"`
}

// vagueMarkers are phrases that reference something without pinning
// it down. Each occurrence counts as one unresolved reference. The
// list is fixed and ordered; matching is case-insensitive substring.
var vagueMarkers = []string{
	"a system",
	"some ",
	"somehow",
	"various",
	"etc",
	"stuff",
	"things",
	"flexible",
	"appropriate",
	"robust",
	"scalable",
	"user-friendly",
	"modern",
	"efficient",
	"as needed",
	"and so on",
	"tbd",
}

// gapProbe detects a topic the goal raises without any constraint
// resolving it. A probe fires when a trigger word appears in the
// combined text but no resolver word does.
type gapProbe struct {
	name      string
	triggers  []string
	resolvers []string
}

var gapProbes = []gapProbe{
	{
		name:     "technology",
		triggers: []string{"build", "implement", "create", "system", "app", "service", "tool"},
		resolvers: []string{
			"go ", "golang", "python", "rust", "typescript", "javascript", "java ",
			"node", "c++", "stdlib", "framework:",
		},
	},
	{
		name:      "data storage",
		triggers:  []string{"store", "storage", "persist", "database", "data ", "save"},
		resolvers: []string{"postgres", "sqlite", "mysql", "redis", "s3", "in-memory", "filesystem", "file-based", "dynamo"},
	},
	{
		name:      "authentication",
		triggers:  []string{"user", "login", "account", "auth", "permission"},
		resolvers: []string{"oauth", "jwt", "session", "api key", "no auth", "anonymous", "basic auth"},
	},
	{
		name:      "api style",
		triggers:  []string{"api", "endpoint", "interface", "client"},
		resolvers: []string{"rest", "grpc", "graphql", "http", "json-rpc", "websocket", "cli"},
	},
	{
		name:      "scale",
		triggers:  []string{"scale", "traffic", "load", "concurrent", "many "},
		resolvers: []string{"qps", "rps", "per second", "single user", "users:", "requests/"},
	},
}

// contradictionPairs are mutually exclusive commitments. A pair
// counts when both sides appear across the constraint set.
var contradictionPairs = [][2]string{
	{"sql", "nosql"},
	{"realtime", "batch"},
	{"monolith", "microservice"},
	{"stateless", "stateful"},
	{"synchronous", "asynchronous"},
}

// concreteMarkers signal that a constraint pins down a real decision:
// named technologies, units, protocols, file types.
var concreteMarkers = []string{
	"go ", "golang", "python", "rust", "typescript", "node", "java ",
	"postgres", "sqlite", "mysql", "redis", "s3",
	"rest", "grpc", "graphql", "http", "json", "yaml", "cbor", "protobuf",
	"oauth", "jwt",
	"ms", "mb", "gb", "kb", "qps", "rps", "port ",
	".go", ".json", ".md", ".txt", ".yaml", ".sql",
	"v1", "v2", "v3",
}

// outputMarkers signal that an expected output shape is specified.
var outputMarkers = []string{
	".go", ".json", ".md", ".txt", ".yaml", ".sql", ".csv", ".html",
	"endpoint", "schema", "table", "file", "binary", "report", "returns",
}

// MeasureEntropy scores the ambiguity of a goal/constraints pair.
// The score is monotonically non-decreasing in the number of
// unresolved references and schema gaps.
func MeasureEntropy(goal string, constraints []string) EntropyMeasurement {
	text := combinedText(goal, constraints)

	unresolved := 0
	for _, marker := range vagueMarkers {
		unresolved += strings.Count(text, marker)
	}

	gaps := 0
	branching := 0
	for _, probe := range gapProbes {
		if !anySubstring(text, probe.triggers) {
			continue
		}
		branching++
		if !anySubstring(text, probe.resolvers) {
			gaps++
		}
	}

	contradictions := 0
	for _, pair := range contradictionPairs {
		if strings.Contains(text, pair[0]) && strings.Contains(text, pair[1]) {
			contradictions++
		}
	}

	score := 20 +
		12*unresolved +
		15*gaps +
		10*contradictions +
		4*branching -
		4*len(constraints)

	// A very short goal leaves almost everything unsaid.
	words := len(strings.Fields(goal))
	if words < 8 {
		score += 2 * (8 - words)
	}

	return EntropyMeasurement{
		EntropyScore:       ClampScore(score),
		UnresolvedRefs:     unresolved,
		SchemaGaps:         gaps,
		ContradictionCount: contradictions,
		BranchingFactor:    branching,
	}
}

// MeasureDensity scores the concreteness of a goal/constraints pair.
// The score is monotonically non-decreasing in the number of concrete
// constraints.
func MeasureDensity(goal string, constraints []string) DensityMeasurement {
	concrete := 0
	depth := 0
	for _, constraint := range constraints {
		lowered := strings.ToLower(constraint)
		if anySubstring(lowered, concreteMarkers) || containsDigit(lowered) {
			concrete++
		}
		if d := qualifierDepth(lowered); d > depth {
			depth = d
		}
	}

	text := combinedText(goal, constraints)
	outputs := 0
	for _, marker := range outputMarkers {
		outputs += strings.Count(text, marker)
	}

	score := 10 + 18*concrete + 6*outputs + 5*depth

	return DensityMeasurement{
		DensityScore:        ClampScore(score),
		ConcreteConstraints: concrete,
		SpecifiedOutputs:    outputs,
		ConstraintDepth:     depth,
	}
}

// InformationGain estimates, on the Score scale, how much a
// clarifying question would reduce ambiguity at a node with the given
// measurements. Monotonically non-decreasing in unresolved references
// and schema gaps.
func InformationGain(entropy EntropyMeasurement, density DensityMeasurement) Score {
	gain := 10*entropy.UnresolvedRefs +
		12*entropy.SchemaGaps +
		int(entropy.EntropyScore)/4 +
		(100-int(density.DensityScore))/5
	return ClampScore(gain)
}

func combinedText(goal string, constraints []string) string {
	parts := make([]string, 0, len(constraints)+1)
	parts = append(parts, goal)
	parts = append(parts, constraints...)
	return strings.ToLower(strings.Join(parts, "\n"))
}

func anySubstring(text string, needles []string) bool {
	for _, needle := range needles {
		if strings.Contains(text, needle) {
			return true
		}
	}
	return false
}

func containsDigit(s string) bool {
	for _, r := range s {
		if r >= '0' && r <= '9' {
			return true
		}
	}
	return false
}

// qualifierDepth counts structural qualifiers in a constraint
// ("db: postgres, version=16" has depth 2). Deeper constraints carry
// more of a decision tree already resolved.
func qualifierDepth(constraint string) int {
	depth := 0
	for _, qualifier := range []string{":", "=", "->"} {
		depth += strings.Count(constraint, qualifier)
	}
	if depth > 5 {
		depth = 5
	}
	return depth
}
