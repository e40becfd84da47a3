// Copyright 2026 The Crucible Authors
// SPDX-License-Identifier: Apache-2.0

package measure

import (
	"reflect"
	"testing"
)

func TestClampScore(t *testing.T) {
	tests := []struct {
		input int
		want  Score
	}{
		{-5, 0},
		{0, 0},
		{50, 50},
		{100, 100},
		{250, 100},
	}
	for _, test := range tests {
		if got := ClampScore(test.input); got != test.want {
			t.Errorf("ClampScore(%d) = %d, want %d", test.input, got, test.want)
		}
	}
}

func TestMeasureEntropyDeterministic(t *testing.T) {
	goal := "build a system for handling various user things"
	constraints := []string{"some kind of storage"}

	first := MeasureEntropy(goal, constraints)
	for i := 0; i < 20; i++ {
		if again := MeasureEntropy(goal, constraints); !reflect.DeepEqual(again, first) {
			t.Fatalf("measurement changed on iteration %d: %+v != %+v", i, again, first)
		}
	}
}

func TestMeasureEntropyVagueGoalScoresHigh(t *testing.T) {
	vague := MeasureEntropy("build a system", nil)
	if vague.EntropyScore < 50 {
		t.Errorf("vague goal entropy = %d, want >= 50", vague.EntropyScore)
	}
	if vague.UnresolvedRefs == 0 {
		t.Error("expected unresolved references in \"build a system\"")
	}
	if vague.SchemaGaps == 0 {
		t.Error("expected schema gaps for an unconstrained build goal")
	}
}

func TestMeasureEntropyConcreteGoalScoresLow(t *testing.T) {
	concrete := MeasureEntropy(
		"Implement an HTTP health endpoint in Go returning JSON on port 8080",
		[]string{
			"go 1.22, net/http stdlib only",
			"endpoint: /healthz returns 200",
			"response body: {\"status\": \"ok\"}",
			"output: main.go single file",
		},
	)
	if concrete.EntropyScore > 30 {
		t.Errorf("concrete goal entropy = %d, want <= 30", concrete.EntropyScore)
	}
}

func TestMeasureEntropyMonotonicInUnresolvedRefs(t *testing.T) {
	base := MeasureEntropy("implement the parser in go using stdlib", nil)
	vaguer := MeasureEntropy("implement the parser in go using stdlib, somehow handle various stuff", nil)
	if vaguer.UnresolvedRefs <= base.UnresolvedRefs {
		t.Fatalf("expected more unresolved refs: %d <= %d", vaguer.UnresolvedRefs, base.UnresolvedRefs)
	}
	if vaguer.EntropyScore < base.EntropyScore {
		t.Errorf("entropy must not decrease with more unresolved refs: %d < %d",
			vaguer.EntropyScore, base.EntropyScore)
	}
}

func TestMeasureEntropyCountsContradictions(t *testing.T) {
	measured := MeasureEntropy("design the data layer", []string{
		"use sql for reporting",
		"use nosql for everything",
	})
	if measured.ContradictionCount == 0 {
		t.Error("expected sql/nosql contradiction to be counted")
	}
}

func TestMeasureDensityMonotonicInConcreteConstraints(t *testing.T) {
	sparse := MeasureDensity("build the exporter", []string{"should be nice"})
	rich := MeasureDensity("build the exporter", []string{
		"should be nice",
		"go 1.22",
		"output: report.json",
		"max latency 50ms",
	})
	if rich.ConcreteConstraints <= sparse.ConcreteConstraints {
		t.Fatalf("expected more concrete constraints: %d <= %d",
			rich.ConcreteConstraints, sparse.ConcreteConstraints)
	}
	if rich.DensityScore < sparse.DensityScore {
		t.Errorf("density must not decrease with more concrete constraints: %d < %d",
			rich.DensityScore, sparse.DensityScore)
	}
}

func TestMeasureDensityConstraintDepth(t *testing.T) {
	measured := MeasureDensity("configure storage", []string{"db: postgres, version=16"})
	if measured.ConstraintDepth < 2 {
		t.Errorf("depth = %d, want >= 2", measured.ConstraintDepth)
	}
}

func TestIsTerminal(t *testing.T) {
	config := DefaultTermination()

	lowEntropyHighDensity := IsTerminal(
		EntropyMeasurement{EntropyScore: 10},
		DensityMeasurement{DensityScore: 80},
		config,
	)
	if !lowEntropyHighDensity {
		t.Error("low entropy + high density should be terminal")
	}

	highEntropy := IsTerminal(
		EntropyMeasurement{EntropyScore: 80},
		DensityMeasurement{DensityScore: 80},
		config,
	)
	if highEntropy {
		t.Error("high entropy should not be terminal")
	}

	lowDensity := IsTerminal(
		EntropyMeasurement{EntropyScore: 10},
		DensityMeasurement{DensityScore: 10},
		config,
	)
	if lowDensity {
		t.Error("low density should not be terminal")
	}
}

func TestInformationGainMonotonic(t *testing.T) {
	density := DensityMeasurement{DensityScore: 20}

	low := InformationGain(EntropyMeasurement{EntropyScore: 50, UnresolvedRefs: 0, SchemaGaps: 1}, density)
	high := InformationGain(EntropyMeasurement{EntropyScore: 50, UnresolvedRefs: 3, SchemaGaps: 1}, density)
	if high < low {
		t.Errorf("gain must not decrease with more unresolved refs: %d < %d", high, low)
	}

	moreGaps := InformationGain(EntropyMeasurement{EntropyScore: 50, UnresolvedRefs: 0, SchemaGaps: 4}, density)
	if moreGaps < low {
		t.Errorf("gain must not decrease with more schema gaps: %d < %d", moreGaps, low)
	}
}

func TestScoreRange(t *testing.T) {
	// Pathological inputs must still land in 0..100.
	goals := []string{
		"",
		"build a system with some stuff and various things etc somehow",
		"x",
	}
	for _, goal := range goals {
		e := MeasureEntropy(goal, nil)
		if e.EntropyScore < 0 || e.EntropyScore > 100 {
			t.Errorf("entropy out of range for %q: %d", goal, e.EntropyScore)
		}
		d := MeasureDensity(goal, nil)
		if d.DensityScore < 0 || d.DensityScore > 100 {
			t.Errorf("density out of range for %q: %d", goal, d.DensityScore)
		}
	}
}
