// Copyright 2026 The Crucible Authors
// SPDX-License-Identifier: Apache-2.0

package measure

// TerminationConfig bounds when a decomposition node stops splitting.
type TerminationConfig struct {
	// MaxEntropy is the highest entropy score a terminal node may
	// have. Above it, the node is still too ambiguous to act on.
	MaxEntropy Score `json:"max_entropy"`

	// MinDensity is the lowest density score a terminal node may
	// have. Below it, the node does not pin down enough to act on.
	MinDensity Score `json:"min_density"`
}

// DefaultTermination returns the standard termination thresholds.
func DefaultTermination() TerminationConfig {
	return TerminationConfig{
		MaxEntropy: 30,
		MinDensity: 40,
	}
}

// IsTerminal reports whether a node with the given measurements is
// unambiguous enough to stop splitting.
func IsTerminal(entropy EntropyMeasurement, density DensityMeasurement, config TerminationConfig) bool {
	return entropy.EntropyScore <= config.MaxEntropy && density.DensityScore >= config.MinDensity
}
