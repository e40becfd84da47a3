// Copyright 2026 The Crucible Authors
// SPDX-License-Identifier: Apache-2.0

// Package version identifies the kernel build. The kernel version is
// embedded in every bundle so that an artifact can always be traced
// to the code that produced it.
package version

// Version is the kernel version string recorded in bundles and shown
// by the CLI. Overridden at release time via -ldflags.
var Version = "0.4.0-dev"

// Info returns the human-readable version string.
func Info() string {
	return Version
}
