// Copyright 2026 The Crucible Authors
// SPDX-License-Identifier: Apache-2.0

// Package sandbox is the only package in the repository allowed to
// touch the real filesystem mutably or spawn processes. It implements
// the executor side of the proposal protocol: given a proposal, it
// carries out the actions inside a fresh, uniquely-named temp
// directory under the limits of a policy profile, runs the acceptance
// tests, harvests outputs through a hardened collector, and reports
// everything as ExecutionEvidence.
//
// The sandbox is untrusted by construction. Nothing it returns is
// believed until the kernel validates the evidence against the
// proposal; failures and timeouts are recorded as data, never raised
// as errors. The sandbox directory is exclusively owned by one
// execution attempt and its path never appears in public output.
package sandbox
