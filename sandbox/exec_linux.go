// Copyright 2026 The Crucible Authors
// SPDX-License-Identifier: Apache-2.0

//go:build linux

package sandbox

import (
	"syscall"

	"golang.org/x/sys/unix"
)

// sysProcAttr configures spawned commands so they cannot outlive the
// executor: a fresh process group for clean timeout kills, and a
// parent-death signal so an executor crash takes the child with it.
func sysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{
		Setpgid:   true,
		Pdeathsig: unix.SIGKILL,
	}
}
