// Copyright 2026 The Crucible Authors
// SPDX-License-Identifier: Apache-2.0

//go:build !linux

package sandbox

import "syscall"

// sysProcAttr on non-Linux platforms only detaches the process group;
// there is no parent-death signal to arm.
func sysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{
		Setpgid: true,
	}
}
