// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package hatch

// Outcome is the result of attempting to run the builder: either
// [Completed] or [LaunchFailed]. The set of implementations is closed.
type Outcome interface {
	outcome()
}

// Completed means the builder ran to termination.
type Completed struct {
	// ExitStatus is the process exit code. A process killed by a
	// signal has no exit code and reports 0.
	ExitStatus uint8
	Stdout     []byte
	Stderr     []byte
}

// LaunchFailed means the builder could not be started at all
// (missing executable, permission denied, ...).
type LaunchFailed struct {
	Message string
}

func (Completed) outcome()    {}
func (LaunchFailed) outcome() {}

// exitStatus maps an exec exit code into the archived 0-255 range.
// exec.ExitError.ExitCode returns -1 for a signal-terminated process.
func exitStatus(code int) uint8 {
	switch {
	case code < 0:
		return 0
	case code > 255:
		return 255
	default:
		return uint8(code)
	}
}
