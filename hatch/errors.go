// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package hatch

import (
	"errors"
	"fmt"
)

var (
	// ErrNoArgs is returned by the client when invoked without any
	// arguments to forward.
	ErrNoArgs = errors.New("no arguments to send to the escape hatch server")

	// ErrMissingBuilder is returned when the server is started without
	// a builder executable.
	ErrMissingBuilder = errors.New("missing builder executable")

	// ErrInvalidBuilder is returned when the server is started with
	// more than one argument. The builder is a single path; its
	// arguments come from the client.
	ErrInvalidBuilder = errors.New("invalid builder executable: expected exactly one path")

	// ErrInvalidRequest is returned when the request bytes are not
	// valid UTF-8. The client checks before sending; the server checks
	// what it receives.
	ErrInvalidRequest = errors.New("invalid request: arguments are not valid UTF-8")

	// ErrUnterminatedRequest is returned when the connection ends
	// before the request's NUL terminator.
	ErrUnterminatedRequest = errors.New("invalid request: connection closed before NUL terminator")

	// ErrEmptyResponse is returned when the server's response holds no
	// result/ tree, which is what a server that rejected the request
	// and hung up looks like from the client.
	ErrEmptyResponse = errors.New("server closed the connection without sending a result")

	// ErrTruncatedArchive is returned when the result archive stream
	// ends before its trailer.
	ErrTruncatedArchive = errors.New("connection closed before the archive was complete")

	// ErrUnsafeArchivePath is returned when a result archive entry
	// would be written outside the unpack directory.
	ErrUnsafeArchivePath = errors.New("unsafe path in result archive")
)

// Kind classifies a remote command failure.
type Kind int

const (
	// KindRunFailed means the builder could not be launched.
	KindRunFailed Kind = iota + 1

	// KindExitedNonzero means the builder ran and exited with a
	// nonzero status.
	KindExitedNonzero
)

// String returns the human-readable failure kind.
func (k Kind) String() string {
	switch k {
	case KindRunFailed:
		return "command run failed"
	case KindExitedNonzero:
		return "command exited nonzero"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// CommandError reports that the remote builder did not succeed. It is
// produced only on the client, by Summarize. Callers can use errors.As
// to extract the details:
//
//	var commandErr *hatch.CommandError
//	if errors.As(err, &commandErr) && commandErr.Kind == hatch.KindExitedNonzero {
//	    ... commandErr.Code ...
//	}
type CommandError struct {
	Kind Kind

	// Code is the builder's exit status. Set for KindExitedNonzero.
	Code uint8

	// Message is the server's launch failure text. Set for
	// KindRunFailed. Summarize has already printed it, so Error leaves
	// it out.
	Message string
}

func (e *CommandError) Error() string {
	switch e.Kind {
	case KindExitedNonzero:
		return fmt.Sprintf("%s: status %d", e.Kind, e.Code)
	}
	return e.Kind.String()
}
