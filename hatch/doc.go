// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package hatch implements the escape hatch protocol: a sandboxed
// client asks an unsandboxed server to run the configured builder
// executable, and receives the outcome back as a tar archive.
//
// One connection carries exactly one exchange:
//
//	client → server   arg1 SP arg2 SP ... argN NUL
//	server → client   tar stream rooted at result/
//
// The request is the client's arguments joined by single spaces and
// terminated by one NUL byte, with no length prefix and no escaping.
// An argument that itself contains a space arrives at the builder as
// several arguments. This is part of the wire format and is kept as is.
//
// The archive holds the builder's outcome as files:
//
//	result/out          what the builder left at $out (file or directory)
//	result/stdout       captured standard output
//	result/stderr       captured standard error
//	result/status_code  decimal exit status
//	result/error        launch failure message
//
// Exactly one of status_code and error is present once the builder was
// attempted. A launch failure is data, not a server error: [Executor.Run]
// returns an [Outcome] in every case, and only the client's [Summarize]
// turns a failed outcome into a [*CommandError].
//
// [Server] handles one connection per process. [Client] performs one
// exchange and then propagates result/out to the sandbox's $out.
package hatch
