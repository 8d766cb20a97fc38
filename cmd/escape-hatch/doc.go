// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// escape-hatch lets a sandboxed build run one command outside its
// sandbox.
//
// Inside the sandbox:
//
//	escape-hatch client <args...>
//
// connects to the server named by NIX_SANDBOX_ESCAPE_HATCH_PATH (a Unix
// socket) or SYSTEMD_SOCKET_ACTIVATE_ADDR (host:port), sends the
// arguments, prints the command's stdout and stderr, and copies its
// output to $out. It exits 1 if the command failed to run or exited
// nonzero.
//
// Outside, under systemd socket activation:
//
//	escape-hatch server [--config FILE] <builder>
//
// takes the one inherited socket, runs builder with the client's
// arguments and out=$RUNTIME_DIRECTORY/out, and streams the result back.
// It serves exactly one request and exits.
package main
