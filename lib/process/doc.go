// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package process holds the escape-hatch entrypoint's last-resort error
// reporting: a failure is written to stderr as "error: <err>" and the
// process exits 1. Fatal is used both before the structured logger
// exists (configuration errors) and after a client or server run fails.
package process
