// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package artifact computes content digests of builder outputs.
//
// [Digest] hashes a file, directory, or symlink with keyed BLAKE3,
// using a separate domain key per entry type. Both sides of the escape
// hatch log the digest of the artifact they hold (the server before
// archiving, the client after propagation) so that a transfer can be
// checked end to end from the two logs. Tests use it to compare whole
// trees in one assertion.
package artifact
