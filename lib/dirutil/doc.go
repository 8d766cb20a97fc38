// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package dirutil provides the two recursive directory operations the
// escape hatch needs on both sides of the connection: [Clear] resets a
// scratch directory to empty without removing it, and [CopyTree]
// materializes a received artifact directory at its final location.
//
// Both are plain recursive walks over [os.ReadDir] entries. Recursion
// depth is bounded only by the depth of the tree being walked. Neither
// function follows symlinks specially: [Clear] removes the link itself,
// [CopyTree] copies whatever the link resolves to.
package dirutil
