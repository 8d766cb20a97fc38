// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for escape hatch packages.
//
// [SocketDir] creates a temporary directory in /tmp suitable for Unix
// domain sockets. This exists because Unix domain sockets have a
// 108-byte path limit (sun_path in sockaddr_un), and t.TempDir() can
// return paths long enough to exceed it.
//
// [WriteScript] writes a throwaway /bin/sh script to stand in for the
// builder executable.
//
// [RequireReceive] wraps a select with a time.After fallback so that
// tests running a server goroutine cannot hang forever. The
// escape hatch itself has no timeouts; this one exists only in tests.
//
// [UniqueID] names fixtures (sockets, scripts) that share a directory.
//
// All helpers call t.Fatalf on failure rather than returning errors,
// since test setup failures are not recoverable.
//
// This package has no escape hatch dependencies.
package testutil
