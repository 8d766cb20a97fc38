// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package transport establishes the single stream connection between
// an escape hatch client and server.
//
// On the client side, [Select] applies the server-location decision
// table to the loaded configuration: a Unix socket path, when present,
// always wins over a TCP address (systemd-socket-activate, the usual
// development harness, can only hand out TCP addresses, so a socket
// path in the environment is taken as deliberate). [Connect] dials the
// selected [Target] through a [Dialer] and never falls back to the
// other location.
//
// On the server side, [Acquirer] takes ownership of the descriptors an
// external supervisor passed in, through an injected [HandleSource].
// Exactly one descriptor is accepted. It may be a listening socket, in
// which case one connection is accepted from it, or an already
// connected stream (systemd Accept=yes). The raw descriptor never
// leaves the Acquirer; callers receive a [net.Conn].
package transport
