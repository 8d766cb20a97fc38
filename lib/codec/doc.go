// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec wraps the result archive stream in optional
// compression.
//
// The default, [None], is a pass-through and produces the plain tar
// stream that every peer understands. [Zstd] and [LZ4] are opt-in and
// must be configured identically on client and server; there is no
// negotiation on the wire.
//
// Writers returned by [NewWriter] must be closed to flush the final
// compressed frame. Closing never closes the underlying connection.
package codec
