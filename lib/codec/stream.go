// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression names the algorithm applied to the archive stream. The
// string values appear in configuration files.
type Compression string

const (
	// None sends the archive uncompressed.
	None Compression = "none"

	// Zstd compresses with zstd at the default level.
	Zstd Compression = "zstd"

	// LZ4 compresses with the LZ4 frame format.
	LZ4 Compression = "lz4"
)

// ParseCompression parses a compression name. The empty string is
// treated as None.
func ParseCompression(name string) (Compression, error) {
	switch Compression(name) {
	case "", None:
		return None, nil
	case Zstd:
		return Zstd, nil
	case LZ4:
		return LZ4, nil
	default:
		return "", fmt.Errorf("unknown compression %q (want none, zstd, or lz4)", name)
	}
}

// String returns the configuration name.
func (c Compression) String() string {
	if c == "" {
		return string(None)
	}
	return string(c)
}

// NewWriter returns a writer that compresses into w. The caller must
// Close it to flush; w itself is left open.
func NewWriter(w io.Writer, compression Compression) (io.WriteCloser, error) {
	switch compression {
	case "", None:
		return nopWriteCloser{w}, nil

	case Zstd:
		encoder, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return nil, fmt.Errorf("zstd writer: %w", err)
		}
		return encoder, nil

	case LZ4:
		return lz4.NewWriter(w), nil

	default:
		return nil, fmt.Errorf("unsupported compression %q", string(compression))
	}
}

// NewReader returns a reader that decompresses from r. Closing it
// releases decoder resources and leaves r open.
func NewReader(r io.Reader, compression Compression) (io.ReadCloser, error) {
	switch compression {
	case "", None:
		return io.NopCloser(r), nil

	case Zstd:
		decoder, err := zstd.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("zstd reader: %w", err)
		}
		return decoder.IOReadCloser(), nil

	case LZ4:
		return io.NopCloser(lz4.NewReader(r)), nil

	default:
		return nil, fmt.Errorf("unsupported compression %q", string(compression))
	}
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }
