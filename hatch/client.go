// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package hatch

import (
	"context"
	"io"
	"log/slog"

	"github.com/bureau-foundation/escapehatch/lib/artifact"
	"github.com/bureau-foundation/escapehatch/lib/config"
	"github.com/bureau-foundation/escapehatch/transport"
)

// Client performs one escape hatch exchange.
type Client struct {
	config *config.Config

	// diagnostics receives the builder's stdout/stderr and failure
	// messages. Normally os.Stderr.
	diagnostics io.Writer

	logger *slog.Logger
}

// NewClient returns a Client using cfg for the server location, unpack
// directory, compression, and $out.
func NewClient(cfg *config.Config, diagnostics io.Writer, logger *slog.Logger) *Client {
	return &Client{config: cfg, diagnostics: diagnostics, logger: logger}
}

// Run sends args to the server, unpacks the result archive, prints the
// builder's diagnostics, and on success copies the produced artifact to
// $out. A failed or nonzero builder is returned as *CommandError.
func (c *Client) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return ErrNoArgs
	}
	if err := ValidateRequest(args); err != nil {
		return err
	}

	conn, target, err := transport.Connect(ctx, c.config)
	if err != nil {
		return err
	}
	defer conn.Close()

	c.logger.Debug("connected", "target", target.String())
	return c.exchange(conn, args)
}

// exchange runs the request/response protocol over an established
// connection.
func (c *Client) exchange(conn io.ReadWriter, args []string) error {
	if err := WriteRequest(conn, args); err != nil {
		return err
	}
	return c.receive(conn)
}

// receive reads the result archive from conn and acts on it.
func (c *Client) receive(conn io.Reader) error {
	unpackDirectory := c.config.UnpackDirectory
	c.logger.Debug("unpacking result", "directory", unpackDirectory)
	if err := ExtractArchive(conn, unpackDirectory, c.config.Compression); err != nil {
		return err
	}

	if err := Summarize(unpackDirectory, c.diagnostics); err != nil {
		return err
	}

	propagated, err := Propagate(unpackDirectory, c.config.Out)
	if err != nil {
		return err
	}
	if propagated {
		c.logPropagated()
	}
	return nil
}

func (c *Client) logPropagated() {
	if !c.logger.Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	digest, err := artifact.Digest(c.config.Out)
	if err != nil {
		c.logger.Debug("digesting propagated output", "error", err)
		return
	}
	c.logger.Debug("propagated output", "out", c.config.Out, "digest", artifact.FormatHash(digest))
}
