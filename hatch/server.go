// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package hatch

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net"

	"github.com/bureau-foundation/escapehatch/lib/artifact"
	"github.com/bureau-foundation/escapehatch/lib/codec"
	"github.com/bureau-foundation/escapehatch/lib/dirutil"
	"github.com/bureau-foundation/escapehatch/lib/netutil"
)

// ConnAcquirer yields the server's single connection.
// *transport.Acquirer satisfies it.
type ConnAcquirer interface {
	Acquire() (net.Conn, error)
}

// Server serves exactly one escape hatch request.
type Server struct {
	executor    *Executor
	acquirer    ConnAcquirer
	compression codec.Compression
	logger      *slog.Logger
}

// NewServer returns a Server that runs requests through executor and
// takes its connection from acquirer.
func NewServer(executor *Executor, acquirer ConnAcquirer, compression codec.Compression, logger *slog.Logger) *Server {
	return &Server{
		executor:    executor,
		acquirer:    acquirer,
		compression: compression,
		logger:      logger,
	}
}

// Serve clears the runtime directory, acquires the connection, and
// handles the one request on it. The connection is closed on return.
func (s *Server) Serve(ctx context.Context) error {
	if err := dirutil.Clear(s.executor.RuntimeDirectory); err != nil {
		return fmt.Errorf("clearing runtime directory: %w", err)
	}

	conn, err := s.acquirer.Acquire()
	if err != nil {
		return err
	}
	defer func() {
		if err := conn.Close(); err != nil && !netutil.IsExpectedCloseError(err) {
			s.logger.Warn("closing connection", "error", err)
		}
	}()

	return s.Handle(ctx, conn)
}

// Handle reads one request from conn, runs the builder, and streams the
// result archive back on conn.
func (s *Server) Handle(ctx context.Context, conn io.ReadWriter) error {
	s.logger.Debug("reading args from client")
	args, err := ReadRequest(bufio.NewReader(conn))
	if err != nil {
		return err
	}

	outcome := s.executor.Run(ctx, args)
	if err := WriteOutcome(s.executor.RuntimeDirectory, outcome); err != nil {
		return fmt.Errorf("recording outcome: %w", err)
	}
	s.logArtifact()

	s.logger.Debug("writing archive", "compression", s.compression.String())
	if err := WriteArchive(conn, s.executor.RuntimeDirectory, s.compression); err != nil {
		return fmt.Errorf("sending result: %w", err)
	}
	return nil
}

// logArtifact logs the digest of the builder's output, if any.
func (s *Server) logArtifact() {
	if !s.logger.Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	digest, err := artifact.Digest(s.executor.OutPath())
	if errors.Is(err, fs.ErrNotExist) {
		s.logger.Debug("builder produced no output")
		return
	}
	if err != nil {
		s.logger.Debug("digesting builder output", "error", err)
		return
	}
	s.logger.Debug("builder output", "digest", artifact.FormatHash(digest))
}
