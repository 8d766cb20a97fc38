// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package hatch

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os/exec"
	"path/filepath"
)

// Executor runs the builder executable on behalf of a client.
type Executor struct {
	// Builder is the path of the builder executable.
	Builder string

	// RuntimeDirectory is the server scratch directory. The builder's
	// $out points at RuntimeDirectory/out.
	RuntimeDirectory string

	Logger *slog.Logger
}

// NewExecutor validates the server's positional arguments (exactly one
// builder path) and returns an Executor.
func NewExecutor(args []string, runtimeDirectory string, logger *slog.Logger) (*Executor, error) {
	switch {
	case len(args) == 0:
		return nil, ErrMissingBuilder
	case len(args) > 1:
		return nil, ErrInvalidBuilder
	}
	return &Executor{
		Builder:          args[0],
		RuntimeDirectory: runtimeDirectory,
		Logger:           logger,
	}, nil
}

// OutPath returns the path handed to the builder as $out.
func (e *Executor) OutPath() string {
	return filepath.Join(e.RuntimeDirectory, FileOut)
}

// Run launches the builder with args and waits for it to exit. The
// builder inherits the server's environment plus out=OutPath(). Run
// never returns an error: a launch failure is reported as LaunchFailed.
func (e *Executor) Run(ctx context.Context, args []string) Outcome {
	cmd := exec.CommandContext(ctx, e.Builder, args...)
	cmd.Env = append(cmd.Environ(), "out="+e.OutPath())

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	e.Logger.Debug("running builder", "builder", e.Builder, "args", args, "out", e.OutPath())

	err := cmd.Run()
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			e.Logger.Debug("builder failed to launch", "builder", e.Builder, "error", err)
			return LaunchFailed{Message: err.Error()}
		}
	}

	status := exitStatus(cmd.ProcessState.ExitCode())
	e.Logger.Debug("builder exited",
		"builder", e.Builder,
		"status", status,
		"stdout_bytes", stdout.Len(),
		"stderr_bytes", stderr.Len(),
	)
	return Completed{
		ExitStatus: status,
		Stdout:     stdout.Bytes(),
		Stderr:     stderr.Bytes(),
	}
}
