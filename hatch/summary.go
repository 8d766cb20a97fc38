// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package hatch

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/bureau-foundation/escapehatch/lib/dirutil"
)

// Summarize inspects the extracted result under directory, prints the
// builder's diagnostics to w, and reports whether the builder
// succeeded. The checks run in order and stop at the first failure:
//
//  1. result/error present: print it, return KindRunFailed.
//  2. result/stdout non-empty: print it.
//  3. result/stderr non-empty: print it.
//  4. result/status_code present and a nonzero uint8: print it, return
//     KindExitedNonzero. An unparseable status is treated as success.
func Summarize(directory string, w io.Writer) error {
	result := filepath.Join(directory, ResultRoot)

	message, found, err := readOptional(filepath.Join(result, FileError))
	if err != nil {
		return err
	}
	if found {
		fmt.Fprintf(w, "FAILED TO RUN ESCAPE HATCH COMMAND:\n%s\n", message)
		return &CommandError{Kind: KindRunFailed, Message: string(message)}
	}

	for _, stream := range []struct {
		file  string
		label string
	}{
		{FileStdout, "STDOUT"},
		{FileStderr, "STDERR"},
	} {
		contents, _, err := readOptional(filepath.Join(result, stream.file))
		if err != nil {
			return err
		}
		if len(contents) > 0 {
			fmt.Fprintf(w, "%s:\n%s\n", stream.label, contents)
		}
	}

	status, found, err := readOptional(filepath.Join(result, FileStatusCode))
	if err != nil {
		return err
	}
	if !found {
		return nil
	}
	code, err := strconv.ParseUint(string(status), 10, 8)
	if err != nil || code == 0 {
		return nil
	}
	fmt.Fprintf(w, "ESCAPE HATCH COMMAND EXITED WITH STATUS %d\n", code)
	return &CommandError{Kind: KindExitedNonzero, Code: uint8(code)}
}

// Propagate copies result/out under directory to destination. A
// directory is copied recursively and a file directly. It reports
// whether anything was copied: an empty destination or a missing
// result/out is not an error.
func Propagate(directory, destination string) (bool, error) {
	if destination == "" {
		return false, nil
	}

	source := filepath.Join(directory, ResultRoot, FileOut)
	info, err := os.Stat(source)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat %s: %w", source, err)
	}

	switch {
	case info.IsDir():
		if err := dirutil.CopyTree(source, destination); err != nil {
			return false, fmt.Errorf("propagating output directory: %w", err)
		}
	case info.Mode().IsRegular():
		if err := dirutil.CopyFile(source, destination); err != nil {
			return false, fmt.Errorf("propagating output file: %w", err)
		}
	default:
		return false, nil
	}
	return true, nil
}

// readOptional reads path, reporting found=false instead of an error
// when the file does not exist.
func readOptional(path string) (contents []byte, found bool, err error) {
	contents, err = os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading %s: %w", path, err)
	}
	return contents, true, nil
}
