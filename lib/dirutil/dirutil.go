// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package dirutil

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Clear removes everything below directory, leaving directory itself in
// place and empty. Subdirectories are emptied first and then removed.
// A read-only subdirectory (a previous builder's output, often 0555) is
// made owner-writable before it is emptied. Calling Clear on an
// already-empty directory is a no-op.
func Clear(directory string) error {
	entries, err := os.ReadDir(directory)
	if err != nil {
		return fmt.Errorf("reading %s: %w", directory, err)
	}

	for _, entry := range entries {
		path := filepath.Join(directory, entry.Name())
		if entry.IsDir() {
			if err := os.Chmod(path, 0o700); err != nil {
				return fmt.Errorf("making %s writable: %w", path, err)
			}
			if err := Clear(path); err != nil {
				return err
			}
		}
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("removing %s: %w", path, err)
		}
	}

	return nil
}

// CopyTree copies the contents of source into destination, creating
// destination and any missing parents. Subdirectories are copied
// recursively and files byte-for-byte with their permission bits.
// Existing files in destination with the same names are overwritten.
func CopyTree(source, destination string) error {
	info, err := os.Stat(source)
	if err != nil {
		return fmt.Errorf("stat %s: %w", source, err)
	}
	if err := os.MkdirAll(destination, info.Mode().Perm()|0o700); err != nil {
		return fmt.Errorf("creating %s: %w", destination, err)
	}

	entries, err := os.ReadDir(source)
	if err != nil {
		return fmt.Errorf("reading %s: %w", source, err)
	}

	for _, entry := range entries {
		sourcePath := filepath.Join(source, entry.Name())
		destinationPath := filepath.Join(destination, entry.Name())

		// Stat rather than entry.Type(): a symlink is copied as
		// whatever it points at.
		entryInfo, err := os.Stat(sourcePath)
		if err != nil {
			return fmt.Errorf("stat %s: %w", sourcePath, err)
		}

		if entryInfo.IsDir() {
			if err := CopyTree(sourcePath, destinationPath); err != nil {
				return err
			}
			continue
		}
		if err := CopyFile(sourcePath, destinationPath); err != nil {
			return err
		}
	}

	return nil
}

// CopyFile copies the contents and permission bits of the file at
// source to destination, replacing destination if it exists.
func CopyFile(source, destination string) error {
	input, err := os.Open(source)
	if err != nil {
		return fmt.Errorf("opening %s: %w", source, err)
	}
	defer input.Close()

	info, err := input.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", source, err)
	}

	output, err := os.OpenFile(destination, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("creating %s: %w", destination, err)
	}

	if _, err := io.Copy(output, input); err != nil {
		output.Close()
		return fmt.Errorf("copying %s to %s: %w", source, destination, err)
	}
	if err := output.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", destination, err)
	}

	// OpenFile only applies the mode on creation; an existing
	// destination keeps its old bits otherwise.
	if err := os.Chmod(destination, info.Mode().Perm()); err != nil {
		return fmt.Errorf("chmod %s: %w", destination, err)
	}
	return nil
}
