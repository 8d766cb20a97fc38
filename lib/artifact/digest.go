// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package artifact

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Entry type tags folded into directory digests.
const (
	tagFile      byte = 'f'
	tagDirectory byte = 'd'
	tagSymlink   byte = 'l'
)

// Digest computes a content digest of the file, directory, or symlink
// at path. Symlinks are not followed: a link digests to its target
// string. Directory digests cover entry names, entry types, and the
// digests of each entry, in the sorted order [os.ReadDir] returns.
// Permission bits and timestamps are not included.
func Digest(path string) (Hash, error) {
	info, err := os.Lstat(path)
	if err != nil {
		return Hash{}, fmt.Errorf("stat %s: %w", path, err)
	}

	switch {
	case info.Mode()&os.ModeSymlink != 0:
		return digestSymlink(path)
	case info.IsDir():
		return digestDirectory(path)
	case info.Mode().IsRegular():
		return digestFile(path)
	default:
		return Hash{}, fmt.Errorf("%s: unsupported file type %v", path, info.Mode().Type())
	}
}

func digestFile(path string) (Hash, error) {
	file, err := os.Open(path)
	if err != nil {
		return Hash{}, fmt.Errorf("opening %s: %w", path, err)
	}
	defer file.Close()

	hasher := newHasher(fileDomainKey)
	if _, err := io.Copy(hasher, file); err != nil {
		return Hash{}, fmt.Errorf("reading %s: %w", path, err)
	}
	return sum(hasher), nil
}

func digestSymlink(path string) (Hash, error) {
	target, err := os.Readlink(path)
	if err != nil {
		return Hash{}, fmt.Errorf("readlink %s: %w", path, err)
	}
	hasher := newHasher(symlinkDomainKey)
	hasher.WriteString(target)
	return sum(hasher), nil
}

func digestDirectory(path string) (Hash, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return Hash{}, fmt.Errorf("reading %s: %w", path, err)
	}

	hasher := newHasher(directoryDomainKey)
	var lengthPrefix [8]byte
	for _, entry := range entries {
		childPath := filepath.Join(path, entry.Name())
		child, err := Digest(childPath)
		if err != nil {
			return Hash{}, err
		}

		tag := tagFile
		switch {
		case entry.Type()&os.ModeSymlink != 0:
			tag = tagSymlink
		case entry.IsDir():
			tag = tagDirectory
		}

		binary.BigEndian.PutUint64(lengthPrefix[:], uint64(len(entry.Name())))
		hasher.Write(lengthPrefix[:])
		hasher.WriteString(entry.Name())
		hasher.Write([]byte{tag})
		hasher.Write(child[:])
	}
	return sum(hasher), nil
}
