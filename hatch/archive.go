// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package hatch

import (
	"archive/tar"
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/bureau-foundation/escapehatch/lib/codec"
	"github.com/bureau-foundation/escapehatch/lib/dirutil"
	"github.com/bureau-foundation/escapehatch/lib/netutil"
)

// Names inside the result archive.
const (
	ResultRoot     = "result"
	FileOut        = "out"
	FileStdout     = "stdout"
	FileStderr     = "stderr"
	FileStatusCode = "status_code"
	FileError      = "error"
)

// WriteOutcome records outcome as files in directory: stdout, stderr
// and status_code for a completed run, error for a launch failure.
func WriteOutcome(directory string, outcome Outcome) error {
	var files map[string][]byte
	switch outcome := outcome.(type) {
	case Completed:
		files = map[string][]byte{
			FileStdout:     outcome.Stdout,
			FileStderr:     outcome.Stderr,
			FileStatusCode: []byte(strconv.Itoa(int(outcome.ExitStatus))),
		}
	case LaunchFailed:
		files = map[string][]byte{
			FileError: []byte(outcome.Message),
		}
	default:
		return fmt.Errorf("unknown outcome type %T", outcome)
	}

	for name, contents := range files {
		if err := os.WriteFile(filepath.Join(directory, name), contents, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", name, err)
		}
	}
	return nil
}

// WriteArchive writes directory to w as a tar stream with every entry
// under result/. Symlinks are stored as links and never followed. The
// tar trailer is written and all buffered data flushed before
// WriteArchive returns; w itself is not closed.
func WriteArchive(w io.Writer, directory string, compression codec.Compression) error {
	buffered := bufio.NewWriter(w)

	compressor, err := codec.NewWriter(buffered, compression)
	if err != nil {
		return err
	}

	archive := tar.NewWriter(compressor)
	walkErr := filepath.WalkDir(directory, func(name string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		relative, err := filepath.Rel(directory, name)
		if err != nil {
			return err
		}
		archiveName := ResultRoot
		if relative != "." {
			archiveName = path.Join(ResultRoot, filepath.ToSlash(relative))
		}

		return appendEntry(archive, name, archiveName, entry)
	})
	if walkErr != nil {
		return fmt.Errorf("archiving %s: %w", directory, walkErr)
	}

	if err := archive.Close(); err != nil {
		return fmt.Errorf("finishing archive: %w", err)
	}
	if err := compressor.Close(); err != nil {
		return fmt.Errorf("finishing %s stream: %w", compression, err)
	}
	if err := buffered.Flush(); err != nil {
		return fmt.Errorf("flushing archive: %w", err)
	}
	return nil
}

// appendEntry writes one header (and, for regular files, the contents)
// for the file at name.
func appendEntry(archive *tar.Writer, name, archiveName string, entry fs.DirEntry) error {
	// DirEntry.Info uses lstat semantics, so a symlink describes
	// itself rather than its target.
	info, err := entry.Info()
	if err != nil {
		return err
	}

	var linkTarget string
	if info.Mode()&fs.ModeSymlink != 0 {
		linkTarget, err = os.Readlink(name)
		if err != nil {
			return err
		}
	}

	header, err := tar.FileInfoHeader(info, linkTarget)
	if err != nil {
		return err
	}
	header.Name = archiveName
	if info.IsDir() {
		header.Name += "/"
	}

	if err := archive.WriteHeader(header); err != nil {
		return err
	}
	if !info.Mode().IsRegular() {
		return nil
	}

	file, err := os.Open(name)
	if err != nil {
		return err
	}
	defer file.Close()

	if _, err := io.Copy(archive, file); err != nil {
		return fmt.Errorf("archiving %s: %w", name, err)
	}
	return nil
}

// ExtractArchive clears directory (creating it if absent) and unpacks
// the tar stream from r into it. Directories, regular files, and
// symlinks are restored; other entry types are skipped. Entries that
// would land outside directory, directly or through an extracted
// symlink, are rejected with ErrUnsafeArchivePath. A stream with no
// entry under result/ (including an immediately closed connection) is
// ErrEmptyResponse.
func ExtractArchive(r io.Reader, directory string, compression codec.Compression) error {
	if err := os.MkdirAll(directory, 0o755); err != nil {
		return fmt.Errorf("creating unpack directory: %w", err)
	}
	if err := dirutil.Clear(directory); err != nil {
		return fmt.Errorf("clearing unpack directory: %w", err)
	}

	decompressor, err := codec.NewReader(bufio.NewReader(r), compression)
	if err != nil {
		return err
	}
	defer decompressor.Close()

	archive := tar.NewReader(decompressor)
	sawResult := false
	for {
		header, err := archive.Next()
		if errors.Is(err, io.EOF) {
			if !sawResult {
				return ErrEmptyResponse
			}
			return nil
		}
		if errors.Is(err, tar.ErrInsecurePath) {
			// Only reported when GODEBUG=tarinsecurepath=0.
			return fmt.Errorf("%w: %w", ErrUnsafeArchivePath, err)
		}
		if err != nil {
			return fmt.Errorf("reading archive: %w", classifyReadError(err))
		}

		target, err := extractPath(directory, header.Name)
		if err != nil {
			return err
		}
		sawResult = sawResult || inResultTree(header.Name)
		if err := extractEntry(archive, header, target); err != nil {
			return fmt.Errorf("extracting %s: %w", header.Name, classifyReadError(err))
		}
	}
}

// classifyReadError marks errors caused by the stream ending early.
func classifyReadError(err error) error {
	if errors.Is(err, io.ErrUnexpectedEOF) || netutil.IsExpectedCloseError(err) {
		return fmt.Errorf("%w: %w", ErrTruncatedArchive, err)
	}
	return err
}

func inResultTree(name string) bool {
	cleaned := path.Clean(name)
	return cleaned == ResultRoot || strings.HasPrefix(cleaned, ResultRoot+"/")
}

// extractPath resolves an archive entry name to a path inside root.
func extractPath(root, name string) (string, error) {
	cleaned := path.Clean(strings.TrimSuffix(name, "/"))
	if cleaned == "." || path.IsAbs(cleaned) || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("%w: %q", ErrUnsafeArchivePath, name)
	}

	// Every parent must be a real directory. An earlier entry could
	// have planted a symlink to somewhere outside root.
	current := root
	components := strings.Split(cleaned, "/")
	for _, component := range components[:len(components)-1] {
		current = filepath.Join(current, component)
		info, err := os.Lstat(current)
		if errors.Is(err, fs.ErrNotExist) {
			break
		}
		if err != nil {
			return "", err
		}
		if info.Mode()&fs.ModeSymlink != 0 {
			return "", fmt.Errorf("%w: %q traverses symlink %s", ErrUnsafeArchivePath, name, current)
		}
	}

	return filepath.Join(root, filepath.FromSlash(cleaned)), nil
}

func extractEntry(archive *tar.Reader, header *tar.Header, target string) error {
	mode := header.FileInfo().Mode().Perm()

	switch header.Typeflag {
	case tar.TypeDir:
		return os.MkdirAll(target, mode|0o700)

	case tar.TypeReg:
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		file, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
		if err != nil {
			return err
		}
		if _, err := io.Copy(file, archive); err != nil {
			file.Close()
			return err
		}
		return file.Close()

	case tar.TypeSymlink:
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		if err := os.Remove(target); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		return os.Symlink(header.Linkname, target)

	default:
		return nil
	}
}
