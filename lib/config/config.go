// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"github.com/bureau-foundation/escapehatch/lib/codec"
)

// Environment variable names read by [Load].
const (
	EnvRuntimeDirectory = "RUNTIME_DIRECTORY"
	EnvSocketPath       = "NIX_SANDBOX_ESCAPE_HATCH_PATH"
	EnvNetworkAddress   = "SYSTEMD_SOCKET_ACTIVATE_ADDR"
	EnvOut              = "out"
	EnvConfigFile       = "ESCAPE_HATCH_CONFIG"
	EnvUnpackDirectory  = "ESCAPE_HATCH_UNPACK_DIRECTORY"
	EnvDebug            = "ESCAPE_HATCH_DEBUG"
)

// DefaultUnpackDirectory is the client's scratch directory when none is
// configured, relative to the working directory.
const DefaultUnpackDirectory = "tmp"

var (
	// ErrMissingRuntimeDirectory is returned by RequireRuntimeDirectory
	// when RUNTIME_DIRECTORY is unset.
	ErrMissingRuntimeDirectory = errors.New("missing runtime directory: " + EnvRuntimeDirectory + " is not set")

	// ErrBadRuntimeDirectory is returned when RUNTIME_DIRECTORY is set
	// but is not valid UTF-8.
	ErrBadRuntimeDirectory = errors.New("bad runtime directory: " + EnvRuntimeDirectory + " is not valid UTF-8")
)

// LookupFunc reports the value of an environment variable and whether
// it is set. [os.LookupEnv] satisfies it.
type LookupFunc func(name string) (string, bool)

// FromEnvironment returns a LookupFunc backed by the process environment.
func FromEnvironment() LookupFunc {
	return os.LookupEnv
}

// Config is the complete escape hatch configuration. It is built once
// at process start and not modified afterwards.
type Config struct {
	// RuntimeDirectory is the server's scratch directory. Only
	// meaningful on the server side.
	RuntimeDirectory string

	// SocketPath is the Unix socket the client connects to. Takes
	// priority over NetworkAddress when both are set.
	SocketPath string

	// NetworkAddress is the TCP host:port the client connects to when
	// SocketPath is empty.
	NetworkAddress string

	// Out is the client's artifact destination ($out). Empty means the
	// artifact is not propagated.
	Out string

	// UnpackDirectory is where the client extracts the result archive.
	UnpackDirectory string

	// Compression is the archive stream compression. Both sides must
	// agree; the default is none.
	Compression codec.Compression

	// Debug enables debug-level logging.
	Debug bool

	// File is the YAML file that was merged, or empty.
	File string
}

// File is the on-disk YAML layout.
//
//	debug: true
//	archive:
//	  compression: zstd
//	client:
//	  unpack_directory: /build/escape-hatch
type File struct {
	Debug   bool              `yaml:"debug"`
	Archive ArchiveFileConfig `yaml:"archive"`
	Client  ClientFileConfig  `yaml:"client"`
}

// ArchiveFileConfig configures the result archive stream.
type ArchiveFileConfig struct {
	// Compression is one of "none", "zstd", "lz4".
	Compression string `yaml:"compression"`
}

// ClientFileConfig configures the client side.
type ClientFileConfig struct {
	// UnpackDirectory overrides DefaultUnpackDirectory.
	UnpackDirectory string `yaml:"unpack_directory"`
}

// Default returns the configuration used before any file or environment
// values are applied.
func Default() *Config {
	return &Config{
		UnpackDirectory: DefaultUnpackDirectory,
		Compression:     codec.None,
	}
}

// Load builds the configuration from the environment and, if configFile
// is non-empty or ESCAPE_HATCH_CONFIG is set, from a YAML file. The
// explicit configFile argument wins over the environment variable.
func Load(lookup LookupFunc, configFile string) (*Config, error) {
	cfg := Default()

	if configFile == "" {
		configFile, _ = lookup(EnvConfigFile)
	}
	if configFile != "" {
		if err := cfg.loadFile(configFile); err != nil {
			return nil, fmt.Errorf("loading %s: %w", configFile, err)
		}
	}

	cfg.applyEnvironment(lookup)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return err
	}

	c.File = path
	c.Debug = file.Debug
	if file.Archive.Compression != "" {
		compression, err := codec.ParseCompression(file.Archive.Compression)
		if err != nil {
			return fmt.Errorf("archive.compression: %w", err)
		}
		c.Compression = compression
	}
	if file.Client.UnpackDirectory != "" {
		c.UnpackDirectory = file.Client.UnpackDirectory
	}
	return nil
}

func (c *Config) applyEnvironment(lookup LookupFunc) {
	// An empty value counts as unset throughout, so that
	// "VAR= escape-hatch client" behaves like VAR being absent.
	if value, ok := lookup(EnvRuntimeDirectory); ok && value != "" {
		c.RuntimeDirectory = value
	}
	if value, ok := lookup(EnvSocketPath); ok && value != "" {
		c.SocketPath = value
	}
	if value, ok := lookup(EnvNetworkAddress); ok && value != "" {
		c.NetworkAddress = value
	}
	if value, ok := lookup(EnvOut); ok && value != "" {
		c.Out = value
	}
	if value, ok := lookup(EnvUnpackDirectory); ok && value != "" {
		c.UnpackDirectory = value
	}
	if value, ok := lookup(EnvDebug); ok && value != "" {
		c.Debug = true
	}
}

// Validate checks values that are wrong regardless of which side is
// running.
func (c *Config) Validate() error {
	var errs []error

	if c.UnpackDirectory == "" {
		errs = append(errs, fmt.Errorf("unpack directory must not be empty"))
	}
	if _, err := codec.ParseCompression(string(c.Compression)); err != nil {
		errs = append(errs, fmt.Errorf("archive compression: %w", err))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// RequireRuntimeDirectory returns the runtime directory, or an error if
// it is unset or not valid UTF-8. Called by the server only.
func (c *Config) RequireRuntimeDirectory() (string, error) {
	if c.RuntimeDirectory == "" {
		return "", ErrMissingRuntimeDirectory
	}
	if !utf8.ValidString(c.RuntimeDirectory) {
		return "", ErrBadRuntimeDirectory
	}
	return c.RuntimeDirectory, nil
}

// HasServerLocation reports whether either client transport setting is
// present.
func (c *Config) HasServerLocation() bool {
	return c.SocketPath != "" || c.NetworkAddress != ""
}
