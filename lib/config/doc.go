// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads the escape hatch configuration.
//
// All environment reads happen in one place: [Load] takes a lookup
// function (normally [os.LookupEnv] via [FromEnvironment]) and returns
// a [Config] that is treated as immutable and passed to every component.
// Nothing else in the module calls os.Getenv.
//
// An optional YAML file named by ESCAPE_HATCH_CONFIG (or passed
// explicitly) supplies settings that have no dedicated environment
// variable or that are awkward to set from inside a sandbox: archive
// compression, the client's unpack directory, and debug logging.
// Environment variables win over file values when both are set.
//
// Side-specific requirements are checked separately: a client never
// needs RUNTIME_DIRECTORY, so [Config.RequireRuntimeDirectory] is called
// only by the server entrypoint.
package config
