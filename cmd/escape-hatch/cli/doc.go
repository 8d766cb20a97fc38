// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli provides the small command framework behind the
// escape-hatch binary.
//
// [Command] is a named subcommand with optional nested
// [Command.Subcommands], a [pflag.FlagSet] factory, and a Run function.
// [Command.Execute] routes the first positional argument to a
// subcommand, parses flags, and prints structured help. Commands that
// forward their arguments to something else (the client forwards them
// to the builder) set [Command.PassthroughArgs] so that nothing is
// interpreted on the way through.
//
// Unknown subcommands and flags get a "did you mean" suggestion based
// on Levenshtein distance (threshold: distance <= 3).
//
// [NewCommandLogger] builds the slog logger every subcommand uses.
package cli
