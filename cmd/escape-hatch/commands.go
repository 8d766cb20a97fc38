// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/pflag"

	"github.com/bureau-foundation/escapehatch/cmd/escape-hatch/cli"
	"github.com/bureau-foundation/escapehatch/hatch"
	"github.com/bureau-foundation/escapehatch/lib/config"
	"github.com/bureau-foundation/escapehatch/lib/version"
	"github.com/bureau-foundation/escapehatch/transport"
)

func root() *cli.Command {
	return &cli.Command{
		Name:        "escape-hatch",
		Description: "Run one command outside the build sandbox and bring its output back in.",
		Subcommands: []*cli.Command{
			clientCommand(),
			serverCommand(),
			versionCommand(),
		},
	}
}

func clientCommand() *cli.Command {
	return &cli.Command{
		Name:            "client",
		Summary:         "Send arguments to the escape hatch server and collect the result",
		Usage:           "escape-hatch client <args...>",
		PassthroughArgs: true,
		Run: func(args []string) error {
			cfg, err := config.Load(config.FromEnvironment(), "")
			if err != nil {
				return err
			}
			logger := commandLogger(cfg, "client")
			return hatch.NewClient(cfg, os.Stderr, logger).Run(context.Background(), args)
		},
	}
}

func serverCommand() *cli.Command {
	var configFile string
	return &cli.Command{
		Name:    "server",
		Summary: "Serve one escape hatch request on the socket-activated descriptor",
		Usage:   "escape-hatch server [--config FILE] <builder>",
		Examples: []cli.Example{
			{
				Description: "Serve with zstd-compressed results",
				Command:     "escape-hatch server --config /etc/escape-hatch.yaml /run/current-system/sw/bin/builder",
			},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("server", pflag.ContinueOnError)
			flagSet.StringVar(&configFile, "config", "", "YAML config file (default $"+config.EnvConfigFile+")")
			return flagSet
		},
		Run: func(args []string) error {
			cfg, err := config.Load(config.FromEnvironment(), configFile)
			if err != nil {
				return err
			}
			runtimeDirectory, err := cfg.RequireRuntimeDirectory()
			if err != nil {
				return err
			}

			logger := commandLogger(cfg, "server")
			executor, err := hatch.NewExecutor(args, runtimeDirectory, logger)
			if err != nil {
				return err
			}
			acquirer := transport.NewAcquirer(transport.SystemdHandles{UnsetEnvironment: true}, logger)
			return hatch.NewServer(executor, acquirer, cfg.Compression, logger).Serve(context.Background())
		},
	}
}

func versionCommand() *cli.Command {
	return &cli.Command{
		Name:    "version",
		Summary: "Print version information",
		Run: func(args []string) error {
			fmt.Println(version.Full())
			return nil
		},
	}
}

// commandLogger scopes the logger to one invocation. The run ID ties
// together the records of one client or server process in a shared
// journal.
func commandLogger(cfg *config.Config, command string) *slog.Logger {
	return cli.NewCommandLogger(cfg.Debug).With(
		"command", command,
		"run", uuid.NewString(),
	)
}
