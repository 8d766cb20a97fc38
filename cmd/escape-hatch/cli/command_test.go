// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"bytes"
	"slices"
	"strings"
	"testing"

	"github.com/spf13/pflag"
)

func TestCommand_Execute_DispatchesToSubcommand(t *testing.T) {
	var called string

	root := &Command{
		Name: "escape-hatch",
		Subcommands: []*Command{
			{Name: "version", Run: func(args []string) error { called = "version"; return nil }},
			{Name: "server", Run: func(args []string) error { called = "server"; return nil }},
		},
	}

	if err := root.Execute([]string{"server"}); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if called != "server" {
		t.Errorf("dispatched to %q, want %q", called, "server")
	}
}

func TestCommand_Execute_FlagParsing(t *testing.T) {
	var configFile string
	var receivedArgs []string

	server := &Command{
		Name: "server",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("server", pflag.ContinueOnError)
			flagSet.StringVar(&configFile, "config", "", "config file")
			return flagSet
		},
		Run: func(args []string) error {
			receivedArgs = args
			return nil
		},
	}
	root := &Command{Name: "escape-hatch", Subcommands: []*Command{server}}

	if err := root.Execute([]string{"server", "--config", "/etc/hatch.yaml", "/bin/builder"}); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if configFile != "/etc/hatch.yaml" {
		t.Errorf("config = %q, want /etc/hatch.yaml", configFile)
	}
	if !slices.Equal(receivedArgs, []string{"/bin/builder"}) {
		t.Errorf("args = %v, want [/bin/builder]", receivedArgs)
	}
}

func TestCommand_Execute_PassthroughArgs(t *testing.T) {
	var receivedArgs []string
	client := &Command{
		Name:            "client",
		PassthroughArgs: true,
		Flags: func() *pflag.FlagSet {
			return pflag.NewFlagSet("client", pflag.ContinueOnError)
		},
		Run: func(args []string) error {
			receivedArgs = args
			return nil
		},
	}
	root := &Command{Name: "escape-hatch", Subcommands: []*Command{client}}

	args := []string{"--help", "-x", "build", "help"}
	if err := root.Execute(append([]string{"client"}, args...)); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if !slices.Equal(receivedArgs, args) {
		t.Errorf("args = %v, want %v", receivedArgs, args)
	}
}

func TestCommand_Execute_UnknownFlagSuggestion(t *testing.T) {
	server := &Command{
		Name: "server",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("server", pflag.ContinueOnError)
			flagSet.String("config", "", "config file")
			return flagSet
		},
		Run: func(args []string) error { return nil },
	}
	root := &Command{Name: "escape-hatch", Subcommands: []*Command{server}}

	err := root.Execute([]string{"server", "--conifg", "x"})
	if err == nil {
		t.Fatal("expected error for unknown flag")
	}
	if !strings.Contains(err.Error(), "did you mean --config?") {
		t.Errorf("error = %q, want suggestion for --config", err)
	}
	if !strings.Contains(err.Error(), "escape-hatch server --help") {
		t.Errorf("error = %q, want help pointer", err)
	}
}

func TestCommand_Execute_UnknownSubcommand(t *testing.T) {
	root := &Command{
		Name: "escape-hatch",
		Subcommands: []*Command{
			{Name: "client", Run: func(args []string) error { return nil }},
			{Name: "server", Run: func(args []string) error { return nil }},
		},
	}

	tests := []struct {
		name    string
		input   string
		wantSub string
	}{
		{"typo", "sevrer", `did you mean "server"?`},
		{"unrelated", "frobnicate", `unknown command "frobnicate"`},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			err := root.Execute([]string{test.input})
			if err == nil {
				t.Fatal("expected error for unknown subcommand")
			}
			if !strings.Contains(err.Error(), test.wantSub) {
				t.Errorf("error = %q, want it to contain %q", err, test.wantSub)
			}
		})
	}
}

func TestCommand_Execute_NoArgsRequiresSubcommand(t *testing.T) {
	var help bytes.Buffer
	root := &Command{
		Name:        "escape-hatch",
		HelpOutput:  &help,
		Subcommands: []*Command{{Name: "client", Summary: "Send a request", Run: func(args []string) error { return nil }}},
	}
	err := root.Execute(nil)
	if err == nil || !strings.Contains(err.Error(), "subcommand required") {
		t.Fatalf("Execute(nil) error = %v, want subcommand required", err)
	}
	if !strings.Contains(help.String(), "Send a request") {
		t.Errorf("help output = %q, want the subcommand listing", help.String())
	}
}

func TestCommand_Execute_HelpFlag(t *testing.T) {
	var help bytes.Buffer
	called := false
	server := &Command{
		Name:    "server",
		Summary: "Serve one request",
		Run:     func(args []string) error { called = true; return nil },
	}
	root := &Command{Name: "escape-hatch", HelpOutput: &help, Subcommands: []*Command{server}}

	if err := root.Execute([]string{"server", "--help"}); err != nil {
		t.Fatalf("Execute(server --help) error: %v", err)
	}
	if called {
		t.Error("Run called for --help")
	}
	if !strings.Contains(help.String(), "escape-hatch server [flags]") {
		t.Errorf("help output = %q, want the server usage via the root's writer", help.String())
	}
}

func TestCommand_PrintHelp(t *testing.T) {
	root := &Command{
		Name:        "escape-hatch",
		Description: "Run a command outside the build sandbox.",
		Subcommands: []*Command{
			{Name: "client", Summary: "Send a request"},
			{
				Name:    "server",
				Summary: "Serve one request",
				Flags: func() *pflag.FlagSet {
					flagSet := pflag.NewFlagSet("server", pflag.ContinueOnError)
					flagSet.String("config", "", "YAML config file")
					return flagSet
				},
				Examples: []Example{{Description: "Serve with a builder", Command: "escape-hatch server /bin/builder"}},
			},
		},
	}

	var buffer bytes.Buffer
	root.PrintHelp(&buffer)
	for _, want := range []string{
		"Run a command outside the build sandbox.",
		"escape-hatch <command> [flags]",
		"client",
		"Serve one request",
		"Run 'escape-hatch <command> --help'",
	} {
		if !strings.Contains(buffer.String(), want) {
			t.Errorf("root help missing %q:\n%s", want, buffer.String())
		}
	}

	server := root.Subcommands[1]
	server.parent = root
	buffer.Reset()
	server.PrintHelp(&buffer)
	for _, want := range []string{"--config", "YAML config file", "# Serve with a builder", "escape-hatch server [flags]"} {
		if !strings.Contains(buffer.String(), want) {
			t.Errorf("server help missing %q:\n%s", want, buffer.String())
		}
	}
}
