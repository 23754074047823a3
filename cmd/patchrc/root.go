// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"io"

	"github.com/fatih/color"
	"github.com/pterm/pterm"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/walteh/patchrc/cmd/patchrc/commands"
	"github.com/walteh/patchrc/cmd/patchrc/opts"
	"github.com/walteh/patchrc/pkg/document"
	"github.com/walteh/patchrc/pkg/report"
)

// newRootCmd wires the command tree. Human output goes to stderr so that
// stdout can carry the patched document.
func newRootCmd(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	var (
		debug   bool
		noColor bool
	)

	store := document.NewStore(stdin, stdout)
	rootOpts := &opts.RootOpts{
		Source: store,
		Sink:   store,
	}

	rootCmd := &cobra.Command{
		Use:   "patchrc",
		Short: "Apply ordered literal find/replace patches to a text file",
		Long: `patchrc rewrites a document by applying a patchset: an ordered list of
exact-match find/replace steps. Each step replaces only the first occurrence of
its needle in the document as left by the previous steps. Missing needles either
abort the run (strict) or are reported as skipped (lenient).`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if noColor {
				color.NoColor = true
				pterm.DisableStyling()
			}

			zlog := setupLogging(stderr, debug)
			ctx := zlog.WithContext(cmd.Context())
			ctx = report.NewContext(ctx, report.New(stderr, zlog))
			cmd.SetContext(ctx)
			return nil
		},
	}

	addRootFlags(rootCmd, &debug, &noColor)

	rootCmd.AddCommand(
		commands.NewApplyCmd(rootOpts),
		newVersionCmd(stdout),
	)

	rootCmd.SetIn(stdin)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	return rootCmd
}

// addRootFlags adds shared flags to the root command
// run executes the root command and reports a failure through the reporter
// installed by the pre-run hook. It returns the process exit code.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	rootCmd := newRootCmd(stdin, stdout, stderr)
	rootCmd.SetArgs(args)

	cmd, err := rootCmd.ExecuteContextC(ctx)
	if err == nil {
		return 0
	}

	var reporter *report.Logger
	if cmd != nil {
		reporter, _ = report.Lookup(cmd.Context())
	}
	// failed before the pre-run hook, e.g. an unknown command
	if reporter == nil {
		reporter = report.New(stderr, zerolog.Nop())
	}
	reporter.Error(err.Error())
	return 1
}

func addRootFlags(cmd *cobra.Command, debug, noColor *bool) {
	cmd.PersistentFlags().BoolVarP(debug, "debug", "d", false, "enable debug logging")
	cmd.PersistentFlags().BoolVar(noColor, "no-color", false, "disable colored output")
}

// setupLogging builds the structured logger; only warnings show unless debug is set
func setupLogging(out io.Writer, debug bool) zerolog.Logger {
	level := zerolog.WarnLevel
	if debug {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: out, NoColor: color.NoColor}).
		Level(level).
		With().
		Timestamp().
		Logger()
}
