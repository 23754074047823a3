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

package commands

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/walteh/patchrc/cmd/patchrc/opts"
	"github.com/walteh/patchrc/pkg/config"
	"github.com/walteh/patchrc/pkg/document"
	"github.com/walteh/patchrc/pkg/patch"
	"github.com/walteh/patchrc/pkg/preview"
	"github.com/walteh/patchrc/pkg/report"
	"gitlab.com/tozd/go/errors"
)

// ApplyRequest holds the arguments of one apply run
type ApplyRequest struct {
	Input    string
	Output   string
	Patchset string
	Policy   *patch.Policy // nil defers to the patchset file
	Steps    []string      // step name globs, empty for all
	DryRun   bool
	Backup   bool
	Context  int // preview context lines for DryRun
}

// NewApplyCmd creates a new apply command
func NewApplyCmd(opts *opts.RootOpts) *cobra.Command {
	var (
		policy       patch.Policy
		steps        []string
		dryRun       bool
		backup       bool
		contextLines int
	)

	cmd := &cobra.Command{
		Use:   "apply <input-path> <output-path> <patchset-path>",
		Short: "Apply a patchset to a document",
		Long: `Apply reads the input document, applies every step of the patchset in
order and writes the result to the output path. Use "-" for stdin/stdout.
Input and output may be the same file.

The policy comes from --policy, then from the patchset file, then defaults
to strict. Under strict the first missing needle fails the run and nothing
is written. Under lenient missing needles are reported as skipped.`,
		Example: `  patchrc apply src/routes/about/+page.svelte src/routes/about/+page.svelte timeline.patch.yaml
  patchrc apply --policy lenient --step 'gsap-*' --dry-run page.svelte - timeline.patch.hcl`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ctx = zerolog.Ctx(ctx).With().Str("command", "apply").Logger().WithContext(ctx)

			req := ApplyRequest{
				Input:    args[0],
				Output:   args[1],
				Patchset: args[2],
				Steps:    steps,
				DryRun:   dryRun,
				Backup:   backup,
				Context:  contextLines,
			}
			if cmd.Flags().Changed("policy") {
				req.Policy = &policy
			}

			return RunApply(ctx, opts, req)
		},
	}

	cmd.Flags().Var(&policy, "policy", "strict or lenient; overrides the patchset file")
	cmd.Flags().StringArrayVar(&steps, "step", nil, "only run steps whose name matches this glob (repeatable)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print a preview instead of writing the output")
	cmd.Flags().BoolVar(&backup, "backup", false, "keep the previous output file as <output>.bak")
	cmd.Flags().IntVar(&contextLines, "context", 3, "unchanged lines shown around each change in --dry-run; -1 shows all")

	return cmd
}

// RunApply loads the patchset, patches the input and writes the output.
// A strict failure is returned as an error wrapping *patch.NotFoundError.
func RunApply(ctx context.Context, opts *opts.RootOpts, req ApplyRequest) error {
	logger := zerolog.Ctx(ctx)
	reporter := report.FromContext(ctx)

	cfg, err := config.Load(ctx, req.Patchset)
	if err != nil {
		return errors.Errorf("loading patchset: %w", err)
	}

	set, err := cfg.Build()
	if err != nil {
		return errors.Errorf("building patchset: %w", err)
	}

	set, err = set.Select(req.Steps...)
	if err != nil {
		return errors.Errorf("selecting steps: %w", err)
	}

	policy, err := cfg.DefaultPolicy()
	if err != nil {
		return errors.Errorf("reading policy: %w", err)
	}
	if req.Policy != nil {
		policy = *req.Policy
	}

	doc, err := opts.Source.Read(ctx, req.Input)
	if err != nil {
		return errors.Errorf("reading input: %w", err)
	}

	logger.Debug().
		Str("input", req.Input).
		Str("output", req.Output).
		Str("patchset", cfg.String()).
		Msg("applying patchset")

	reporter.Header(fmt.Sprintf("applying %s (%s) to %s", pluralSteps(len(set)), policy, req.Input))
	if len(set) == 0 {
		reporter.Warning("no steps selected")
	}

	res, applyErr := patch.NewEngine(set, policy).Apply(ctx, doc.Text)
	counts := reporter.LogResult(ctx, res, applyErr)
	reporter.Summary(counts)

	if applyErr != nil {
		return errors.Errorf("applying %s: %w", req.Patchset, applyErr)
	}

	if req.DryRun {
		reporter.LogNewline()
		reporter.Raw(preview.Lines(res.Original, res.Document, req.Context))
		reporter.Info("dry run, nothing written")
		return nil
	}

	if !res.Changed() && samePath(req.Input, req.Output) {
		reporter.Info("no changes, output left untouched")
		return nil
	}

	out := &document.Document{
		Path: req.Output,
		Text: res.Document,
		BOM:  doc.BOM,
		Mode: doc.Mode,
	}
	if err := opts.Sink.Write(ctx, req.Output, out, document.WriteOptions{Backup: req.Backup}); err != nil {
		return errors.Errorf("writing output: %w", err)
	}

	if counts.Skipped > 0 {
		reporter.Warningf("%d of %d steps skipped, wrote %s", counts.Skipped, len(set), req.Output)
	} else {
		reporter.Successf("%s applied, wrote %s", pluralSteps(counts.Applied), req.Output)
	}
	return nil
}

func pluralSteps(n int) string {
	if n == 1 {
		return "1 step"
	}
	return fmt.Sprintf("%d steps", n)
}

func samePath(a, b string) bool {
	if a == document.Stdio || b == document.Stdio {
		return false
	}
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return a == b
	}
	return absA == absB
}
