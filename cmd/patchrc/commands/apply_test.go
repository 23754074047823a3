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
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/patchrc/cmd/patchrc/opts"
	"github.com/walteh/patchrc/pkg/document"
	"github.com/walteh/patchrc/pkg/patch"
	"github.com/walteh/patchrc/pkg/report"
	"gitlab.com/tozd/go/errors"
)

const aboutPage = "<script>\n" +
	"\timport { onMount } from 'svelte';\n" +
	"\n" +
	"\tconst milestones = $state([\n" +
	"\t\t{\n" +
	"\t\t\tyear: '2021',\n" +
	"\t\t\ttitle: 'Started'\n" +
	"\t\t}\n" +
	"\t]);\n" +
	"\n" +
	"\tonMount(() => {\n" +
	"\t\tgsap.to('.milestone', { opacity: 1 });\n" +
	"\t});\n" +
	"</script>\n" +
	"\n" +
	"<section class=\"timeline-container\">\n" +
	"\t<!-- Elegant connecting line for desktop -->\n" +
	"\t<div class=\"absolute left-[2.5rem] w-px hidden sm:block\"></div>\n" +
	"\t{#each milestones as milestone}\n" +
	"\t\t<article class=\"milestone\">{milestone.title}</article>\n" +
	"\t{/each}\n" +
	"</section>\n"

const (
	oldLine = "\t<!-- Elegant connecting line for desktop -->\n" +
		"\t<div class=\"absolute left-[2.5rem] w-px hidden sm:block\"></div>"
	newLine = "\t<!-- Animated SVG connecting line for desktop -->\n" +
		"\t<div class=\"timeline-svg-wrapper\" bind:clientHeight={lineHeight}>\n" +
		"\t\t<svg viewBox=\"0 0 80 {lineHeight}\"><path d={pathData} /></svg>\n" +
		"\t</div>"
)

const stateVars = "\t]);\n\n" +
	"\tlet lineHeight = $state(0);\n" +
	"\tlet pathData = $derived(`M 40,0 L 40,${lineHeight}`);\n\n" +
	"\tonMount(() => {"

const timelinePatchset = `
steps:
  - name: state-vars
    find: "\t]);\n\n\tonMount(() => {"
    replace_file: bodies/state-vars.txt
  - name: gsap-line
    find: "\t\tgsap.to('.milestone', { opacity: 1 });\n\t});"
    replace: "\t\tgsap.to('.milestone', { opacity: 1 });\n\t\tgsap.fromTo('.timeline-svg-wrapper', { height: '0%' }, { height: '100%' });\n\t});"
  - name: html-line
    find_file: bodies/old-line.html
    replace_file: bodies/new-line.html
`

type harness struct {
	dir     string
	opts    *opts.RootOpts
	console *bytes.Buffer
	stdout  *bytes.Buffer
	ctx     context.Context
}

func newHarness(t *testing.T, stdin string) *harness {
	t.Helper()

	color.NoColor = true
	t.Cleanup(func() { color.NoColor = false })

	h := &harness{
		dir:     t.TempDir(),
		console: &bytes.Buffer{},
		stdout:  &bytes.Buffer{},
	}
	store := document.NewStore(strings.NewReader(stdin), h.stdout)
	h.opts = &opts.RootOpts{Source: store, Sink: store}
	h.ctx = report.NewContext(context.Background(), report.New(h.console, zerolog.Nop()))
	return h
}

func (h *harness) write(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(h.dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func (h *harness) read(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(h.dir, name))
	require.NoError(t, err)
	return string(data)
}

func (h *harness) run(args ...string) error {
	cmd := NewApplyCmd(h.opts)
	cmd.SetArgs(args)
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	return cmd.ExecuteContext(h.ctx)
}

func (h *harness) setupTimeline(t *testing.T) (page, patchset string) {
	page = h.write(t, "about/+page.svelte", aboutPage)
	patchset = h.write(t, "timeline.patch.yaml", timelinePatchset)
	h.write(t, "bodies/state-vars.txt", stateVars)
	h.write(t, "bodies/old-line.html", oldLine)
	h.write(t, "bodies/new-line.html", newLine)
	return page, patchset
}

func expectedAboutPage() string {
	out := strings.Replace(aboutPage, "\t]);\n\n\tonMount(() => {", stateVars, 1)
	out = strings.Replace(out, "\t\tgsap.to('.milestone', { opacity: 1 });\n\t});",
		"\t\tgsap.to('.milestone', { opacity: 1 });\n\t\tgsap.fromTo('.timeline-svg-wrapper', { height: '0%' }, { height: '100%' });\n\t});", 1)
	return strings.Replace(out, oldLine, newLine, 1)
}

func TestApply_TimelineInPlace(t *testing.T) {
	h := newHarness(t, "")
	page, patchset := h.setupTimeline(t)

	require.NoError(t, h.run(page, page, patchset))

	got := h.read(t, "about/+page.svelte")
	assert.Equal(t, expectedAboutPage(), got)
	assert.Contains(t, got, "let pathData = $derived(`M 40,0 L 40,${lineHeight}`);")
	assert.Contains(t, got, "bind:clientHeight={lineHeight}")
	assert.NotContains(t, got, "Elegant connecting line")
	assert.Contains(t, h.console.String(), "3 steps applied")

	// the before-state is gone, so a strict rerun fails on the first step
	h.console.Reset()
	err := h.run(page, page, patchset)
	require.Error(t, err)
	var nf *patch.NotFoundError
	require.True(t, errors.As(err, &nf), "error should wrap a NotFoundError")
	assert.Equal(t, 0, nf.Index)
	assert.Equal(t, "state-vars", nf.Name)
	assert.Equal(t, got, h.read(t, "about/+page.svelte"), "failed run should not write")

	// lenient rerun skips every step and leaves the file alone
	h.console.Reset()
	require.NoError(t, h.run("--policy", "lenient", page, page, patchset))
	assert.Equal(t, got, h.read(t, "about/+page.svelte"))
	assert.Equal(t, 3, strings.Count(h.console.String(), "skipped    needle not found"))
	assert.Contains(t, h.console.String(), "no changes, output left untouched")
}

func TestApply_PolicyPrecedence(t *testing.T) {
	tests := []struct {
		name       string
		filePolicy string
		args       []string
		wantErr    bool
		wantOutput string
	}{
		{
			name:    "default_is_strict",
			wantErr: true,
		},
		{
			name:       "file_lenient",
			filePolicy: "lenient",
			wantOutput: "1 two",
		},
		{
			name:       "flag_overrides_file",
			filePolicy: "lenient",
			args:       []string{"--policy", "strict"},
			wantErr:    true,
		},
		{
			name:       "flag_lenient",
			args:       []string{"--policy", "LENIENT"},
			wantOutput: "1 two",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, "")
			in := h.write(t, "in.txt", "one two")
			out := filepath.Join(h.dir, "out.txt")

			ps := "steps:\n  - find: one\n    replace: \"1\"\n  - find: three\n    replace: \"3\"\n"
			if tt.filePolicy != "" {
				ps = "policy: " + tt.filePolicy + "\n" + ps
			}
			patchset := h.write(t, "p.yaml", ps)

			err := h.run(append(tt.args, in, out, patchset)...)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "step 1: needle not found")
				_, statErr := os.Stat(out)
				assert.True(t, os.IsNotExist(statErr), "output should not be written")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantOutput, h.read(t, "out.txt"))
			assert.Contains(t, h.console.String(), "1 of 2 steps skipped")
		})
	}
}

func TestApply_DryRun(t *testing.T) {
	h := newHarness(t, "")
	in := h.write(t, "in.txt", "A\nB\nC")
	patchset := h.write(t, "p.yaml", "steps:\n  - find: B\n    replace: \"X\\nY\"\n")

	require.NoError(t, h.run("--dry-run", "--context", "-1", in, in, patchset))

	assert.Equal(t, "A\nB\nC", h.read(t, "in.txt"), "dry run should not write")
	assert.Contains(t, h.console.String(), " A\n-B\n+X\n+Y\n C\n")
	assert.Contains(t, h.console.String(), "dry run, nothing written")
}

func TestApply_StdioAndStepFilter(t *testing.T) {
	h := newHarness(t, "A\nB\nC")
	patchset := h.write(t, "p.hcl", `
step "swap-b" {
  find    = "B"
  replace = "X\nY"
}

step "swap-c" {
  find    = "C"
  replace = "Z"
}
`)

	require.NoError(t, h.run("--step", "swap-b", "-", "-", patchset))

	assert.Equal(t, "A\nX\nY\nC", h.stdout.String())
	assert.Contains(t, h.console.String(), "applying 1 step (strict) to -")
}

func TestApply_StepFilterKeepsPosition(t *testing.T) {
	h := newHarness(t, "A\nB\n")
	patchset := h.write(t, "p.yaml", "steps:\n  - name: one\n    find: A\n  - name: two\n    find: missing\n")

	err := h.run("--step", "two", "-", "-", patchset)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "step 1 (two): needle not found")
	assert.Contains(t, h.console.String(), "✗ #1    two")
}

func TestApply_BlockUpgrade(t *testing.T) {
	const services = "<section id=\"services\">\n" +
		"\t<h2>Services</h2>\n" +
		"\t\t<!-- ALL IN ONE SERVICE BENTO CARD -->\n" +
		"\t\t<div class=\"bento\">old</div>\n" +
		"</section>\n" +
		"<section id=\"process\"></section>\n"

	h := newHarness(t, "")
	page := h.write(t, "Services.svelte", services)
	h.write(t, "bodies/pro-max.svelte", "\t\t<!-- PRO MAX ALL IN ONE CARD -->\n\t\t<div class=\"pro\">new</div>")
	h.write(t, "bodies/ultra.svelte", "\t\t<!-- ULTRA PRO MAX HYPER CARD -->")

	block := func(body string) string {
		return "steps:\n" +
			"  - name: card\n" +
			"    start: \"<!-- ALL IN ONE SERVICE BENTO CARD -->\"\n" +
			"    alt_start: [\"<!-- PRO MAX ALL IN ONE CARD -->\"]\n" +
			"    end: </section>\n" +
			"    replace_file: bodies/" + body + "\n"
	}

	require.NoError(t, h.run(page, page, h.write(t, "pro-max.yaml", block("pro-max.svelte"))))
	assert.Equal(t, "<section id=\"services\">\n"+
		"\t<h2>Services</h2>\n"+
		"\t\t<!-- PRO MAX ALL IN ONE CARD -->\n"+
		"\t\t<div class=\"pro\">new</div>\n"+
		"</section>\n"+
		"<section id=\"process\"></section>\n", h.read(t, "Services.svelte"))

	require.NoError(t, h.run(page, page, h.write(t, "ultra.yaml", block("ultra.svelte"))))
	assert.Equal(t, "<section id=\"services\">\n"+
		"\t<h2>Services</h2>\n"+
		"\t\t<!-- ULTRA PRO MAX HYPER CARD -->\n"+
		"</section>\n"+
		"<section id=\"process\"></section>\n", h.read(t, "Services.svelte"))

	err := h.run(page, page, h.write(t, "again.yaml", block("pro-max.svelte")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "step 0 (card): start marker not found")
}

func TestApply_Backup(t *testing.T) {
	h := newHarness(t, "")
	in := h.write(t, "page.html", "<p>old</p>")
	patchset := h.write(t, "p.json", `{"steps": [{"find": "old", "replace": "new"}]}`)

	require.NoError(t, h.run("--backup", in, in, patchset))

	assert.Equal(t, "<p>new</p>", h.read(t, "page.html"))
	assert.Equal(t, "<p>old</p>", h.read(t, "page.html.bak"))
}

func TestApply_Errors(t *testing.T) {
	tests := []struct {
		name        string
		args        func(h *harness, t *testing.T) []string
		errContains string
	}{
		{
			name: "wrong_arg_count",
			args: func(h *harness, t *testing.T) []string {
				return []string{"in.txt", "out.txt"}
			},
			errContains: "accepts 3 arg(s)",
		},
		{
			name: "bad_policy_flag",
			args: func(h *harness, t *testing.T) []string {
				return []string{"--policy", "fuzzy", "a", "b", "c"}
			},
			errContains: "unknown policy",
		},
		{
			name: "missing_patchset",
			args: func(h *harness, t *testing.T) []string {
				in := h.write(t, "in.txt", "x")
				return []string{in, in, filepath.Join(h.dir, "none.yaml")}
			},
			errContains: "loading patchset",
		},
		{
			name: "missing_input",
			args: func(h *harness, t *testing.T) []string {
				ps := h.write(t, "p.yaml", "steps:\n  - find: x\n")
				return []string{filepath.Join(h.dir, "none.txt"), "-", ps}
			},
			errContains: "reading input",
		},
		{
			name: "bad_step_glob",
			args: func(h *harness, t *testing.T) []string {
				in := h.write(t, "in.txt", "x")
				ps := h.write(t, "p.yaml", "steps:\n  - find: x\n")
				return []string{"--step", "[", in, in, ps}
			},
			errContains: "selecting steps",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, "")
			err := h.run(tt.args(h, t)...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errContains)
		})
	}
}

func TestSamePath(t *testing.T) {
	assert.True(t, samePath("a/b.txt", "a/../a/b.txt"))
	assert.False(t, samePath("a.txt", "b.txt"))
	assert.False(t, samePath("-", "-"))
}
