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

// Package preview renders a line-oriented view of what a patch run changed.
// It is display only; patching never goes through it.
package preview

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Op marks a line as kept, removed or added.
type Op int

const (
	OpEqual Op = iota
	OpDelete
	OpInsert
)

func (o Op) prefix() string {
	switch o {
	case OpDelete:
		return "-"
	case OpInsert:
		return "+"
	default:
		return " "
	}
}

// Line is one line of a preview.
type Line struct {
	Op   Op
	Text string
}

// Diff compares before and after line by line. A missing final newline is
// not treated as a change of the last line.
func Diff(before, after string) []Line {
	dmp := diffmatchpatch.New()
	a, b, lineArray := dmp.DiffLinesToChars(terminate(before), terminate(after))
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lineArray)

	var out []Line
	for _, d := range diffs {
		op := OpEqual
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			op = OpDelete
		case diffmatchpatch.DiffInsert:
			op = OpInsert
		}
		for _, text := range splitLines(d.Text) {
			out = append(out, Line{Op: op, Text: text})
		}
	}
	return out
}

// Render prints lines with -/+/space prefixes. Unchanged lines further than
// context lines away from a change collapse into a single "..." marker; a
// negative context keeps every line. No changes renders as "".
func Render(lines []Line, context int) string {
	keep := make([]bool, len(lines))
	changed := false
	for i, l := range lines {
		if l.Op == OpEqual {
			continue
		}
		changed = true
		if context < 0 {
			continue
		}
		for j := max(0, i-context); j <= min(len(lines)-1, i+context); j++ {
			keep[j] = true
		}
	}
	if !changed {
		return ""
	}

	var sb strings.Builder
	elided := false
	for i, l := range lines {
		if context >= 0 && !keep[i] {
			if !elided {
				sb.WriteString("...\n")
				elided = true
			}
			continue
		}
		elided = false
		sb.WriteString(l.Op.prefix())
		sb.WriteString(l.Text)
		sb.WriteString("\n")
	}
	return sb.String()
}

// Lines is Render(Diff(before, after), context).
func Lines(before, after string, context int) string {
	return Render(Diff(before, after), context)
}

func terminate(text string) string {
	if text == "" || strings.HasSuffix(text, "\n") {
		return text
	}
	return text + "\n"
}

func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(text, "\n"), "\n")
}
