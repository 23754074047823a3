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


package patch

import (
	"fmt"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"gitlab.com/tozd/go/errors"
)

// ErrInvalidStep is returned when a step is built with an empty needle or marker.
var ErrInvalidStep = errors.Base("invalid patch step")

// Targets named by NotFoundError and Outcome.Missing.
const (
	TargetNeedle      = "needle"
	TargetStartMarker = "start marker"
	TargetEndMarker   = "end marker"
)

// 🔄 Step is a single literal find/replace pair, or a block bounded by
// literal start and end markers.
type Step struct {
	name        string
	needle      string
	starts      []string
	end         string
	replacement string
	origin      int // 1-based position in the set Select picked it from
}

// 🏭 NewStep creates a step that replaces the first occurrence of needle.
// An empty needle would match at offset zero of every document, so it is rejected.
func NewStep(needle, replacement string) (Step, error) {
	if needle == "" {
		return Step{}, errors.Errorf("%w: needle is empty", ErrInvalidStep)
	}
	return Step{needle: needle, replacement: replacement}, nil
}

// 🧱 NewBlockStep creates a step that replaces a run of whole lines. The block
// starts at the first line containing any of starts and stops before the
// first later line containing end. The end line itself is kept.
func NewBlockStep(starts []string, end, replacement string) (Step, error) {
	if len(starts) == 0 {
		return Step{}, errors.Errorf("%w: no start marker", ErrInvalidStep)
	}
	for i, s := range starts {
		if s == "" {
			return Step{}, errors.Errorf("%w: start marker %d is empty", ErrInvalidStep, i)
		}
		if strings.Contains(s, "\n") {
			return Step{}, errors.Errorf("%w: start marker %d spans lines", ErrInvalidStep, i)
		}
	}
	if end == "" {
		return Step{}, errors.Errorf("%w: end marker is empty", ErrInvalidStep)
	}
	if strings.Contains(end, "\n") {
		return Step{}, errors.Errorf("%w: end marker spans lines", ErrInvalidStep)
	}
	return Step{starts: slices.Clone(starts), end: end, replacement: replacement}, nil
}

// MustNewStep is like NewStep but panics on an invalid step.
func MustNewStep(needle, replacement string) Step {
	s, err := NewStep(needle, replacement)
	if err != nil {
		panic(err)
	}
	return s
}

// Named returns a copy of the step carrying name.
func (s Step) Named(name string) Step {
	s.name = name
	return s
}

func (s Step) Name() string        { return s.name }
func (s Step) Needle() string      { return s.needle }
func (s Step) Replacement() string { return s.replacement }
func (s Step) EndMarker() string   { return s.end }
func (s Step) IsBlock() bool       { return len(s.starts) > 0 }

// StartMarkers returns a copy of the block's start markers.
func (s Step) StartMarkers() []string {
	return slices.Clone(s.starts)
}

func (s Step) valid() bool {
	return s.needle != "" || (len(s.starts) > 0 && s.end != "")
}

// position is where the step sits in the set it was declared in.
func (s Step) position(i int) int {
	if s.origin > 0 {
		return s.origin - 1
	}
	return i
}

// locate returns the byte range of doc the step replaces, or the target it
// could not find.
func (s Step) locate(doc string) (from, to int, missing string) {
	if !s.IsBlock() {
		at := strings.Index(doc, s.needle)
		if at < 0 {
			return -1, -1, TargetNeedle
		}
		return at, at + len(s.needle), ""
	}

	from = -1
	for lineStart := 0; lineStart <= len(doc); {
		lineEnd, next := len(doc), len(doc)+1
		if n := strings.IndexByte(doc[lineStart:], '\n'); n >= 0 {
			lineEnd = lineStart + n
			next = lineEnd + 1
		}
		line := doc[lineStart:lineEnd]

		if from < 0 {
			if containsAny(line, s.starts) {
				from = lineStart
			}
		} else if strings.Contains(line, s.end) {
			// stop at the newline ending the previous line
			return from, lineStart - 1, ""
		}
		lineStart = next
	}

	if from < 0 {
		return -1, -1, TargetStartMarker
	}
	return -1, -1, TargetEndMarker
}

// preview describes what went missing, for NotFoundError.
func (s Step) preview(missing string) string {
	switch missing {
	case TargetStartMarker:
		return truncate(strings.Join(s.starts, " | "))
	case TargetEndMarker:
		return truncate(s.end)
	default:
		return truncate(s.needle)
	}
}

func containsAny(line string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(line, m) {
			return true
		}
	}
	return false
}

// label is used in logs
func label(index int, name string) string {
	if name == "" {
		return fmt.Sprintf("#%d", index)
	}
	return fmt.Sprintf("#%d %s", index, name)
}

// 📚 Set is an ordered sequence of steps. Order matters: each step sees the
// buffer produced by the steps before it.
type Set []Step

// 🎯 Select returns the steps whose names match any of the glob patterns,
// keeping their relative order. No patterns means every step. Selected steps
// keep reporting their position in set, not in the selection.
func (set Set) Select(patterns ...string) (Set, error) {
	if len(patterns) == 0 {
		return set, nil
	}

	for _, p := range patterns {
		if !doublestar.ValidatePattern(p) {
			return nil, errors.Errorf("invalid step pattern %q", p)
		}
	}

	selected := make(Set, 0, len(set))
	for i, step := range set {
		if step.name == "" {
			continue
		}
		for _, p := range patterns {
			matched, err := doublestar.Match(p, step.name)
			if err != nil {
				return nil, errors.Errorf("matching step %q against %q: %w", step.name, p, err)
			}
			if matched {
				if step.origin == 0 {
					step.origin = i + 1
				}
				selected = append(selected, step)
				break
			}
		}
	}
	return selected, nil
}
