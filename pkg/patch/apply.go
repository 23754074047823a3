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
	"gitlab.com/tozd/go/errors"
)

// 📊 Status is the outcome of a single step
type Status int

const (
	StatusApplied Status = iota + 1 // Needle found and replaced
	StatusSkipped                   // Needle missing, Lenient only
)

// String returns a string representation of Status
func (s Status) String() string {
	switch s {
	case StatusApplied:
		return "applied"
	case StatusSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// Outcome records what one step did to the buffer.
type Outcome struct {
	Index   int    // Position of the step in the set it was declared in
	Name    string // Step name, may be empty
	Status  Status // Applied or skipped
	Offset  int    // Byte offset of the replacement, -1 when skipped
	Missing string // What a skipped step could not find
}

// 📄 Result holds the patched document and one outcome per executed step.
type Result struct {
	Original string    // Document as passed in
	Document string    // Document after the executed steps
	Outcomes []Outcome // In execution order
}

// Applied returns the number of applied steps.
func (r *Result) Applied() int {
	return r.count(StatusApplied)
}

// Skipped returns the number of skipped steps.
func (r *Result) Skipped() int {
	return r.count(StatusSkipped)
}

// Changed reports whether the document differs from the original.
func (r *Result) Changed() bool {
	return r.Document != r.Original
}

func (r *Result) count(s Status) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status == s {
			n++
		}
	}
	return n
}

// 🎯 Apply runs every step of set against document, in order.
//
// Each literal step replaces only the first occurrence of its needle in the
// current buffer; each block step replaces the first block its markers bound.
// When a target is missing, Strict returns a *NotFoundError and Lenient
// records StatusSkipped. The result is returned even when an error is,
// holding the outcomes and buffer up to the failing step.
func Apply(document string, set Set, policy Policy) (*Result, error) {
	res := &Result{
		Original: document,
		Document: document,
		Outcomes: make([]Outcome, 0, len(set)),
	}

	for i, step := range set {
		index := step.position(i)

		// zero Step{} values bypass the constructors
		if !step.valid() {
			return res, errors.Errorf("step %d: %w", index, ErrInvalidStep)
		}

		from, to, missing := step.locate(res.Document)
		if missing != "" {
			if policy == Lenient {
				res.Outcomes = append(res.Outcomes, Outcome{Index: index, Name: step.name, Status: StatusSkipped, Offset: -1, Missing: missing})
				continue
			}
			return res, &NotFoundError{Index: index, Name: step.name, Target: missing, Preview: step.preview(missing)}
		}

		res.Document = res.Document[:from] + step.replacement + res.Document[to:]
		res.Outcomes = append(res.Outcomes, Outcome{Index: index, Name: step.name, Status: StatusApplied, Offset: from})
	}

	return res, nil
}
