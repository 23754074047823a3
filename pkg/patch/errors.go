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
	"unicode/utf8"
)

// previewRunes is the number of needle runes kept in NotFoundError.Preview
const previewRunes = 40

// 🔍 NotFoundError reports a needle or block marker missing from the buffer
// under Strict.
type NotFoundError struct {
	Index   int    // Position of the step in the set it was declared in
	Name    string // Step name, may be empty
	Target  string // TargetNeedle when empty
	Preview string // Missing text, truncated to a readable length
}

func (e *NotFoundError) Error() string {
	target := e.Target
	if target == "" {
		target = TargetNeedle
	}
	if e.Name == "" {
		return fmt.Sprintf("step %d: %s not found: %q", e.Index, target, e.Preview)
	}
	return fmt.Sprintf("step %d (%s): %s not found: %q", e.Index, e.Name, target, e.Preview)
}

// truncate shortens s to previewRunes runes, marking the cut with "...".
func truncate(s string) string {
	if utf8.RuneCountInString(s) <= previewRunes {
		return s
	}
	r := []rune(s)
	return string(r[:previewRunes]) + "..."
}
