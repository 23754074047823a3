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
	"context"
	"io"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// 🔧 Engine binds a set of steps to a policy
type Engine struct {
	set    Set
	policy Policy
}

// 🏭 NewEngine creates a new Engine
func NewEngine(set Set, policy Policy) *Engine {
	return &Engine{set: set, policy: policy}
}

func (e *Engine) Set() Set       { return e.set }
func (e *Engine) Policy() Policy { return e.policy }

// 🎯 Apply patches document and logs each outcome to the context logger.
func (e *Engine) Apply(ctx context.Context, document string) (*Result, error) {
	logger := zerolog.Ctx(ctx)
	logger.Debug().
		Int("steps", len(e.set)).
		Stringer("policy", e.policy).
		Int("bytes", len(document)).
		Msg("applying patch set")

	res, err := Apply(document, e.set, e.policy)
	for _, o := range res.Outcomes {
		logger.Debug().
			Str("step", label(o.Index, o.Name)).
			Stringer("status", o.Status).
			Int("offset", o.Offset).
			Msg("patch step")
	}
	if err != nil {
		logger.Debug().Err(err).Msg("patch set aborted")
		return res, err
	}

	return res, nil
}

// ApplyReader reads the whole document from r and applies the engine to it.
func (e *Engine) ApplyReader(ctx context.Context, r io.Reader) (*Result, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Errorf("reading content: %w", err)
	}
	return e.Apply(ctx, string(content))
}
