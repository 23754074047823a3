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

package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/walteh/patchrc/pkg/patch"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/sync/errgroup"
)

// 🔌 Parser is the interface for patchset parsers
type Parser interface {
	// 📝 Parse parses the patchset from bytes; path is used for diagnostics
	// and to resolve relative file references
	Parse(ctx context.Context, data []byte, path string) (*Config, error)

	// 🔍 CanParse checks if this parser can handle the given file
	CanParse(filename string) bool
}

var (
	// 🗺️ parsers is a list of available parsers
	parsers []Parser
)

// 📝 Register registers a parser
func Register(p Parser) {
	parsers = append(parsers, p)
}

// 🎯 GetParser returns a parser that can handle the given file
func GetParser(filename string) Parser {
	for _, p := range parsers {
		if p.CanParse(filename) {
			return p
		}
	}
	return nil
}

// 🔄 Step is one entry of a patchset file. A step either finds a literal
// needle (find, find_file) or a block of lines bounded by markers (start,
// alt_start, end). Bodies come either inline or from a file next to the
// patchset.
type Step struct {
	Name        string   `json:"name,omitempty" yaml:"name,omitempty"`
	Find        string   `json:"find,omitempty" yaml:"find,omitempty"`
	FindFile    string   `json:"find_file,omitempty" yaml:"find_file,omitempty"`
	Start       string   `json:"start,omitempty" yaml:"start,omitempty"`
	AltStart    []string `json:"alt_start,omitempty" yaml:"alt_start,omitempty"`
	End         string   `json:"end,omitempty" yaml:"end,omitempty"`
	Replace     string   `json:"replace,omitempty" yaml:"replace,omitempty"`
	ReplaceFile string   `json:"replace_file,omitempty" yaml:"replace_file,omitempty"`
}

// IsBlock reports whether the step is bounded by markers.
func (s Step) IsBlock() bool {
	return s.Start != "" || len(s.AltStart) > 0 || s.End != ""
}

// 📚 Config represents a complete patchset file
type Config struct {
	Policy string `json:"policy,omitempty" yaml:"policy,omitempty"`
	Steps  []Step `json:"steps" yaml:"steps"`

	location string
}

// 🎯 Load loads, validates and resolves a patchset file
func Load(ctx context.Context, path string) (*Config, error) {
	logger := zerolog.Ctx(ctx)
	logger.Debug().Str("path", path).Msg("loading patchset")

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Errorf("reading patchset file: %w", err)
	}

	p := GetParser(path)
	if p == nil {
		return nil, errors.Errorf("no parser found for file: %s", path)
	}

	cfg, err := p.Parse(ctx, data, path)
	if err != nil {
		return nil, errors.Errorf("parsing patchset: %w", err)
	}
	cfg.location = path

	if err := cfg.Validate(); err != nil {
		return nil, errors.Errorf("validating patchset: %w", err)
	}

	if err := cfg.resolve(ctx); err != nil {
		return nil, errors.Errorf("resolving step files: %w", err)
	}

	logger.Debug().Str("path", path).Int("steps", len(cfg.Steps)).Msg("patchset loaded")
	return cfg, nil
}

// 🔍 Validate checks if the patchset is well formed
func (cfg *Config) Validate() error {
	if _, err := cfg.DefaultPolicy(); err != nil {
		return err
	}

	for i, s := range cfg.Steps {
		switch {
		case s.IsBlock() && (s.Find != "" || s.FindFile != ""):
			return errors.Errorf("step %d: find and start/end are mutually exclusive", i)
		case s.IsBlock() && s.Start == "":
			return errors.Errorf("step %d: start is required with end or alt_start", i)
		case s.IsBlock() && s.End == "":
			return errors.Errorf("step %d: end is required with start", i)
		case !s.IsBlock() && s.Find == "" && s.FindFile == "":
			return errors.Errorf("step %d: find, find_file or start is required", i)
		case s.Find != "" && s.FindFile != "":
			return errors.Errorf("step %d: find and find_file are mutually exclusive", i)
		case s.Replace != "" && s.ReplaceFile != "":
			return errors.Errorf("step %d: replace and replace_file are mutually exclusive", i)
		}
	}

	return nil
}

// DefaultPolicy returns the policy named in the file, Strict when absent.
func (cfg *Config) DefaultPolicy() (patch.Policy, error) {
	if strings.TrimSpace(cfg.Policy) == "" {
		return patch.Strict, nil
	}
	return patch.ParsePolicy(cfg.Policy)
}

// 🏗️ Build turns the file's steps into a patch.Set, in declaration order.
func (cfg *Config) Build() (patch.Set, error) {
	set := make(patch.Set, 0, len(cfg.Steps))
	for i, s := range cfg.Steps {
		var (
			step patch.Step
			err  error
		)
		if s.IsBlock() {
			step, err = patch.NewBlockStep(append([]string{s.Start}, s.AltStart...), s.End, s.Replace)
		} else {
			step, err = patch.NewStep(s.Find, s.Replace)
		}
		if err != nil {
			return nil, errors.Errorf("step %d (%s): %w", i, s.Name, err)
		}
		set = append(set, step.Named(s.Name))
	}
	return set, nil
}

// Location returns the path the patchset was loaded from.
func (cfg *Config) Location() string {
	return cfg.location
}

// 📝 String returns a string representation of the patchset
func (cfg *Config) String() string {
	policy, err := cfg.DefaultPolicy()
	if err != nil {
		return fmt.Sprintf("%d steps (invalid policy %q) from %s", len(cfg.Steps), cfg.Policy, cfg.location)
	}
	return fmt.Sprintf("%d steps (%s) from %s", len(cfg.Steps), policy, cfg.location)
}

// resolve reads find_file/replace_file bodies. Each goroutine writes only
// its own field, so declaration order is kept.
func (cfg *Config) resolve(ctx context.Context) error {
	base := filepath.Dir(cfg.location)
	g, ctx := errgroup.WithContext(ctx)

	for i := range cfg.Steps {
		step := &cfg.Steps[i]
		if step.FindFile != "" {
			g.Go(func() error {
				body, err := readBody(ctx, base, step.FindFile)
				if err != nil {
					return errors.Errorf("step %d find_file: %w", i, err)
				}
				step.Find = body
				return nil
			})
		}
		if step.ReplaceFile != "" {
			g.Go(func() error {
				body, err := readBody(ctx, base, step.ReplaceFile)
				if err != nil {
					return errors.Errorf("step %d replace_file: %w", i, err)
				}
				step.Replace = body
				return nil
			})
		}
	}

	return g.Wait()
}

func readBody(ctx context.Context, base, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(base, path)
	}
	zerolog.Ctx(ctx).Debug().Str("path", path).Msg("reading step body")

	data, err := os.ReadFile(path)
	if err != nil {
		return "", errors.Errorf("reading %s: %w", path, err)
	}
	return string(data), nil
}
