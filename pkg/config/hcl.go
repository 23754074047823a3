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
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
	"gitlab.com/tozd/go/errors"
)

func init() {
	Register(&HCLParser{})
}

// 🔧 HCLParser implements the Parser interface for HCL files
//
//	policy = "lenient"
//
//	step "state-vars" {
//	  find    = file("find/state.txt")
//	  replace = <<-EOT
//	    let lineHeight = $state(0);
//	  EOT
//	}
//
//	step "card" {
//	  start        = "<!-- ALL IN ONE SERVICE BENTO CARD -->"
//	  alt_start    = ["<!-- PRO MAX ALL IN ONE CARD -->"]
//	  end          = "</section>"
//	  replace_file = "bodies/card.svelte"
//	}
type HCLParser struct{}

// 🔍 CanParse checks if this parser can handle the given file
func (p *HCLParser) CanParse(filename string) bool {
	return strings.HasSuffix(strings.ToLower(filename), ".hcl")
}

// 📝 Parse parses the patchset from HCL
func (p *HCLParser) Parse(ctx context.Context, data []byte, path string) (*Config, error) {
	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCL(data, path)
	if diags.HasErrors() {
		return nil, errors.Errorf("parsing HCL: %s", diags.Error())
	}

	evalCtx := &hcl.EvalContext{
		Variables: map[string]cty.Value{},
		Functions: map[string]function.Function{
			"file":       fileFunc(filepath.Dir(path)),
			"chomp":      stdlib.ChompFunc,
			"trimsuffix": stdlib.TrimSuffixFunc,
		},
	}

	// Define HCL schema
	type hclStep struct {
		Name        string   `hcl:"name,label"`
		Find        string   `hcl:"find,optional"`
		FindFile    string   `hcl:"find_file,optional"`
		Start       string   `hcl:"start,optional"`
		AltStart    []string `hcl:"alt_start,optional"`
		End         string   `hcl:"end,optional"`
		Replace     string   `hcl:"replace,optional"`
		ReplaceFile string   `hcl:"replace_file,optional"`
	}
	type hclConfig struct {
		Policy string    `hcl:"policy,optional"`
		Steps  []hclStep `hcl:"step,block"`
	}

	var hclCfg hclConfig
	diags = gohcl.DecodeBody(hclFile.Body, evalCtx, &hclCfg)
	if diags.HasErrors() {
		return nil, errors.Errorf("decoding HCL: %s", diags.Error())
	}

	// Convert to model
	cfg := &Config{Policy: hclCfg.Policy}
	for _, s := range hclCfg.Steps {
		cfg.Steps = append(cfg.Steps, Step{
			Name:        s.Name,
			Find:        s.Find,
			FindFile:    s.FindFile,
			Start:       s.Start,
			AltStart:    s.AltStart,
			End:         s.End,
			Replace:     s.Replace,
			ReplaceFile: s.ReplaceFile,
		})
	}

	return cfg, nil
}

// fileFunc reads a file relative to base and returns its content verbatim.
func fileFunc(base string) function.Function {
	return function.New(&function.Spec{
		Params: []function.Parameter{
			{Name: "path", Type: cty.String},
		},
		Type: function.StaticReturnType(cty.String),
		Impl: func(args []cty.Value, retType cty.Type) (cty.Value, error) {
			path := args[0].AsString()
			if !filepath.IsAbs(path) {
				path = filepath.Join(base, path)
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return cty.NilVal, errors.Errorf("reading %s: %w", path, err)
			}
			return cty.StringVal(string(data)), nil
		},
	})
}
