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

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"gitlab.com/tozd/go/errors"
)

func init() {
	Register(&HCLParser{})
}

// 🔧 HCLParser implements the Parser interface for HCL files
type HCLParser struct{}

// 🔍 CanParse checks if this parser can handle the given file
func (p *HCLParser) CanParse(filename string) bool {
	return hasExtension(filename, ".hcl")
}

type hclRef struct {
	Execution *string `hcl:"execution,optional"`
	Local     *string `hcl:"local,optional"`
}

func (r *hclRef) ref() LocationRef {
	var out LocationRef
	if r == nil {
		return out
	}
	if r.Execution != nil {
		out.Execution = *r.Execution
	}
	if r.Local != nil {
		out.Local = *r.Local
	}
	return out
}

type hclConfig struct {
	Workspace  *string `hcl:"workspace,optional"`
	MirrorRoot *string `hcl:"mirror_root,optional"`
	StateFile  *string `hcl:"state_file,optional"`
	Async      *bool   `hcl:"async,optional"`
	Tasks      []struct {
		Name string `hcl:"name,label"`
		Copy *struct {
			Source    *hclRef  `hcl:"source,block"`
			Target    *hclRef  `hcl:"target,block"`
			Wildcards []string `hcl:"wildcards,optional"`
		} `hcl:"copy,block"`
		Prepare *struct {
			Output *hclRef `hcl:"output,block"`
			Inputs []struct {
				Path   string  `hcl:"path,label"`
				Source *hclRef `hcl:"source,block"`
			} `hcl:"input,block"`
		} `hcl:"prepare,block"`
		Mirror *struct {
			Source *hclRef `hcl:"source,block"`
		} `hcl:"mirror,block"`
	} `hcl:"task,block"`
}

// 📝 Parse parses the config from HCL. Expressions may refer to the home
// variable.
func (p *HCLParser) Parse(ctx context.Context, data []byte) (*Config, error) {
	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCL(data, "buildfs.hcl")
	if diags.HasErrors() {
		return nil, errors.Errorf("parsing HCL: %s", diags.Error())
	}

	home, _ := os.UserHomeDir()
	evalCtx := &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"home": cty.StringVal(home),
		},
	}

	var hclCfg hclConfig
	diags = gohcl.DecodeBody(hclFile.Body, evalCtx, &hclCfg)
	if diags.HasErrors() {
		return nil, errors.Errorf("decoding HCL: %s", diags.Error())
	}

	cfg := &Config{}
	if hclCfg.Workspace != nil {
		cfg.Workspace = *hclCfg.Workspace
	}
	if hclCfg.MirrorRoot != nil {
		cfg.MirrorRoot = *hclCfg.MirrorRoot
	}
	if hclCfg.StateFile != nil {
		cfg.StateFile = *hclCfg.StateFile
	}
	if hclCfg.Async != nil {
		cfg.Async = *hclCfg.Async
	}

	for _, t := range hclCfg.Tasks {
		task := Task{Name: t.Name}
		if t.Copy != nil {
			task.Copy = &CopyTask{
				Source:    t.Copy.Source.ref(),
				Target:    t.Copy.Target.ref(),
				Wildcards: t.Copy.Wildcards,
			}
		}
		if t.Prepare != nil {
			task.Prepare = &PrepareTask{Output: t.Prepare.Output.ref()}
			for _, in := range t.Prepare.Inputs {
				task.Prepare.Inputs = append(task.Prepare.Inputs, PrepareInput{
					Path:   in.Path,
					Source: in.Source.ref(),
				})
			}
		}
		if t.Mirror != nil {
			task.Mirror = &MirrorTask{Source: t.Mirror.Source.ref()}
		}
		cfg.Tasks = append(cfg.Tasks, task)
	}

	return cfg, nil
}
