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
	"bytes"
	"context"
	"encoding/json"
	"io"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
	"gopkg.in/yaml.v3"
)

func init() {
	Register(&YAMLParser{})
	Register(&JSONParser{})
}

// hasExtension matches the file extension case insensitively.
func hasExtension(filename string, exts ...string) bool {
	ext := strings.ToLower(filepath.Ext(strings.TrimSpace(filename)))
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}

type decoder interface {
	Decode(v any) error
}

// decodeSingle decodes exactly one document. A second document in the same
// file is an error rather than silently ignored.
func decodeSingle(ctx context.Context, format string, dec decoder) (*Config, error) {
	var cfg Config
	if err := dec.Decode(&cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.Errorf("parsing %s: empty task file: %w", format, ErrInvalidConfig)
		}
		return nil, errors.Errorf("parsing %s: %w", format, err)
	}

	var extra any
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		return nil, errors.Errorf("parsing %s: more than one document: %w", format, ErrInvalidConfig)
	}

	zerolog.Ctx(ctx).Trace().Str("format", format).Int("tasks", len(cfg.Tasks)).Msg("decoded task file")
	return &cfg, nil
}

// 🔧 YAMLParser reads .yaml and .yml task files. Unknown keys are rejected.
type YAMLParser struct{}

func (p *YAMLParser) CanParse(filename string) bool {
	return hasExtension(filename, ".yaml", ".yml")
}

func (p *YAMLParser) Parse(ctx context.Context, data []byte) (*Config, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	return decodeSingle(ctx, "YAML", dec)
}

// 🔧 JSONParser reads .json task files. Unknown fields are rejected.
type JSONParser struct{}

func (p *JSONParser) CanParse(filename string) bool {
	return hasExtension(filename, ".json")
}

func (p *JSONParser) Parse(ctx context.Context, data []byte) (*Config, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return decodeSingle(ctx, "JSON", dec)
}
