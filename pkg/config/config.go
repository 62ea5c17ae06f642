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

// Package config loads scanner configuration from YAML, HCL or JSON files.
package config

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/rs/zerolog"
	"github.com/zclconf/go-cty/cty"
	"gitlab.com/tozd/go/errors"
	"gopkg.in/yaml.v3"
)

// 🔌 Parser is the interface for config parsers
type Parser interface {
	// 📝 Parse parses the config from bytes
	Parse(ctx context.Context, data []byte) (*Config, error)

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

// ⚙️ Concurrency bounds the number of in-flight tasks
type Concurrency struct {
	// TopLevel caps simultaneously processed files and archives
	TopLevel int `json:"top_level,omitempty" yaml:"top_level,omitempty" hcl:"top_level,optional"`
	// PerArchive caps simultaneous entry tasks within one archive
	PerArchive int `json:"per_archive,omitempty" yaml:"per_archive,omitempty" hcl:"per_archive,optional"`
}

// 🔧 ExifTool configures the external metadata dumper for miss logging
type ExifTool struct {
	Path           string   `json:"path,omitempty" yaml:"path,omitempty" hcl:"path,optional"`
	Args           []string `json:"args,omitempty" yaml:"args,omitempty" hcl:"args,optional"`
	TimeoutSeconds int      `json:"timeout_seconds,omitempty" yaml:"timeout_seconds,omitempty" hcl:"timeout_seconds,optional"`
}

// 📚 Config represents the complete scanner configuration
type Config struct {
	ScanDir           string       `json:"scan_dir,omitempty" yaml:"scan_dir,omitempty" hcl:"scan_dir,optional"`
	DestDir           string       `json:"dest_dir,omitempty" yaml:"dest_dir,omitempty" hcl:"dest_dir,optional"`
	MissLogPath       string       `json:"log_non_igmd,omitempty" yaml:"log_non_igmd,omitempty" hcl:"log_non_igmd,optional"`
	ImageExtensions   []string     `json:"image_extensions,omitempty" yaml:"image_extensions,omitempty" hcl:"image_extensions,optional"`
	ArchiveExtensions []string     `json:"archive_extensions,omitempty" yaml:"archive_extensions,omitempty" hcl:"archive_extensions,optional"`
	ExcludeGlobs      []string     `json:"exclude_globs,omitempty" yaml:"exclude_globs,omitempty" hcl:"exclude_globs,optional"`
	Concurrency       *Concurrency `json:"concurrency,omitempty" yaml:"concurrency,omitempty" hcl:"concurrency,block"`
	ExifTool          *ExifTool    `json:"exiftool,omitempty" yaml:"exiftool,omitempty" hcl:"exiftool,block"`
	Debug             bool         `json:"debug,omitempty" yaml:"debug,omitempty" hcl:"debug,optional"`
}

// 🏭 Default returns the configuration used when no file is given
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// 🎯 Load loads the configuration from a file
func Load(ctx context.Context, path string) (*Config, error) {
	logger := zerolog.Ctx(ctx)
	logger.Debug().Str("path", path).Msg("loading configuration")

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Errorf("reading config file: %w", err)
	}

	p := GetParser(path)
	if p == nil {
		return nil, errors.Errorf("no parser found for file: %s", path)
	}

	cfg, err := p.Parse(ctx, data)
	if err != nil {
		return nil, errors.Errorf("parsing config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// 🔍 Validate checks the configuration and fills in defaults
func (cfg *Config) Validate() error {
	if cfg.ScanDir != "" {
		cfg.ScanDir = filepath.Clean(cfg.ScanDir)
	}
	if cfg.DestDir != "" {
		cfg.DestDir = filepath.Clean(cfg.DestDir)
	}

	cfg.applyDefaults()

	if cfg.Concurrency.TopLevel < 1 {
		return errors.Errorf("concurrency.top_level must be at least 1, got %d", cfg.Concurrency.TopLevel)
	}
	if cfg.Concurrency.PerArchive < 1 {
		return errors.Errorf("concurrency.per_archive must be at least 1, got %d", cfg.Concurrency.PerArchive)
	}

	return nil
}

func (cfg *Config) applyDefaults() {
	if len(cfg.ImageExtensions) == 0 {
		cfg.ImageExtensions = []string{"jpg", "jpeg", "png", "webp"}
	}
	if len(cfg.ArchiveExtensions) == 0 {
		cfg.ArchiveExtensions = []string{"cbz", "cbr"}
	}
	if cfg.Concurrency == nil {
		cfg.Concurrency = &Concurrency{}
	}
	if cfg.Concurrency.TopLevel == 0 {
		cfg.Concurrency.TopLevel = 4
	}
	if cfg.Concurrency.PerArchive == 0 {
		cfg.Concurrency.PerArchive = 8
	}
	if cfg.ExifTool == nil {
		cfg.ExifTool = &ExifTool{}
	}
	if cfg.ExifTool.Path == "" {
		cfg.ExifTool.Path = "exiftool"
	}
	if cfg.ExifTool.TimeoutSeconds == 0 {
		cfg.ExifTool.TimeoutSeconds = 30
	}
}

// 📝 String returns a string representation of the config
func (cfg *Config) String() string {
	return fmt.Sprintf("%s -> %s (top=%d, entries=%d)",
		cfg.ScanDir, cfg.DestDir, cfg.Concurrency.TopLevel, cfg.Concurrency.PerArchive)
}

// 🔧 YAMLParser implements the Parser interface for YAML files
type YAMLParser struct{}

func init() {
	Register(&YAMLParser{})
}

func (p *YAMLParser) CanParse(filename string) bool {
	return strings.HasSuffix(filename, ".yaml") || strings.HasSuffix(filename, ".yml")
}

func (p *YAMLParser) Parse(ctx context.Context, data []byte) (*Config, error) {
	var cfg Config
	decoder := yaml.NewDecoder(strings.NewReader(string(data)))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, errors.Errorf("parsing YAML: %w", err)
	}
	return &cfg, nil
}

// 🔧 HCLParser implements the Parser interface for HCL files
type HCLParser struct{}

func init() {
	Register(&HCLParser{})
}

func (p *HCLParser) CanParse(filename string) bool {
	return strings.HasSuffix(filename, ".hcl")
}

func (p *HCLParser) Parse(ctx context.Context, data []byte) (*Config, error) {
	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCL(data, "config.hcl")
	if diags.HasErrors() {
		return nil, errors.Errorf("parsing HCL: %s", diags.Error())
	}

	evalCtx := &hcl.EvalContext{
		Variables: map[string]cty.Value{},
	}

	var cfg Config
	diags = gohcl.DecodeBody(hclFile.Body, evalCtx, &cfg)
	if diags.HasErrors() {
		return nil, errors.Errorf("decoding HCL: %s", diags.Error())
	}
	return &cfg, nil
}

// 🔧 JSONParser implements the Parser interface for JSON files
type JSONParser struct{}

func init() {
	Register(&JSONParser{})
}

func (p *JSONParser) CanParse(filename string) bool {
	return strings.HasSuffix(filename, ".json")
}

func (p *JSONParser) Parse(ctx context.Context, data []byte) (*Config, error) {
	var cfg Config
	decoder := json.NewDecoder(strings.NewReader(string(data)))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&cfg); err != nil {
		return nil, errors.Errorf("parsing JSON: %w", err)
	}
	return &cfg, nil
}
