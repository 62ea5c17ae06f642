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

package config_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/igmdscan/pkg/config"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// 🧪 TestDefault tests the built-in defaults
func TestDefault(t *testing.T) {
	cfg := config.Default()

	assert.Equal(t, []string{"jpg", "jpeg", "png", "webp"}, cfg.ImageExtensions)
	assert.Equal(t, []string{"cbz", "cbr"}, cfg.ArchiveExtensions)
	assert.Equal(t, 4, cfg.Concurrency.TopLevel)
	assert.Equal(t, 8, cfg.Concurrency.PerArchive)
	assert.Equal(t, "exiftool", cfg.ExifTool.Path)
	assert.Equal(t, 30, cfg.ExifTool.TimeoutSeconds)
}

// 🧪 TestLoadYAML tests YAML parsing with defaults filled in
func TestLoadYAML(t *testing.T) {
	path := writeConfig(t, "config.yaml", `
scan_dir: /library
dest_dir: /output
log_non_igmd: /tmp/misses.log
image_extensions:
  - png
concurrency:
  top_level: 2
`)

	cfg, err := config.Load(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, "/library", cfg.ScanDir)
	assert.Equal(t, "/output", cfg.DestDir)
	assert.Equal(t, "/tmp/misses.log", cfg.MissLogPath)
	assert.Equal(t, []string{"png"}, cfg.ImageExtensions)
	assert.Equal(t, []string{"cbz", "cbr"}, cfg.ArchiveExtensions)
	assert.Equal(t, 2, cfg.Concurrency.TopLevel)
	assert.Equal(t, 8, cfg.Concurrency.PerArchive)
}

// 🧪 TestLoadYAMLUnknownField tests strict decoding
func TestLoadYAMLUnknownField(t *testing.T) {
	path := writeConfig(t, "config.yaml", `
scan_dir: /library
not_a_real_key: true
`)

	_, err := config.Load(context.Background(), path)
	assert.Error(t, err)
}

// 🧪 TestLoadHCL tests HCL parsing including blocks
func TestLoadHCL(t *testing.T) {
	path := writeConfig(t, "config.hcl", `
scan_dir = "/library"
dest_dir = "/output"
exclude_globs = ["thumbs/**"]

concurrency {
  top_level   = 3
  per_archive = 16
}

exiftool {
  path            = "/usr/local/bin/exiftool"
  timeout_seconds = 10
}
`)

	cfg, err := config.Load(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, "/library", cfg.ScanDir)
	assert.Equal(t, []string{"thumbs/**"}, cfg.ExcludeGlobs)
	assert.Equal(t, 3, cfg.Concurrency.TopLevel)
	assert.Equal(t, 16, cfg.Concurrency.PerArchive)
	assert.Equal(t, "/usr/local/bin/exiftool", cfg.ExifTool.Path)
	assert.Equal(t, 10, cfg.ExifTool.TimeoutSeconds)
}

// 🧪 TestLoadJSON tests JSON parsing
func TestLoadJSON(t *testing.T) {
	path := writeConfig(t, "config.json", `{
  "scan_dir": "/library",
  "dest_dir": "/output",
  "concurrency": {"per_archive": 2},
  "debug": true
}`)

	cfg, err := config.Load(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, "/library", cfg.ScanDir)
	assert.Equal(t, 2, cfg.Concurrency.PerArchive)
	assert.Equal(t, 4, cfg.Concurrency.TopLevel)
	assert.True(t, cfg.Debug)
}

// 🧪 TestLoadUnknownExtension tests parser dispatch failure
func TestLoadUnknownExtension(t *testing.T) {
	path := writeConfig(t, "config.toml", `scan_dir = "/library"`)

	_, err := config.Load(context.Background(), path)
	assert.Error(t, err)
}

// 🧪 TestLoadMissingFile tests read failure
func TestLoadMissingFile(t *testing.T) {
	_, err := config.Load(context.Background(), filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

// 🧪 TestValidate tests bounds checking on concurrency values
func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *config.Config
		wantErr bool
	}{
		{
			name:    "defaults_pass",
			cfg:     &config.Config{},
			wantErr: false,
		},
		{
			name:    "negative_top_level",
			cfg:     &config.Config{Concurrency: &config.Concurrency{TopLevel: -1, PerArchive: 8}},
			wantErr: true,
		},
		{
			name:    "negative_per_archive",
			cfg:     &config.Config{Concurrency: &config.Concurrency{TopLevel: 4, PerArchive: -2}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
