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

// Package scan enumerates a source tree and classifies every entry by extension.
package scan

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// 🏷️ Kind classifies a filesystem entry by its extension
type Kind int

const (
	KindOther Kind = iota // Not an image or archive, ignored by processing
	KindImage             // Loose image file (jpg, jpeg, png, webp)
	KindArchive           // Comic-style archive (cbz, cbr)
)

// String returns a string representation of Kind
func (k Kind) String() string {
	switch k {
	case KindImage:
		return "image"
	case KindArchive:
		return "archive"
	default:
		return "other"
	}
}

// 📄 SourceEntry is one filesystem entry emitted by the walker
type SourceEntry struct {
	Path string // Absolute or root-relative path to the entry
	Kind Kind   // Classification by extension
}

// 🔧 Options configures the walk
type Options struct {
	// ImageExtensions are treated as loose images (without leading dot)
	ImageExtensions []string
	// ArchiveExtensions are treated as archives (without leading dot)
	ArchiveExtensions []string
	// ExcludeGlobs are doublestar patterns matched against the
	// slash-separated path relative to the walk root
	ExcludeGlobs []string
}

// 🏭 DefaultOptions returns the extension sets the scanner recognizes
func DefaultOptions() Options {
	return Options{
		ImageExtensions:   []string{"jpg", "jpeg", "png", "webp"},
		ArchiveExtensions: []string{"cbz", "cbr"},
	}
}

// 🔍 Classify returns the Kind for a path based on its extension
func (o Options) Classify(path string) Kind {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	for _, e := range o.ImageExtensions {
		if ext == strings.ToLower(e) {
			return KindImage
		}
	}
	for _, e := range o.ArchiveExtensions {
		if ext == strings.ToLower(e) {
			return KindArchive
		}
	}
	return KindOther
}

// 🚶 Walk enumerates root recursively and calls fn once per regular file.
// The root being unreadable is fatal; an unreadable subtree entry is
// logged at warn level and skipped. fn returning an error stops the walk.
func Walk(ctx context.Context, root string, opts Options, fn func(SourceEntry) error) error {
	logger := zerolog.Ctx(ctx)

	info, err := os.Stat(root)
	if err != nil {
		return errors.Errorf("reading scan root %s: %w", root, err)
	}
	if !info.IsDir() {
		return errors.Errorf("scan root %s is not a directory", root)
	}

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return errors.Errorf("reading scan root: %w", err)
			}
			logger.Warn().Str("path", path).Err(err).Msg("skipping unreadable entry")
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if err := ctx.Err(); err != nil {
			return err
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr == nil && excluded(opts.ExcludeGlobs, filepath.ToSlash(rel)) {
			logger.Debug().Str("path", path).Msg("excluded by glob")
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			return nil
		}

		return fn(SourceEntry{Path: path, Kind: opts.Classify(path)})
	})
	if walkErr != nil {
		return errors.Errorf("walking %s: %w", root, walkErr)
	}
	return nil
}

// excluded reports whether relPath matches any exclude glob
func excluded(globs []string, relPath string) bool {
	for _, g := range globs {
		matched, err := doublestar.Match(g, relPath)
		if err != nil {
			continue
		}
		if matched {
			return true
		}
	}
	return false
}
