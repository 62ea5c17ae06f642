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

// Package classify inspects image bytes for embedded generation metadata
// (prompt, seed, model and friends) written by tools like A1111 and ComfyUI.
package classify

import (
	"bytes"
	"context"
	"os"
	"strings"

	"gitlab.com/tozd/go/errors"
)

// 📊 Verdict is the outcome of classifying one image
type Verdict struct {
	HasMetadata bool              // Whether any generation metadata was found
	Fields      map[string]string // Raw fields keyed by name (prompt, seed, ...)
}

// 🔌 Classifier decides whether image bytes carry generation metadata
type Classifier interface {
	Classify(ctx context.Context, path string) (Verdict, error)
	ClassifyBytes(ctx context.Context, data []byte) (Verdict, error)
}

// 🏷️ fileType is the sniffed container format of the image bytes
type fileType int

const (
	typeOther fileType = iota
	typePNG
	typeJPEG
	typeWebP
)

var (
	pngMagic  = []byte{0x89, 'P', 'N', 'G'}
	jpegMagic = []byte{0xFF, 0xD8, 0xFF}
	riffMagic = []byte("RIFF")
)

// sniff detects the image format from magic bytes, never from the extension
func sniff(data []byte) fileType {
	switch {
	case bytes.HasPrefix(data, pngMagic):
		return typePNG
	case bytes.HasPrefix(data, jpegMagic):
		return typeJPEG
	case len(data) >= 12 && bytes.HasPrefix(data, riffMagic) && bytes.Equal(data[8:12], []byte("WEBP")):
		return typeWebP
	default:
		return typeOther
	}
}

// 🔍 IGMD is the default classifier. PNG text chunks are scanned for the
// parameters/prompt/workflow keys; JPEG EXIF is checked for a UserComment.
// WebP and unknown formats never match.
type IGMD struct{}

// 🏭 New creates the default classifier
func New() *IGMD {
	return &IGMD{}
}

// Classify reads path and classifies its bytes
func (c *IGMD) Classify(ctx context.Context, path string) (Verdict, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Verdict{}, errors.Errorf("reading %s: %w", path, err)
	}
	return c.ClassifyBytes(ctx, data)
}

// ClassifyBytes classifies raw image bytes
func (c *IGMD) ClassifyBytes(ctx context.Context, data []byte) (Verdict, error) {
	switch sniff(data) {
	case typePNG:
		return classifyPNG(data)
	case typeJPEG:
		return classifyJPEG(data)
	default:
		return Verdict{}, nil
	}
}

// metadataKeys are the PNG text-chunk keys that mark generated images.
// "parameters" is A1111, "prompt"/"workflow" are ComfyUI.
var metadataKeys = map[string]bool{
	"parameters": true,
	"prompt":     true,
	"workflow":   true,
}

// parseParameters splits an A1111-style parameters blob into named fields.
// The first line is the prompt; "Negative prompt:" starts its own line;
// the trailing line is a comma-separated key: value list.
func parseParameters(params string) map[string]string {
	fields := map[string]string{"parameters": params}

	rest := params
	if i := strings.Index(rest, "\nNegative prompt:"); i >= 0 {
		fields["prompt"] = strings.TrimSpace(rest[:i])
		rest = rest[i+len("\nNegative prompt:"):]
		if j := strings.Index(rest, "\n"); j >= 0 {
			fields["negative_prompt"] = strings.TrimSpace(rest[:j])
			rest = rest[j+1:]
		} else {
			fields["negative_prompt"] = strings.TrimSpace(rest)
			rest = ""
		}
	} else if i := strings.Index(rest, "\nSteps:"); i >= 0 {
		fields["prompt"] = strings.TrimSpace(rest[:i])
		rest = rest[i+1:]
	}

	// The settings line: Steps: 20, Sampler: Euler a, CFG scale: 7, ...
	for _, part := range strings.Split(rest, ",") {
		kv := strings.SplitN(part, ":", 2)
		if len(kv) != 2 {
			continue
		}
		key := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(kv[0]), " ", "_"))
		switch key {
		case "steps", "sampler", "cfg_scale", "seed", "model", "model_hash", "size", "clip_skip":
			fields[key] = strings.TrimSpace(kv[1])
		}
	}
	return fields
}
