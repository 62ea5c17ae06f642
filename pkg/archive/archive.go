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

// Package archive opens ZIP- and RAR-family comic containers and exposes
// their entries behind a single Codec interface.
package archive

import (
	"path/filepath"
	"strings"

	"gitlab.com/tozd/go/errors"
)

var (
	// ❌ ErrUnsupportedFormat means the file extension is not a known container type
	ErrUnsupportedFormat = errors.New("unsupported archive format")
	// ❌ ErrCorruptArchive means the container could not be opened or decoded
	ErrCorruptArchive = errors.New("corrupt archive")
	// ❌ ErrEntryRead means a single entry's bytes could not be read
	ErrEntryRead = errors.New("entry read failed")
)

// 📄 Entry is one named member of a container
type Entry struct {
	Name string // Entry name as stored in the container
	Size int64  // Declared uncompressed size
}

// 📦 Codec is an open container handle. List is stable for the handle's
// lifetime; Read returns the full entry bytes by name.
type Codec interface {
	List() []Entry
	Read(name string) ([]byte, error)
	Close() error
}

// 🏭 Open opens path with the codec matching its extension.
// Unknown extensions fail with ErrUnsupportedFormat.
func Open(path string) (Codec, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".cbz":
		return openZip(path)
	case ".cbr":
		return openRar(path)
	default:
		return nil, errors.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Base(path))
	}
}
