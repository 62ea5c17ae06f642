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

package archive

import (
	"archive/zip"
	"io"

	"gitlab.com/tozd/go/errors"
)

// 📦 zipCodec reads .cbz containers via archive/zip
type zipCodec struct {
	rc      *zip.ReadCloser
	entries []Entry
	files   map[string]*zip.File
}

func openZip(path string) (Codec, error) {
	rc, err := zip.OpenReader(path)
	if err != nil {
		return nil, errors.Errorf("%w: opening %s: %w", ErrCorruptArchive, path, err)
	}

	c := &zipCodec{
		rc:    rc,
		files: make(map[string]*zip.File, len(rc.File)),
	}
	for _, f := range rc.File {
		if f.FileInfo().IsDir() {
			continue
		}
		c.entries = append(c.entries, Entry{Name: f.Name, Size: int64(f.UncompressedSize64)})
		c.files[f.Name] = f
	}
	return c, nil
}

func (c *zipCodec) List() []Entry {
	return c.entries
}

func (c *zipCodec) Read(name string) ([]byte, error) {
	f, ok := c.files[name]
	if !ok {
		return nil, errors.Errorf("%w: no such entry %q", ErrEntryRead, name)
	}

	r, err := f.Open()
	if err != nil {
		return nil, errors.Errorf("%w: opening entry %q: %w", ErrEntryRead, name, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Errorf("%w: reading entry %q: %w", ErrEntryRead, name, err)
	}
	return data, nil
}

func (c *zipCodec) Close() error {
	return c.rc.Close()
}
