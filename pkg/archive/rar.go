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
	"io"

	"github.com/nwaples/rardecode"
	"gitlab.com/tozd/go/errors"
)

// 📦 rarCodec reads .cbr containers via rardecode. The decoder is
// stream-only, so all entry bytes are buffered at open time to give
// Read the same random-access contract as the zip codec.
type rarCodec struct {
	entries []Entry
	data    map[string][]byte
}

func openRar(path string) (Codec, error) {
	rc, err := rardecode.OpenReader(path, "")
	if err != nil {
		return nil, errors.Errorf("%w: opening %s: %w", ErrCorruptArchive, path, err)
	}
	defer rc.Close()

	c := &rarCodec{data: make(map[string][]byte)}
	for {
		header, err := rc.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Errorf("%w: decoding %s: %w", ErrCorruptArchive, path, err)
		}
		if header.IsDir {
			continue
		}

		data, err := io.ReadAll(rc)
		if err != nil {
			return nil, errors.Errorf("%w: reading entry %q: %w", ErrEntryRead, header.Name, err)
		}
		c.entries = append(c.entries, Entry{Name: header.Name, Size: int64(len(data))})
		c.data[header.Name] = data
	}
	return c, nil
}

func (c *rarCodec) List() []Entry {
	return c.entries
}

func (c *rarCodec) Read(name string) ([]byte, error) {
	data, ok := c.data[name]
	if !ok {
		return nil, errors.Errorf("%w: no such entry %q", ErrEntryRead, name)
	}
	return data, nil
}

func (c *rarCodec) Close() error {
	c.data = nil
	return nil
}
