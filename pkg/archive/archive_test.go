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

package archive_test

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/igmdscan/pkg/archive"
)

// writeCBZ builds a zip-backed comic archive at path
func writeCBZ(t *testing.T, path string, entries map[string][]byte) {
	t.Helper()

	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	zw := zip.NewWriter(f)
	for name, data := range entries {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
}

// 🧪 TestOpenCBZ tests listing and reading zip-backed archives
func TestOpenCBZ(t *testing.T) {
	path := filepath.Join(t.TempDir(), "book.cbz")
	writeCBZ(t, path, map[string][]byte{
		"pages/p1.jpg": []byte("page one"),
		"pages/p2.png": []byte("page two"),
		"info.txt":     []byte("metadata"),
	})

	codec, err := archive.Open(path)
	require.NoError(t, err)
	defer codec.Close()

	entries := codec.List()
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name)
	}
	assert.ElementsMatch(t, []string{"pages/p1.jpg", "pages/p2.png", "info.txt"}, names)

	data, err := codec.Read("pages/p1.jpg")
	require.NoError(t, err)
	assert.Equal(t, []byte("page one"), data)

	_, err = codec.Read("pages/missing.jpg")
	assert.ErrorIs(t, err, archive.ErrEntryRead)
}

// 🧪 TestOpenCBZSkipsDirectories tests that directory entries never appear
// in the listing
func TestOpenCBZSkipsDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "book.cbz")

	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	_, err = zw.Create("pages/")
	require.NoError(t, err)
	w, err := zw.Create("pages/p1.jpg")
	require.NoError(t, err)
	_, err = w.Write([]byte("page one"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	codec, err := archive.Open(path)
	require.NoError(t, err)
	defer codec.Close()

	entries := codec.List()
	require.Len(t, entries, 1)
	assert.Equal(t, "pages/p1.jpg", entries[0].Name)
}

// 🧪 TestOpenUnsupportedFormat tests extension-based dispatch
func TestOpenUnsupportedFormat(t *testing.T) {
	dir := t.TempDir()

	for _, name := range []string{"book.zip", "book.rar", "book.tar.gz", "book"} {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte("anything"), 0644))

		_, err := archive.Open(path)
		assert.ErrorIs(t, err, archive.ErrUnsupportedFormat, name)
	}
}

// 🧪 TestOpenCorruptArchive tests that garbage bytes surface as corruption
func TestOpenCorruptArchive(t *testing.T) {
	dir := t.TempDir()

	for _, name := range []string{"broken.cbz", "broken.cbr"} {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte("this is not an archive"), 0644))

		_, err := archive.Open(path)
		assert.ErrorIs(t, err, archive.ErrCorruptArchive, name)
	}
}

// 🧪 TestOpenMissingFile tests open failure for a nonexistent path
func TestOpenMissingFile(t *testing.T) {
	_, err := archive.Open(filepath.Join(t.TempDir(), "nope.cbz"))
	assert.Error(t, err)
}
