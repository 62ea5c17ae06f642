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

// Package status tracks per-file verdicts and run progress, and owns
// writes into the destination tree.
package status

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// 📊 FileStatus represents the scan outcome for one file or archive entry
type FileStatus int

const (
	StatusUnknown    FileStatus = iota
	StatusMatched               // Generation metadata found, file copied
	StatusNoMetadata            // Classified clean, nothing copied
	StatusSkipped               // Unsupported or excluded, not classified
	StatusFailed                // Extraction or classification error
)

// String returns a string representation of FileStatus
func (s FileStatus) String() string {
	switch s {
	case StatusMatched:
		return "matched"
	case StatusNoMetadata:
		return "no-metadata"
	case StatusSkipped:
		return "skipped"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// 📄 FileInfo contains the tracked outcome for a file
type FileInfo struct {
	Path   string     // Path of the source file or archive entry
	Status FileStatus // Scan outcome
	Error  error      // Any error associated with this file
}

// 📈 Summary aggregates counts over a whole run
type Summary struct {
	Matched     int
	NoMetadata  int
	Skipped     int
	Failed      int
	ArchivesHit int // Archives whose verdict was matched
}

// 🔧 Manager tracks verdicts and handles destination-tree writes
type Manager struct {
	destRoot string // Base directory for all destination writes

	mu          sync.RWMutex
	files       map[string]FileInfo
	archivesHit int
}

// 🏭 NewManager creates a new status manager rooted at destRoot
func NewManager(destRoot string) *Manager {
	return &Manager{
		destRoot: filepath.Clean(destRoot),
		files:    make(map[string]FileInfo),
	}
}

// DestRoot returns the destination tree root
func (m *Manager) DestRoot() string {
	return m.destRoot
}

// 📝 TrackFile records the outcome for one file
func (m *Manager) TrackFile(ctx context.Context, info FileInfo) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.files[info.Path] = info

	ev := zerolog.Ctx(ctx).Debug().Str("path", info.Path).Stringer("status", info.Status)
	if info.Error != nil {
		ev = ev.Err(info.Error)
	}
	ev.Msg("file tracked")
}

// 📝 TrackArchiveVerdict records the aggregated verdict for one archive
func (m *Manager) TrackArchiveVerdict(ctx context.Context, path string, matched bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if matched {
		m.archivesHit++
	}
	zerolog.Ctx(ctx).Info().Str("archive", path).Bool("matched", matched).Msg("archive verdict")
}

// 🔍 GetFileInfo returns the tracked outcome for path
func (m *Manager) GetFileInfo(path string) (FileInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	info, ok := m.files[path]
	if !ok {
		return FileInfo{}, errors.Errorf("file not tracked: %s", path)
	}
	return info, nil
}

// 📋 ListFiles returns all tracked outcomes
func (m *Manager) ListFiles() []FileInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()

	files := make([]FileInfo, 0, len(m.files))
	for _, info := range m.files {
		files = append(files, info)
	}
	return files
}

// 📈 Summary returns aggregated counts for the run so far
func (m *Manager) Summary() Summary {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := Summary{ArchivesHit: m.archivesHit}
	for _, info := range m.files {
		switch info.Status {
		case StatusMatched:
			s.Matched++
		case StatusNoMetadata:
			s.NoMetadata++
		case StatusSkipped:
			s.Skipped++
		case StatusFailed:
			s.Failed++
		}
	}
	return s
}

// Destination-tree write helpers. All paths are relative to destRoot.

func (m *Manager) absPath(path string) string {
	return filepath.Join(m.destRoot, path)
}

// WriteFile writes content under destRoot, creating parent directories
func (m *Manager) WriteFile(ctx context.Context, path string, content []byte) error {
	absPath := m.absPath(path)

	if err := os.MkdirAll(filepath.Dir(absPath), 0755); err != nil {
		return errors.Errorf("creating parent directories: %w", err)
	}
	return m.WriteFileAtomic(ctx, path, content)
}

// WriteFileAtomic writes content via a temp file and rename
func (m *Manager) WriteFileAtomic(ctx context.Context, path string, content []byte) error {
	absPath := m.absPath(path)
	tempPath := absPath + ".tmp"

	if err := os.WriteFile(tempPath, content, 0644); err != nil {
		return errors.Errorf("writing temp file: %w", err)
	}
	if err := os.Rename(tempPath, absPath); err != nil {
		os.Remove(tempPath)
		return errors.Errorf("renaming temp file: %w", err)
	}
	return nil
}

// FileExists reports whether path exists under destRoot
func (m *Manager) FileExists(ctx context.Context, path string) (bool, error) {
	_, err := os.Stat(m.absPath(path))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, errors.Errorf("checking file existence: %w", err)
}

// CreateDir creates a directory (and parents) under destRoot
func (m *Manager) CreateDir(ctx context.Context, path string) error {
	if err := os.MkdirAll(m.absPath(path), 0755); err != nil {
		return errors.Errorf("creating directory: %w", err)
	}
	return nil
}

// CopyFile copies an absolute source path to a destRoot-relative target
func (m *Manager) CopyFile(src, dst string) error {
	srcFile, err := os.Open(src)
	if err != nil {
		return errors.Errorf("opening source file: %w", err)
	}
	defer srcFile.Close()

	absDst := m.absPath(dst)
	if err := os.MkdirAll(filepath.Dir(absDst), 0755); err != nil {
		return errors.Errorf("creating parent directories: %w", err)
	}

	dstFile, err := os.Create(absDst)
	if err != nil {
		return errors.Errorf("creating destination file: %w", err)
	}
	defer dstFile.Close()

	if _, err := io.Copy(dstFile, srcFile); err != nil {
		return errors.Errorf("copying file content: %w", err)
	}
	return nil
}
