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

package extract

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
	"github.com/walteh/igmdscan/pkg/archive"
	"github.com/walteh/igmdscan/pkg/log"
	"github.com/walteh/igmdscan/pkg/scan"
	"github.com/walteh/igmdscan/pkg/status"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/sync/semaphore"
)

// triggerSubstrings mark archive base names whose destination directory
// must get a fresh numeric suffix instead of reusing an existing one
var triggerSubstrings = []string{"merged", "chapter"}

// 📦 ProcessArchive runs the full extraction pipeline for one archive:
// open, resolve destination, list image entries, fan out bounded entry
// tasks, aggregate the verdict. The returned bool is the OR over all
// entry verdicts. Open failures are returned for the caller to recover.
func (p *Processor) ProcessArchive(ctx context.Context, path string) (bool, error) {
	logger := zerolog.Ctx(ctx)

	codec, err := p.openArchive(path)
	if err != nil {
		return false, errors.Errorf("opening archive %s: %w", path, err)
	}
	defer codec.Close()

	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	dirName := p.resolveDestDir(base)

	// Directory creation happens before any entry task runs, even for
	// archives with zero recognized entries.
	if err := p.status.CreateDir(ctx, dirName); err != nil {
		return false, errors.Errorf("creating destination directory: %w", err)
	}

	entries := p.imageEntries(codec.List())

	if p.console != nil {
		p.console.StartArchiveOperation(ctx, log.ArchiveOperation{
			Name:        filepath.Base(path),
			Destination: dirName,
			Entries:     len(entries),
		})
	}

	sem := semaphore.NewWeighted(int64(p.entryWorkers))
	var wg sync.WaitGroup
	var matched atomic.Bool
	var processed atomic.Int64
	total := len(entries)

	for _, e := range entries {
		// Acquire fails only on cancellation: stop dispatching and let
		// in-flight tasks finish their cleanup.
		if err := sem.Acquire(ctx, 1); err != nil {
			logger.Warn().Str("archive", path).Err(err).Msg("cancelled, stopping entry dispatch")
			break
		}

		wg.Add(1)
		go func(e archive.Entry) {
			defer wg.Done()
			defer sem.Release(1)

			if p.processEntry(ctx, codec, e, dirName) {
				matched.Store(true)
			}
			if p.console != nil {
				p.console.Progress(ctx, int(processed.Add(1)), total)
			}
		}(e)
	}
	wg.Wait()

	p.status.TrackArchiveVerdict(ctx, path, matched.Load())
	if !matched.Load() {
		logger.Info().Str("archive", path).Msg("no generation metadata found in archive")
	}
	if p.console != nil {
		p.console.EndArchiveOperation(ctx, matched.Load())
	}

	return matched.Load(), ctx.Err()
}

// resolveDestDir derives the destination directory name for an archive
// base name. Trigger names probe base-1, base-2, ... until a free path is
// found; anything else reuses the plain base name even when it exists.
func (p *Processor) resolveDestDir(base string) string {
	lower := strings.ToLower(base)
	trigger := false
	for _, s := range triggerSubstrings {
		if strings.Contains(lower, s) {
			trigger = true
			break
		}
	}
	if !trigger {
		return base
	}

	for n := 1; ; n++ {
		candidate := fmt.Sprintf("%s-%d", base, n)
		if _, err := os.Stat(filepath.Join(p.status.DestRoot(), candidate)); os.IsNotExist(err) {
			return candidate
		}
	}
}

// imageEntries filters container entries to recognized image extensions
func (p *Processor) imageEntries(entries []archive.Entry) []archive.Entry {
	var out []archive.Entry
	for _, e := range entries {
		if p.walk.Classify(e.Name) == scan.KindImage {
			out = append(out, e)
		}
	}
	return out
}

// 📄 processEntry is one extraction task: read entry bytes, stage them in
// a task-private temp file, classify, and copy on a match. The temp file
// is removed on every exit path. Failures degrade to "not matched".
func (p *Processor) processEntry(ctx context.Context, codec archive.Codec, e archive.Entry, dirName string) bool {
	logger := zerolog.Ctx(ctx)
	entryBase := filepath.Base(e.Name)

	data, err := codec.Read(e.Name)
	if err != nil {
		logger.Warn().Str("entry", e.Name).Err(err).Msg("entry read failed")
		p.status.TrackFile(ctx, status.FileInfo{Path: e.Name, Status: status.StatusFailed, Error: err})
		return false
	}

	// Task-private temp file: the unique CreateTemp name keeps concurrent
	// tasks from clobbering each other's staging area.
	tmp, err := os.CreateTemp(filepath.Join(p.status.DestRoot(), dirName), ".igmdscan-*")
	if err != nil {
		logger.Warn().Str("entry", e.Name).Err(err).Msg("creating temp file failed")
		p.status.TrackFile(ctx, status.FileInfo{Path: e.Name, Status: status.StatusFailed, Error: err})
		return false
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	_, writeErr := tmp.Write(data)
	closeErr := tmp.Close()
	if writeErr != nil || closeErr != nil {
		err := errors.Join(writeErr, closeErr)
		logger.Warn().Str("entry", e.Name).Err(err).Msg("staging entry failed")
		p.status.TrackFile(ctx, status.FileInfo{Path: e.Name, Status: status.StatusFailed, Error: err})
		return false
	}

	verdict, err := p.classifier.Classify(ctx, tmpPath)
	if err != nil {
		logger.Warn().Str("entry", e.Name).Err(err).Msg("classification failed, treated as no match")
		p.status.TrackFile(ctx, status.FileInfo{Path: e.Name, Status: status.StatusFailed, Error: err})
		return false
	}

	if !verdict.HasMetadata {
		p.status.TrackFile(ctx, status.FileInfo{Path: e.Name, Status: status.StatusNoMetadata})
		return false
	}

	// <dirBase>-<entryBase> is unique within one archive because entry
	// names are unique; the dirBase prefix keeps names collision-free
	// across archives sharing a destination tree.
	outName := filepath.Base(dirName) + "-" + entryBase
	if err := p.status.WriteFile(ctx, filepath.Join(dirName, outName), data); err != nil {
		logger.Warn().Str("entry", e.Name).Err(err).Msg("writing matched entry failed")
		p.status.TrackFile(ctx, status.FileInfo{Path: e.Name, Status: status.StatusFailed, Error: err})
		return false
	}

	p.status.TrackFile(ctx, status.FileInfo{Path: e.Name, Status: status.StatusMatched})
	if p.console != nil {
		p.console.LogFileOperation(ctx, log.FileOperation{
			Path: e.Name, Kind: "entry", Status: "matched", Matched: true,
		})
	}
	return true
}
