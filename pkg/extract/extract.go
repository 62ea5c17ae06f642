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

	"github.com/rs/zerolog"
	"github.com/walteh/igmdscan/pkg/archive"
	"github.com/walteh/igmdscan/pkg/classify"
	"github.com/walteh/igmdscan/pkg/log"
	"github.com/walteh/igmdscan/pkg/misslog"
	"github.com/walteh/igmdscan/pkg/scan"
	"github.com/walteh/igmdscan/pkg/status"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/sync/errgroup"
)

// 🔧 Options contains configuration for the processor
type Options struct {
	// Classifier decides whether image bytes carry generation metadata
	Classifier classify.Classifier
	// Status tracks verdicts and owns destination-tree writes
	Status *status.Manager
	// Console is the user-facing logger (optional)
	Console *log.Logger
	// MissLog appends metadata dumps of non-matching files (optional)
	MissLog *misslog.Logger
	// OpenArchive opens a container by path; archive.Open when nil
	OpenArchive func(path string) (archive.Codec, error)
	// Walk configures entry classification and exclusion
	Walk scan.Options
	// TopWorkers caps simultaneously processed files and archives
	TopWorkers int
	// EntryWorkers caps simultaneous entry tasks within one archive
	EntryWorkers int
}

// 🎮 Processor drives a whole scan run: it walks the source tree,
// classifies loose images, and orchestrates per-archive extraction.
type Processor struct {
	classifier   classify.Classifier
	status       *status.Manager
	console      *log.Logger
	missLog      *misslog.Logger
	openArchive  func(path string) (archive.Codec, error)
	walk         scan.Options
	topWorkers   int
	entryWorkers int
}

// 🏭 New creates a new processor with the given options
func New(opts Options) (*Processor, error) {
	if opts.Classifier == nil {
		return nil, errors.Errorf("classifier is required")
	}
	if opts.Status == nil {
		return nil, errors.Errorf("status manager is required")
	}

	p := &Processor{
		classifier:   opts.Classifier,
		status:       opts.Status,
		console:      opts.Console,
		missLog:      opts.MissLog,
		openArchive:  opts.OpenArchive,
		walk:         opts.Walk,
		topWorkers:   opts.TopWorkers,
		entryWorkers: opts.EntryWorkers,
	}
	if p.openArchive == nil {
		p.openArchive = archive.Open
	}
	if len(p.walk.ImageExtensions) == 0 && len(p.walk.ArchiveExtensions) == 0 {
		p.walk = scan.DefaultOptions()
	}
	if p.topWorkers < 1 {
		p.topWorkers = 4
	}
	if p.entryWorkers < 1 {
		p.entryWorkers = 8
	}
	return p, nil
}

// 🏃 Run walks scanRoot and dispatches every entry into a bounded worker
// group. Per-file failures degrade to skipped/not-matched outcomes; only
// walk-level failures and cancellation are returned.
func (p *Processor) Run(ctx context.Context, scanRoot string) (status.Summary, error) {
	logger := zerolog.Ctx(ctx)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.topWorkers)

	walkErr := scan.Walk(gctx, scanRoot, p.walk, func(e scan.SourceEntry) error {
		// Stop dispatching once cancelled; in-flight tasks finish their
		// cleanup before Wait returns.
		if err := gctx.Err(); err != nil {
			return err
		}

		switch e.Kind {
		case scan.KindImage:
			g.Go(func() error {
				p.runImage(gctx, e.Path)
				return nil
			})
		case scan.KindArchive:
			g.Go(func() error {
				p.runArchive(gctx, e.Path)
				return nil
			})
		default:
			// Ignored for extraction, but the miss log still covers every
			// scanned file when enabled.
			if p.missLog != nil {
				g.Go(func() error {
					p.logMiss(gctx, e.Path)
					return nil
				})
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Warn().Err(err).Msg("run interrupted")
		return p.status.Summary(), err
	}
	if walkErr != nil {
		return p.status.Summary(), walkErr
	}
	return p.status.Summary(), nil
}

// runImage processes one loose image and feeds the miss log
func (p *Processor) runImage(ctx context.Context, path string) {
	// ProcessImage already logs its own failures; a failed classification
	// counts as a miss like the reference behavior.
	matched, _ := p.ProcessImage(ctx, path)
	if !matched && p.missLog != nil {
		p.dumpMiss(ctx, path)
	}
}

// runArchive processes one archive and feeds the miss log. The archive
// file itself goes through the miss check like any other scanned file;
// entries inside it never do.
func (p *Processor) runArchive(ctx context.Context, path string) {
	logger := zerolog.Ctx(ctx)

	if _, err := p.ProcessArchive(ctx, path); err != nil {
		switch {
		case errors.Is(err, archive.ErrUnsupportedFormat):
			logger.Warn().Str("path", path).Msg("unsupported archive format, skipping")
			p.status.TrackFile(ctx, status.FileInfo{Path: path, Status: status.StatusSkipped, Error: err})
		case errors.Is(err, archive.ErrCorruptArchive):
			logger.Warn().Str("path", path).Err(err).Msg("corrupt archive, skipping")
			p.status.TrackFile(ctx, status.FileInfo{Path: path, Status: status.StatusFailed, Error: err})
		default:
			logger.Warn().Str("path", path).Err(err).Msg("archive processing failed")
			p.status.TrackFile(ctx, status.FileInfo{Path: path, Status: status.StatusFailed, Error: err})
		}
		if p.console != nil {
			p.console.LogFileOperation(ctx, log.FileOperation{
				Path: path, Kind: "archive", Status: "skipped", Skipped: true,
			})
		}
	}

	if p.missLog != nil {
		p.logMiss(ctx, path)
	}
}

// logMiss classifies path and, when it lacks generation metadata, appends
// its raw metadata dump to the shared miss log
func (p *Processor) logMiss(ctx context.Context, path string) {
	verdict, err := p.classifier.Classify(ctx, path)
	if err == nil && verdict.HasMetadata {
		return
	}
	p.dumpMiss(ctx, path)
}

// dumpMiss appends path's raw metadata dump to the shared miss log. Tool
// failures are surfaced and swallowed; they never abort the run.
func (p *Processor) dumpMiss(ctx context.Context, path string) {
	if err := p.missLog.LogMiss(ctx, path); err != nil {
		if p.console != nil {
			p.console.Warningf("metadata dump failed for %s: %v", path, err)
		}
	}
}
