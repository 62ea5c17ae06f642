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
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/walteh/igmdscan/pkg/log"
	"github.com/walteh/igmdscan/pkg/status"
)

// 🖼️ ProcessImage classifies one loose image and copies it verbatim into
// the destination root on a match, keeping its original base name. Later
// writers win on name collisions; loose files get no dedup suffix.
// Classifier failures are treated as "no match" and never propagate.
func (p *Processor) ProcessImage(ctx context.Context, path string) (bool, error) {
	logger := zerolog.Ctx(ctx)

	verdict, err := p.classifier.Classify(ctx, path)
	if err != nil {
		logger.Warn().Str("path", path).Err(err).Msg("classification failed, treated as no match")
		p.status.TrackFile(ctx, status.FileInfo{Path: path, Status: status.StatusFailed, Error: err})
		return false, err
	}

	if !verdict.HasMetadata {
		p.status.TrackFile(ctx, status.FileInfo{Path: path, Status: status.StatusNoMetadata})
		if p.console != nil {
			p.console.LogFileOperation(ctx, log.FileOperation{
				Path: path, Kind: "image", Status: "no-metadata",
			})
		}
		return false, nil
	}

	if err := p.status.CopyFile(path, filepath.Base(path)); err != nil {
		logger.Warn().Str("path", path).Err(err).Msg("copying matched image failed")
		p.status.TrackFile(ctx, status.FileInfo{Path: path, Status: status.StatusFailed, Error: err})
		return false, err
	}

	p.status.TrackFile(ctx, status.FileInfo{Path: path, Status: status.StatusMatched})
	if p.console != nil {
		p.console.LogFileOperation(ctx, log.FileOperation{
			Path: path, Kind: "image", Status: "matched", Matched: true,
		})
	}
	return true, nil
}
