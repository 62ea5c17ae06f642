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

// Package misslog appends raw metadata dumps of non-matching files to a
// shared log file via an external dumper (exiftool by default).
package misslog

import (
	"context"
	"os"
	"sync"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// 🏷️ DefaultTool is the external dumper invoked for each miss
const DefaultTool = "exiftool"

// 🏷️ DefaultTags is the tag list passed to exiftool, matching the fields
// generators are known to write
var DefaultTags = []string{
	"-FileName",
	"-Parameters",
	"-Prompt",
	"-UserComment",
	"-Model",
	"-Lora",
	"-cfg scale",
	"-seed",
	"-NegativePrompt",
	"-ModelHash",
}

// 🔧 Options configures the miss logger
type Options struct {
	Tool   string   // Dumper binary, DefaultTool when empty
	Args   []string // Tag arguments, DefaultTags when nil
	Runner Runner   // Command runner, ExecRunner when nil
}

// 📝 Logger serializes miss-dump appends to a single shared log file.
// Blocks from concurrent invocations never interleave.
type Logger struct {
	mu     sync.Mutex
	f      *os.File
	tool   string
	args   []string
	runner Runner
}

// 🏭 New opens (or creates) the log file at path in append mode
func New(path string, opts Options) (*Logger, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, errors.Errorf("opening miss log %s: %w", path, err)
	}

	l := &Logger{
		f:      f,
		tool:   opts.Tool,
		args:   opts.Args,
		runner: opts.Runner,
	}
	if l.tool == "" {
		l.tool = DefaultTool
	}
	if l.args == nil {
		l.args = DefaultTags
	}
	if l.runner == nil {
		l.runner = &ExecRunner{}
	}
	return l, nil
}

// 📝 LogMiss dumps path's metadata via the external tool and appends one
// complete block plus a trailing blank line to the log file. Tool failures
// are returned (wrapping ErrExternalTool) but leave the log untouched.
func (l *Logger) LogMiss(ctx context.Context, path string) error {
	args := append(append([]string{}, l.args...), path)
	out, err := l.runner.Run(ctx, l.tool, args...)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Str("path", path).Err(err).Msg("metadata dump failed")
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := l.f.Write(append(out, '\n')); err != nil {
		return errors.Errorf("appending miss log block: %w", err)
	}
	return nil
}

// Close closes the underlying log file
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.f.Close()
}
