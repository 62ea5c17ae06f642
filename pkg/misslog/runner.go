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

package misslog

import (
	"context"
	"os/exec"
	"time"

	"gitlab.com/tozd/go/errors"
)

// ❌ ErrExternalTool means the metadata dumper failed to spawn or exited non-zero
var ErrExternalTool = errors.New("external metadata tool failed")

// 🔌 Runner spawns an external command and returns its stdout.
// It exists so tests can substitute a fake instead of a real process.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ⚙️ ExecRunner runs real processes with a per-invocation timeout
type ExecRunner struct {
	Timeout time.Duration // Zero means no timeout
}

// Run spawns name with args and returns its stdout. A non-zero exit or
// spawn failure wraps ErrExternalTool with stderr included when present.
func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	out, err := exec.CommandContext(ctx, name, args...).Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			return nil, errors.Errorf("%w: %s: %s", ErrExternalTool, name, string(exitErr.Stderr))
		}
		return nil, errors.Errorf("%w: %s: %w", ErrExternalTool, name, err)
	}
	return out, nil
}
