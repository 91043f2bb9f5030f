// Copyright 2025.
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

package domain

import (
	"strings"
	"time"
)

// Command describes one external command invocation. Interactive is only
// set for the credential prompt, the single operation allowed to show a
// window and take user input; everything else runs hidden and
// non-interactive.
type Command struct {
	Argv        []string
	Timeout     time.Duration
	Interactive bool
}

// CommandOutput holds what an external command produced. It is populated
// even when the invocation failed so callers can build diagnostics.
type CommandOutput struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Combined joins stdout and stderr for diagnostic details, skipping
// empty streams.
func (o CommandOutput) Combined() string {
	parts := make([]string, 0, 2)
	if o.Stdout != "" {
		parts = append(parts, o.Stdout)
	}
	if o.Stderr != "" {
		parts = append(parts, o.Stderr)
	}
	return strings.Join(parts, "\n")
}

// FirstMessage picks the most useful human-readable line from the
// command output: stderr, falling back to stdout, falling back to the
// given generic message.
func (o CommandOutput) FirstMessage(fallback string) string {
	if o.Stderr != "" {
		return o.Stderr
	}
	if o.Stdout != "" {
		return o.Stdout
	}
	return fallback
}
