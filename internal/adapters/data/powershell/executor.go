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

package powershell

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/mcwurzn/rasctl/internal/core/domain"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/unicode"
)

const defaultRunTimeout = 20 * time.Second

// Runner executes external commands with bounded timeouts, captured
// output, and no visible window unless the command is interactive.
type Runner struct {
	logger     *zap.SugaredLogger
	newCommand func(ctx context.Context, argv []string) *exec.Cmd
}

// NewRunner creates a new instance of Runner.
func NewRunner(logger *zap.SugaredLogger) *Runner {
	return &Runner{
		logger: logger,
		newCommand: func(ctx context.Context, argv []string) *exec.Cmd {
			// #nosec G204 -- argv is assembled from fixed tool names and quoted values
			return exec.CommandContext(ctx, argv[0], argv[1:]...)
		},
	}
}

// Run executes one command and waits for it to finish. The returned
// CommandOutput is populated even when an error is returned, so callers
// can build diagnostics from whatever the process produced.
func (r *Runner) Run(cmd domain.Command) (domain.CommandOutput, error) {
	if len(cmd.Argv) == 0 {
		return domain.CommandOutput{ExitCode: -1}, &domain.ExternalToolError{
			Message:  "empty command",
			ExitCode: -1,
		}
	}

	timeout := cmd.Timeout
	if timeout <= 0 {
		timeout = defaultRunTimeout
	}
	tool := filepath.Base(cmd.Argv[0])

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	proc := r.newCommand(ctx, cmd.Argv)
	if attr := sysProcAttr(cmd.Interactive); attr != nil {
		proc.SysProcAttr = attr
	}

	var stdout, stderr bytes.Buffer
	proc.Stdout = &stdout
	proc.Stderr = &stderr

	runErr := proc.Run()
	out := domain.CommandOutput{
		Stdout: strings.TrimSpace(decodeOutput(stdout.Bytes())),
		Stderr: strings.TrimSpace(decodeOutput(stderr.Bytes())),
	}

	if runErr != nil && ctx.Err() == context.DeadlineExceeded {
		out.ExitCode = -1
		r.logger.Warnw("command timed out", "tool", tool, "timeout", timeout)
		return out, &domain.ExternalToolError{
			Tool:     tool,
			Message:  fmt.Sprintf("%s timed out after %ds.", tool, int(timeout.Seconds())),
			Details:  out.Combined(),
			ExitCode: -1,
			Timeout:  true,
		}
	}

	var exitErr *exec.ExitError
	if errors.As(runErr, &exitErr) {
		out.ExitCode = exitErr.ExitCode()
		return out, &domain.ExternalToolError{
			Tool:     tool,
			Message:  out.FirstMessage(fmt.Sprintf("%s exited with code %d.", tool, out.ExitCode)),
			Details:  out.Combined(),
			ExitCode: out.ExitCode,
		}
	}
	if runErr != nil {
		out.ExitCode = -1
		r.logger.Errorw("command could not run", "tool", tool, "error", runErr)
		return out, &domain.ExternalToolError{
			Tool:     tool,
			Message:  runErr.Error(),
			ExitCode: -1,
		}
	}

	return out, nil
}

// Start launches a command without waiting for it. Used for the
// fire-and-forget credential prompt variant.
func (r *Runner) Start(cmd domain.Command) error {
	if len(cmd.Argv) == 0 {
		return &domain.ExternalToolError{Message: "empty command", ExitCode: -1}
	}
	proc := r.newCommand(context.Background(), cmd.Argv)
	if attr := sysProcAttr(cmd.Interactive); attr != nil {
		proc.SysProcAttr = attr
	}
	if err := proc.Start(); err != nil {
		return &domain.ExternalToolError{
			Tool:     filepath.Base(cmd.Argv[0]),
			Message:  err.Error(),
			ExitCode: -1,
		}
	}
	// Reap the process in the background so it never lingers as a zombie.
	go func() { _ = proc.Wait() }()
	return nil
}

// RunScript runs a PowerShell pipeline non-interactively with stop-on-
// error semantics.
func (r *Runner) RunScript(script string, timeout time.Duration) (domain.CommandOutput, error) {
	out, err := r.Run(domain.Command{Argv: psArgs(script), Timeout: timeout})
	if err != nil {
		var toolErr *domain.ExternalToolError
		if errors.As(err, &toolErr) && !toolErr.Timeout && toolErr.ExitCode > 0 {
			toolErr.Message = out.FirstMessage("PowerShell command failed.")
		}
	}
	return out, err
}

// RunStructured runs a PowerShell pipeline with a JSON serialization
// directive appended and normalizes the parsed result: empty output and
// null parse to an empty slice, a single object to a one-element slice,
// an array to its object elements.
func (r *Runner) RunStructured(script string, timeout time.Duration) ([]map[string]any, error) {
	out, err := r.RunScript(script+" | ConvertTo-Json -Depth 4", timeout)
	if err != nil {
		return nil, err
	}
	if out.Stdout == "" {
		return []map[string]any{}, nil
	}

	var parsed any
	if jsonErr := json.Unmarshal([]byte(out.Stdout), &parsed); jsonErr != nil {
		return nil, &domain.ExternalToolError{
			Tool:    "powershell.exe",
			Message: fmt.Sprintf("Failed to parse PowerShell output: %v", jsonErr),
			Details: out.Combined(),
		}
	}

	switch value := parsed.(type) {
	case nil:
		return []map[string]any{}, nil
	case map[string]any:
		return []map[string]any{value}, nil
	case []any:
		rows := make([]map[string]any, 0, len(value))
		for _, item := range value {
			if row, ok := item.(map[string]any); ok {
				rows = append(rows, row)
			}
		}
		return rows, nil
	default:
		// A bare scalar cannot describe a profile row.
		return []map[string]any{}, nil
	}
}

func psArgs(script string) []string {
	return []string{
		"powershell.exe",
		"-NoProfile",
		"-NonInteractive",
		"-ExecutionPolicy",
		"Bypass",
		"-Command",
		"$ErrorActionPreference='Stop'; " + script,
	}
}

// psQuote single-quotes a value for interpolation into a PowerShell
// pipeline, doubling embedded single quotes.
func psQuote(value string) string {
	return "'" + strings.ReplaceAll(value, "'", "''") + "'"
}

// decodeOutput decodes process output permissively. powershell.exe can
// emit UTF-16 when redirected and localized tools write the OEM code
// page, so undecodable bytes are replaced rather than ever failing.
func decodeOutput(raw []byte) string {
	if len(raw) == 0 {
		return ""
	}
	if len(raw) >= 2 {
		hasLE := raw[0] == 0xFF && raw[1] == 0xFE
		hasBE := raw[0] == 0xFE && raw[1] == 0xFF
		if hasLE || hasBE {
			decoder := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder()
			if decoded, err := decoder.Bytes(raw); err == nil {
				return string(decoded)
			}
		}
	}
	raw = bytes.TrimPrefix(raw, []byte{0xEF, 0xBB, 0xBF})
	if utf8.Valid(raw) {
		return string(raw)
	}
	return string(bytes.ToValidUTF8(raw, []byte("�")))
}
