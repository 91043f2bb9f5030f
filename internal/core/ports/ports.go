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

package ports

import (
	"time"

	"github.com/mcwurzn/rasctl/internal/core/domain"
)

// CommandRunner runs external commands with bounded timeouts and
// captured output. Run and RunScript return the captured output even
// when they also return a *domain.ExternalToolError; RunStructured
// parses stdout as JSON and normalizes it to a slice of objects.
type CommandRunner interface {
	Run(cmd domain.Command) (domain.CommandOutput, error)
	RunScript(script string, timeout time.Duration) (domain.CommandOutput, error)
	RunStructured(script string, timeout time.Duration) ([]map[string]any, error)
	// Start launches a command without waiting for it to finish.
	Start(cmd domain.Command) error
}

// ProfileRepository queries and mutates VPN profile definitions in the
// external subsystem's store.
type ProfileRepository interface {
	// ListProfiles returns the caller's own profiles, extended with
	// system-wide ones when includeSystem is set. A degraded system-scope
	// listing does not fail the call; it is reported through the advisory
	// string instead. Own-scope profiles come first.
	ListProfiles(includeSystem bool) (profiles []domain.Profile, advisory string, err error)
	// Status reports a single profile's connection status. It never
	// fails; query errors map to StatusError.
	Status(name string, scope domain.Scope) domain.Status
	CreateProfile(spec domain.ProfileSpec, scope domain.Scope) domain.OperationResult
	UpdateProfile(name string, spec domain.ProfileSpec, scope domain.Scope) domain.OperationResult
	DeleteProfile(name string, scope domain.Scope) domain.OperationResult
}

// PrivilegeGate answers whether the process holds elevated rights and
// rejects system-scope work otherwise. It is a pure precondition check
// with no side effects.
type PrivilegeGate interface {
	// IsElevated fails closed: any probe failure reads as not elevated.
	IsElevated() bool
	// EnsureElevated returns nil for user scope or when elevated, and a
	// *domain.PermissionError otherwise.
	EnsureElevated(scope domain.Scope) error
}

// VpnBackend is the capability contract consumed by the presentation
// layer. Connect/Disconnect report command dispatch; ConnectAndWait adds
// credential-aware recovery and polling until the subsystem converges.
type VpnBackend interface {
	ListProfiles(includeSystem bool) ([]domain.Profile, string, error)
	Status(name string, scope domain.Scope) domain.Status
	Connect(name string, scope domain.Scope, timeout time.Duration) domain.OperationResult
	Disconnect(name string, scope domain.Scope, timeout time.Duration) domain.OperationResult
	ConnectAndWait(name string, scope domain.Scope, pollInterval, maxWait time.Duration) domain.OperationResult
	CreateProfile(spec domain.ProfileSpec, scope domain.Scope) domain.OperationResult
	UpdateProfile(name string, spec domain.ProfileSpec, scope domain.Scope) domain.OperationResult
	DeleteProfile(name string, scope domain.Scope) domain.OperationResult
	OpenCredentialPrompt(name string, scope domain.Scope, wait bool, timeout time.Duration) domain.OperationResult
}

// ConfigProvider resolves well-known paths and environment values.
type ConfigProvider interface {
	HomeDir() string
	ConfigPath(elems ...string) string
	LogPath(filename string) string
	GetEnvOrDefault(envVar, defaultValue string) string
}

// FlagsProvider exposes global command-line flags to the wiring code.
type FlagsProvider interface {
	IsDebug() bool
	GetFlag(name string) string
}
