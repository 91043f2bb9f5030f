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

// Package elevation answers whether the current process may touch
// system-wide VPN profiles.
package elevation

import (
	"github.com/mcwurzn/rasctl/internal/core/domain"
	"github.com/mcwurzn/rasctl/internal/core/ports"
)

const manageElevationMessage = "Admin privileges are required to manage system-wide VPN profiles. Run the app as Administrator."

type gate struct {
	probe func() (bool, error)
}

// NewGate creates a new instance of gate.
func NewGate() *gate {
	return &gate{probe: probeElevation}
}

// IsElevated reports whether the process runs with elevated rights. It
// fails closed: a probe error reads as not elevated.
func (g *gate) IsElevated() bool {
	elevated, err := g.probe()
	if err != nil {
		return false
	}
	return elevated
}

// EnsureElevated rejects system-scope work from a non-elevated process.
// It checks a precondition only and never changes process state.
func (g *gate) EnsureElevated(scope domain.Scope) error {
	if scope != domain.ScopeSystem {
		return nil
	}
	if g.IsElevated() {
		return nil
	}
	return &domain.PermissionError{Message: manageElevationMessage}
}

var _ ports.PrivilegeGate = (*gate)(nil)
