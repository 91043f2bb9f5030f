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

import "strings"

// Scope says whether a VPN profile belongs to the current user or is
// shared system-wide. System-wide profiles require elevation to manage.
type Scope string

const (
	ScopeUser   Scope = "User"
	ScopeSystem Scope = "System"
)

// Status is the normalized projection of whatever raw connection status
// the VPN subsystem reports. It is always one of the five values below;
// raw strings never leak through.
type Status string

const (
	StatusConnected    Status = "Connected"
	StatusConnecting   Status = "Connecting"
	StatusDisconnected Status = "Disconnected"
	StatusUnknown      Status = "Unknown"
	StatusError        Status = "Error"
)

// NormalizeStatus maps a raw status string onto a Status. Matching is
// case-insensitive; empty and unrecognized values map to StatusUnknown.
func NormalizeStatus(raw string) Status {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "connected":
		return StatusConnected
	case "connecting":
		return StatusConnecting
	case "disconnected":
		return StatusDisconnected
	case "error":
		return StatusError
	default:
		return StatusUnknown
	}
}

// TunnelType is the VPN tunnel protocol of a profile.
type TunnelType string

const (
	TunnelAutomatic TunnelType = "Automatic"
	TunnelIKEv2     TunnelType = "IKEv2"
	TunnelSSTP      TunnelType = "SSTP"
	TunnelL2TP      TunnelType = "L2TP"
	TunnelPPTP      TunnelType = "PPTP"
)

// NormalizeTunnelType maps a raw tunnel-type string onto a TunnelType.
// Empty values default to TunnelAutomatic. Known values are matched
// case-insensitively to their canonical spelling; an unrecognized
// non-empty value is kept verbatim since it reflects real external state.
func NormalizeTunnelType(raw string) TunnelType {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return TunnelAutomatic
	}
	switch strings.ToLower(trimmed) {
	case "automatic":
		return TunnelAutomatic
	case "ikev2":
		return TunnelIKEv2
	case "sstp":
		return TunnelSSTP
	case "l2tp":
		return TunnelL2TP
	case "pptp":
		return TunnelPPTP
	default:
		return TunnelType(trimmed)
	}
}

// Profile is one named VPN connection profile as reported by the external
// subsystem. It is a cache of external state, rebuildable at any time by
// re-listing; identity is (Name, Scope).
type Profile struct {
	Name                 string
	ServerAddress        string
	TunnelType           TunnelType
	AuthenticationMethod string
	Status               Status
	Scope                Scope
}

// ProfileSpec is the creation/update payload for a profile.
type ProfileSpec struct {
	Name          string
	ServerAddress string
	TunnelType    TunnelType
}

// OperationResult is the uniform return envelope for every mutating or
// connect/disconnect operation. Status may be empty when the operation
// observed none. A failed result never carries StatusConnected.
type OperationResult struct {
	Success bool
	Message string
	Status  Status
	Details string
}
