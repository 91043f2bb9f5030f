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
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/mcwurzn/rasctl/internal/core/domain"
	"github.com/mcwurzn/rasctl/internal/core/ports"
	"go.uber.org/zap"
)

const profileFields = "Name,ServerAddress,TunnelType,AuthenticationMethod,ConnectionStatus"

const listElevationAdvisory = "Admin privileges are required to list system-wide VPN profiles. Run the app as Administrator."

// profileRepo reads and mutates Windows VPN profiles through the
// VpnClient PowerShell cmdlets.
type profileRepo struct {
	logger        *zap.SugaredLogger
	commandRunner ports.CommandRunner
	privilegeGate ports.PrivilegeGate
	config        domain.Config
}

// NewProfileRepo creates a new instance of profileRepo.
func NewProfileRepo(logger *zap.SugaredLogger, commandRunner ports.CommandRunner, privilegeGate ports.PrivilegeGate, config domain.Config) *profileRepo {
	return &profileRepo{
		logger:        logger,
		commandRunner: commandRunner,
		privilegeGate: privilegeGate,
		config:        config.Normalize(),
	}
}

// ListProfiles returns the current user's profiles, followed by
// system-wide ones when includeSystem is set. System-scope degradation
// (missing elevation, failed all-user query) never fails the call; it is
// surfaced through the advisory string.
func (r *profileRepo) ListProfiles(includeSystem bool) ([]domain.Profile, string, error) {
	script := fmt.Sprintf("Get-VpnConnection | Select-Object %s", profileFields)
	rows, err := r.commandRunner.RunStructured(script, r.config.QueryTimeout())
	if err != nil {
		return nil, "", err
	}

	profiles := make([]domain.Profile, 0, len(rows))
	for _, row := range rows {
		profiles = append(profiles, profileFromRow(row, domain.ScopeUser))
	}

	if !includeSystem {
		return profiles, "", nil
	}
	if !r.privilegeGate.IsElevated() {
		return profiles, listElevationAdvisory, nil
	}

	script = fmt.Sprintf("Get-VpnConnection -AllUserConnection | Select-Object %s", profileFields)
	systemRows, err := r.commandRunner.RunStructured(script, r.config.QueryTimeout())
	if err != nil {
		r.logger.Warnf("All-user profile query failed: %v", err)
		return profiles, fmt.Sprintf("All-user query failed: %v", err), nil
	}
	for _, row := range systemRows {
		profiles = append(profiles, profileFromRow(row, domain.ScopeSystem))
	}
	return profiles, "", nil
}

// Status reports one profile's connection status. It never returns an
// error; a failed query reads as StatusError and an absent profile as
// StatusUnknown.
func (r *profileRepo) Status(name string, scope domain.Scope) domain.Status {
	script := fmt.Sprintf("Get-VpnConnection -Name %s%s | Select-Object ConnectionStatus",
		psQuote(name), scopeFlag(scope))
	rows, err := r.commandRunner.RunStructured(script, r.config.QueryTimeout())
	if err != nil {
		r.logger.Debugf("Status query for %s failed: %v", name, err)
		return domain.StatusError
	}
	if len(rows) == 0 {
		return domain.StatusUnknown
	}
	return domain.NormalizeStatus(stringify(rows[0]["ConnectionStatus"]))
}

func (r *profileRepo) CreateProfile(spec domain.ProfileSpec, scope domain.Scope) domain.OperationResult {
	if err := r.privilegeGate.EnsureElevated(scope); err != nil {
		return gateRejection(err)
	}
	tunnel := domain.NormalizeTunnelType(string(spec.TunnelType))
	script := fmt.Sprintf("Add-VpnConnection -Name %s -ServerAddress %s -TunnelType %s%s",
		psQuote(spec.Name), psQuote(spec.ServerAddress), psQuote(string(tunnel)), scopeFlag(scope))
	return r.mutate(script, fmt.Sprintf("Created VPN profile %s.", spec.Name))
}

func (r *profileRepo) UpdateProfile(name string, spec domain.ProfileSpec, scope domain.Scope) domain.OperationResult {
	if err := r.privilegeGate.EnsureElevated(scope); err != nil {
		return gateRejection(err)
	}
	tunnel := domain.NormalizeTunnelType(string(spec.TunnelType))
	script := fmt.Sprintf("Set-VpnConnection -Name %s -ServerAddress %s -TunnelType %s -Force%s",
		psQuote(name), psQuote(spec.ServerAddress), psQuote(string(tunnel)), scopeFlag(scope))
	return r.mutate(script, fmt.Sprintf("Updated VPN profile %s.", name))
}

func (r *profileRepo) DeleteProfile(name string, scope domain.Scope) domain.OperationResult {
	if err := r.privilegeGate.EnsureElevated(scope); err != nil {
		return gateRejection(err)
	}
	script := fmt.Sprintf("Remove-VpnConnection -Name %s -Force%s", psQuote(name), scopeFlag(scope))
	return r.mutate(script, fmt.Sprintf("Deleted VPN profile %s.", name))
}

// mutate runs one state-changing pipeline and folds its outcome into an
// OperationResult.
func (r *profileRepo) mutate(script, successMessage string) domain.OperationResult {
	out, err := r.commandRunner.RunScript(script, r.config.MutateTimeout())
	if err != nil {
		var toolErr *domain.ExternalToolError
		if !errors.As(err, &toolErr) {
			toolErr = &domain.ExternalToolError{Message: err.Error(), ExitCode: -1}
		}
		return domain.OperationResult{
			Success: false,
			Message: toolErr.Message,
			Status:  domain.StatusError,
			Details: out.Combined(),
		}
	}
	return domain.OperationResult{
		Success: true,
		Message: successMessage,
		Details: out.Combined(),
	}
}

func gateRejection(err error) domain.OperationResult {
	return domain.OperationResult{Message: err.Error(), Status: domain.StatusError}
}

func profileFromRow(row map[string]any, scope domain.Scope) domain.Profile {
	return domain.Profile{
		Name:                 stringify(row["Name"]),
		ServerAddress:        stringify(row["ServerAddress"]),
		TunnelType:           domain.NormalizeTunnelType(stringify(row["TunnelType"])),
		AuthenticationMethod: stringify(row["AuthenticationMethod"]),
		Status:               domain.NormalizeStatus(stringify(row["ConnectionStatus"])),
		Scope:                scope,
	}
}

// stringify renders one field of a parsed JSON row. PowerShell
// serializes multi-valued fields (AuthenticationMethod in particular)
// as arrays.
func stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case []any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			parts = append(parts, stringify(item))
		}
		return strings.Join(parts, ", ")
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func scopeFlag(scope domain.Scope) string {
	if scope == domain.ScopeSystem {
		return " -AllUserConnection"
	}
	return ""
}

var _ ports.ProfileRepository = (*profileRepo)(nil)
