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

package services

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/mcwurzn/rasctl/internal/core/domain"
	"github.com/mcwurzn/rasctl/internal/core/ports"
	"go.uber.org/zap"
)

type vpnService struct {
	profileRepository ports.ProfileRepository
	commandRunner     ports.CommandRunner
	configProvider    ports.ConfigProvider
	config            domain.Config
	logger            *zap.SugaredLogger
}

// NewVpnService creates a new instance of vpnService.
func NewVpnService(
	logger *zap.SugaredLogger,
	pr ports.ProfileRepository,
	cr ports.CommandRunner,
	cp ports.ConfigProvider,
	cfg domain.Config,
) *vpnService {
	return &vpnService{
		logger:            logger,
		profileRepository: pr,
		commandRunner:     cr,
		configProvider:    cp,
		config:            cfg.Normalize(),
	}
}

// ListProfiles returns the known profiles, own scope first. A degraded
// system-scope listing is reported through the advisory string.
func (s *vpnService) ListProfiles(includeSystem bool) ([]domain.Profile, string, error) {
	profiles, advisory, err := s.profileRepository.ListProfiles(includeSystem)
	if err != nil {
		s.logger.Errorw("failed to list profiles", "error", err)
		return nil, "", err
	}
	if advisory != "" {
		s.logger.Warnw("profile listing degraded", "advisory", advisory)
	}
	return profiles, advisory, nil
}

// Status reports the current connection status of a single profile.
func (s *vpnService) Status(name string, scope domain.Scope) domain.Status {
	return s.profileRepository.Status(name, scope)
}

// validateSpec performs core validation of mutation payloads.
func validateSpec(spec domain.ProfileSpec) error {
	if strings.TrimSpace(spec.Name) == "" {
		return fmt.Errorf("profile name is required")
	}
	if strings.TrimSpace(spec.ServerAddress) == "" {
		return fmt.Errorf("server address is required")
	}
	return nil
}

// CreateProfile adds a new profile in the given scope.
func (s *vpnService) CreateProfile(spec domain.ProfileSpec, scope domain.Scope) domain.OperationResult {
	if err := validateSpec(spec); err != nil {
		s.logger.Warnw("validation failed on create", "error", err, "name", spec.Name)
		return domain.OperationResult{Success: false, Message: err.Error(), Status: domain.StatusError}
	}
	result := s.profileRepository.CreateProfile(spec, scope)
	if !result.Success {
		s.logger.Errorw("failed to create profile", "name", spec.Name, "scope", scope, "message", result.Message)
	}
	return result
}

// UpdateProfile updates an existing profile with new details.
func (s *vpnService) UpdateProfile(name string, spec domain.ProfileSpec, scope domain.Scope) domain.OperationResult {
	if spec.Name == "" {
		spec.Name = name
	}
	if err := validateSpec(spec); err != nil {
		s.logger.Warnw("validation failed on update", "error", err, "name", name)
		return domain.OperationResult{Success: false, Message: err.Error(), Status: domain.StatusError}
	}
	result := s.profileRepository.UpdateProfile(name, spec, scope)
	if !result.Success {
		s.logger.Errorw("failed to update profile", "name", name, "scope", scope, "message", result.Message)
	}
	return result
}

// DeleteProfile removes a profile from the given scope.
func (s *vpnService) DeleteProfile(name string, scope domain.Scope) domain.OperationResult {
	result := s.profileRepository.DeleteProfile(name, scope)
	if !result.Success {
		s.logger.Errorw("failed to delete profile", "name", name, "scope", scope, "message", result.Message)
	}
	return result
}

// Connect dispatches one external connect command. A successful result
// means the attempt was accepted, not that the tunnel is up; callers that
// need convergence use ConnectAndWait.
func (s *vpnService) Connect(name string, scope domain.Scope, timeout time.Duration) domain.OperationResult {
	if timeout <= 0 {
		timeout = s.config.ConnectTimeout()
	}
	s.logger.Infow("connect requested", "name", name, "scope", scope)
	return s.runRasdial(s.rasdialArgs(name, scope, false), timeout)
}

// Disconnect terminates a connection. On success the status is
// re-queried once and reported; the observed value is authoritative.
func (s *vpnService) Disconnect(name string, scope domain.Scope, timeout time.Duration) domain.OperationResult {
	if timeout <= 0 {
		timeout = s.config.ConnectTimeout()
	}
	s.logger.Infow("disconnect requested", "name", name, "scope", scope)
	result := s.runRasdial(s.rasdialArgs(name, scope, true), timeout)
	if result.Success {
		result.Status = s.profileRepository.Status(name, scope)
	}
	return result
}

// ConnectAndWait composes credential-aware connect with status polling
// until the subsystem reports Connected, an explicit Error, or maxWait
// elapses.
func (s *vpnService) ConnectAndWait(name string, scope domain.Scope, pollInterval, maxWait time.Duration) domain.OperationResult {
	if pollInterval <= 0 {
		pollInterval = s.config.PollInterval()
	}
	if maxWait <= 0 {
		maxWait = s.config.MaxWait()
	}

	result := s.ConnectWithRecovery(name, scope, s.config.ConnectTimeout())
	if !result.Success {
		result.Status = domain.StatusError
		return result
	}

	last := domain.StatusConnecting
	deadline := time.Now().Add(maxWait)
	for time.Now().Before(deadline) {
		time.Sleep(pollInterval)
		last = s.profileRepository.Status(name, scope)
		if last == domain.StatusConnected {
			s.logger.Infow("connection established", "name", name, "scope", scope)
			return domain.OperationResult{
				Success: true,
				Message: fmt.Sprintf("Connected to %s.", name),
				Status:  last,
			}
		}
		if last == domain.StatusError {
			break
		}
	}

	message := appendCredentialHint(fmt.Sprintf("Timed out waiting for %s to connect.", name), result.Details)
	status := last
	if status == "" {
		status = domain.StatusError
	}
	s.logger.Warnw("connection did not converge", "name", name, "scope", scope, "last_status", last)
	return domain.OperationResult{
		Success: false,
		Message: message,
		Status:  status,
		Details: result.Details,
	}
}

// ConnectWithRecovery attempts one connect. When the failure classifies
// as credential-related it opens the native credential prompt, then
// retries exactly once. Unrelated failures are returned untouched and a
// failed prompt never masks the original failure.
func (s *vpnService) ConnectWithRecovery(name string, scope domain.Scope, timeout time.Duration) domain.OperationResult {
	result := s.Connect(name, scope, timeout)
	if result.Success {
		return result
	}
	if classifyFailure(result.Message, result.Details) != categoryCredential {
		return result
	}

	s.logger.Infow("credential failure detected, opening prompt", "name", name, "scope", scope)
	prompt := s.OpenCredentialPrompt(name, scope, true, s.config.PromptTimeout())
	if !prompt.Success {
		result.Message = strings.TrimSpace(result.Message) + " Credential prompt failed: " + prompt.Message
		return result
	}

	retry := s.Connect(name, scope, timeout)
	retry.Message = strings.TrimSpace(retry.Message) + " (retried after credential prompt)"
	return retry
}

// OpenCredentialPrompt shows the subsystem's native dialer dialog for the
// profile so the user can enter and save credentials. This is the single
// interactive, window-visible operation in the system.
func (s *vpnService) OpenCredentialPrompt(name string, scope domain.Scope, wait bool, timeout time.Duration) domain.OperationResult {
	if timeout <= 0 {
		timeout = s.config.PromptTimeout()
	}

	argv := []string{"rasphone.exe"}
	if phonebook := s.phonebookPath(scope); phonebook != "" {
		argv = append(argv, "-f", phonebook)
	}
	argv = append(argv, "-d", name)
	cmd := domain.Command{Argv: argv, Timeout: timeout, Interactive: true}

	if !wait {
		if err := s.commandRunner.Start(cmd); err != nil {
			s.logger.Errorw("failed to open credential prompt", "name", name, "error", err)
			return domain.OperationResult{Success: false, Message: err.Error()}
		}
		return domain.OperationResult{Success: true, Message: fmt.Sprintf("Opened credential prompt for %s.", name)}
	}

	out, err := s.commandRunner.Run(cmd)
	if err != nil {
		var toolErr *domain.ExternalToolError
		if !errors.As(err, &toolErr) {
			toolErr = &domain.ExternalToolError{Tool: argv[0], Message: err.Error(), ExitCode: -1}
		}
		if toolErr.Timeout {
			s.logger.Errorw("credential prompt timed out", "name", name)
			return domain.OperationResult{Success: false, Message: "Credential prompt timed out.", Details: out.Combined()}
		}
		fallback := "rasphone returned an error."
		if toolErr.ExitCode < 0 {
			fallback = toolErr.Message
		}
		message := out.FirstMessage(fallback)
		s.logger.Errorw("credential prompt failed", "name", name, "message", message)
		return domain.OperationResult{Success: false, Message: message, Details: out.Combined()}
	}
	return domain.OperationResult{Success: true, Message: "Credential prompt completed.", Details: out.Combined()}
}

func (s *vpnService) rasdialArgs(name string, scope domain.Scope, disconnect bool) []string {
	args := []string{"rasdial.exe", name}
	if phonebook := s.phonebookPath(scope); phonebook != "" {
		args = append(args, "/PHONEBOOK:"+phonebook)
	}
	if disconnect {
		args = append(args, "/disconnect")
	}
	return args
}

// phonebookPath resolves the all-user phonebook file for system-scope
// profiles. User-scope connections use the default phonebook, so no path
// is passed.
func (s *vpnService) phonebookPath(scope domain.Scope) string {
	if scope != domain.ScopeSystem {
		return ""
	}
	base := s.configProvider.GetEnvOrDefault("PROGRAMDATA", "")
	if base == "" {
		return ""
	}
	return filepath.Join(base, "Microsoft", "Network", "Connections", "Pbk", "rasphone.pbk")
}

func (s *vpnService) runRasdial(argv []string, timeout time.Duration) domain.OperationResult {
	out, err := s.commandRunner.Run(domain.Command{Argv: argv, Timeout: timeout})
	if err != nil {
		var toolErr *domain.ExternalToolError
		if !errors.As(err, &toolErr) {
			toolErr = &domain.ExternalToolError{Tool: argv[0], Message: err.Error(), ExitCode: -1}
		}
		if toolErr.Timeout {
			message := appendCredentialHint("rasdial timed out while waiting for credentials.", "")
			s.logger.Errorw("rasdial timed out", "args", argv)
			return domain.OperationResult{Success: false, Message: message, Status: domain.StatusError}
		}
		details := out.Combined()
		fallback := "rasdial returned an error."
		if toolErr.ExitCode < 0 {
			// The command never ran; the spawn error is the only signal.
			fallback = toolErr.Message
		}
		message := appendCredentialHint(out.FirstMessage(fallback), details)
		s.logger.Errorw("rasdial failed", "message", message)
		return domain.OperationResult{Success: false, Message: message, Status: domain.StatusError, Details: details}
	}

	details := out.Combined()
	message := out.Stdout
	if message == "" {
		message = "rasdial completed."
	}
	return domain.OperationResult{Success: true, Message: message, Status: domain.StatusConnected, Details: details}
}

var _ ports.VpnBackend = (*vpnService)(nil)
