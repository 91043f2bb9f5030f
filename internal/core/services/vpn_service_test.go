package services

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mcwurzn/rasctl/internal/core/domain"
	"github.com/mcwurzn/rasctl/internal/core/ports"
	"go.uber.org/zap/zaptest"
)

type fakeProfileRepository struct {
	ports.ProfileRepository
	profiles     []domain.Profile
	advisory     string
	listErr      error
	statuses     []domain.Status
	statusCalls  int
	mutateResult domain.OperationResult
	lastSpec     domain.ProfileSpec
	lastName     string
	lastScope    domain.Scope
	createCalls  int
	updateCalls  int
	deleteCalls  int
}

func (f *fakeProfileRepository) ListProfiles(bool) ([]domain.Profile, string, error) {
	return f.profiles, f.advisory, f.listErr
}

func (f *fakeProfileRepository) Status(string, domain.Scope) domain.Status {
	f.statusCalls++
	if len(f.statuses) == 0 {
		return domain.StatusUnknown
	}
	if f.statusCalls > len(f.statuses) {
		return f.statuses[len(f.statuses)-1]
	}
	return f.statuses[f.statusCalls-1]
}

func (f *fakeProfileRepository) CreateProfile(spec domain.ProfileSpec, scope domain.Scope) domain.OperationResult {
	f.createCalls++
	f.lastSpec = spec
	f.lastScope = scope
	return f.mutateResult
}

func (f *fakeProfileRepository) UpdateProfile(name string, spec domain.ProfileSpec, scope domain.Scope) domain.OperationResult {
	f.updateCalls++
	f.lastName = name
	f.lastSpec = spec
	f.lastScope = scope
	return f.mutateResult
}

func (f *fakeProfileRepository) DeleteProfile(name string, scope domain.Scope) domain.OperationResult {
	f.deleteCalls++
	f.lastName = name
	f.lastScope = scope
	return f.mutateResult
}

type commandReply struct {
	out domain.CommandOutput
	err error
}

type fakeCommandRunner struct {
	ports.CommandRunner
	replies  []commandReply
	commands []domain.Command
	startErr error
	started  []domain.Command
}

func (f *fakeCommandRunner) Run(cmd domain.Command) (domain.CommandOutput, error) {
	f.commands = append(f.commands, cmd)
	if len(f.replies) == 0 {
		return domain.CommandOutput{}, nil
	}
	i := len(f.commands) - 1
	if i >= len(f.replies) {
		i = len(f.replies) - 1
	}
	return f.replies[i].out, f.replies[i].err
}

func (f *fakeCommandRunner) Start(cmd domain.Command) error {
	f.started = append(f.started, cmd)
	return f.startErr
}

type fakeConfigProvider struct {
	ports.ConfigProvider
	env map[string]string
}

func (f *fakeConfigProvider) GetEnvOrDefault(envVar, defaultValue string) string {
	if value, ok := f.env[envVar]; ok {
		return value
	}
	return defaultValue
}

func newTestService(t *testing.T, repo *fakeProfileRepository, runner *fakeCommandRunner) *vpnService {
	t.Helper()
	cfg := domain.DefaultConfig()
	cfg.PollIntervalSeconds = 0.01
	cfg.MaxWaitSeconds = 1
	return &vpnService{
		logger:            zaptest.NewLogger(t).Sugar(),
		profileRepository: repo,
		commandRunner:     runner,
		configProvider:    &fakeConfigProvider{},
		config:            cfg,
	}
}

func credentialFailureReply() commandReply {
	message := "Remote Access error 691 - The username and/or password is invalid on the domain."
	return commandReply{
		out: domain.CommandOutput{Stderr: message, ExitCode: 691},
		err: &domain.ExternalToolError{Tool: "rasdial.exe", Message: message, ExitCode: 691},
	}
}

func TestVpnServiceListProfiles(t *testing.T) {
	repo := &fakeProfileRepository{
		profiles: []domain.Profile{{Name: "office", Scope: domain.ScopeUser}},
		advisory: "Admin privileges are required to list system-wide VPN profiles. Run the app as Administrator.",
	}
	svc := newTestService(t, repo, &fakeCommandRunner{})

	profiles, advisory, err := svc.ListProfiles(true)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if len(profiles) != 1 || profiles[0].Name != "office" {
		t.Fatalf("unexpected profiles: %+v", profiles)
	}
	if advisory != repo.advisory {
		t.Fatalf("expected advisory to pass through, got %q", advisory)
	}
}

func TestVpnServiceListProfilesError(t *testing.T) {
	repo := &fakeProfileRepository{listErr: errors.New("query failed")}
	svc := newTestService(t, repo, &fakeCommandRunner{})

	if _, _, err := svc.ListProfiles(false); err == nil {
		t.Fatalf("expected error, got nil")
	}
}

func TestVpnServiceConnectBuildsUserScopeArgs(t *testing.T) {
	runner := &fakeCommandRunner{replies: []commandReply{{out: domain.CommandOutput{Stdout: "Command completed successfully."}}}}
	svc := newTestService(t, &fakeProfileRepository{}, runner)

	result := svc.Connect("office", domain.ScopeUser, 0)
	if !result.Success {
		t.Fatalf("expected success, got %+v", result)
	}
	if result.Message != "Command completed successfully." {
		t.Fatalf("unexpected message: %q", result.Message)
	}
	if result.Status != domain.StatusConnected {
		t.Fatalf("expected status Connected, got %q", result.Status)
	}
	argv := runner.commands[0].Argv
	if len(argv) != 2 || argv[0] != "rasdial.exe" || argv[1] != "office" {
		t.Fatalf("unexpected argv: %v", argv)
	}
}

func TestVpnServiceConnectSystemScopeUsesPhonebook(t *testing.T) {
	runner := &fakeCommandRunner{replies: []commandReply{{out: domain.CommandOutput{Stdout: "ok"}}}}
	svc := newTestService(t, &fakeProfileRepository{}, runner)
	svc.configProvider = &fakeConfigProvider{env: map[string]string{"PROGRAMDATA": `C:\ProgramData`}}

	if result := svc.Connect("office", domain.ScopeSystem, 0); !result.Success {
		t.Fatalf("expected success, got %+v", result)
	}

	expected := "/PHONEBOOK:" + filepath.Join(`C:\ProgramData`, "Microsoft", "Network", "Connections", "Pbk", "rasphone.pbk")
	argv := runner.commands[0].Argv
	if len(argv) != 3 || argv[2] != expected {
		t.Fatalf("expected phonebook argument %q, got %v", expected, argv)
	}
}

func TestVpnServiceConnectTimeoutGetsCredentialHint(t *testing.T) {
	runner := &fakeCommandRunner{replies: []commandReply{{
		out: domain.CommandOutput{ExitCode: -1},
		err: &domain.ExternalToolError{Tool: "rasdial.exe", Message: "rasdial.exe timed out after 20s.", ExitCode: -1, Timeout: true},
	}}}
	svc := newTestService(t, &fakeProfileRepository{}, runner)

	result := svc.Connect("office", domain.ScopeUser, 0)
	if result.Success {
		t.Fatalf("expected failure, got %+v", result)
	}
	expected := "rasdial timed out while waiting for credentials. " + credentialHint
	if result.Message != expected {
		t.Fatalf("expected %q, got %q", expected, result.Message)
	}
	if result.Status != domain.StatusError {
		t.Fatalf("expected status Error, got %q", result.Status)
	}
}

func TestVpnServiceDisconnectReportsObservedStatus(t *testing.T) {
	runner := &fakeCommandRunner{replies: []commandReply{{out: domain.CommandOutput{Stdout: "Command completed successfully."}}}}
	repo := &fakeProfileRepository{statuses: []domain.Status{domain.StatusDisconnected}}
	svc := newTestService(t, repo, runner)

	result := svc.Disconnect("office", domain.ScopeUser, 0)
	if !result.Success {
		t.Fatalf("expected success, got %+v", result)
	}
	if result.Status != domain.StatusDisconnected {
		t.Fatalf("expected re-queried status Disconnected, got %q", result.Status)
	}
	if repo.statusCalls != 1 {
		t.Fatalf("expected one status query, got %d", repo.statusCalls)
	}
	argv := runner.commands[0].Argv
	if argv[len(argv)-1] != "/disconnect" {
		t.Fatalf("expected /disconnect argument, got %v", argv)
	}
}

func TestVpnServiceConnectAndWaitSuccess(t *testing.T) {
	runner := &fakeCommandRunner{replies: []commandReply{{out: domain.CommandOutput{Stdout: "ok"}}}}
	repo := &fakeProfileRepository{statuses: []domain.Status{domain.StatusConnecting, domain.StatusConnected}}
	svc := newTestService(t, repo, runner)

	result := svc.ConnectAndWait("office", domain.ScopeUser, 0, 0)
	if !result.Success {
		t.Fatalf("expected success, got %+v", result)
	}
	if result.Message != "Connected to office." {
		t.Fatalf("unexpected message: %q", result.Message)
	}
	if result.Status != domain.StatusConnected {
		t.Fatalf("expected status Connected, got %q", result.Status)
	}
	if repo.statusCalls != 2 {
		t.Fatalf("expected two status polls, got %d", repo.statusCalls)
	}
}

func TestVpnServiceConnectAndWaitStopsOnErrorStatus(t *testing.T) {
	runner := &fakeCommandRunner{replies: []commandReply{{out: domain.CommandOutput{Stdout: "ok"}}}}
	repo := &fakeProfileRepository{statuses: []domain.Status{domain.StatusError}}
	svc := newTestService(t, repo, runner)

	result := svc.ConnectAndWait("office", domain.ScopeUser, 0, 0)
	if result.Success {
		t.Fatalf("expected failure, got %+v", result)
	}
	if result.Status != domain.StatusError {
		t.Fatalf("expected status Error, got %q", result.Status)
	}
	if repo.statusCalls != 1 {
		t.Fatalf("expected polling to stop after the error status, got %d polls", repo.statusCalls)
	}
	if !strings.HasPrefix(result.Message, "Timed out waiting for office to connect.") {
		t.Fatalf("unexpected message: %q", result.Message)
	}
}

func TestVpnServiceConnectAndWaitTimeout(t *testing.T) {
	runner := &fakeCommandRunner{replies: []commandReply{{out: domain.CommandOutput{Stdout: "ok"}}}}
	repo := &fakeProfileRepository{statuses: []domain.Status{domain.StatusConnecting}}
	svc := newTestService(t, repo, runner)
	svc.config.PollIntervalSeconds = 0.05

	result := svc.ConnectAndWait("office", domain.ScopeUser, 0, 0)
	if result.Success {
		t.Fatalf("expected failure, got %+v", result)
	}
	if result.Status != domain.StatusConnecting {
		t.Fatalf("expected last observed status Connecting, got %q", result.Status)
	}
	expected := "Timed out waiting for office to connect. " + credentialHint
	if result.Message != expected {
		t.Fatalf("expected %q, got %q", expected, result.Message)
	}
	if repo.statusCalls < 2 {
		t.Fatalf("expected repeated polling, got %d polls", repo.statusCalls)
	}
}

func TestVpnServiceConnectAndWaitConnectFailureForcesErrorStatus(t *testing.T) {
	message := "The network is unreachable."
	runner := &fakeCommandRunner{replies: []commandReply{{
		out: domain.CommandOutput{Stderr: message, ExitCode: 623},
		err: &domain.ExternalToolError{Tool: "rasdial.exe", Message: message, ExitCode: 623},
	}}}
	repo := &fakeProfileRepository{}
	svc := newTestService(t, repo, runner)

	result := svc.ConnectAndWait("office", domain.ScopeUser, 0, 0)
	if result.Success {
		t.Fatalf("expected failure, got %+v", result)
	}
	if result.Status != domain.StatusError {
		t.Fatalf("expected status Error, got %q", result.Status)
	}
	if result.Message != message {
		t.Fatalf("expected message %q, got %q", message, result.Message)
	}
	if repo.statusCalls != 0 {
		t.Fatalf("expected no polling after a failed dispatch, got %d", repo.statusCalls)
	}
}

func TestVpnServiceConnectWithRecoveryNonCredentialFailure(t *testing.T) {
	message := "Error 800: The remote connection was not made because the VPN tunnels failed."
	runner := &fakeCommandRunner{replies: []commandReply{{
		out: domain.CommandOutput{Stderr: message, ExitCode: 800},
		err: &domain.ExternalToolError{Tool: "rasdial.exe", Message: message, ExitCode: 800},
	}}}
	svc := newTestService(t, &fakeProfileRepository{}, runner)

	result := svc.ConnectWithRecovery("office", domain.ScopeUser, 0)
	if result.Success {
		t.Fatalf("expected failure, got %+v", result)
	}
	if result.Message != message {
		t.Fatalf("expected untouched message %q, got %q", message, result.Message)
	}
	if len(runner.commands) != 1 {
		t.Fatalf("expected no credential prompt, got %d commands", len(runner.commands))
	}
}

func TestVpnServiceConnectWithRecoveryPromptFailurePreservesRootCause(t *testing.T) {
	runner := &fakeCommandRunner{replies: []commandReply{
		credentialFailureReply(),
		{
			out: domain.CommandOutput{Stderr: "rasphone failed", ExitCode: 1},
			err: &domain.ExternalToolError{Tool: "rasphone.exe", Message: "rasphone failed", ExitCode: 1},
		},
	}}
	svc := newTestService(t, &fakeProfileRepository{}, runner)

	result := svc.ConnectWithRecovery("office", domain.ScopeUser, 0)
	if result.Success {
		t.Fatalf("expected failure, got %+v", result)
	}
	expected := "Remote Access error 691 - The username and/or password is invalid on the domain. " +
		credentialHint + " Credential prompt failed: rasphone failed"
	if result.Message != expected {
		t.Fatalf("expected %q, got %q", expected, result.Message)
	}
	if len(runner.commands) != 2 {
		t.Fatalf("expected connect and prompt only, got %d commands", len(runner.commands))
	}
}

func TestVpnServiceConnectWithRecoveryRetriesAfterPrompt(t *testing.T) {
	runner := &fakeCommandRunner{replies: []commandReply{
		credentialFailureReply(),
		{out: domain.CommandOutput{}},
		{out: domain.CommandOutput{Stdout: "Command completed successfully."}},
	}}
	svc := newTestService(t, &fakeProfileRepository{}, runner)

	result := svc.ConnectWithRecovery("office", domain.ScopeUser, 0)
	if !result.Success {
		t.Fatalf("expected success after retry, got %+v", result)
	}
	expected := "Command completed successfully. (retried after credential prompt)"
	if result.Message != expected {
		t.Fatalf("expected %q, got %q", expected, result.Message)
	}
	if len(runner.commands) != 3 {
		t.Fatalf("expected connect, prompt, retry, got %d commands", len(runner.commands))
	}
	prompt := runner.commands[1]
	if prompt.Argv[0] != "rasphone.exe" || !prompt.Interactive {
		t.Fatalf("expected interactive rasphone command, got %+v", prompt)
	}
	if runner.commands[2].Argv[0] != "rasdial.exe" {
		t.Fatalf("expected rasdial retry, got %v", runner.commands[2].Argv)
	}
}

func TestVpnServiceOpenCredentialPromptNoWait(t *testing.T) {
	runner := &fakeCommandRunner{}
	svc := newTestService(t, &fakeProfileRepository{}, runner)

	result := svc.OpenCredentialPrompt("office", domain.ScopeUser, false, 0)
	if !result.Success {
		t.Fatalf("expected success, got %+v", result)
	}
	if result.Message != "Opened credential prompt for office." {
		t.Fatalf("unexpected message: %q", result.Message)
	}
	if len(runner.started) != 1 {
		t.Fatalf("expected one started command, got %d", len(runner.started))
	}
	cmd := runner.started[0]
	if !cmd.Interactive {
		t.Fatalf("expected interactive command, got %+v", cmd)
	}
	argv := cmd.Argv
	if argv[0] != "rasphone.exe" || argv[len(argv)-2] != "-d" || argv[len(argv)-1] != "office" {
		t.Fatalf("unexpected argv: %v", argv)
	}
}

func TestVpnServiceOpenCredentialPromptWait(t *testing.T) {
	runner := &fakeCommandRunner{replies: []commandReply{{out: domain.CommandOutput{Stdout: "done"}}}}
	svc := newTestService(t, &fakeProfileRepository{}, runner)

	result := svc.OpenCredentialPrompt("office", domain.ScopeUser, true, 0)
	if !result.Success {
		t.Fatalf("expected success, got %+v", result)
	}
	if result.Message != "Credential prompt completed." {
		t.Fatalf("unexpected message: %q", result.Message)
	}
}

func TestVpnServiceOpenCredentialPromptTimeout(t *testing.T) {
	runner := &fakeCommandRunner{replies: []commandReply{{
		out: domain.CommandOutput{ExitCode: -1},
		err: &domain.ExternalToolError{Tool: "rasphone.exe", Message: "rasphone.exe timed out after 120s.", ExitCode: -1, Timeout: true},
	}}}
	svc := newTestService(t, &fakeProfileRepository{}, runner)

	result := svc.OpenCredentialPrompt("office", domain.ScopeUser, true, 0)
	if result.Success {
		t.Fatalf("expected failure, got %+v", result)
	}
	if result.Message != "Credential prompt timed out." {
		t.Fatalf("unexpected message: %q", result.Message)
	}
}

func TestVpnServiceCreateProfileValidation(t *testing.T) {
	repo := &fakeProfileRepository{mutateResult: domain.OperationResult{Success: true}}
	svc := newTestService(t, repo, &fakeCommandRunner{})

	result := svc.CreateProfile(domain.ProfileSpec{ServerAddress: "vpn.example.com"}, domain.ScopeUser)
	if result.Success || result.Message != "profile name is required" {
		t.Fatalf("expected name validation failure, got %+v", result)
	}

	result = svc.CreateProfile(domain.ProfileSpec{Name: "office"}, domain.ScopeUser)
	if result.Success || result.Message != "server address is required" {
		t.Fatalf("expected server validation failure, got %+v", result)
	}

	if repo.createCalls != 0 {
		t.Fatalf("expected repository untouched, got %d calls", repo.createCalls)
	}
}

func TestVpnServiceCreateProfileDelegates(t *testing.T) {
	repo := &fakeProfileRepository{mutateResult: domain.OperationResult{Success: true, Message: "Created VPN profile office."}}
	svc := newTestService(t, repo, &fakeCommandRunner{})

	spec := domain.ProfileSpec{Name: "office", ServerAddress: "vpn.example.com", TunnelType: domain.TunnelIKEv2}
	result := svc.CreateProfile(spec, domain.ScopeSystem)
	if !result.Success {
		t.Fatalf("expected success, got %+v", result)
	}
	if repo.createCalls != 1 || repo.lastSpec != spec || repo.lastScope != domain.ScopeSystem {
		t.Fatalf("unexpected repository call: %+v scope %q", repo.lastSpec, repo.lastScope)
	}
}

func TestVpnServiceUpdateProfileInheritsName(t *testing.T) {
	repo := &fakeProfileRepository{mutateResult: domain.OperationResult{Success: true}}
	svc := newTestService(t, repo, &fakeCommandRunner{})

	result := svc.UpdateProfile("office", domain.ProfileSpec{ServerAddress: "vpn.example.com"}, domain.ScopeUser)
	if !result.Success {
		t.Fatalf("expected success, got %+v", result)
	}
	if repo.lastSpec.Name != "office" {
		t.Fatalf("expected spec name to default to %q, got %q", "office", repo.lastSpec.Name)
	}
}

func TestVpnServiceDeleteProfilePassesFailureThrough(t *testing.T) {
	repo := &fakeProfileRepository{mutateResult: domain.OperationResult{Success: false, Message: "PowerShell command failed.", Status: domain.StatusError}}
	svc := newTestService(t, repo, &fakeCommandRunner{})

	result := svc.DeleteProfile("office", domain.ScopeUser)
	if result.Success || result.Message != "PowerShell command failed." {
		t.Fatalf("expected repository failure to pass through, got %+v", result)
	}
	if repo.deleteCalls != 1 {
		t.Fatalf("expected one delete call, got %d", repo.deleteCalls)
	}
}

func TestVpnServiceStatusDelegates(t *testing.T) {
	repo := &fakeProfileRepository{statuses: []domain.Status{domain.StatusConnected}}
	svc := newTestService(t, repo, &fakeCommandRunner{})

	if status := svc.Status("office", domain.ScopeUser); status != domain.StatusConnected {
		t.Fatalf("expected Connected, got %q", status)
	}
}
