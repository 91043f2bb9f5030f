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

package main

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/mcwurzn/rasctl/internal/adapters/config"
	"github.com/mcwurzn/rasctl/internal/adapters/data/powershell"
	"github.com/mcwurzn/rasctl/internal/adapters/elevation"
	"github.com/mcwurzn/rasctl/internal/adapters/flags"
	"github.com/mcwurzn/rasctl/internal/adapters/logger"
	"github.com/mcwurzn/rasctl/internal/core/domain"
	"github.com/mcwurzn/rasctl/internal/core/ports"
	"github.com/mcwurzn/rasctl/internal/core/services"
	"github.com/mcwurzn/rasctl/internal/core/tasks"
	"github.com/spf13/cobra"
)

const appName = "rasctl"

var (
	version   = "develop"
	gitCommit = "unknown"

	// Command-line flags
	systemScope bool
)

// app bundles the wired dependencies the subcommands close over.
type app struct {
	backend ports.VpnBackend
	flags   ports.FlagsProvider
	tasks   *tasks.Runner
	config  domain.Config
}

func main() {
	log, err := logger.New(appName, debugRequested(os.Args[1:]))
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	//nolint:errcheck // log.Sync may return an error which is safe to ignore here
	defer log.Sync()

	osConfig := config.NewOSConfig()
	manager := config.NewManager(osConfig.ConfigPath(appName + ".yaml"))
	cfg, err := manager.Load()
	if err != nil {
		log.Warnf("Failed to load configuration, using defaults: %v", err)
	}

	commandRunner := powershell.NewRunner(log)
	privilegeGate := elevation.NewGate()
	profileRepo := powershell.NewProfileRepo(log, commandRunner, privilegeGate, cfg)
	vpnService := services.NewVpnService(log, profileRepo, commandRunner, osConfig, cfg)

	taskRunner := tasks.NewRunner(log, 2)
	defer taskRunner.Close()

	a := &app{backend: vpnService, tasks: taskRunner, config: cfg}

	rootCmd := &cobra.Command{
		Use:     appName,
		Short:   "Manage Windows VPN connection profiles from the command line",
		Version: fmt.Sprintf("%s (%s)", version, gitCommit),
	}
	rootCmd.SilenceUsage = true
	rootCmd.SilenceErrors = true
	rootCmd.PersistentFlags().BoolVar(&systemScope, "system", false,
		"Target the all-user (system-wide) profile store")
	a.flags = flags.NewCobraFlags(rootCmd)

	rootCmd.AddCommand(
		a.listCommand(),
		a.statusCommand(),
		a.connectCommand(),
		a.disconnectCommand(),
		a.createCommand(),
		a.updateCommand(),
		a.deleteCommand(),
		a.promptCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func (a *app) listCommand() *cobra.Command {
	var ownOnly bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List VPN profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			type listing struct {
				profiles []domain.Profile
				advisory string
			}
			a.tasks.Submit("list", func() (any, error) {
				profiles, advisory, err := a.backend.ListProfiles(!ownOnly)
				return listing{profiles: profiles, advisory: advisory}, err
			})
			res := <-a.tasks.Results()
			if res.Err != nil {
				return res.Err
			}
			out := res.Value.(listing)
			if out.advisory != "" {
				_, _ = fmt.Fprintln(os.Stderr, out.advisory)
			}
			if len(out.profiles) == 0 {
				fmt.Println("No VPN profiles found.")
				return nil
			}
			printProfiles(out.profiles)
			return nil
		},
	}
	cmd.Flags().BoolVar(&ownOnly, "own", false, "List only the current user's profiles")
	return cmd
}

func (a *app) statusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status <name>",
		Short: "Show a profile's connection status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a.tasks.Submit("status", func() (any, error) {
				return a.backend.Status(args[0], scopeOf(systemScope)), nil
			})
			res := <-a.tasks.Results()
			if res.Err != nil {
				return res.Err
			}
			fmt.Println(res.Value.(domain.Status))
			return nil
		},
	}
}

func (a *app) connectCommand() *cobra.Command {
	var (
		noWait       bool
		pollInterval time.Duration
		maxWait      time.Duration
	)
	cmd := &cobra.Command{
		Use:   "connect <name>",
		Short: "Connect a VPN profile and wait for it to come up",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.dispatch("connect", func() domain.OperationResult {
				if noWait {
					return a.backend.Connect(args[0], scopeOf(systemScope), 0)
				}
				return a.backend.ConnectAndWait(args[0], scopeOf(systemScope), pollInterval, maxWait)
			})
		},
	}
	cmd.Flags().BoolVar(&noWait, "no-wait", false, "Dispatch the dial without waiting for convergence")
	cmd.Flags().DurationVar(&pollInterval, "poll-interval", a.config.PollInterval(), "Status poll interval while waiting")
	cmd.Flags().DurationVar(&maxWait, "max-wait", a.config.MaxWait(), "Maximum time to wait for the connection")
	return cmd
}

func (a *app) disconnectCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "disconnect <name>",
		Short: "Disconnect a VPN profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.dispatch("disconnect", func() domain.OperationResult {
				return a.backend.Disconnect(args[0], scopeOf(systemScope), 0)
			})
		},
	}
}

func (a *app) createCommand() *cobra.Command {
	var server, tunnel string
	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a VPN profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.dispatch("create", func() domain.OperationResult {
				spec := domain.ProfileSpec{
					Name:          args[0],
					ServerAddress: server,
					TunnelType:    domain.NormalizeTunnelType(tunnel),
				}
				return a.backend.CreateProfile(spec, scopeOf(systemScope))
			})
		},
	}
	cmd.Flags().StringVar(&server, "server", "", "VPN server address")
	cmd.Flags().StringVar(&tunnel, "tunnel", "", "Tunnel type (Automatic, IKEv2, SSTP, L2TP, PPTP)")
	_ = cmd.MarkFlagRequired("server")
	return cmd
}

func (a *app) updateCommand() *cobra.Command {
	var server, tunnel string
	cmd := &cobra.Command{
		Use:   "update <name>",
		Short: "Update a VPN profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.dispatch("update", func() domain.OperationResult {
				spec := domain.ProfileSpec{
					Name:          args[0],
					ServerAddress: server,
					TunnelType:    domain.NormalizeTunnelType(tunnel),
				}
				return a.backend.UpdateProfile(args[0], spec, scopeOf(systemScope))
			})
		},
	}
	cmd.Flags().StringVar(&server, "server", "", "VPN server address")
	cmd.Flags().StringVar(&tunnel, "tunnel", "", "Tunnel type (Automatic, IKEv2, SSTP, L2TP, PPTP)")
	_ = cmd.MarkFlagRequired("server")
	return cmd
}

func (a *app) deleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a VPN profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.dispatch("delete", func() domain.OperationResult {
				return a.backend.DeleteProfile(args[0], scopeOf(systemScope))
			})
		},
	}
}

func (a *app) promptCommand() *cobra.Command {
	var (
		noWait  bool
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "prompt <name>",
		Short: "Open the interactive credential prompt for a profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.dispatch("prompt", func() domain.OperationResult {
				return a.backend.OpenCredentialPrompt(args[0], scopeOf(systemScope), !noWait, timeout)
			})
		},
	}
	cmd.Flags().BoolVar(&noWait, "no-wait", false, "Open the prompt without waiting for it to close")
	cmd.Flags().DurationVar(&timeout, "timeout", a.config.PromptTimeout(), "Maximum time to wait for the prompt")
	return cmd
}

// dispatch runs one orchestration call on the task runner and folds its
// OperationResult into the command's exit status.
func (a *app) dispatch(name string, fn func() domain.OperationResult) error {
	a.tasks.Submit(name, func() (any, error) {
		return fn(), nil
	})
	res := <-a.tasks.Results()
	if res.Err != nil {
		return res.Err
	}
	result := res.Value.(domain.OperationResult)
	if a.flags.IsDebug() && result.Details != "" {
		_, _ = fmt.Fprintln(os.Stderr, result.Details)
	}
	if !result.Success {
		return errors.New(result.Message)
	}
	fmt.Println(result.Message)
	if result.Status != "" {
		fmt.Printf("Status: %s\n", result.Status)
	}
	return nil
}

func printProfiles(profiles []domain.Profile) {
	w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "NAME\tSERVER\tTUNNEL\tAUTH\tSTATUS\tSCOPE")
	for _, p := range profiles {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			p.Name, p.ServerAddress, p.TunnelType, p.AuthenticationMethod, p.Status, p.Scope)
	}
	_ = w.Flush()
}

func scopeOf(system bool) domain.Scope {
	if system {
		return domain.ScopeSystem
	}
	return domain.ScopeUser
}

// debugRequested scans raw arguments before cobra parses them, since the
// logger must be built before flag parsing.
func debugRequested(args []string) bool {
	for _, arg := range args {
		if arg == "--debug" || arg == "--debug=true" {
			return true
		}
	}
	return false
}
