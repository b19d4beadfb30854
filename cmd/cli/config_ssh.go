// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

// Package cli's config_ssh.go file implements the commands that manage the SSH
// render hosts: listing, adding, removing, enabling and importing them from
// ~/.ssh/config.

package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"blender-engine/internal/config"

	"github.com/spf13/cobra"
)

// sshCmd is the parent command for SSH-specific configuration subcommands
var sshCmd = &cobra.Command{
	Use:   "ssh",
	Short: "Manage SSH render hosts",
	Long: `Add, list, remove, enable, disable or import the SSH hosts that operations
can run on with --host.`,
}

var sshListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured SSH hosts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadRawConfig()
		if err != nil {
			return fmt.Errorf("error loading configuration: %w", err)
		}
		out := cmd.OutOrStdout()
		if len(cfg.SSHHosts) == 0 {
			fmt.Fprintln(out, "No SSH hosts configured.")
			return nil
		}

		statusColor.Fprintln(out, "Configured SSH Hosts:")
		for i, host := range cfg.SSHHosts {
			details := fmt.Sprintf("%s@%s", host.User, host.Hostname)
			if host.Port != 0 && host.Port != 22 {
				details += fmt.Sprintf(":%d", host.Port)
			}
			fmt.Fprintf(out, "%d: %s (%s)\n", i+1, identifierColor.Sprint(host.Name), details)
			if host.BlenderPath != "" {
				fmt.Fprintf(out, "   Blender:     %s\n", host.BlenderPath)
			} else {
				fmt.Fprintf(out, "   Blender:     %s\n", dimColor.Sprint("[Default: blender on PATH]"))
			}
			if host.KeyPath != "" {
				fmt.Fprintf(out, "   Key Path:    %s\n", host.KeyPath)
			}
			if host.Password != "" {
				fmt.Fprintf(out, "   Password:    %s\n", errorColor.Sprint("[set, stored insecurely]"))
			}
			if host.Disabled {
				fmt.Fprintf(out, "   Status:      %s\n", errorColor.Sprint("Disabled"))
			}
		}
		return nil
	},
}

// promptForNewHost asks for the details of a host not yet in hosts.
func promptForNewHost(p *prompter, hosts []config.SSHHost) (config.SSHHost, error) {
	var h config.SSHHost
	var err error

	h.Name, err = p.String("Unique Name (e.g., 'studio', 'render-01'):", true)
	if err != nil {
		return h, fmt.Errorf("error reading name: %w", err)
	}
	if hostIndex(hosts, h.Name) >= 0 {
		return h, fmt.Errorf("SSH host with name '%s' already exists", h.Name)
	}
	if h.Name == "local" {
		return h, errors.New("'local' is reserved for this machine")
	}

	if h.Hostname, err = p.String("Hostname or IP Address:", true); err != nil {
		return h, fmt.Errorf("error reading hostname: %w", err)
	}
	if h.User, err = p.String("SSH Username:", true); err != nil {
		return h, fmt.Errorf("error reading username: %w", err)
	}
	if h.Port, err = p.OptionalInt("SSH Port", 22); err != nil {
		return h, fmt.Errorf("error reading port: %w", err)
	}
	if h.Port == 22 {
		h.Port = 0 // Store 0 for default
	}
	if h.BlenderPath, err = p.String("Blender executable on the host (optional, defaults to 'blender'):", false); err != nil {
		return h, fmt.Errorf("error reading blender path: %w", err)
	}
	if err := promptForAuthDetails(p, &h); err != nil {
		return h, fmt.Errorf("error getting authentication details: %w", err)
	}
	return h, nil
}

var sshAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a new SSH host interactively",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadRawConfig()
		if err != nil {
			return fmt.Errorf("error loading configuration: %w", err)
		}
		p := newPrompter(cmd)
		fmt.Fprintln(cmd.OutOrStdout(), "Adding a new SSH host configuration...")

		h, err := promptForNewHost(p, cfg.SSHHosts)
		if err != nil {
			return err
		}
		cfg.SSHHosts = append(cfg.SSHHosts, h)
		if err := config.SaveConfig(cfg); err != nil {
			return fmt.Errorf("error saving configuration: %w", err)
		}
		successColor.Fprintf(cmd.OutOrStdout(), "Successfully added SSH host '%s'.\n", h.Name)
		return nil
	},
}

var sshRemoveYes bool

var sshRemoveCmd = &cobra.Command{
	Use:               "remove <name>",
	Short:             "Remove an SSH host",
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: remoteHostCompletionFunc,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadRawConfig()
		if err != nil {
			return fmt.Errorf("error loading configuration: %w", err)
		}
		i := hostIndex(cfg.SSHHosts, args[0])
		if i < 0 {
			return fmt.Errorf("SSH host '%s' not found", args[0])
		}
		if !sshRemoveYes {
			confirmed, err := newPrompter(cmd).Confirm(fmt.Sprintf("Are you sure you want to remove host '%s'?", args[0]))
			if err != nil {
				return fmt.Errorf("error reading confirmation: %w", err)
			}
			if !confirmed {
				fmt.Fprintln(cmd.OutOrStdout(), "Removal cancelled.")
				return nil
			}
		}
		cfg.SSHHosts = append(cfg.SSHHosts[:i], cfg.SSHHosts[i+1:]...)
		if err := config.SaveConfig(cfg); err != nil {
			return fmt.Errorf("error saving configuration: %w", err)
		}
		successColor.Fprintf(cmd.OutOrStdout(), "Successfully removed SSH host '%s'.\n", args[0])
		return nil
	},
}

func setHostDisabled(disabled bool) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadRawConfig()
		if err != nil {
			return fmt.Errorf("error loading configuration: %w", err)
		}
		i := hostIndex(cfg.SSHHosts, args[0])
		if i < 0 {
			return fmt.Errorf("SSH host '%s' not found", args[0])
		}
		cfg.SSHHosts[i].Disabled = disabled
		if err := config.SaveConfig(cfg); err != nil {
			return fmt.Errorf("error saving configuration: %w", err)
		}
		state := "enabled"
		if disabled {
			state = "disabled"
		}
		successColor.Fprintf(cmd.OutOrStdout(), "SSH host '%s' %s.\n", args[0], state)
		return nil
	}
}

var sshEnableCmd = &cobra.Command{
	Use:               "enable <name>",
	Short:             "Enable a disabled SSH host",
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: remoteHostCompletionFunc,
	RunE:              setHostDisabled(false),
}

var sshDisableCmd = &cobra.Command{
	Use:               "disable <name>",
	Short:             "Keep an SSH host in the file but skip it",
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: remoteHostCompletionFunc,
	RunE:              setHostDisabled(true),
}

// importableHosts drops ssh_config hosts whose alias is already configured.
func importableHosts(potential []config.PotentialHost, existing []config.SSHHost) []config.PotentialHost {
	var out []config.PotentialHost
	for _, ph := range potential {
		if hostIndex(existing, ph.Alias) < 0 && ph.Alias != "local" {
			out = append(out, ph)
		}
	}
	return out
}

// selectHosts parses "all" or a comma-separated list of 1-based indices.
func selectHosts(choice string, hosts []config.PotentialHost) ([]config.PotentialHost, error) {
	if strings.EqualFold(strings.TrimSpace(choice), "all") {
		return hosts, nil
	}
	seen := map[int]bool{}
	var selected []config.PotentialHost
	for _, part := range strings.Split(choice, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || n < 1 || n > len(hosts) {
			return nil, fmt.Errorf("invalid selection '%s'. Please enter numbers corresponding to the list", strings.TrimSpace(part))
		}
		if !seen[n] {
			seen[n] = true
			selected = append(selected, hosts[n-1])
		}
	}
	return selected, nil
}

var sshImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Import hosts from ~/.ssh/config interactively",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadRawConfig()
		if err != nil {
			return fmt.Errorf("error loading current configuration: %w", err)
		}
		potential, err := config.ParseSSHConfig()
		if err != nil {
			return fmt.Errorf("error parsing ~/.ssh/config: %w", err)
		}

		out := cmd.OutOrStdout()
		candidates := importableHosts(potential, cfg.SSHHosts)
		if len(candidates) == 0 {
			fmt.Fprintln(out, "No new hosts found in ~/.ssh/config to import.")
			return nil
		}

		fmt.Fprintln(out, "Found potential hosts in ~/.ssh/config:")
		for i, ph := range candidates {
			fmt.Fprintf(out, "  %d: %s (Hostname: %s, User: %s, Port: %d)\n", i+1, identifierColor.Sprint(ph.Alias), ph.Hostname, ph.User, ph.Port)
			if ph.KeyPath != "" {
				fmt.Fprintf(out, "     Key: %s\n", ph.KeyPath)
			}
		}

		p := newPrompter(cmd)
		fmt.Fprintln(out, "\nEnter the numbers of the hosts you want to import (comma-separated), or 'all':")
		choice, err := p.String("Import selection:", true)
		if err != nil {
			return fmt.Errorf("error reading selection: %w", err)
		}
		selected, err := selectHosts(choice, candidates)
		if err != nil {
			return err
		}

		imported := 0
		for _, ph := range selected {
			blenderPath, err := p.String(fmt.Sprintf("Blender executable on '%s' (optional, defaults to 'blender'):", ph.Alias), false)
			if err != nil {
				return fmt.Errorf("error reading blender path: %w", err)
			}
			h, err := config.ConvertToRenderHost(ph, ph.Alias, blenderPath)
			if err != nil {
				errorColor.Fprintf(out, "Skipping import for '%s': %v\n", ph.Alias, err)
				continue
			}
			if h.KeyPath == "" {
				fmt.Fprintf(out, "Host '%s' imported from ssh_config has no IdentityFile specified.\n", h.Name)
				if err := promptForAuthDetails(p, &h); err != nil {
					return fmt.Errorf("error getting authentication details: %w", err)
				}
			}
			cfg.SSHHosts = append(cfg.SSHHosts, h)
			imported++
		}
		if imported == 0 {
			fmt.Fprintln(out, "\nNo hosts were imported.")
			return nil
		}
		if err := config.SaveConfig(cfg); err != nil {
			return fmt.Errorf("error saving configuration: %w", err)
		}
		successColor.Fprintf(out, "\nSuccessfully imported %d SSH host(s).\n", imported)
		return nil
	},
}

func hostIndex(hosts []config.SSHHost, name string) int {
	for i := range hosts {
		if hosts[i].Name == name {
			return i
		}
	}
	return -1
}

// prompter reads answers from the command's input.
type prompter struct {
	r *bufio.Reader
	w io.Writer
}

func newPrompter(cmd *cobra.Command) *prompter {
	return &prompter{r: bufio.NewReader(cmd.InOrStdin()), w: cmd.OutOrStdout()}
}

func (p *prompter) readLine() (string, error) {
	input, err := p.r.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && input != "") {
		return "", err
	}
	return strings.TrimSpace(input), nil
}

func (p *prompter) String(prompt string, required bool) (string, error) {
	fmt.Fprint(p.w, prompt+" ")
	input, err := p.readLine()
	if err != nil {
		return "", err
	}
	if required && input == "" {
		return "", fmt.Errorf("input is required")
	}
	return input, nil
}

func (p *prompter) OptionalInt(prompt string, defaultValue int) (int, error) {
	fmt.Fprintf(p.w, "%s (default: %d): ", prompt, defaultValue)
	input, err := p.readLine()
	if err != nil {
		return defaultValue, err
	}
	if input == "" {
		return defaultValue, nil
	}
	val, err := strconv.Atoi(input)
	if err != nil {
		return defaultValue, fmt.Errorf("invalid integer input: %w", err)
	}
	return val, nil
}

func (p *prompter) Confirm(prompt string) (bool, error) {
	fmt.Fprint(p.w, prompt+" (y/N): ")
	input, err := p.readLine()
	if err != nil {
		return false, err
	}
	input = strings.ToLower(input)
	return input == "y" || input == "yes", nil
}

// promptForAuthDetails asks for key file, agent or password authentication.
func promptForAuthDetails(p *prompter, host *config.SSHHost) error {
	fmt.Fprintln(p.w, "\nAuthentication Method:")
	fmt.Fprintln(p.w, "  1. SSH Key File")
	fmt.Fprintln(p.w, "  2. SSH Agent (requires agent running with keys loaded)")
	fmt.Fprintln(p.w, "  3. Password (stored insecurely in config)")
	choice, err := p.OptionalInt("Choose auth method [1, 2, 3]", 2)
	if err != nil {
		return err
	}

	host.KeyPath = ""
	host.Password = ""
	switch choice {
	case 1:
		keyPath, err := p.String("Path to Private Key File:", true)
		if err != nil {
			return fmt.Errorf("error reading key path: %w", err)
		}
		host.KeyPath = keyPath
	case 2:
	case 3:
		fmt.Fprintln(p.w, errorColor.Sprint("Warning: Password will be stored in plaintext in the config file!"))
		password, err := p.String("SSH Password:", true)
		if err != nil {
			return fmt.Errorf("error reading password: %w", err)
		}
		host.Password = password
	default:
		return fmt.Errorf("invalid auth method %d", choice)
	}
	return nil
}

func init() {
	sshRemoveCmd.Flags().BoolVarP(&sshRemoveYes, "yes", "y", false, "do not ask for confirmation")

	sshCmd.AddCommand(sshListCmd)
	sshCmd.AddCommand(sshAddCmd)
	sshCmd.AddCommand(sshRemoveCmd)
	sshCmd.AddCommand(sshEnableCmd)
	sshCmd.AddCommand(sshDisableCmd)
	sshCmd.AddCommand(sshImportCmd)

	configCmd.AddCommand(sshCmd)
}
