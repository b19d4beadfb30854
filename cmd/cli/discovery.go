// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

package cli

import (
	"fmt"
	"time"

	"blender-engine/internal/blender"
	"blender-engine/internal/config"
	"blender-engine/internal/discovery"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"
)

var hostsRemoteOnly bool

var hostsCmd = &cobra.Command{
	Use:   "hosts",
	Short: "Find Blender installations on this machine and the SSH hosts",
	Long: `Runs 'blender --version' locally and on every enabled SSH host from the
configuration, in parallel, and lists the versions found.`,
	Args:    cobra.NoArgs,
	GroupID: managementGroup.ID,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("error loading configuration: %w", err)
		}

		out := cmd.OutOrStdout()
		statusColor.Fprintln(out, "Discovering Blender installations...")

		s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
		s.Color("cyan")
		s.Suffix = " Checking hosts..."
		s.Writer = out
		s.Start()

		ch := discovery.FindInstallations(cmd.Context(), cfg.SSHHosts, discovery.Options{
			LocalExecutable: blender.Resolve(cfg.BlenderPath),
			SkipLocal:       hostsRemoteOnly,
		})
		installations := discovery.Collect(ch)
		s.Stop()

		if len(installations) == 0 {
			fmt.Fprintln(out, "No hosts to check.")
			return nil
		}

		unavailable := 0
		fmt.Fprintln(out)
		for _, inst := range installations {
			fmt.Fprintf(out, "%-20s %-16s ", identifierColor.Sprint(inst.Host), inst.Executable)
			if inst.Available() {
				successColor.Fprintf(out, "Blender %s\n", inst.Version)
				continue
			}
			unavailable++
			errorColor.Fprintf(out, "unavailable: %v\n", inst.Err)
		}

		if unavailable == len(installations) {
			return fmt.Errorf("no working Blender installation found")
		}
		return nil
	},
}

func init() {
	hostsCmd.Flags().BoolVar(&hostsRemoteOnly, "remote-only", false, "skip the local machine")
	rootCmd.AddCommand(hostsCmd)
}
