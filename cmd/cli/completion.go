// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

package cli

import (
	"strings"

	"blender-engine/internal/config"

	"github.com/spf13/cobra"
)

// hostCompletionFunc provides dynamic completion for --host ("local" or an
// enabled SSH host).
func hostCompletionFunc(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	names := []string{"local"}
	// Ignore config load errors during completion
	if cfg, err := config.LoadConfig(); err == nil {
		for _, h := range cfg.SSHHosts {
			names = append(names, h.Name)
		}
	}
	return filterPrefix(names, toComplete), cobra.ShellCompDirectiveNoFileComp
}

// remoteHostCompletionFunc completes configured SSH host names, disabled ones
// included.
func remoteHostCompletionFunc(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	cfg, err := config.LoadRawConfig()
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	names := make([]string, 0, len(cfg.SSHHosts))
	for _, h := range cfg.SSHHosts {
		names = append(names, h.Name)
	}
	return filterPrefix(names, toComplete), cobra.ShellCompDirectiveNoFileComp
}

func filterPrefix(candidates []string, prefix string) []string {
	out := []string{}
	for _, c := range candidates {
		if strings.HasPrefix(c, prefix) {
			out = append(out, c)
		}
	}
	return out
}
