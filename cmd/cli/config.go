// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"blender-engine/internal/blender"
	"blender-engine/internal/config"
	"blender-engine/internal/script"

	"github.com/spf13/cobra"
)

// configCmd is the parent command for all configuration-related subcommands
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage blender-engine configuration",
	Long: `Shows and changes the configuration file: the Blender executable, the timeout
for one run, the session .blend file, the output directory, render defaults
and the SSH render hosts.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadRawConfig()
		if err != nil {
			return fmt.Errorf("error loading configuration: %w", err)
		}
		path, _ := config.DefaultConfigPath()
		printConfig(cmd.OutOrStdout(), path, cfg)
		return nil
	},
}

func printConfig(w io.Writer, path string, cfg config.Config) {
	orDefault := func(v, def string) string {
		if v == "" {
			return dimColor.Sprintf("[default: %s]", def)
		}
		return v
	}
	fmt.Fprintf(w, "Config file:  %s\n", identifierColor.Sprint(path))
	fmt.Fprintf(w, "blender_path: %s\n", orDefault(cfg.BlenderPath, blender.Resolve("")+" from PATH"))
	timeout := ""
	if cfg.Timeout > 0 {
		timeout = time.Duration(cfg.Timeout).String()
	}
	fmt.Fprintf(w, "timeout:      %s\n", orDefault(timeout, config.DefaultTimeout.String()))
	fmt.Fprintf(w, "blend_file:   %s\n", orDefault(cfg.BlendFile, "none"))
	fmt.Fprintf(w, "output_dir:   %s\n", orDefault(cfg.OutputDir, "per command"))

	r := cfg.Render
	itoa := func(n int) string {
		if n == 0 {
			return ""
		}
		return strconv.Itoa(n)
	}
	fmt.Fprintln(w, "render:")
	fmt.Fprintf(w, "  engine:       %s\n", orDefault(r.Engine, "cycles"))
	fmt.Fprintf(w, "  samples:      %s\n", orDefault(itoa(r.Samples), strconv.Itoa(script.DefaultSamples)))
	fmt.Fprintf(w, "  resolution_x: %s\n", orDefault(itoa(r.ResolutionX), "1920"))
	fmt.Fprintf(w, "  resolution_y: %s\n", orDefault(itoa(r.ResolutionY), "1080"))

	enabled := 0
	for _, h := range cfg.SSHHosts {
		if !h.Disabled {
			enabled++
		}
	}
	fmt.Fprintf(w, "ssh_hosts:    %d configured, %d enabled\n", len(cfg.SSHHosts), enabled)
}

// configKeys are the settings `config set` accepts.
var configKeys = []string{
	"blender_path", "timeout", "blend_file", "output_dir",
	"render.engine", "render.samples", "render.resolution_x", "render.resolution_y",
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change one setting",
	Long: `Changes one setting in the configuration file. An empty value restores the
default.

Keys: ` + strings.Join(configKeys, ", "),
	Example: `  bt config set blender_path /opt/blender/blender
  bt config set timeout 10m
  bt config set render.engine eevee
  bt config set blend_file ""`,
	Args: cobra.ExactArgs(2),
	ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		if len(args) == 0 {
			return configKeys, cobra.ShellCompDirectiveNoFileComp
		}
		return nil, cobra.ShellCompDirectiveDefault
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadRawConfig()
		if err != nil {
			return fmt.Errorf("error loading configuration: %w", err)
		}
		key, value := args[0], strings.TrimSpace(args[1])
		if err := setConfigValue(&cfg, key, value); err != nil {
			return err
		}
		if err := config.SaveConfig(cfg); err != nil {
			return fmt.Errorf("error saving configuration: %w", err)
		}
		if value == "" {
			successColor.Fprintf(cmd.OutOrStdout(), "%s reset to default.\n", key)
		} else {
			successColor.Fprintf(cmd.OutOrStdout(), "%s set to: %s\n", key, value)
		}
		return nil
	},
}

// setConfigValue applies one `config set` to cfg. Empty values clear the setting.
func setConfigValue(cfg *config.Config, key, value string) error {
	switch key {
	case "blender_path":
		cfg.BlenderPath = value
	case "blend_file":
		cfg.BlendFile = value
	case "output_dir":
		if value != "" && !strings.HasPrefix(value, "/") && !strings.HasPrefix(value, "~/") {
			return fmt.Errorf("output_dir must be absolute or start with '~/'")
		}
		cfg.OutputDir = value
	case "timeout":
		if value == "" {
			cfg.Timeout = 0
			return nil
		}
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid timeout %q: %w", value, err)
		}
		if d <= 0 {
			return fmt.Errorf("timeout must be positive, got %s", d)
		}
		cfg.Timeout = config.Duration(d)
	case "render.engine":
		if value != "" {
			if err := script.CheckChoice("engine", value, script.RenderEngines); err != nil {
				return err
			}
		}
		cfg.Render.Engine = value
	case "render.samples", "render.resolution_x", "render.resolution_y":
		n := 0
		if value != "" {
			var err error
			n, err = strconv.Atoi(value)
			if err != nil || n <= 0 {
				return fmt.Errorf("%s must be a positive integer, got %q", key, value)
			}
		}
		switch key {
		case "render.samples":
			cfg.Render.Samples = n
		case "render.resolution_x":
			cfg.Render.ResolutionX = n
		default:
			cfg.Render.ResolutionY = n
		}
	default:
		return fmt.Errorf("unknown setting %q (keys: %s)", key, strings.Join(configKeys, ", "))
	}
	return nil
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	rootCmd.AddCommand(configCmd)
}
