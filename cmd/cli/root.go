// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

// Package cli implements the `bt` command line: one subcommand per Blender
// operation plus scene, pipeline, host and configuration management.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"blender-engine/cmd/tui"
	"blender-engine/internal/blender"
	"blender-engine/internal/config"
	"blender-engine/internal/engine"
	"blender-engine/internal/runner"
	"blender-engine/internal/script"
	"blender-engine/internal/ssh"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	sshManager      *ssh.Manager
	statusColor     = color.New(color.FgCyan)
	errorColor      = color.New(color.FgRed)
	stepColor       = color.New(color.FgYellow)
	successColor    = color.New(color.FgGreen)
	identifierColor = color.New(color.FgBlue)
	dimColor        = color.New(color.Faint)
)

// globalOptions are the persistent flags shared by every subcommand.
type globalOptions struct {
	host        string
	blend       string
	timeout     time.Duration
	dryRun      bool
	interactive bool
	file        string
	python      string
}

var opts globalOptions

var (
	operationsGroup = &cobra.Group{ID: "operations", Title: "Blender operations:"}
	managementGroup = &cobra.Group{ID: "management", Title: "Scenes, pipelines and hosts:"}
)

// errReported marks a failure whose details were already printed.
var errReported = errors.New("failed")

var rootCmd = &cobra.Command{
	Use:   "bt",
	Short: "Blender from the command line",
	Long: `Generates Blender Python scripts for common scene operations and runs them
in a background Blender process, locally or on an SSH host configured in
~/.config/blender-engine/config.yaml.

Run without arguments for the interactive prompt.`,
	Example: `  bt build --type architectural
  bt material --type metallic --name Steel
  bt lighting --type three-point
  bt render --engine eevee --output /tmp/scene.png
  bt export --format gltf --host studio
  bt --python "import bpy; print(bpy.app.version_string)"
  bt -i`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.EnsureConfigDir(); err != nil {
			return fmt.Errorf("failed to ensure config directory: %w", err)
		}
		sshManager = ssh.NewManager()
		runner.InitSSHManager(sshManager)
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if sshManager != nil {
			sshManager.CloseAll()
		}
		return nil
	},
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !opts.interactive && opts.file == "" && opts.python == "" {
			return cmd.Help()
		}
		agent, _, err := loadAgent()
		if err != nil {
			return err
		}
		switch {
		case opts.interactive:
			tui.RunTUI(agent)
			return nil
		case opts.file != "":
			step, err := agent.FileStep(opts.file)
			if err != nil {
				return err
			}
			return executeStep(cmd, agent, step)
		default:
			return runOperation(cmd, agent, script.Python{Code: opts.python})
		}
	},
}

// RunCLI executes the root command and exits 1 on failure. SIGINT and SIGTERM
// cancel a running Blender process.
func RunCLI() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		if !errors.Is(err, errReported) {
			errorColor.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

// DefaultAgent returns the agent described by the configuration file alone.
func DefaultAgent() (*engine.BlenderAgent, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}
	return newAgent(cfg, globalOptions{})
}

func loadAgent() (*engine.BlenderAgent, config.Config, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, cfg, fmt.Errorf("error loading configuration: %w", err)
	}
	agent, err := newAgent(cfg, opts)
	return agent, cfg, err
}

// newAgent combines the configuration with the command line flags. Flags win.
func newAgent(cfg config.Config, o globalOptions) (*engine.BlenderAgent, error) {
	agent := &engine.BlenderAgent{
		Target:    runner.LocalTarget(),
		BlendFile: cfg.BlendFile,
		Timeout:   cfg.EffectiveTimeout(),
		DryRun:    o.dryRun,
	}
	if o.blend != "" {
		agent.BlendFile = o.blend
	}
	if o.timeout > 0 {
		agent.Timeout = o.timeout
	}

	if o.host != "" && o.host != "local" {
		host, err := cfg.FindHost(o.host)
		if err != nil {
			return nil, err
		}
		agent.Target = runner.RemoteTarget(host)
		agent.Executable = host.Executable()
		return agent, nil
	}

	agent.Executable = blender.Resolve(cfg.BlenderPath)
	if agent.BlendFile != "" {
		resolved, err := config.ResolvePath(agent.BlendFile)
		if err != nil {
			return nil, err
		}
		agent.BlendFile = resolved
	}
	return agent, nil
}

func init() {
	rootCmd.AddGroup(operationsGroup, managementGroup)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&opts.host, "host", "", "run on a configured SSH host instead of locally")
	pf.StringVar(&opts.blend, "blend", "", "session .blend file opened before and saved after the operation")
	pf.DurationVar(&opts.timeout, "timeout", 0, "limit for one Blender run (default from config, 120s)")
	pf.BoolVar(&opts.dryRun, "dry-run", false, "print the generated script and command without running Blender")
	_ = rootCmd.RegisterFlagCompletionFunc("host", hostCompletionFunc)

	f := rootCmd.Flags()
	f.BoolVarP(&opts.interactive, "interactive", "i", false, "start the interactive prompt")
	f.StringVar(&opts.file, "file", "", "run a Python script file in Blender")
	f.StringVar(&opts.python, "python", "", "run inline Python code in Blender")
	rootCmd.MarkFlagsMutuallyExclusive("interactive", "file", "python")
}
