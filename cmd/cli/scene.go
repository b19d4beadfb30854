// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

package cli

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"blender-engine/internal/scene"

	"github.com/spf13/cobra"
)

var sceneCmd = &cobra.Command{
	Use:   "scene",
	Short: "Build scenes from presets or YAML scene files",
	Long: `Scenes describe materials, objects, lights, a camera, world settings and an
optional render in one YAML document. A reference is either the name of a
built-in preset or the path of a scene file.`,
	GroupID: managementGroup.ID,
}

var sceneApplyCmd = &cobra.Command{
	Use:               "apply <preset|file>",
	Short:             "Build the scene in Blender",
	Example:           "  bt scene apply modern-house --blend house.blend\n  bt scene apply ./studio.yaml --dry-run",
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: sceneCompletionFunc,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := scene.Resolve(args[0])
		if err != nil {
			return err
		}
		agent, _, err := loadAgent()
		if err != nil {
			return err
		}
		statusColor.Fprintf(cmd.OutOrStdout(), "Applying scene %s (%d objects, %d lights)\n",
			identifierColor.Sprint(s.Name), s.ObjectCount(), s.LightCount())
		return runOperation(cmd, agent, s.Operation())
	},
}

var sceneListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the built-in presets",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		statusColor.Fprintln(out, "Built-in scene presets:")
		for _, name := range scene.PresetNames() {
			s, err := scene.Preset(name)
			if err != nil {
				errorColor.Fprintf(out, "- %s: %v\n", name, err)
				continue
			}
			fmt.Fprintf(out, "- %s", identifierColor.Sprint(name))
			if s.Description != "" {
				fmt.Fprintf(out, ": %s", s.Description)
			}
			fmt.Fprintln(out, dimColor.Sprintf(" (%d objects, %d lights)", s.ObjectCount(), s.LightCount()))
		}
		return nil
	},
}

var sceneShowScript bool

var sceneShowCmd = &cobra.Command{
	Use:               "show <preset|file>",
	Short:             "Print a scene document, or the script it compiles to",
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: sceneCompletionFunc,
	RunE: func(cmd *cobra.Command, args []string) error {
		ref := args[0]
		out := cmd.OutOrStdout()
		if sceneShowScript {
			s, err := scene.Resolve(ref)
			if err != nil {
				return err
			}
			code, err := scene.Compile(s)
			if err != nil {
				return err
			}
			fmt.Fprint(out, code)
			return nil
		}
		var data []byte
		var err error
		if slices.Contains(scene.PresetNames(), ref) {
			data, err = scene.PresetSource(ref)
		} else {
			data, err = os.ReadFile(ref)
		}
		if err != nil {
			return err
		}
		_, err = out.Write(data)
		return err
	},
}

var sceneValidateCmd = &cobra.Command{
	Use:               "validate <preset|file>...",
	Short:             "Check scene documents without running Blender",
	Args:              cobra.MinimumNArgs(1),
	ValidArgsFunction: sceneCompletionFunc,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		failed := 0
		for _, ref := range args {
			s, err := scene.Resolve(ref)
			if err == nil {
				err = s.Validate()
			}
			if err != nil {
				failed++
				errorColor.Fprintf(out, "✗ %s\n", ref)
				msg := strings.TrimPrefix(err.Error(), scene.ErrInvalidScene.Error()+": ")
				for _, line := range strings.Split(msg, "\n") {
					fmt.Fprintf(out, "    %s\n", line)
				}
				continue
			}
			successColor.Fprintf(out, "✓ %s", ref)
			fmt.Fprintln(out, dimColor.Sprintf(" (%d objects, %d lights)", s.ObjectCount(), s.LightCount()))
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d scene(s) invalid", failed, len(args))
		}
		return nil
	},
}

func sceneCompletionFunc(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	// Presets are offered alongside normal file completion.
	return scene.PresetNames(), cobra.ShellCompDirectiveDefault
}

func init() {
	sceneShowCmd.Flags().BoolVar(&sceneShowScript, "script", false, "print the generated Python instead of the YAML")

	sceneCmd.AddCommand(sceneApplyCmd, sceneListCmd, sceneShowCmd, sceneValidateCmd)
	rootCmd.AddCommand(sceneCmd)
}
