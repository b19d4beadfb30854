// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"blender-engine/internal/config"
	"blender-engine/internal/engine"
	"blender-engine/internal/logger"
	"blender-engine/internal/render"
	"blender-engine/internal/script"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// validatedChoices are parameters whose unknown values are rejected instead
// of falling back to a default.
var validatedChoices = map[string]map[string][]string{
	"render":   {"engine": script.RenderEngines},
	"export":   {"format": script.ExportFormats},
	"optimize": {"level": script.OptimizationLevels},
}

// operationCommand returns a subcommand that builds the named operation from
// its flags and positional arguments, then runs it.
func operationCommand(name string, cmd *cobra.Command, positional ...string) *cobra.Command {
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		agent, cfg, err := loadAgent()
		if err != nil {
			return err
		}
		p := paramsFromFlags(cmd)
		for i, arg := range args {
			if i < len(positional) {
				p[positional[i]] = arg
			}
		}
		applyConfigDefaults(name, p, cfg, agent)
		for param, allowed := range validatedChoices[name] {
			if v, ok := p[param].(string); ok {
				if err := script.CheckChoice(param, v, allowed); err != nil {
					return err
				}
			}
		}
		op, err := script.FromParams(name, p)
		if err != nil {
			return err
		}
		return runOperation(cmd, agent, op)
	}
	return cmd
}

// paramsFromFlags returns the command's own flags set on the command line,
// keyed by parameter name ("resolution-x" becomes "resolution_x"). Persistent
// flags such as --host are not parameters.
func paramsFromFlags(cmd *cobra.Command) script.Params {
	p := script.Params{}
	flags := cmd.Flags()
	local := cmd.LocalFlags()
	flags.Visit(func(f *pflag.Flag) {
		if local.Lookup(f.Name) == nil {
			return
		}
		key := strings.ReplaceAll(f.Name, "-", "_")
		switch f.Value.Type() {
		case "float64Slice":
			v, _ := flags.GetFloat64Slice(f.Name)
			p[key] = v
		case "int":
			v, _ := flags.GetInt(f.Name)
			p[key] = v
		case "float64":
			v, _ := flags.GetFloat64(f.Name)
			p[key] = v
		default:
			p[key] = f.Value.String()
		}
	})
	return p
}

// applyConfigDefaults fills parameters the command line left out from the
// configuration file.
func applyConfigDefaults(name string, p script.Params, cfg config.Config, agent *engine.BlenderAgent) {
	setDefault := func(key string, v any, ok bool) {
		if _, set := p[key]; !set && ok {
			p[key] = v
		}
	}
	switch name {
	case "render":
		setDefault("engine", cfg.Render.Engine, cfg.Render.Engine != "")
		setDefault("samples", cfg.Render.Samples, cfg.Render.Samples > 0)
		setDefault("resolution_x", cfg.Render.ResolutionX, cfg.Render.ResolutionX > 0)
		setDefault("resolution_y", cfg.Render.ResolutionY, cfg.Render.ResolutionY > 0)
		format, _ := p["format"].(string)
		delete(p, "format")
		if out, ok := p["output"].(string); ok {
			if _, known := render.FormatForPath(out); !known {
				logger.Warn("Render output has no recognised image extension", "output", out)
			}
			return
		}
		if cfg.OutputDir == "" {
			return
		}
		if agent.Target.IsRemote {
			p["output"] = filepath.Join(cfg.OutputDir, "render"+render.ParseFormat(format).Extension())
			return
		}
		dir, err := config.ResolvePath(cfg.OutputDir)
		if err != nil {
			logger.Warn("Ignoring output_dir", "error", err)
			return
		}
		out, err := render.NewFromOptions(dir, format, 0, 0)
		if err != nil {
			logger.Warn("Ignoring output_dir", "error", err)
			return
		}
		p["output"] = out.OutputPath("render")
	case "export":
		if cfg.OutputDir != "" {
			dir := cfg.OutputDir
			if !agent.Target.IsRemote {
				if resolved, err := config.ResolvePath(dir); err == nil {
					dir = resolved
				}
			}
			setDefault("output", filepath.Join(dir, "export"), true)
		}
	}
}

var buildCmd = operationCommand("build", &cobra.Command{
	Use:     "build",
	Short:   "Build a starter scene",
	Long:    "Clears the scene and builds one of the starter scenes: default, architectural or character.",
	Example: "  bt build\n  bt build --type architectural",
	Args:    cobra.NoArgs,
})

var materialCmd = operationCommand("material", &cobra.Command{
	Use:     "material",
	Short:   "Create a material and assign it to the selected objects",
	Example: "  bt material --type metallic --name Steel",
	Args:    cobra.NoArgs,
})

var lightingCmd = operationCommand("lighting", &cobra.Command{
	Use:     "lighting",
	Short:   "Replace the scene lights",
	Example: "  bt lighting --type three-point\n  bt lighting --type sun --energy 5",
	Args:    cobra.NoArgs,
})

var cameraCmd = operationCommand("camera", &cobra.Command{
	Use:     "camera",
	Short:   "Place a camera looking at the origin",
	Example: "  bt camera --type orthographic --position 0,-10,5",
	Args:    cobra.NoArgs,
})

var renderCmd = operationCommand("render", &cobra.Command{
	Use:   "render",
	Short: "Render a still image",
	Long: `Renders the current scene to an image file. Engine, samples and resolution
default to the render section of the configuration file. Without --output the
image is written to output_dir when one is configured.`,
	Example: "  bt render --engine eevee --samples 64 --output /tmp/scene.png",
	Args:    cobra.NoArgs,
})

var exportCmd = operationCommand("export", &cobra.Command{
	Use:     "export",
	Short:   "Export the scene to a 3D file format",
	Example: "  bt export --format gltf --output /tmp/scene",
	Args:    cobra.NoArgs,
})

var resetCmd = operationCommand("reset", &cobra.Command{
	Use:   "reset",
	Short: "Delete every object and orphaned data block",
	Args:  cobra.NoArgs,
})

var optimizeCmd = operationCommand("optimize", &cobra.Command{
	Use:     "optimize",
	Short:   "Clean up and decimate meshes",
	Example: "  bt optimize --level high",
	Args:    cobra.NoArgs,
})

var proceduralCmd = operationCommand("procedural", &cobra.Command{
	Use:     "procedural",
	Short:   "Generate procedural content",
	Example: "  bt procedural --type terrain",
	Args:    cobra.NoArgs,
})

var previewCmd = operationCommand("preview", &cobra.Command{
	Use:   "preview <object>",
	Short: "Render a small preview of one object",
	Long: `Frames the named object with its own camera and light and renders a preview
image, by default to ~/blender_previews/<object>_preview.png on the host that
runs Blender.`,
	Example: "  bt preview Cube --blend scene.blend",
	Args:    cobra.ExactArgs(1),
}, "object")

var pythonCmd = operationCommand("python", &cobra.Command{
	Use:     "python <code>",
	Short:   "Run inline Python code in Blender",
	Example: `  bt python "import bpy; print(len(bpy.data.objects))"`,
	Args:    cobra.ExactArgs(1),
}, "code")

var runFileCmd = &cobra.Command{
	Use:     "run <file>",
	Short:   "Run a Python script file in Blender",
	Example: "  bt run setup.py --blend scene.blend",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		agent, _, err := loadAgent()
		if err != nil {
			return err
		}
		step, err := agent.FileStep(args[0])
		if err != nil {
			return err
		}
		return executeStep(cmd, agent, step)
	},
}

func choiceHelp(desc string, choices []string) string {
	return fmt.Sprintf("%s (%s)", desc, strings.Join(choices, ", "))
}

func init() {
	buildCmd.Flags().String("type", "default", choiceHelp("scene type", script.SceneTypes))

	materialCmd.Flags().String("type", "principled", choiceHelp("material type", script.MaterialTypes))
	materialCmd.Flags().String("name", script.DefaultMaterial, "material name")

	lightingCmd.Flags().String("type", "area", choiceHelp("lighting setup", script.LightTypes))
	lightingCmd.Flags().Float64("energy", script.DefaultEnergy, "light energy")

	cameraCmd.Flags().String("type", "perspective", choiceHelp("camera type", script.CameraTypes))
	cameraCmd.Flags().Float64Slice("position", script.DefaultCameraPosition[:], "camera position as x,y,z")

	renderCmd.Flags().String("engine", "cycles", choiceHelp("render engine", script.RenderEngines))
	renderCmd.Flags().Int("samples", script.DefaultSamples, "render samples")
	renderCmd.Flags().String("output", script.DefaultRenderPath, "output image path")
	renderCmd.Flags().String("format", string(render.FormatPNG), "image format used to name the output in output_dir")
	renderCmd.Flags().Int("resolution-x", 0, "horizontal resolution (default 1920)")
	renderCmd.Flags().Int("resolution-y", 0, "vertical resolution (default 1080)")

	exportCmd.Flags().String("format", "obj", choiceHelp("export format", script.ExportFormats))
	exportCmd.Flags().String("output", script.DefaultExportPath, "output path; the format's extension is added")

	optimizeCmd.Flags().String("level", script.DefaultOptimize, choiceHelp("optimization level", script.OptimizationLevels))

	proceduralCmd.Flags().String("type", script.DefaultProcedural, choiceHelp("content type", script.ProceduralTypes))

	previewCmd.Flags().String("output", "", "output image path")
	previewCmd.Flags().Int("resolution-x", 0, "horizontal resolution")
	previewCmd.Flags().Int("resolution-y", 0, "vertical resolution")

	for _, c := range []*cobra.Command{
		buildCmd, materialCmd, lightingCmd, cameraCmd, renderCmd, exportCmd,
		resetCmd, optimizeCmd, proceduralCmd, previewCmd, pythonCmd, runFileCmd,
	} {
		c.GroupID = operationsGroup.ID
		rootCmd.AddCommand(c)
	}
}
