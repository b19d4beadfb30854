// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

package ui

import (
	"errors"
	"fmt"
	"strings"

	"blender-engine/internal/scene"
	"blender-engine/internal/script"
)

// ErrUnknownCommand is returned by ParseCommand for words it does not know.
var ErrUnknownCommand = errors.New("unknown command")

// CommandKind says what a parsed prompt line asks for.
type CommandKind int

const (
	CommandNone CommandKind = iota
	CommandRun
	CommandHelp
	CommandClear
	CommandQuit
)

// Command is one parsed prompt line.
type Command struct {
	Kind CommandKind
	// Op is set for CommandRun.
	Op script.Operation
}

type usage struct {
	name string
	args string
	desc string
}

// usages lists the prompt commands in help order.
var usages = []usage{
	{"build", "[type]", "Build a scene (default, architectural, character)"},
	{"material", "[type] [name]", "Create a material (principled, emission, glass, metallic, wood)"},
	{"lighting", "[type] [energy]", "Set up lighting (area, sun, point, spot, three-point, hdri)"},
	{"camera", "[type] [x y z]", "Place the camera (perspective, orthographic, fisheye, panoramic)"},
	{"render", "[engine] [samples] [output]", "Render a still (cycles, eevee, workbench)"},
	{"export", "[format] [output]", "Export the scene (obj, fbx, gltf, usd, stl)"},
	{"reset", "", "Clear the scene"},
	{"optimize", "[level]", "Optimize meshes (low, medium, high)"},
	{"procedural", "[type]", "Generate procedural content (terrain, clouds, water, fractal)"},
	{"preview", "<object> [output]", "Render a preview of one object"},
	{"scene", "<preset|file>", "Apply a scene preset or YAML file"},
	{"clear", "", "Clear the output pane"},
	{"help", "", "Show this help"},
	{"quit", "", "Leave the session (also: exit)"},
}

// CommandNames are the words the prompt accepts.
func CommandNames() []string {
	names := make([]string, 0, len(usages)+1)
	for _, u := range usages {
		names = append(names, u.name)
	}
	return append(names, "exit")
}

// HelpText renders the command reference.
func HelpText() string {
	var b strings.Builder
	b.WriteString("Available commands:\n")
	for _, u := range usages {
		fmt.Fprintf(&b, "  %-32s %s\n", strings.TrimSpace(u.name+" "+u.args), u.desc)
	}
	return b.String()
}

// positional maps the arguments of each operation command to parameter names.
var positional = map[string][]string{
	"build":      {"type"},
	"material":   {"type", "name"},
	"lighting":   {"type", "energy"},
	"render":     {"engine", "samples", "output"},
	"export":     {"format", "output"},
	"reset":      {},
	"optimize":   {"level"},
	"procedural": {"type"},
	"preview":    {"object", "output"},
}

// ParseCommand turns a prompt line into a Command. Blank lines yield
// CommandNone. Operations are validated before they are returned.
func ParseCommand(line string) (Command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Command{Kind: CommandNone}, nil
	}
	name, args := strings.ToLower(fields[0]), fields[1:]

	switch name {
	case "help", "?":
		return Command{Kind: CommandHelp}, nil
	case "quit", "exit":
		return Command{Kind: CommandQuit}, nil
	case "clear":
		return Command{Kind: CommandClear}, nil
	case "scene":
		if len(args) != 1 {
			return Command{}, fmt.Errorf("usage: scene <preset|file> (presets: %s)", strings.Join(scene.PresetNames(), ", "))
		}
		s, err := scene.Resolve(args[0])
		if err != nil {
			return Command{}, err
		}
		return runCommand(s.Operation())
	case "camera":
		// camera [type] [x y z]
		p := script.Params{}
		if len(args) > 0 {
			p["type"] = args[0]
		}
		switch len(args) {
		case 0, 1:
		case 4:
			p["position"] = strings.Join(args[1:], ",")
		default:
			return Command{}, errors.New("usage: camera [type] [x y z]")
		}
		op, err := script.FromParams(name, p)
		if err != nil {
			return Command{}, err
		}
		return runCommand(op)
	}

	keys, ok := positional[name]
	if !ok {
		return Command{}, fmt.Errorf("%w %q; available: %s", ErrUnknownCommand, name, strings.Join(CommandNames(), ", "))
	}
	if len(args) > len(keys) {
		return Command{}, fmt.Errorf("too many arguments for %s", name)
	}
	p := script.Params{}
	for i, a := range args {
		p[keys[i]] = a
	}
	op, err := script.FromParams(name, p)
	if err != nil {
		return Command{}, err
	}
	return runCommand(op)
}

func runCommand(op script.Operation) (Command, error) {
	if err := op.Validate(); err != nil {
		return Command{}, fmt.Errorf("%s: %w", op.Name(), err)
	}
	return Command{Kind: CommandRun, Op: op}, nil
}
