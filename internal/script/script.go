// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

// Package script generates the Python code that is handed to Blender's
// embedded interpreter for each operation. Generation is pure: the same
// operation always yields the same text, and user supplied strings only ever
// appear as escaped Python literals.
package script

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// ErrInvalidChoice is returned when a parameter is outside its allowed set.
var ErrInvalidChoice = errors.New("invalid choice")

// Operation is one unit of Blender work.
type Operation interface {
	// Name is the operation's command name, e.g. "render".
	Name() string
	// Validate rejects parameters that cannot produce a meaningful script.
	Validate() error
	// Script returns the Python body for the operation.
	Script() string
}

// Producer is implemented by operations that write a file.
type Producer interface {
	Path() string
}

// OutputPath returns the file op writes, if any.
func OutputPath(op Operation) (string, bool) {
	p, ok := op.(Producer)
	if !ok {
		return "", false
	}
	path := p.Path()
	return path, path != ""
}

// Options control what is wrapped around an operation's script.
type Options struct {
	// SaveAs writes the resulting scene to this .blend file after the body runs.
	SaveAs string
}

// Generate validates op and returns its full script.
func Generate(op Operation, opts Options) (string, error) {
	if err := op.Validate(); err != nil {
		return "", fmt.Errorf("%s: %w", op.Name(), err)
	}
	body := op.Script()
	if opts.SaveAs == "" {
		return body, nil
	}
	var c Code
	c.b.WriteString(body)
	if !strings.HasSuffix(body, "\n") {
		c.Blank()
	}
	c.Blank()
	c.Linef("bpy.ops.wm.save_as_mainfile(filepath=%s)", Quote(opts.SaveAs))
	c.Linef("print(%s)", Quote("Session saved to: "+opts.SaveAs))
	return c.String(), nil
}

// CheckChoice returns ErrInvalidChoice unless value is one of allowed.
func CheckChoice(param, value string, allowed []string) error {
	if slices.Contains(allowed, value) {
		return nil
	}
	return fmt.Errorf("%w: %s %q (choose from %s)", ErrInvalidChoice, param, value, strings.Join(allowed, ", "))
}

// Choice sets for operations whose unknown types are rejected rather than
// falling back.
var (
	RenderEngines      = []string{"cycles", "eevee", "workbench"}
	ExportFormats      = []string{"obj", "fbx", "gltf", "usd", "stl"}
	OptimizationLevels = []string{"low", "medium", "high"}
)

// Known types for operations that fall back to a default for anything else.
var (
	SceneTypes      = []string{"default", "architectural", "character"}
	MaterialTypes   = []string{"principled", "emission", "glass", "metallic", "wood"}
	LightTypes      = []string{"area", "sun", "point", "spot", "three-point", "hdri"}
	CameraTypes     = []string{"perspective", "orthographic", "fisheye", "panoramic"}
	ProceduralTypes = []string{"terrain", "clouds", "water", "fractal"}
)

// Names lists every operation name accepted by FromParams.
var Names = []string{"build", "material", "lighting", "camera", "render", "export", "reset", "optimize", "procedural", "preview", "python"}

// Python wraps user supplied code so it can flow through the same pipeline as
// generated operations.
type Python struct {
	Code string
}

func (Python) Name() string { return "python" }

func (p Python) Validate() error {
	if strings.TrimSpace(p.Code) == "" {
		return errors.New("no code given")
	}
	return nil
}

func (p Python) Script() string { return p.Code }
