// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

// Package scene describes Blender scenes declaratively in YAML and compiles
// them into a single script.
package scene

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"blender-engine/internal/script"

	"gopkg.in/yaml.v3"
)

// ErrInvalidScene wraps every validation failure.
var ErrInvalidScene = errors.New("invalid scene")

// Primitives maps primitive names to their bpy.ops.mesh operator.
var Primitives = map[string]string{
	"cube":       "primitive_cube_add",
	"plane":      "primitive_plane_add",
	"uv_sphere":  "primitive_uv_sphere_add",
	"ico_sphere": "primitive_ico_sphere_add",
	"cylinder":   "primitive_cylinder_add",
	"cone":       "primitive_cone_add",
	"torus":      "primitive_torus_add",
	"monkey":     "primitive_monkey_add",
}

// LightTypes are the accepted light types.
var LightTypes = []string{"area", "sun", "point", "spot"}

// Scene is a complete scene document.
type Scene struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
	// Keep leaves existing objects in place instead of clearing the scene first.
	Keep      bool       `yaml:"keep,omitempty"`
	Materials []Material `yaml:"materials,omitempty"`
	Objects   []Object   `yaml:"objects,omitempty"`
	Lights    []Light    `yaml:"lights,omitempty"`
	Stages    []Stage    `yaml:"stages,omitempty"`
	Camera    *Camera    `yaml:"camera,omitempty"`
	World     *World     `yaml:"world,omitempty"`
	Render    *Render    `yaml:"render,omitempty"`
}

// Stage is a named group built after the top-level objects and lights, in
// document order.
type Stage struct {
	Name    string   `yaml:"name"`
	Objects []Object `yaml:"objects,omitempty"`
	Lights  []Light  `yaml:"lights,omitempty"`
}

// Material is a Principled BSDF material.
type Material struct {
	Name             string        `yaml:"name"`
	BaseColor        *script.Color `yaml:"base_color,omitempty"`
	Metallic         *float64      `yaml:"metallic,omitempty"`
	Roughness        *float64      `yaml:"roughness,omitempty"`
	EmissionColor    *script.Color `yaml:"emission_color,omitempty"`
	EmissionStrength *float64      `yaml:"emission_strength,omitempty"`
	Transmission     *float64      `yaml:"transmission,omitempty"`
	IOR              *float64      `yaml:"ior,omitempty"`
	Alpha            *float64      `yaml:"alpha,omitempty"`
}

// Object is a mesh primitive. Unset dimensions use Blender's defaults.
type Object struct {
	Name      string       `yaml:"name"`
	Primitive string       `yaml:"primitive"`
	Size      float64      `yaml:"size,omitempty"`
	Radius    float64      `yaml:"radius,omitempty"`
	Depth     float64      `yaml:"depth,omitempty"`
	Location  script.Vec3  `yaml:"location,omitempty"`
	Rotation  *script.Vec3 `yaml:"rotation,omitempty"`
	Scale     *script.Vec3 `yaml:"scale,omitempty"`
	Material  string       `yaml:"material,omitempty"`
	Smooth    bool         `yaml:"smooth,omitempty"`
}

// Light is a lamp object. Color is RGB.
type Light struct {
	Name     string       `yaml:"name"`
	Type     string       `yaml:"type"`
	Location script.Vec3  `yaml:"location,omitempty"`
	Rotation *script.Vec3 `yaml:"rotation,omitempty"`
	Energy   float64      `yaml:"energy"`
	Size     float64      `yaml:"size,omitempty"`
	Color    *script.Vec3 `yaml:"color,omitempty"`
}

// Camera becomes the scene camera. Without a rotation it looks at LookAt, or
// the origin when that is unset too.
type Camera struct {
	Name     string       `yaml:"name"`
	Location script.Vec3  `yaml:"location"`
	Rotation *script.Vec3 `yaml:"rotation,omitempty"`
	LookAt   *script.Vec3 `yaml:"look_at,omitempty"`
	Lens     float64      `yaml:"lens,omitempty"`
}

// World sets a flat background.
type World struct {
	Color    script.Color `yaml:"color"`
	Strength *float64     `yaml:"strength,omitempty"`
}

// Render configures the render settings. A still is written only when Output
// is set.
type Render struct {
	Engine      string `yaml:"engine"`
	Samples     int    `yaml:"samples,omitempty"`
	ResolutionX int    `yaml:"resolution_x,omitempty"`
	ResolutionY int    `yaml:"resolution_y,omitempty"`
	Output      string `yaml:"output,omitempty"`
}

// Parse decodes a scene document. Unknown fields are rejected.
func Parse(data []byte) (*Scene, error) {
	return Decode(bytes.NewReader(data))
}

// Decode reads a scene document from r.
func Decode(r io.Reader) (*Scene, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var s Scene
	if err := dec.Decode(&s); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty document", ErrInvalidScene)
		}
		return nil, fmt.Errorf("failed to parse scene: %w", err)
	}
	return &s, nil
}

// Load reads a scene file.
func Load(path string) (*Scene, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open scene file %s: %w", path, err)
	}
	defer f.Close()
	s, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Resolve returns the named preset or, failing that, loads ref as a file.
func Resolve(ref string) (*Scene, error) {
	if slices.Contains(PresetNames(), ref) {
		return Preset(ref)
	}
	if _, err := os.Stat(ref); err != nil {
		return nil, fmt.Errorf("%q is neither a preset (%v) nor a readable file", ref, PresetNames())
	}
	return Load(ref)
}

// ObjectCount is the number of mesh objects across all stages.
func (s *Scene) ObjectCount() int {
	n := len(s.Objects)
	for _, st := range s.Stages {
		n += len(st.Objects)
	}
	return n
}

// LightCount is the number of lights across all stages.
func (s *Scene) LightCount() int {
	n := len(s.Lights)
	for _, st := range s.Stages {
		n += len(st.Lights)
	}
	return n
}

// Operation adapts the scene to script.Operation so it runs like any other
// generated operation.
func (s *Scene) Operation() script.Operation {
	return operation{s}
}

type operation struct {
	s *Scene
}

func (operation) Name() string      { return "scene" }
func (o operation) Validate() error { return o.s.Validate() }
func (o operation) Script() string  { return compile(o.s) }
