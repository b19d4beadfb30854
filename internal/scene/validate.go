// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

package scene

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"blender-engine/internal/script"
)

// Validate reports every problem found, joined and wrapped in ErrInvalidScene.
func (s *Scene) Validate() error {
	var problems []error
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Errorf(format, args...))
	}

	materials := map[string]bool{}
	for i, m := range s.Materials {
		switch {
		case strings.TrimSpace(m.Name) == "":
			add("material %d has no name", i+1)
		case materials[m.Name]:
			add("duplicate material %q", m.Name)
		}
		materials[m.Name] = true
		for _, v := range []*float64{m.Metallic, m.Roughness, m.Transmission, m.Alpha} {
			if v != nil && (*v < 0 || *v > 1) {
				add("material %q: factor %v outside [0, 1]", m.Name, *v)
			}
		}
	}

	names := map[string]string{}
	claim := func(kind, name string) {
		if strings.TrimSpace(name) == "" {
			add("%s has no name", kind)
			return
		}
		if prev, ok := names[name]; ok {
			add("duplicate name %q (%s and %s)", name, prev, kind)
			return
		}
		names[name] = kind
	}

	checkObject := func(o Object) {
		claim("object", o.Name)
		if _, ok := Primitives[o.Primitive]; !ok {
			add("object %q: unknown primitive %q", o.Name, o.Primitive)
		}
		if o.Material != "" && !materials[o.Material] {
			add("object %q: material %q is not defined", o.Name, o.Material)
		}
		if o.Size < 0 || o.Radius < 0 || o.Depth < 0 {
			add("object %q: negative dimension", o.Name)
		}
	}
	checkLight := func(l Light) {
		claim("light", l.Name)
		if !slices.Contains(LightTypes, l.Type) {
			add("light %q: unknown type %q", l.Name, l.Type)
		}
		if l.Energy < 0 || !script.Finite(l.Energy) {
			add("light %q: invalid energy %v", l.Name, l.Energy)
		}
	}

	for _, o := range s.Objects {
		checkObject(o)
	}
	for _, l := range s.Lights {
		checkLight(l)
	}
	stages := map[string]bool{}
	for i, st := range s.Stages {
		if strings.TrimSpace(st.Name) == "" {
			add("stage %d has no name", i+1)
		} else if stages[st.Name] {
			add("duplicate stage %q", st.Name)
		}
		stages[st.Name] = true
		for _, o := range st.Objects {
			checkObject(o)
		}
		for _, l := range st.Lights {
			checkLight(l)
		}
	}
	if s.Camera != nil {
		claim("camera", s.Camera.Name)
	}
	if r := s.Render; r != nil {
		if _, ok := script.BlenderEngine(r.Engine); !ok {
			add("render: %v", script.CheckChoice("engine", r.Engine, script.RenderEngines))
		}
		if r.Samples < 0 || r.ResolutionX < 0 || r.ResolutionY < 0 {
			add("render: samples and resolution must not be negative")
		}
		if r.Output != "" && s.Camera == nil && !s.Keep {
			add("render: output %q set but the scene has no camera", r.Output)
		}
	}

	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidScene, errors.Join(problems...))
}
