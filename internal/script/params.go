// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

package script

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrUnknownOperation is returned by FromParams for names outside Names.
var ErrUnknownOperation = errors.New("unknown operation")

// Params are loosely typed operation parameters as decoded from JSON, YAML or
// URL query strings.
type Params map[string]any

func (p Params) str(key, def string) string {
	v, ok := p[key]
	if !ok || v == nil {
		return def
	}
	s := strings.TrimSpace(fmt.Sprint(v))
	if s == "" {
		return def
	}
	return s
}

func (p Params) float(key string, def float64) (float64, error) {
	v, ok := p[key]
	if !ok || v == nil {
		return def, nil
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case string:
		if strings.TrimSpace(n) == "" {
			return def, nil
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, fmt.Errorf("%s: %q is not a number", key, n)
		}
		return f, nil
	}
	return 0, fmt.Errorf("%s: unsupported value %v", key, v)
}

func (p Params) int(key string, def int) (int, error) {
	f, err := p.float(key, float64(def))
	if err != nil {
		return 0, err
	}
	if f != float64(int(f)) {
		return 0, fmt.Errorf("%s: %v is not a whole number", key, f)
	}
	return int(f), nil
}

// vec3 accepts a three element list or a "x,y,z" / "x y z" string.
func (p Params) vec3(key string) (*Vec3, error) {
	v, ok := p[key]
	if !ok || v == nil {
		return nil, nil
	}
	var parts []any
	switch t := v.(type) {
	case []any:
		parts = t
	case []float64:
		for _, f := range t {
			parts = append(parts, f)
		}
	case string:
		for _, f := range strings.FieldsFunc(t, func(r rune) bool { return r == ',' || r == ' ' }) {
			parts = append(parts, f)
		}
	default:
		return nil, fmt.Errorf("%s: unsupported value %v", key, v)
	}
	if len(parts) != 3 {
		return nil, fmt.Errorf("%s: expected 3 values, got %d", key, len(parts))
	}
	var out Vec3
	for i, part := range parts {
		f, err := Params{key: part}.float(key, 0)
		if err != nil {
			return nil, err
		}
		out[i] = f
	}
	return &out, nil
}

// FromParams builds the named operation, applying the same defaults as the
// command line.
func FromParams(name string, p Params) (Operation, error) {
	switch name {
	case "build":
		return Build{Type: p.str("type", "default")}, nil
	case "material":
		return Material{Type: p.str("type", "principled"), Title: p.str("name", DefaultMaterial)}, nil
	case "lighting":
		energy, err := p.float("energy", DefaultEnergy)
		if err != nil {
			return nil, err
		}
		return Lighting{Type: p.str("type", "area"), Energy: energy}, nil
	case "camera":
		pos, err := p.vec3("position")
		if err != nil {
			return nil, err
		}
		return Camera{Type: p.str("type", "perspective"), Position: pos}, nil
	case "render":
		samples, err := p.int("samples", DefaultSamples)
		if err != nil {
			return nil, err
		}
		rx, err := p.int("resolution_x", 0)
		if err != nil {
			return nil, err
		}
		ry, err := p.int("resolution_y", 0)
		if err != nil {
			return nil, err
		}
		return Render{
			Engine:      p.str("engine", "cycles"),
			Samples:     samples,
			Output:      p.str("output", DefaultRenderPath),
			ResolutionX: rx,
			ResolutionY: ry,
		}, nil
	case "export":
		return Export{Format: p.str("format", "obj"), Output: p.str("output", DefaultExportPath)}, nil
	case "reset":
		return Reset{}, nil
	case "optimize":
		return Optimize{Level: p.str("level", DefaultOptimize)}, nil
	case "procedural":
		return Procedural{Type: p.str("type", DefaultProcedural)}, nil
	case "preview":
		rx, err := p.int("resolution_x", 0)
		if err != nil {
			return nil, err
		}
		ry, err := p.int("resolution_y", 0)
		if err != nil {
			return nil, err
		}
		return Preview{Object: p.str("object", ""), Output: p.str("output", ""), ResolutionX: rx, ResolutionY: ry}, nil
	case "python":
		code, _ := p["code"].(string)
		return Python{Code: code}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownOperation, name)
}
