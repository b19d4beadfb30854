// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

package scene

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
)

//go:embed presets/*.yaml
var embeddedPresets embed.FS

// PresetFS returns the embedded preset documents.
func PresetFS() fs.FS {
	sub, err := fs.Sub(embeddedPresets, "presets")
	if err != nil {
		panic(err)
	}
	return sub
}

// PresetNames lists the built-in presets, sorted.
func PresetNames() []string {
	entries, err := fs.ReadDir(PresetFS(), ".")
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".yaml") {
			names = append(names, strings.TrimSuffix(e.Name(), ".yaml"))
		}
	}
	sort.Strings(names)
	return names
}

// PresetSource returns the raw YAML of a preset.
func PresetSource(name string) ([]byte, error) {
	data, err := fs.ReadFile(PresetFS(), path.Clean(name)+".yaml")
	if err != nil {
		return nil, fmt.Errorf("unknown preset %q (available: %s)", name, strings.Join(PresetNames(), ", "))
	}
	return data, nil
}

// Preset parses a built-in preset.
func Preset(name string) (*Scene, error) {
	data, err := PresetSource(name)
	if err != nil {
		return nil, err
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("preset %s: %w", name, err)
	}
	return s, nil
}
