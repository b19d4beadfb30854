// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

// Package render manages output locations and file formats for renders.
package render

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Format is a render output file format.
type Format string

const (
	FormatPNG     Format = "png"
	FormatJPEG    Format = "jpg"
	FormatOpenEXR Format = "exr"
	FormatTIFF    Format = "tif"
	FormatMPEG4   Format = "mp4"
	FormatAVI     Format = "avi"
)

type formatInfo struct {
	extension string
	blender   string
}

var formats = map[Format]formatInfo{
	FormatPNG:     {".png", "PNG"},
	FormatJPEG:    {".jpg", "JPEG"},
	FormatOpenEXR: {".exr", "OPEN_EXR"},
	FormatTIFF:    {".tif", "TIFF"},
	FormatMPEG4:   {".mp4", "FFMPEG"},
	FormatAVI:     {".avi", "AVI"},
}

// Formats lists the supported formats in a stable order.
func Formats() []Format {
	return []Format{FormatPNG, FormatJPEG, FormatOpenEXR, FormatTIFF, FormatMPEG4, FormatAVI}
}

// Valid reports whether f is a known format.
func (f Format) Valid() bool {
	_, ok := formats[f]
	return ok
}

// Extension returns the file extension including the dot. Unknown formats map to ".png".
func (f Format) Extension() string {
	if info, ok := formats[f]; ok {
		return info.extension
	}
	return ".png"
}

// BlenderName returns the image_settings.file_format identifier. Unknown formats map to "PNG".
func (f Format) BlenderName() string {
	if info, ok := formats[f]; ok {
		return info.blender
	}
	return "PNG"
}

// ParseFormat maps a name such as "PNG" or "exr" to a Format, falling back to PNG.
func ParseFormat(name string) Format {
	f := Format(strings.ToLower(strings.TrimPrefix(strings.TrimSpace(name), ".")))
	switch f {
	case "jpeg":
		return FormatJPEG
	case "tiff":
		return FormatTIFF
	}
	if f.Valid() {
		return f
	}
	return FormatPNG
}

// FormatForPath picks the format from a file extension. ok is false when the
// extension is missing or unknown.
func FormatForPath(path string) (Format, bool) {
	ext := strings.ToLower(filepath.Ext(path))
	for _, f := range Formats() {
		if f.Extension() == ext {
			return f, true
		}
	}
	if ext == ".jpeg" {
		return FormatJPEG, true
	}
	if ext == ".tiff" {
		return FormatTIFF, true
	}
	return "", false
}

// Settings configures where and how renders are written.
type Settings struct {
	OutputDir   string
	Format      Format
	ResolutionX int
	ResolutionY int
	FPS         int
	Compression int
}

// DefaultSettings returns 1920x1080 PNG output at 24 fps and 90% compression.
func DefaultSettings(outputDir string) Settings {
	return Settings{
		OutputDir:   outputDir,
		Format:      FormatPNG,
		ResolutionX: 1920,
		ResolutionY: 1080,
		FPS:         24,
		Compression: 90,
	}
}

// DefaultOutputDir is ~/blender_renders.
func DefaultOutputDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "blender_renders")
	}
	return filepath.Join(home, "blender_renders")
}

// Output manages render output paths for one Settings value.
type Output struct {
	Settings Settings
}

// New creates the output directory and returns an Output for s.
func New(s Settings) (*Output, error) {
	if s.OutputDir == "" {
		s.OutputDir = DefaultOutputDir()
	}
	if err := os.MkdirAll(s.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory %s: %w", s.OutputDir, err)
	}
	return &Output{Settings: s}, nil
}

// NewFromOptions builds an Output from loosely typed options. Unknown format
// names fall back to PNG.
func NewFromOptions(outputDir, format string, resolutionX, resolutionY int) (*Output, error) {
	s := DefaultSettings(outputDir)
	s.Format = ParseFormat(format)
	if resolutionX != 0 {
		s.ResolutionX = resolutionX
	}
	if resolutionY != 0 {
		s.ResolutionY = resolutionY
	}
	return New(s)
}

// OutputPath returns OutputDir/name plus the format extension.
func (o *Output) OutputPath(name string) string {
	return filepath.Join(o.Settings.OutputDir, name+o.Settings.Format.Extension())
}

// FramePath returns the path of frame n of an animation, e.g. base_0007.png.
func (o *Output) FramePath(base string, n int) string {
	return filepath.Join(o.Settings.OutputDir, fmt.Sprintf("%s_%04d%s", base, n, o.Settings.Format.Extension()))
}

var (
	ErrOutputDirMissing  = errors.New("output directory does not exist")
	ErrUnknownFormat     = errors.New("unknown render format")
	ErrInvalidResolution = errors.New("resolution must be positive")
)

// Validate checks that the output directory exists, the format is known and
// the resolution is positive.
func (o *Output) Validate() error {
	info, err := os.Stat(o.Settings.OutputDir)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("%w: %s", ErrOutputDirMissing, o.Settings.OutputDir)
	}
	if !o.Settings.Format.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownFormat, o.Settings.Format)
	}
	if o.Settings.ResolutionX <= 0 || o.Settings.ResolutionY <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidResolution, o.Settings.ResolutionX, o.Settings.ResolutionY)
	}
	return nil
}

func (o *Output) String() string {
	return fmt.Sprintf("render.Output(path=%s, format=%s, resolution=%dx%d)",
		o.Settings.OutputDir, o.Settings.Format, o.Settings.ResolutionX, o.Settings.ResolutionY)
}
