// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

// Package blender knows how to locate the Blender executable and how to turn a
// generated script into a background command line.
package blender

import (
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strconv"
)

// DefaultExecutable is used when no candidate is found on PATH.
const DefaultExecutable = "blender"

// Candidates are the executable names tried, in order, by FindExecutable.
var Candidates = []string{"blender", "blender3.6", "blender3.7", "blender3.8", "blender4.0", "blender4.1"}

// LookPathFunc resolves an executable name. It is exec.LookPath outside tests.
type LookPathFunc func(file string) (string, error)

// FindExecutable returns the first candidate that resolves on PATH, or
// DefaultExecutable when none does. The returned value is the bare name, not
// the resolved path, so it behaves the same on a remote host.
func FindExecutable(lookPath LookPathFunc, candidates []string) string {
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	for _, name := range candidates {
		if _, err := lookPath(name); err == nil {
			return name
		}
	}
	return DefaultExecutable
}

// Resolve returns the configured executable if set, otherwise the result of FindExecutable.
func Resolve(configured string) string {
	if configured != "" {
		return configured
	}
	return FindExecutable(exec.LookPath, Candidates)
}

// Invocation describes one background run of Blender.
type Invocation struct {
	// Executable is the Blender binary to run.
	Executable string
	// Flags are Blender options placed right after --background, e.g. --version.
	Flags []string
	// BlendFile is opened before the script runs when set.
	BlendFile string
	// Code is passed with --python-expr. It takes precedence over ScriptFile.
	Code string
	// ScriptFile is passed with --python.
	ScriptFile string
	// ExtraArgs are appended after a "--" separator and reach the script via sys.argv.
	ExtraArgs []string
	// PythonExitCode makes Blender exit with this status when the script
	// raises. Blender otherwise exits 0 after a Python traceback.
	PythonExitCode int
}

// Args returns the argv for the invocation, executable excluded.
func (inv Invocation) Args() []string {
	args := []string{"--background"}
	args = append(args, inv.Flags...)
	if inv.BlendFile != "" {
		args = append(args, inv.BlendFile)
	}
	if inv.PythonExitCode > 0 && (inv.Code != "" || inv.ScriptFile != "") {
		args = append(args, "--python-exit-code", strconv.Itoa(inv.PythonExitCode))
	}
	switch {
	case inv.Code != "":
		args = append(args, "--python-expr", inv.Code)
	case inv.ScriptFile != "":
		args = append(args, "--python", inv.ScriptFile)
	}
	if len(inv.ExtraArgs) > 0 {
		args = append(args, "--")
		args = append(args, inv.ExtraArgs...)
	}
	return args
}

// Command returns the full argv including the executable.
func (inv Invocation) Command() []string {
	exe := inv.Executable
	if exe == "" {
		exe = DefaultExecutable
	}
	return append([]string{exe}, inv.Args()...)
}

// SessionFile returns the .blend file to open before a script runs against
// the session at path. A local file that does not exist yet is not opened;
// the script's save step creates it. Remote paths cannot be checked and are
// always opened.
func SessionFile(path string, remote bool) string {
	if path == "" || remote {
		return path
	}
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

// VersionArgs are the flags used to query the installed version.
var VersionArgs = []string{"--version"}

// VersionInvocation queries the version of executable.
func VersionInvocation(executable string) Invocation {
	return Invocation{Executable: executable, Flags: VersionArgs}
}

var versionPattern = regexp.MustCompile(`(?m)^Blender (\d+)\.(\d+)(?:\.(\d+))?`)

// Version is a parsed Blender release number.
type Version struct {
	Major, Minor, Patch int
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// AtLeast reports whether v is the same as or newer than major.minor.
func (v Version) AtLeast(major, minor int) bool {
	if v.Major != major {
		return v.Major > major
	}
	return v.Minor >= minor
}

// ParseVersion extracts the version from `blender --version` output.
func ParseVersion(output string) (Version, error) {
	m := versionPattern.FindStringSubmatch(output)
	if m == nil {
		return Version{}, fmt.Errorf("no Blender version found in output")
	}
	if m[3] == "" {
		m[3] = "0"
	}
	var parts [3]int
	for i, s := range m[1:4] {
		n, err := strconv.Atoi(s)
		if err != nil {
			return Version{}, fmt.Errorf("invalid Blender version %q: %w", m[0], err)
		}
		parts[i] = n
	}
	return Version{Major: parts[0], Minor: parts[1], Patch: parts[2]}, nil
}
