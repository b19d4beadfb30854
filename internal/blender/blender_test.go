package blender

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeLookPath(available ...string) LookPathFunc {
	set := map[string]bool{}
	for _, a := range available {
		set[a] = true
	}
	return func(file string) (string, error) {
		if set[file] {
			return "/usr/bin/" + file, nil
		}
		return "", errors.New("not found")
	}
}

func TestFindExecutable(t *testing.T) {
	assert.Equal(t, "blender", FindExecutable(fakeLookPath("blender", "blender4.0"), Candidates))
	assert.Equal(t, "blender4.0", FindExecutable(fakeLookPath("blender4.0", "blender4.1"), Candidates))
	assert.Equal(t, DefaultExecutable, FindExecutable(fakeLookPath(), Candidates))
}

func TestResolve_ConfiguredWins(t *testing.T) {
	assert.Equal(t, "/opt/blender/blender", Resolve("/opt/blender/blender"))
}

func TestInvocationArgs(t *testing.T) {
	tests := []struct {
		name string
		inv  Invocation
		want []string
	}{
		{
			name: "inline code",
			inv:  Invocation{Executable: "blender", Code: "import bpy"},
			want: []string{"blender", "--background", "--python-expr", "import bpy"},
		},
		{
			name: "script file",
			inv:  Invocation{Executable: "blender", ScriptFile: "scene.py"},
			want: []string{"blender", "--background", "--python", "scene.py"},
		},
		{
			name: "code wins over file",
			inv:  Invocation{Code: "x", ScriptFile: "scene.py"},
			want: []string{"blender", "--background", "--python-expr", "x"},
		},
		{
			name: "blend file and extra args",
			inv:  Invocation{Executable: "b", BlendFile: "s.blend", ScriptFile: "f.py", ExtraArgs: []string{"a"}},
			want: []string{"b", "--background", "s.blend", "--python", "f.py", "--", "a"},
		},
		{
			name: "python exit code",
			inv:  Invocation{Executable: "b", Code: "x", PythonExitCode: 1},
			want: []string{"b", "--background", "--python-exit-code", "1", "--python-expr", "x"},
		},
		{
			name: "exit code ignored without script",
			inv:  Invocation{Executable: "b", PythonExitCode: 1},
			want: []string{"b", "--background"},
		},
		{
			name: "version query",
			inv:  VersionInvocation("blender4.1"),
			want: []string{"blender4.1", "--background", "--version"},
		},
		{
			name: "bare",
			inv:  Invocation{Executable: "b"},
			want: []string{"b", "--background"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.inv.Command())
		})
	}
}

func TestParseVersion(t *testing.T) {
	v, err := ParseVersion("Blender 4.1.1\n\tbuild date: 2024-04-16\n")
	require.NoError(t, err)
	assert.Equal(t, Version{4, 1, 1}, v)
	assert.Equal(t, "4.1.1", v.String())
	assert.True(t, v.AtLeast(4, 0))
	assert.True(t, v.AtLeast(3, 9))
	assert.False(t, v.AtLeast(4, 2))

	v, err = ParseVersion("Read prefs...\nBlender 3.6\n")
	require.NoError(t, err)
	assert.Equal(t, Version{3, 6, 0}, v)

	_, err = ParseVersion("command not found")
	assert.Error(t, err)

	_, err = ParseVersion("Blender 4.99999999999999999999.0")
	assert.ErrorContains(t, err, "invalid Blender version")
}

func TestSessionFile(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, "scene.blend")
	require.NoError(t, os.WriteFile(existing, []byte("BLENDER"), 0644))
	missing := filepath.Join(dir, "new.blend")

	assert.Equal(t, existing, SessionFile(existing, false))
	assert.Empty(t, SessionFile(missing, false))
	assert.Equal(t, missing, SessionFile(missing, true))
	assert.Empty(t, SessionFile("", true))
}
