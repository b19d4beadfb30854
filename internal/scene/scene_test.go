package scene

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"blender-engine/internal/script"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPresetsAreValid(t *testing.T) {
	names := PresetNames()
	assert.Equal(t, []string{"modern-house", "test-scene"}, names)

	for _, name := range names {
		t.Run(name, func(t *testing.T) {
			s, err := Preset(name)
			require.NoError(t, err)
			assert.Equal(t, name, s.Name)
			require.NoError(t, s.Validate())
			_, err = Compile(s)
			require.NoError(t, err)
		})
	}
}

func TestTestScenePreset(t *testing.T) {
	s, err := Preset("test-scene")
	require.NoError(t, err)
	assert.Equal(t, 2, s.ObjectCount())
	assert.Equal(t, 2, s.LightCount())

	out, err := Compile(s)
	require.NoError(t, err)
	assert.Contains(t, out, `obj.name = "TestCube"`)
	assert.Contains(t, out, `obj.data.materials.append(materials["MetalMaterial"])`)
	assert.Contains(t, out, "set_input(bsdf, ('Metallic',), 1)")
	assert.Contains(t, out, "light.data.energy = 500")
	assert.Contains(t, out, "light.data.color = (1, 0.9, 0.8)")
	assert.Contains(t, out, "camera.rotation_euler = (0.7, 0, 0.785)")
	assert.Contains(t, out, "scene.cycles.samples = 128")
	assert.Contains(t, out, `scene.render.filepath = "/tmp/blender_render/test_scene.png"`)
	assert.Contains(t, out, "bpy.ops.render.render(write_still=True)")
}

func TestRenderOutputSetsFileFormat(t *testing.T) {
	s, err := Preset("test-scene")
	require.NoError(t, err)
	s.Render.Output = "/tmp/blender_render/test_scene.exr"

	out, err := Compile(s)
	require.NoError(t, err)
	assert.Contains(t, out, `scene.render.filepath = "/tmp/blender_render/test_scene.exr"`)
	assert.Contains(t, out, `scene.render.image_settings.file_format = "OPEN_EXR"`)
	assert.Less(t, strings.Index(out, "file_format"), strings.Index(out, "bpy.ops.render.render("))

	s.Render.Output = "/tmp/blender_render/test_scene.png"
	out, err = Compile(s)
	require.NoError(t, err)
	assert.Contains(t, out, `scene.render.image_settings.file_format = "PNG"`)
}

func TestModernHouseStagesInOrder(t *testing.T) {
	s, err := Preset("modern-house")
	require.NoError(t, err)
	require.Len(t, s.Stages, 8)

	out, err := Compile(s)
	require.NoError(t, err)

	last := -1
	for i, st := range s.Stages {
		marker := `print("Step ` + string(rune('1'+i)) + `/8: ` + st.Name + `...")`
		idx := strings.Index(out, marker)
		require.GreaterOrEqual(t, idx, 0, marker)
		assert.Greater(t, idx, last)
		last = idx
	}
	assert.NotContains(t, out, "render.render(", "no output configured")
	assert.Contains(t, out, "background.inputs['Color'].default_value = (0.5, 0.7, 0.9, 1)")
}

func TestValidateCollectsProblems(t *testing.T) {
	s, err := Parse([]byte(`
name: broken
materials:
  - name: Steel
  - name: Steel
objects:
  - {name: A, primitive: cube, material: Steel}
  - {name: A, primitive: teapot}
  - {name: B, primitive: cube, material: Gold}
lights:
  - {name: L, type: laser, energy: 10}
render:
  engine: luxcore
  output: /tmp/x.png
`))
	require.NoError(t, err)

	err = s.Validate()
	require.ErrorIs(t, err, ErrInvalidScene)
	msg := err.Error()
	assert.Contains(t, msg, `duplicate material "Steel"`)
	assert.Contains(t, msg, `duplicate name "A"`)
	assert.Contains(t, msg, `unknown primitive "teapot"`)
	assert.Contains(t, msg, `material "Gold" is not defined`)
	assert.Contains(t, msg, `unknown type "laser"`)
	assert.Contains(t, msg, "luxcore")
	assert.Contains(t, msg, "no camera")

	_, err = Compile(s)
	assert.ErrorIs(t, err, ErrInvalidScene)
}

func TestParseRejectsUnknownFields(t *testing.T) {
	_, err := Parse([]byte("name: x\ncolour: red\n"))
	assert.Error(t, err)

	_, err = Parse(nil)
	assert.ErrorIs(t, err, ErrInvalidScene)
}

func TestCameraLooksAtTarget(t *testing.T) {
	s := &Scene{
		Name:   "cam",
		Keep:   true,
		Camera: &Camera{Name: "Cam", Location: script.Vec3{0, -5, 0}, LookAt: &script.Vec3{0, 0, 1}, Lens: 35},
	}
	out, err := Compile(s)
	require.NoError(t, err)
	assert.Contains(t, out, "direction = Vector((0, 0, 1)) - camera.location")
	assert.Contains(t, out, "camera.data.lens = 35")
	assert.NotContains(t, out, "bpy.ops.object.delete", "keep leaves objects alone")
}

func TestOperationAdapter(t *testing.T) {
	s, err := Preset("test-scene")
	require.NoError(t, err)

	op := s.Operation()
	assert.Equal(t, "scene", op.Name())
	out, err := script.Generate(op, script.Options{SaveAs: "/tmp/s.blend"})
	require.NoError(t, err)
	assert.Contains(t, out, "save_as_mainfile")
}

func TestResolve(t *testing.T) {
	s, err := Resolve("test-scene")
	require.NoError(t, err)
	assert.Equal(t, "test-scene", s.Name)

	path := filepath.Join(t.TempDir(), "mine.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: mine\nobjects:\n  - {name: Box, primitive: cube, location: [1, 2, 3]}\n"), 0644))
	s, err = Resolve(path)
	require.NoError(t, err)
	assert.Equal(t, script.Vec3{1, 2, 3}, s.Objects[0].Location)

	_, err = Resolve("nope")
	assert.Error(t, err)

	_, err = PresetSource("../scene")
	assert.Error(t, err)
}
