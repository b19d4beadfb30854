// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

package scene

import (
	"fmt"
	"strings"

	"blender-engine/internal/render"
	"blender-engine/internal/script"
)

// Compile validates s and returns the script that builds it.
func Compile(s *Scene) (string, error) {
	if err := s.Validate(); err != nil {
		return "", err
	}
	return compile(s), nil
}

func compile(s *Scene) string {
	var c script.Code
	c.Imports("os")
	script.SetInputHelper(&c)
	c.Line("scene = bpy.context.scene")
	c.Line("materials = {}")
	if !s.Keep {
		c.Line("bpy.ops.object.select_all(action='SELECT')")
		c.Line("bpy.ops.object.delete(use_global=False)")
	}
	c.Blank()

	for _, m := range s.Materials {
		writeMaterial(&c, m)
	}
	for _, o := range s.Objects {
		writeObject(&c, o)
	}
	for _, l := range s.Lights {
		writeLight(&c, l)
	}
	for i, st := range s.Stages {
		c.Linef("print(%s)", script.Quote(fmt.Sprintf("Step %d/%d: %s...", i+1, len(s.Stages), st.Name)))
		for _, o := range st.Objects {
			writeObject(&c, o)
		}
		for _, l := range st.Lights {
			writeLight(&c, l)
		}
		c.Linef("print(%s)", script.Quote(st.Name+" complete!"))
		c.Blank()
	}
	if s.Camera != nil {
		writeCamera(&c, *s.Camera)
	}
	if s.World != nil {
		writeWorld(&c, *s.World)
	}
	if s.Render != nil {
		writeRender(&c, *s.Render)
	}

	c.Linef("print(%s)", script.Quote(fmt.Sprintf("Scene %s built: %d objects, %d lights", s.Name, s.ObjectCount(), s.LightCount())))
	if s.Render != nil && s.Render.Output != "" {
		c.Line("print(f'Output saved to: {scene.render.filepath}')")
	}
	return c.String()
}

func writeMaterial(c *script.Code, m Material) {
	name := script.Quote(m.Name)
	c.Linef("mat = bpy.data.materials.new(name=%s)", name)
	c.Line("mat.use_nodes = True")
	c.Line("bsdf = mat.node_tree.nodes.get('Principled BSDF')")
	c.Line("if bsdf:")
	c.Indent()
	set := func(sockets string, value string) {
		c.Linef("set_input(bsdf, %s, %s)", sockets, value)
	}
	if m.BaseColor != nil {
		set("('Base Color',)", m.BaseColor.Py())
	}
	if m.Metallic != nil {
		set("('Metallic',)", script.Float(*m.Metallic))
	}
	if m.Roughness != nil {
		set("('Roughness',)", script.Float(*m.Roughness))
	}
	if m.EmissionColor != nil {
		set("('Emission Color', 'Emission')", m.EmissionColor.Py())
	}
	if m.EmissionStrength != nil {
		set("('Emission Strength',)", script.Float(*m.EmissionStrength))
	}
	if m.Transmission != nil {
		set(script.TransmissionInputs, script.Float(*m.Transmission))
	}
	if m.IOR != nil {
		set("('IOR',)", script.Float(*m.IOR))
	}
	if m.Alpha != nil {
		set("('Alpha',)", script.Float(*m.Alpha))
	}
	c.Line("pass")
	c.Dedent()
	if m.Alpha != nil && *m.Alpha < 1 {
		c.Line("mat.blend_method = 'BLEND'")
	}
	c.Linef("materials[%s] = mat", name)
	c.Blank()
}

func primitiveArgs(o Object) []string {
	var args []string
	opt := func(key string, v float64) {
		if v != 0 {
			args = append(args, key+"="+script.Float(v))
		}
	}
	switch o.Primitive {
	case "cube", "plane", "monkey":
		opt("size", o.Size)
	case "uv_sphere", "ico_sphere":
		opt("radius", o.Radius)
	case "cylinder":
		opt("radius", o.Radius)
		opt("depth", o.Depth)
	case "cone":
		opt("radius1", o.Radius)
		opt("depth", o.Depth)
	case "torus":
		opt("major_radius", o.Radius)
	}
	return append(args, "location="+o.Location.Py())
}

func writeObject(c *script.Code, o Object) {
	c.Linef("bpy.ops.mesh.%s(%s)", Primitives[o.Primitive], strings.Join(primitiveArgs(o), ", "))
	c.Line("obj = bpy.context.active_object")
	c.Linef("obj.name = %s", script.Quote(o.Name))
	if o.Scale != nil {
		c.Linef("obj.scale = %s", o.Scale.Py())
	}
	if o.Rotation != nil {
		c.Linef("obj.rotation_euler = %s", o.Rotation.Py())
	}
	if o.Material != "" {
		c.Linef("obj.data.materials.append(materials[%s])", script.Quote(o.Material))
	}
	if o.Smooth {
		c.Line("bpy.ops.object.shade_smooth()")
	}
}

func writeLight(c *script.Code, l Light) {
	c.Linef("bpy.ops.object.light_add(type='%s', location=%s)", strings.ToUpper(l.Type), l.Location.Py())
	c.Line("light = bpy.context.active_object")
	c.Linef("light.name = %s", script.Quote(l.Name))
	c.Linef("light.data.energy = %s", script.Float(l.Energy))
	if l.Size != 0 && l.Type == "area" {
		c.Linef("light.data.size = %s", script.Float(l.Size))
	}
	if l.Color != nil {
		c.Linef("light.data.color = %s", l.Color.Py())
	}
	if l.Rotation != nil {
		c.Linef("light.rotation_euler = %s", l.Rotation.Py())
	}
}

func writeCamera(c *script.Code, cam Camera) {
	c.Linef("bpy.ops.object.camera_add(location=%s)", cam.Location.Py())
	c.Line("camera = bpy.context.active_object")
	c.Linef("camera.name = %s", script.Quote(cam.Name))
	switch {
	case cam.Rotation != nil:
		c.Linef("camera.rotation_euler = %s", cam.Rotation.Py())
	default:
		target := script.Vec3{}
		if cam.LookAt != nil {
			target = *cam.LookAt
		}
		c.Line("from mathutils import Vector")
		c.Linef("direction = Vector(%s) - camera.location", target.Py())
		c.Line("camera.rotation_euler = direction.to_track_quat('-Z', 'Y').to_euler()")
	}
	if cam.Lens != 0 {
		c.Linef("camera.data.lens = %s", script.Float(cam.Lens))
	}
	c.Line("scene.camera = camera")
	c.Blank()
}

func writeWorld(c *script.Code, w World) {
	c.Line("world = scene.world")
	c.Line("if world is None:")
	c.Indent()
	c.Line("world = bpy.data.worlds.new('World')")
	c.Line("scene.world = world")
	c.Dedent()
	c.Line("world.use_nodes = True")
	c.Line("background = world.node_tree.nodes.get('Background')")
	c.Line("if background:")
	c.Indent()
	c.Linef("background.inputs['Color'].default_value = %s", w.Color.Py())
	if w.Strength != nil {
		c.Linef("background.inputs['Strength'].default_value = %s", script.Float(*w.Strength))
	}
	c.Dedent()
	c.Blank()
}

func writeRender(c *script.Code, r Render) {
	engine, _ := script.BlenderEngine(r.Engine)
	samples := r.Samples
	if samples == 0 {
		samples = script.DefaultSamples
	}
	script.WriteEngine(c, engine, samples)
	if r.ResolutionX != 0 {
		c.Linef("scene.render.resolution_x = %d", r.ResolutionX)
	}
	if r.ResolutionY != 0 {
		c.Linef("scene.render.resolution_y = %d", r.ResolutionY)
	}
	if r.Output != "" {
		c.Linef("scene.render.filepath = %s", script.Quote(r.Output))
		if f, ok := render.FormatForPath(r.Output); ok {
			c.Linef("scene.render.image_settings.file_format = %s", script.Quote(f.BlenderName()))
		}
		c.Line("os.makedirs(os.path.dirname(scene.render.filepath) or '.', exist_ok=True)")
		c.Line("bpy.ops.render.render(write_still=True)")
	}
	c.Blank()
}
