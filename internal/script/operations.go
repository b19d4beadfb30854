// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

package script

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"blender-engine/internal/render"
)

// Defaults used when a parameter is not given.
const (
	DefaultEnergy      = 100.0
	DefaultSamples     = 128
	DefaultRenderPath  = "/tmp/render.png"
	DefaultExportPath  = "/tmp/export"
	DefaultMaterial    = "NewMaterial"
	DefaultOptimize    = "medium"
	DefaultProcedural  = "terrain"
	DefaultPreviewDir  = "~/blender_previews"
	defaultResolutionX = 1920
	defaultResolutionY = 1080
)

// DefaultCameraPosition is where the camera is placed when no position is given.
var DefaultCameraPosition = Vec3{0, -10, 5}

// clearScene deletes every object in the current scene.
func clearScene(c *Code) {
	c.Line("bpy.ops.object.select_all(action='SELECT')")
	c.Line("bpy.ops.object.delete(use_global=False)")
}

// deleteByType removes all objects of one Blender object type.
func deleteByType(c *Code, objType string) {
	c.Line("bpy.ops.object.select_all(action='DESELECT')")
	c.Line("for obj in bpy.data.objects:")
	c.Indent()
	c.Linef("if obj.type == %s:", Quote(objType))
	c.Indent()
	c.Line("obj.select_set(True)")
	c.Dedent()
	c.Dedent()
	c.Line("bpy.ops.object.delete()")
}

// SetInputHelper defines the Python function set_input, which writes the
// first of several socket names that exists on a node.
// Several Principled BSDF inputs were renamed in Blender 4.0.
func SetInputHelper(c *Code) {
	c.Line("def set_input(node, names, value):")
	c.Indent()
	c.Line("for name in names:")
	c.Indent()
	c.Line("if name in node.inputs:")
	c.Indent()
	c.Line("node.inputs[name].default_value = value")
	c.Line("return")
	c.Dedent()
	c.Dedent()
	c.Dedent()
	c.Blank()
}

// TransmissionInputs names the transmission socket before and after 4.0.
const TransmissionInputs = `("Transmission Weight", "Transmission")`

// Build creates a starter scene.
type Build struct {
	Type string
}

func (Build) Name() string    { return "build" }
func (Build) Validate() error { return nil }

func (b Build) Script() string {
	var c Code
	c.Imports()
	clearScene(&c)
	c.Line("for collection in bpy.data.collections:")
	c.Indent()
	c.Line("for obj in list(collection.objects):")
	c.Indent()
	c.Line("bpy.data.objects.remove(obj)")
	c.Dedent()
	c.Dedent()
	c.Blank()
	switch b.Type {
	case "default":
		c.Line("bpy.ops.mesh.primitive_cube_add(size=2, location=(0, 0, 1))")
		c.Line("bpy.ops.mesh.primitive_plane_add(size=10, location=(0, 0, 0))")
	case "architectural":
		c.Line("bpy.ops.mesh.primitive_cube_add(size=3, location=(0, 0, 1.5))")
		c.Line("bpy.ops.mesh.primitive_plane_add(size=20, location=(0, 0, 0))")
		c.Line("bpy.ops.mesh.primitive_cube_add(size=1, location=(2, 2, 0.5))")
	case "character":
		c.Line("bpy.ops.mesh.primitive_uv_sphere_add(radius=1, location=(0, 0, 2))")
		c.Line("bpy.ops.mesh.primitive_cylinder_add(radius=0.3, depth=1.5, location=(0, 0, 0.8))")
		c.Line("bpy.ops.mesh.primitive_cone_add(radius1=0.8, depth=0.8, location=(0, 0, 3))")
	default:
		c.Line("bpy.ops.mesh.primitive_cube_add(size=1, location=(0, 0, 0.5))")
		c.Line("bpy.ops.mesh.primitive_plane_add(size=5, location=(0, 0, 0))")
	}
	c.Blank()
	c.Linef("print(%s)", Quote("Scene built successfully with type: "+b.Type))
	return c.String()
}

// Material creates a node material and assigns it to the active object.
type Material struct {
	Type string
	// Title is the material's data-block name.
	Title string
}

func (Material) Name() string { return "material" }

func (m Material) Validate() error {
	if strings.TrimSpace(m.Title) == "" {
		return errors.New("material name is empty")
	}
	return nil
}

func (m Material) Script() string {
	var c Code
	c.Imports()
	SetInputHelper(&c)
	c.Linef("mat = bpy.data.materials.new(name=%s)", Quote(m.Title))
	c.Line("mat.use_nodes = True")
	c.Line("nodes = mat.node_tree.nodes")
	c.Line("links = mat.node_tree.links")
	c.Line("nodes.clear()")
	c.Blank()
	c.Line("output = nodes.new('ShaderNodeOutputMaterial')")
	c.Line("output.location = (400, 0)")
	c.Blank()
	if m.Type == "emission" {
		c.Line("emission = nodes.new('ShaderNodeEmission')")
		c.Line("emission.location = (0, 0)")
		c.Line("emission.inputs['Color'].default_value = (1, 0.2, 0.2, 1)")
		c.Line("emission.inputs['Strength'].default_value = 5")
		c.Line("links.new(emission.outputs['Emission'], output.inputs['Surface'])")
	} else {
		c.Line("principled = nodes.new('ShaderNodeBsdfPrincipled')")
		c.Line("principled.location = (0, 0)")
		switch m.Type {
		case "glass":
			c.Linef("set_input(principled, %s, 1.0)", TransmissionInputs)
			c.Line("set_input(principled, ('Roughness',), 0.0)")
			c.Line("set_input(principled, ('IOR',), 1.45)")
		case "metallic":
			c.Line("set_input(principled, ('Metallic',), 1.0)")
			c.Line("set_input(principled, ('Roughness',), 0.2)")
		case "wood":
			c.Line("set_input(principled, ('Base Color',), (0.4, 0.2, 0.1, 1))")
			c.Line("set_input(principled, ('Roughness',), 0.7)")
		}
		c.Line("links.new(principled.outputs['BSDF'], output.inputs['Surface'])")
	}
	c.Blank()
	c.Line("obj = bpy.context.active_object")
	c.Line("if obj is None:")
	c.Indent()
	c.Line("print('No active object to apply material')")
	c.Dedent()
	c.Line("elif obj.data is None or not hasattr(obj.data, 'materials'):")
	c.Indent()
	c.Line("print('Active object has no material slot')")
	c.Dedent()
	c.Line("else:")
	c.Indent()
	c.Line("obj.data.materials.append(mat)")
	c.Dedent()
	c.Blank()
	c.Linef("print(%s)", Quote(fmt.Sprintf("Material '%s' created with type: %s", m.Title, m.Type)))
	return c.String()
}

// Lighting replaces the scene's lights with a preset rig.
type Lighting struct {
	Type   string
	Energy float64
}

func (Lighting) Name() string { return "lighting" }

func (l Lighting) Validate() error {
	if !Finite(l.Energy) || l.Energy < 0 {
		return fmt.Errorf("invalid light energy %v", l.Energy)
	}
	return nil
}

func (l Lighting) Script() string {
	e := Float(l.Energy)
	var c Code
	c.Imports("math")
	deleteByType(&c, "LIGHT")
	c.Blank()
	add := func(kind, loc string) {
		c.Linef("bpy.ops.object.light_add(type='%s', location=%s)", kind, loc)
		c.Line("light = bpy.context.active_object")
	}
	switch l.Type {
	case "sun":
		add("SUN", "(0, 0, 10)")
		c.Linef("light.data.energy = %s", e)
		c.Line("light.rotation_euler = (math.radians(45), 0, math.radians(45))")
	case "point":
		add("POINT", "(3, 3, 3)")
		c.Linef("light.data.energy = %s", e)
	case "spot":
		add("SPOT", "(0, 0, 5)")
		c.Linef("light.data.energy = %s", e)
		c.Line("light.data.spot_size = math.radians(45)")
	case "three-point":
		add("AREA", "(5, 5, 5)")
		c.Line("light.name = 'KeyLight'")
		c.Linef("light.data.energy = %s", e)
		c.Line("light.rotation_euler = (math.radians(-45), 0, math.radians(45))")
		add("AREA", "(-5, 0, 3)")
		c.Line("light.name = 'FillLight'")
		c.Linef("light.data.energy = %s", Float(l.Energy*0.5))
		add("AREA", "(0, -5, 4)")
		c.Line("light.name = 'BackLight'")
		c.Linef("light.data.energy = %s", Float(l.Energy*0.3))
	case "hdri":
		// Only the world node tree is prepared; an environment texture has to
		// be supplied separately.
		c.Line("world = bpy.context.scene.world")
		c.Line("if world is None:")
		c.Indent()
		c.Line("world = bpy.data.worlds.new('World')")
		c.Line("bpy.context.scene.world = world")
		c.Dedent()
		c.Line("world.use_nodes = True")
		c.Line("nodes = world.node_tree.nodes")
		c.Line("nodes.clear()")
		c.Line("background = nodes.new('ShaderNodeBackground')")
		c.Linef("background.inputs['Strength'].default_value = %s", Float(l.Energy/DefaultEnergy))
		c.Line("output = nodes.new('ShaderNodeOutputWorld')")
		c.Line("output.location = (300, 0)")
		c.Line("world.node_tree.links.new(background.outputs['Background'], output.inputs['Surface'])")
	default:
		add("AREA", "(0, 0, 5)")
		c.Linef("light.data.energy = %s", e)
		c.Line("light.data.size = 5")
	}
	c.Blank()
	c.Linef("print(%s)", Quote(fmt.Sprintf("Lighting setup complete with type: %s, energy: %s", l.Type, e)))
	return c.String()
}

// Camera replaces the scene camera and aims it at the origin.
type Camera struct {
	Type     string
	Position *Vec3
}

func (Camera) Name() string { return "camera" }

func (cam Camera) Validate() error {
	if cam.Position != nil && !Finite(cam.Position[:]...) {
		return fmt.Errorf("invalid camera position %v", *cam.Position)
	}
	return nil
}

func (cam Camera) position() Vec3 {
	if cam.Position == nil {
		return DefaultCameraPosition
	}
	return *cam.Position
}

func (cam Camera) Script() string {
	pos := cam.position()
	var c Code
	c.Imports("math")
	deleteByType(&c, "CAMERA")
	c.Blank()
	c.Linef("bpy.ops.object.camera_add(location=%s)", pos.Py())
	c.Line("camera = bpy.context.active_object")
	c.Line("bpy.context.scene.camera = camera")
	c.Blank()
	switch cam.Type {
	case "orthographic":
		c.Line("camera.data.type = 'ORTHO'")
		c.Line("camera.data.ortho_scale = 10")
	case "fisheye":
		c.Line("camera.data.type = 'PANO'")
		c.Line("if hasattr(camera.data, 'panorama_type'):")
		c.Indent()
		c.Line("camera.data.panorama_type = 'FISHEYE_EQUIDISTANT'")
		c.Line("camera.data.fisheye_fov = math.radians(180)")
		c.Dedent()
		c.Line("else:")
		c.Indent()
		c.Line("camera.data.cycles.panorama_type = 'FISHEYE_EQUIDISTANT'")
		c.Line("camera.data.cycles.fisheye_fov = math.radians(180)")
		c.Dedent()
	case "panoramic":
		c.Line("camera.data.type = 'PANO'")
		c.Line("if hasattr(camera.data, 'panorama_type'):")
		c.Indent()
		c.Line("camera.data.panorama_type = 'EQUIRECTANGULAR'")
		c.Dedent()
		c.Line("else:")
		c.Indent()
		c.Line("camera.data.cycles.panorama_type = 'EQUIRECTANGULAR'")
		c.Dedent()
	default:
		c.Line("camera.data.type = 'PERSP'")
	}
	c.Blank()
	c.Line("direction = -camera.location")
	c.Line("camera.rotation_euler = direction.to_track_quat('-Z', 'Y').to_euler()")
	c.Blank()
	c.Linef("print(%s)", Quote(fmt.Sprintf("Camera setup complete with type: %s at position: %s", cam.Type, pos.Py())))
	return c.String()
}

// blenderEngines maps CLI engine names to Blender's identifiers.
var blenderEngines = map[string]string{
	"cycles":    "CYCLES",
	"eevee":     "BLENDER_EEVEE",
	"workbench": "BLENDER_WORKBENCH",
}

// BlenderEngine returns the Blender identifier for a CLI engine name.
func BlenderEngine(name string) (string, bool) {
	id, ok := blenderEngines[strings.ToLower(name)]
	return id, ok
}

// Render renders a still image of the current scene.
type Render struct {
	Engine      string
	Samples     int
	Output      string
	ResolutionX int
	ResolutionY int
}

func (Render) Name() string { return "render" }

func (r Render) Validate() error {
	if _, ok := BlenderEngine(r.Engine); !ok {
		return CheckChoice("engine", r.Engine, RenderEngines)
	}
	if r.Samples <= 0 {
		return fmt.Errorf("samples must be positive, got %d", r.Samples)
	}
	if r.ResolutionX < 0 || r.ResolutionY < 0 {
		return fmt.Errorf("%w: %dx%d", render.ErrInvalidResolution, r.ResolutionX, r.ResolutionY)
	}
	return nil
}

// Path returns the image file the render writes.
func (r Render) Path() string {
	if r.Output == "" {
		return DefaultRenderPath
	}
	return r.Output
}

func (r Render) Script() string {
	engine, _ := BlenderEngine(r.Engine)
	rx, ry := r.ResolutionX, r.ResolutionY
	if rx == 0 {
		rx = defaultResolutionX
	}
	if ry == 0 {
		ry = defaultResolutionY
	}
	out := r.Path()

	var c Code
	c.Imports("os")
	c.Line("scene = bpy.context.scene")
	WriteEngine(&c, engine, r.Samples)
	c.Blank()
	c.Linef("scene.render.resolution_x = %d", rx)
	c.Linef("scene.render.resolution_y = %d", ry)
	c.Linef("scene.render.filepath = %s", Quote(out))
	if f, ok := render.FormatForPath(out); ok {
		c.Linef("scene.render.image_settings.file_format = %s", Quote(f.BlenderName()))
	}
	c.Line("output_dir = os.path.dirname(scene.render.filepath)")
	c.Line("if output_dir:")
	c.Indent()
	c.Line("os.makedirs(output_dir, exist_ok=True)")
	c.Dedent()
	c.Blank()
	c.Line("if scene.camera is None:")
	c.Indent()
	c.Line("raise RuntimeError('Scene has no camera to render from')")
	c.Dedent()
	c.Line("bpy.ops.render.render(write_still=True)")
	c.Blank()
	c.Linef("print(%s)", Quote(fmt.Sprintf("Render complete using %s engine with %d samples", r.Engine, r.Samples)))
	c.Linef("print(%s)", Quote("Output saved to: "+out))
	return c.String()
}

// WriteEngine sets the render engine and its sample count on the Python
// variable `scene`.
func WriteEngine(c *Code, engine string, samples int) {
	switch engine {
	case "BLENDER_EEVEE":
		// Blender 4.2 renamed EEVEE.
		c.Line("try:")
		c.Indent()
		c.Line("scene.render.engine = 'BLENDER_EEVEE'")
		c.Dedent()
		c.Line("except TypeError:")
		c.Indent()
		c.Line("scene.render.engine = 'BLENDER_EEVEE_NEXT'")
		c.Dedent()
		c.Linef("scene.eevee.taa_render_samples = %d", samples)
	case "CYCLES":
		c.Line("scene.render.engine = 'CYCLES'")
		c.Linef("scene.cycles.samples = %d", samples)
		c.Line("scene.cycles.device = 'CPU'")
	default:
		c.Linef("scene.render.engine = %s", Quote(engine))
	}
}

type exportFormat struct {
	ext   string
	label string
	call  func(c *Code, path string)
}

var exportFormats = map[string]exportFormat{
	"obj": {".obj", "OBJ", func(c *Code, path string) {
		c.Line("if hasattr(bpy.ops.wm, 'obj_export'):")
		c.Indent()
		c.Linef("bpy.ops.wm.obj_export(filepath=%s, export_selected_objects=False, export_normals=True, export_triangulated_mesh=True, export_materials=True)", path)
		c.Dedent()
		c.Line("else:")
		c.Indent()
		c.Linef("bpy.ops.export_scene.obj(filepath=%s, use_selection=False, use_normals=True, use_triangles=True, use_materials=True)", path)
		c.Dedent()
	}},
	"fbx": {".fbx", "FBX", func(c *Code, path string) {
		c.Linef("bpy.ops.export_scene.fbx(filepath=%s, use_selection=False, bake_anim=False)", path)
	}},
	"gltf": {".glb", "glTF", func(c *Code, path string) {
		c.Linef("bpy.ops.export_scene.gltf(filepath=%s, export_format='GLB', use_selection=False)", path)
	}},
	"usd": {".usd", "USD", func(c *Code, path string) {
		c.Linef("bpy.ops.wm.usd_export(filepath=%s, selected_objects_only=False)", path)
	}},
	"stl": {".stl", "STL", func(c *Code, path string) {
		c.Line("if hasattr(bpy.ops.wm, 'stl_export'):")
		c.Indent()
		c.Linef("bpy.ops.wm.stl_export(filepath=%s, export_selected_objects=False)", path)
		c.Dedent()
		c.Line("else:")
		c.Indent()
		c.Linef("bpy.ops.export_mesh.stl(filepath=%s, use_selection=False)", path)
		c.Dedent()
	}},
}

// Export writes the scene to an interchange format.
type Export struct {
	Format string
	Output string
}

func (Export) Name() string { return "export" }

func (e Export) Validate() error { return nil }

// Path returns the output path with the format's extension, or "" for
// unsupported formats.
func (e Export) Path() string {
	f, ok := exportFormats[e.Format]
	if !ok {
		return ""
	}
	out := e.Output
	if out == "" {
		out = DefaultExportPath
	}
	if strings.EqualFold(filepath.Ext(out), f.ext) {
		return out
	}
	return out + f.ext
}

func (e Export) Script() string {
	var c Code
	f, ok := exportFormats[e.Format]
	if !ok {
		c.Imports()
		c.Linef("print(%s)", Quote("Unsupported export format: "+e.Format))
		c.Linef("print(%s)", Quote("Supported formats: "+strings.Join(ExportFormats, ", ")))
		return c.String()
	}
	path := e.Path()
	c.Imports("os")
	c.Linef("output_dir = os.path.dirname(%s)", Quote(path))
	c.Line("if output_dir:")
	c.Indent()
	c.Line("os.makedirs(output_dir, exist_ok=True)")
	c.Dedent()
	c.Blank()
	f.call(&c, Quote(path))
	c.Blank()
	c.Linef("print(%s)", Quote(fmt.Sprintf("Exported to %s format: %s", f.label, path)))
	return c.String()
}

// Reset clears the scene and its data blocks.
type Reset struct{}

func (Reset) Name() string    { return "reset" }
func (Reset) Validate() error { return nil }

func (Reset) Script() string {
	var c Code
	c.Imports()
	clearScene(&c)
	c.Blank()
	for _, block := range []string{"materials", "meshes", "lights", "cameras"} {
		c.Linef("for block in list(bpy.data.%s):", block)
		c.Indent()
		c.Linef("bpy.data.%s.remove(block)", block)
		c.Dedent()
	}
	c.Blank()
	c.Line("bpy.context.scene.render.engine = 'CYCLES'")
	c.Linef("bpy.context.scene.cycles.samples = %d", DefaultSamples)
	c.Blank()
	c.Line("print('Scene reset complete')")
	return c.String()
}

// DecimateThreshold is the polygon count above which Optimize decimates a mesh.
const DecimateThreshold = 10000

// Optimize trades render quality for speed and decimates heavy meshes.
type Optimize struct {
	Level string
}

func (Optimize) Name() string { return "optimize" }

func (o Optimize) Validate() error {
	return CheckChoice("level", o.Level, OptimizationLevels)
}

func (o Optimize) Script() string {
	var c Code
	c.Imports()
	c.Line("scene = bpy.context.scene")
	switch o.Level {
	case "low":
		WriteEngine(&c, "BLENDER_EEVEE", 32)
		c.Line("scene.cycles.samples = 64")
		c.Line("scene.cycles.use_adaptive_sampling = True")
	case "medium":
		WriteEngine(&c, "CYCLES", 128)
		c.Line("scene.cycles.use_adaptive_sampling = True")
		c.Line("scene.cycles.blur_glossy = 0.5")
	case "high":
		WriteEngine(&c, "CYCLES", 256)
		c.Line("scene.cycles.use_adaptive_sampling = True")
		c.Line("scene.cycles.blur_glossy = 0.8")
		c.Line("scene.cycles.max_bounces = 4")
		c.Line("scene.cycles.diffuse_bounces = 2")
		c.Line("scene.cycles.glossy_bounces = 2")
		c.Line("scene.cycles.transmission_bounces = 2")
		c.Line("scene.cycles.volume_bounces = 0")
	}
	c.Blank()
	c.Line("decimated = 0")
	c.Line("for obj in bpy.data.objects:")
	c.Indent()
	c.Linef("if obj.type == 'MESH' and len(obj.data.polygons) > %d:", DecimateThreshold)
	c.Indent()
	c.Line("bpy.context.view_layer.objects.active = obj")
	c.Line("modifier = obj.modifiers.new(name='Decimate', type='DECIMATE')")
	c.Line("modifier.ratio = 0.5")
	c.Line("bpy.ops.object.modifier_apply(modifier=modifier.name)")
	c.Line("decimated += 1")
	c.Dedent()
	c.Dedent()
	c.Blank()
	c.Linef("print(%s, decimated)", Quote("Meshes decimated:"))
	c.Linef("print(%s)", Quote("Scene optimization complete at level: "+o.Level))
	return c.String()
}

// Procedural replaces the scene with generated content.
type Procedural struct {
	Type string
}

func (Procedural) Name() string    { return "procedural" }
func (Procedural) Validate() error { return nil }

func (p Procedural) Script() string {
	var c Code
	switch p.Type {
	case "clouds", "fractal":
		c.Imports("math", "random")
	default:
		c.Imports()
	}
	SetInputHelper(&c)
	clearScene(&c)
	c.Blank()
	switch p.Type {
	case "terrain":
		c.Line("bpy.ops.mesh.primitive_plane_add(size=20, location=(0, 0, 0))")
		c.Line("terrain = bpy.context.active_object")
		c.Line("subsurf = terrain.modifiers.new(name='Subdivision', type='SUBSURF')")
		c.Line("subsurf.subdivision_type = 'SIMPLE'")
		c.Line("subsurf.levels = 6")
		c.Line("subsurf.render_levels = 6")
		c.Line("texture = bpy.data.textures.new('TerrainTexture', 'CLOUDS')")
		c.Line("texture.noise_scale = 2.0")
		c.Line("displace = terrain.modifiers.new(name='Displace', type='DISPLACE')")
		c.Line("displace.texture = texture")
		c.Line("displace.strength = 2.0")
		c.Line("bpy.ops.object.shade_smooth()")
	case "clouds":
		c.Line("for i in range(5):")
		c.Indent()
		c.Line("location = (random.uniform(-10, 10), random.uniform(-10, 10), random.uniform(5, 10))")
		c.Line("bpy.ops.mesh.primitive_ico_sphere_add(radius=random.uniform(3, 6), location=location)")
		c.Line("cloud = bpy.context.active_object")
		c.Line("mat = bpy.data.materials.new(name=f'CloudMaterial{i}')")
		c.Line("mat.use_nodes = True")
		c.Line("mat.blend_method = 'BLEND'")
		c.Line("principled = mat.node_tree.nodes.get('Principled BSDF')")
		c.Line("if principled:")
		c.Indent()
		c.Line("set_input(principled, ('Alpha',), 0.3)")
		c.Dedent()
		c.Line("cloud.data.materials.append(mat)")
		c.Line("bpy.ops.object.shade_smooth()")
		c.Dedent()
	case "water":
		c.Line("bpy.ops.mesh.primitive_plane_add(size=30, location=(0, 0, 0))")
		c.Line("water = bpy.context.active_object")
		c.Line("mat = bpy.data.materials.new(name='WaterMaterial')")
		c.Line("mat.use_nodes = True")
		c.Line("mat.blend_method = 'BLEND'")
		c.Line("principled = mat.node_tree.nodes.get('Principled BSDF')")
		c.Line("if principled:")
		c.Indent()
		c.Line("set_input(principled, ('Base Color',), (0.1, 0.3, 0.5, 1))")
		c.Line("set_input(principled, ('Roughness',), 0.1)")
		c.Linef("set_input(principled, %s, 1.0)", TransmissionInputs)
		c.Line("set_input(principled, ('IOR',), 1.33)")
		c.Dedent()
		c.Line("water.data.materials.append(mat)")
		c.Line("subsurf = water.modifiers.new(name='Subdivision', type='SUBSURF')")
		c.Line("subsurf.subdivision_type = 'SIMPLE'")
		c.Line("subsurf.levels = 5")
		c.Line("texture = bpy.data.textures.new('WaterTexture', 'CLOUDS')")
		c.Line("texture.noise_scale = 1.0")
		c.Line("displace = water.modifiers.new(name='Displace', type='DISPLACE')")
		c.Line("displace.texture = texture")
		c.Line("displace.strength = 0.5")
		c.Line("bpy.ops.object.shade_smooth()")
	case "fractal":
		c.Line("for i in range(50):")
		c.Indent()
		c.Line("location = (i * 0.5 - 12.5, math.sin(i * 0.5) * 3, math.cos(i * 0.3) * 2)")
		c.Line("bpy.ops.mesh.primitive_cube_add(size=0.3, location=location)")
		c.Line("cube = bpy.context.active_object")
		c.Line("cube.rotation_euler.z = i * 0.1")
		c.Line("mat = bpy.data.materials.new(name=f'FractalMaterial{i}')")
		c.Line("mat.use_nodes = True")
		c.Line("nodes = mat.node_tree.nodes")
		c.Line("emission = nodes.new('ShaderNodeEmission')")
		c.Line("emission.inputs['Color'].default_value = (")
		c.Indent()
		c.Line("math.sin(i * 0.1) * 0.5 + 0.5,")
		c.Line("math.sin(i * 0.1 + 2) * 0.5 + 0.5,")
		c.Line("math.sin(i * 0.1 + 4) * 0.5 + 0.5,")
		c.Line("1,")
		c.Dedent()
		c.Line(")")
		c.Line("emission.inputs['Strength'].default_value = 3")
		c.Line("output = nodes.get('Material Output')")
		c.Line("if output:")
		c.Indent()
		c.Line("mat.node_tree.links.new(emission.outputs['Emission'], output.inputs['Surface'])")
		c.Dedent()
		c.Line("cube.data.materials.append(mat)")
		c.Dedent()
	default:
		c.Line("bpy.ops.mesh.primitive_cube_add(size=1, location=(0, 0, 0.5))")
		c.Linef("print(%s)", Quote("Created default procedural object of type: "+p.Type))
	}
	c.Blank()
	c.Linef("print(%s)", Quote("Procedural generation complete: "+p.Type))
	return c.String()
}

// Preview sets up a neutral camera, sun and backdrop, then renders a still of
// one object.
type Preview struct {
	Object      string
	Output      string
	ResolutionX int
	ResolutionY int
	// SkipSetup keeps the scene's own camera and lights.
	SkipSetup bool
}

func (Preview) Name() string { return "preview" }

func (p Preview) Validate() error {
	if strings.TrimSpace(p.Object) == "" {
		return errors.New("no object given")
	}
	if p.ResolutionX < 0 || p.ResolutionY < 0 {
		return fmt.Errorf("%w: %dx%d", render.ErrInvalidResolution, p.ResolutionX, p.ResolutionY)
	}
	return nil
}

// Path returns where the preview is written. A leading "~/" is left for
// Python to expand on the host that runs Blender.
func (p Preview) Path() string {
	if p.Output != "" {
		return p.Output
	}
	return DefaultPreviewDir + "/" + p.Object + "_preview.png"
}

func (p Preview) Script() string {
	rx, ry := p.ResolutionX, p.ResolutionY
	if rx == 0 {
		rx = 640
	}
	if ry == 0 {
		ry = 480
	}
	var c Code
	c.Imports("os", "sys")
	c.Linef("name = %s", Quote(p.Object))
	c.Line("if name not in bpy.data.objects:")
	c.Indent()
	c.Line("print(f'Object not found: {name}', file=sys.stderr)")
	c.Line("sys.exit(1)")
	c.Dedent()
	c.Blank()
	if !p.SkipSetup {
		c.Line("bpy.ops.object.camera_add(location=(10, -10, 10))")
		c.Line("camera = bpy.context.active_object")
		c.Line("camera.name = 'PreviewCamera'")
		c.Line("camera.rotation_euler = (0.785, 0, 0.785)")
		c.Line("bpy.context.scene.camera = camera")
		c.Blank()
		c.Line("bpy.ops.object.light_add(type='SUN', location=(5, 5, 10))")
		c.Line("light = bpy.context.active_object")
		c.Line("light.name = 'PreviewSun'")
		c.Line("light.data.energy = 3")
		c.Blank()
		c.Line("world = bpy.context.scene.world")
		c.Line("if world is None:")
		c.Indent()
		c.Line("world = bpy.data.worlds.new('World')")
		c.Line("bpy.context.scene.world = world")
		c.Dedent()
		c.Line("world.use_nodes = True")
		c.Line("background = world.node_tree.nodes.get('Background')")
		c.Line("if background:")
		c.Indent()
		c.Line("background.inputs['Color'].default_value = (0.1, 0.1, 0.1, 1)")
		c.Dedent()
		c.Blank()
	}
	c.Line("scene = bpy.context.scene")
	c.Line("scene.render.engine = 'CYCLES'")
	c.Linef("scene.render.resolution_x = %d", rx)
	c.Linef("scene.render.resolution_y = %d", ry)
	format := render.FormatPNG
	if f, ok := render.FormatForPath(p.Path()); ok {
		format = f
	}
	c.Linef("scene.render.image_settings.file_format = %s", Quote(format.BlenderName()))
	c.Line("hidden = {}")
	c.Line("for obj in scene.objects:")
	c.Indent()
	c.Line("if obj.type not in ('CAMERA', 'LIGHT'):")
	c.Indent()
	c.Line("hidden[obj.name] = obj.hide_render")
	c.Line("obj.hide_render = obj.name != name")
	c.Dedent()
	c.Dedent()
	c.Linef("path = os.path.expanduser(%s)", Quote(p.Path()))
	c.Line("os.makedirs(os.path.dirname(path) or '.', exist_ok=True)")
	c.Line("scene.render.filepath = path")
	c.Line("bpy.ops.render.render(write_still=True)")
	c.Line("for obj_name, state in hidden.items():")
	c.Indent()
	c.Line("scene.objects[obj_name].hide_render = state")
	c.Dedent()
	c.Line("print(f'Preview saved to: {path}')")
	return c.String()
}
