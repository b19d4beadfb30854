package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"blender-engine/internal/blender"
	"blender-engine/internal/config"
	"blender-engine/internal/engine"
	"blender-engine/internal/logger"
	"blender-engine/internal/runner"
	"blender-engine/internal/script"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	logger.SetLogger(logger.Discard())
	os.Exit(m.Run())
}

func TestSetConfigValue(t *testing.T) {
	tests := []struct {
		key, value string
		check      func(t *testing.T, cfg config.Config)
		wantErr    string
	}{
		{key: "blender_path", value: "/opt/blender/blender", check: func(t *testing.T, cfg config.Config) {
			assert.Equal(t, "/opt/blender/blender", cfg.BlenderPath)
		}},
		{key: "timeout", value: "10m", check: func(t *testing.T, cfg config.Config) {
			assert.Equal(t, 10*time.Minute, cfg.EffectiveTimeout())
		}},
		{key: "timeout", value: "", check: func(t *testing.T, cfg config.Config) {
			assert.Equal(t, config.DefaultTimeout, cfg.EffectiveTimeout())
		}},
		{key: "output_dir", value: "~/renders", check: func(t *testing.T, cfg config.Config) {
			assert.Equal(t, "~/renders", cfg.OutputDir)
		}},
		{key: "render.engine", value: "eevee", check: func(t *testing.T, cfg config.Config) {
			assert.Equal(t, "eevee", cfg.Render.Engine)
		}},
		{key: "render.samples", value: "64", check: func(t *testing.T, cfg config.Config) {
			assert.Equal(t, 64, cfg.Render.Samples)
		}},
		{key: "render.resolution_y", value: "720", check: func(t *testing.T, cfg config.Config) {
			assert.Equal(t, 720, cfg.Render.ResolutionY)
		}},
		{key: "timeout", value: "soon", wantErr: "invalid timeout"},
		{key: "timeout", value: "-1s", wantErr: "must be positive"},
		{key: "output_dir", value: "renders", wantErr: "must be absolute"},
		{key: "render.engine", value: "povray", wantErr: "invalid choice"},
		{key: "render.samples", value: "0", wantErr: "positive integer"},
		{key: "colour", value: "red", wantErr: `unknown setting "colour"`},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			cfg := config.Config{Timeout: config.Duration(time.Minute)}
			err := setConfigValue(&cfg, tt.key, tt.value)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}

func TestNewAgentLocal(t *testing.T) {
	cfg := config.Config{BlenderPath: "/opt/blender/blender", BlendFile: "/tmp/scene.blend"}

	agent, err := newAgent(cfg, globalOptions{})
	require.NoError(t, err)
	assert.False(t, agent.Target.IsRemote)
	assert.Equal(t, "/opt/blender/blender", agent.Executable)
	assert.Equal(t, "/tmp/scene.blend", agent.BlendFile)
	assert.Equal(t, config.DefaultTimeout, agent.Timeout)
	assert.False(t, agent.DryRun)
}

func TestNewAgentFlagsWin(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	cfg := config.Config{BlendFile: "/tmp/scene.blend", Timeout: config.Duration(time.Minute)}

	agent, err := newAgent(cfg, globalOptions{blend: "~/work.blend", timeout: 5 * time.Second, dryRun: true})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "work.blend"), agent.BlendFile)
	assert.Equal(t, 5*time.Second, agent.Timeout)
	assert.True(t, agent.DryRun)
	assert.Equal(t, blender.Resolve(""), agent.Executable)
}

func TestNewAgentRemote(t *testing.T) {
	cfg := config.Config{
		BlenderPath: "/usr/local/bin/blender",
		BlendFile:   "~/scene.blend",
		SSHHosts: []config.SSHHost{
			{Name: "farm", Hostname: "farm.local", User: "render", BlenderPath: "/opt/blender/blender"},
			{Name: "old", Hostname: "old.local", User: "render", Disabled: true},
		},
	}

	agent, err := newAgent(cfg, globalOptions{host: "farm"})
	require.NoError(t, err)
	assert.True(t, agent.Target.IsRemote)
	assert.Equal(t, "farm", agent.Target.ServerName)
	assert.Equal(t, "/opt/blender/blender", agent.Executable)
	assert.Equal(t, "~/scene.blend", agent.BlendFile, "remote paths are expanded by the remote shell")

	agent, err = newAgent(cfg, globalOptions{host: "local"})
	require.NoError(t, err)
	assert.False(t, agent.Target.IsRemote)

	_, err = newAgent(cfg, globalOptions{host: "old"})
	assert.ErrorContains(t, err, "disabled")
	_, err = newAgent(cfg, globalOptions{host: "nowhere"})
	assert.ErrorContains(t, err, "not found")
}

func flagCommand(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "render"}
	cmd.Flags().String("engine", "cycles", "")
	cmd.Flags().Int("samples", 128, "")
	cmd.Flags().Int("resolution-x", 0, "")
	cmd.Flags().Float64("energy", 1, "")
	cmd.Flags().Float64Slice("position", []float64{0, 0, 0}, "")
	require.NoError(t, cmd.ParseFlags(args))
	return cmd
}

func TestParamsFromFlags(t *testing.T) {
	cmd := flagCommand(t, "--engine", "eevee", "--resolution-x", "640", "--energy", "2.5", "--position", "1,2,3")

	p := paramsFromFlags(cmd)
	assert.Equal(t, script.Params{
		"engine":       "eevee",
		"resolution_x": 640,
		"energy":       2.5,
		"position":     []float64{1, 2, 3},
	}, p)
	assert.NotContains(t, p, "samples", "unset flags are left to the operation defaults")
}

func TestApplyConfigDefaultsRender(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Config{
		OutputDir: dir,
		Render:    config.RenderDefaults{Engine: "eevee", Samples: 16, ResolutionX: 1280},
	}
	local := &engine.BlenderAgent{Target: runner.LocalTarget()}

	p := script.Params{"samples": 4, "format": "jpg"}
	applyConfigDefaults("render", p, cfg, local)
	assert.Equal(t, "eevee", p["engine"])
	assert.Equal(t, 4, p["samples"], "flags win over the configuration")
	assert.Equal(t, 1280, p["resolution_x"])
	assert.NotContains(t, p, "resolution_y")
	assert.NotContains(t, p, "format")
	assert.Equal(t, filepath.Join(dir, "render.jpg"), p["output"])

	p = script.Params{"output": "/tmp/mine.png"}
	applyConfigDefaults("render", p, cfg, local)
	assert.Equal(t, "/tmp/mine.png", p["output"])

	remote := &engine.BlenderAgent{Target: runner.RemoteTarget(&config.SSHHost{Name: "farm"})}
	p = script.Params{}
	applyConfigDefaults("render", p, config.Config{OutputDir: "~/renders"}, remote)
	assert.Equal(t, "~/renders/render.png", p["output"])

	p = script.Params{}
	applyConfigDefaults("render", p, config.Config{}, local)
	assert.NotContains(t, p, "output", "no output_dir leaves the operation default")
}

func TestApplyConfigDefaultsExport(t *testing.T) {
	local := &engine.BlenderAgent{Target: runner.LocalTarget()}

	p := script.Params{}
	applyConfigDefaults("export", p, config.Config{OutputDir: "/srv/out"}, local)
	assert.Equal(t, "/srv/out/export", p["output"])

	p = script.Params{"output": "/tmp/x"}
	applyConfigDefaults("export", p, config.Config{OutputDir: "/srv/out"}, local)
	assert.Equal(t, "/tmp/x", p["output"])

	p = script.Params{"type": "sun"}
	applyConfigDefaults("lighting", p, config.Config{OutputDir: "/srv/out"}, local)
	assert.Equal(t, script.Params{"type": "sun"}, p)
}

func TestSelectHosts(t *testing.T) {
	hosts := []config.PotentialHost{{Alias: "a"}, {Alias: "b"}, {Alias: "c"}}

	got, err := selectHosts("ALL", hosts)
	require.NoError(t, err)
	assert.Equal(t, hosts, got)

	got, err = selectHosts(" 3, 1,3 ", hosts)
	require.NoError(t, err)
	assert.Equal(t, []config.PotentialHost{{Alias: "c"}, {Alias: "a"}}, got)

	for _, bad := range []string{"0", "4", "two", "1,,2"} {
		_, err := selectHosts(bad, hosts)
		assert.ErrorContains(t, err, "invalid selection", bad)
	}
}

func TestImportableHosts(t *testing.T) {
	potential := []config.PotentialHost{{Alias: "farm"}, {Alias: "local"}, {Alias: "studio"}}
	existing := []config.SSHHost{{Name: "farm"}}

	assert.Equal(t, []config.PotentialHost{{Alias: "studio"}}, importableHosts(potential, existing))
	assert.Empty(t, importableHosts(nil, existing))
}

func newTestPrompter(input string) (*prompter, *bytes.Buffer) {
	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetIn(strings.NewReader(input))
	cmd.SetOut(&out)
	return newPrompter(cmd), &out
}

func TestPrompter(t *testing.T) {
	p, out := newTestPrompter("  studio \n\n2200\nnope\nYes")

	name, err := p.String("Name:", true)
	require.NoError(t, err)
	assert.Equal(t, "studio", name)

	port, err := p.OptionalInt("Port", 22)
	require.NoError(t, err)
	assert.Equal(t, 22, port)

	port, err = p.OptionalInt("Port", 22)
	require.NoError(t, err)
	assert.Equal(t, 2200, port)

	ok, err := p.Confirm("Remove?")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = p.Confirm("Remove?")
	require.NoError(t, err, "a final line without newline is still an answer")
	assert.True(t, ok)

	_, err = p.String("More:", false)
	assert.Error(t, err, "input exhausted")

	assert.Contains(t, out.String(), "Port (default: 22): ")
	assert.Contains(t, out.String(), "Remove? (y/N): ")
}

func TestPrompterRequired(t *testing.T) {
	p, _ := newTestPrompter("\n")
	_, err := p.String("Name:", true)
	assert.ErrorContains(t, err, "required")
}

func TestPromptForAuthDetails(t *testing.T) {
	tests := []struct {
		input    string
		wantKey  string
		wantPass string
		wantErr  bool
	}{
		{input: "1\n~/.ssh/id_ed25519\n", wantKey: "~/.ssh/id_ed25519"},
		{input: "\n"},
		{input: "3\nhunter2\n", wantPass: "hunter2"},
		{input: "7\n", wantErr: true},
	}
	for _, tt := range tests {
		p, _ := newTestPrompter(tt.input)
		host := config.SSHHost{Name: "farm", KeyPath: "/old/key", Password: "old"}
		err := promptForAuthDetails(p, &host)
		if tt.wantErr {
			assert.Error(t, err, tt.input)
			continue
		}
		require.NoError(t, err, tt.input)
		assert.Equal(t, tt.wantKey, host.KeyPath, tt.input)
		assert.Equal(t, tt.wantPass, host.Password, tt.input)
	}
}

func TestPrintDryRun(t *testing.T) {
	var buf bytes.Buffer
	step := runner.Step{
		Name:       "python",
		Invocation: blender.Invocation{Executable: "blender", Code: "print('hi')"},
		Target:     runner.LocalTarget(),
	}
	printDryRun(&buf, step)

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "--- Script (python) ---\nprint('hi')\n--- Command (local) ---\n"), out)
	assert.Contains(t, out, "blender '--background' '--python-expr'")
}

func TestPrintResults(t *testing.T) {
	pf := &engine.PipelineFile{Tasks: []engine.PipelineTask{{Type: "render"}, {Type: "export"}, {Type: "analysis"}}}

	var buf bytes.Buffer
	err := printResults(&buf, pf, []engine.TaskResult{
		{Status: engine.StatusCompleted, Duration: 1500 * time.Millisecond, Artifacts: map[string]string{"output": "/tmp/r.png"}},
		{Status: engine.StatusFailed, Error: "blender exited with status 1"},
	})
	require.Error(t, err)
	assert.Equal(t, "1 of 2 task(s) did not complete", err.Error())
	out := buf.String()
	assert.Contains(t, out, "1. render [completed] 1.5s")
	assert.Contains(t, out, "   output: /tmp/r.png")
	assert.Contains(t, out, "2. export [failed]")
	assert.Contains(t, out, "   blender exited with status 1")
	assert.Contains(t, out, "1 task(s) not run after the failure.")

	buf.Reset()
	pf.Tasks = pf.Tasks[:1]
	require.NoError(t, printResults(&buf, pf, []engine.TaskResult{{Status: engine.StatusCompleted}}))
	assert.Contains(t, buf.String(), "All 1 task(s) completed.")
}

func TestFilterPrefix(t *testing.T) {
	names := []string{"local", "farm", "farm-2", "studio"}
	assert.Equal(t, []string{"farm", "farm-2"}, filterPrefix(names, "fa"))
	assert.Equal(t, names, filterPrefix(names, ""))
	assert.Equal(t, []string{}, filterPrefix(names, "x"))
}

func TestParamsFromFlagsSkipsPersistentFlags(t *testing.T) {
	var got script.Params
	parent := &cobra.Command{Use: "bt"}
	parent.PersistentFlags().String("host", "", "")
	child := &cobra.Command{
		Use: "lighting",
		RunE: func(cmd *cobra.Command, args []string) error {
			got = paramsFromFlags(cmd)
			return nil
		},
	}
	child.Flags().String("type", "area", "")
	child.Flags().Float64("energy", 100, "")
	parent.AddCommand(child)
	parent.SetArgs([]string{"--host", "farm", "lighting", "--type", "sun"})

	require.NoError(t, parent.Execute())
	assert.Equal(t, script.Params{"type": "sun"}, got)
}

func TestDryRunCommand(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(config.PathEnvVar, filepath.Join(dir, "config.yaml"))
	t.Cleanup(func() {
		opts = globalOptions{}
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	tests := []struct {
		name    string
		args    []string
		want    []string
		notWant []string
	}{
		{
			name: "lighting",
			args: []string{"--dry-run", "lighting", "--type", "sun"},
			want: []string{"--- Script (lighting) ---", "SUN", "--- Command (local) ---"},
		},
		{
			name: "render",
			args: []string{"--dry-run", "render", "--engine", "eevee", "--samples", "7", "--output", "/tmp/x.exr"},
			want:    []string{"BLENDER_EEVEE", "= 7", `"/tmp/x.exr"`, `"OPEN_EXR"`},
			notWant: []string{"CYCLES", "/tmp/render.png"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			rootCmd.SetOut(&out)
			rootCmd.SetArgs(tt.args)
			require.NoError(t, rootCmd.Execute())
			for _, w := range tt.want {
				assert.Contains(t, out.String(), w)
			}
			for _, w := range tt.notWant {
				assert.NotContains(t, out.String(), w)
			}
		})
	}
}

func TestRenderResolutionDefaultsDocumented(t *testing.T) {
	assert.Contains(t, renderCmd.Flags().Lookup("resolution-x").Usage, "1920")
	assert.Contains(t, renderCmd.Flags().Lookup("resolution-y").Usage, "1080")

	var buf bytes.Buffer
	printConfig(&buf, "/tmp/config.yaml", config.Config{})
	assert.Contains(t, buf.String(), "resolution_x: [default: 1920]")
	assert.Contains(t, buf.String(), "resolution_y: [default: 1080]")
}
