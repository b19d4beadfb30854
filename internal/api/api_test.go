package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"blender-engine/internal/config"
	"blender-engine/internal/engine"
	"blender-engine/internal/logger"
	"blender-engine/internal/runner"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logger.SetLogger(logger.Discard())
	os.Exit(m.Run())
}

// recorder collects the steps a fake capture was asked to run.
type recorder struct {
	mu     sync.Mutex
	steps  []runner.Step
	result runner.Result
	err    error
}

func (r *recorder) capture(_ context.Context, step runner.Step) (runner.Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.steps = append(r.steps, step)
	return r.result, r.err
}

func newTestServer(t *testing.T, rec *recorder, cfg config.Config) *Server {
	t.Helper()
	agent := &engine.BlenderAgent{
		Executable: "blender",
		Target:     runner.LocalTarget(),
		Timeout:    time.Minute,
		Capture:    rec.capture,
	}
	return NewServer(agent, cfg)
}

// do sends a request; POST bodies are sent as JSON.
func do(t *testing.T, s *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	contentType := ""
	if method == "POST" {
		contentType = "application/json"
	}
	return doType(t, s, method, target, contentType, body)
}

func doType(t *testing.T, s *Server, method, target, contentType, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestRunOperation(t *testing.T) {
	rec := &recorder{result: runner.Result{Stdout: "Render saved\n", Duration: 2 * time.Second}}
	s := newTestServer(t, rec, config.Config{})

	w := do(t, s, "POST", "/api/run/render", `{"engine": "eevee", "samples": 8, "output": "/tmp/a.png"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	out := decode[RunOutput](t, w)
	require.Len(t, rec.steps, 1)
	step := rec.steps[0]
	assert.Equal(t, "render", step.Name)
	assert.Equal(t, step.Invocation.Code, out.Script)
	assert.Contains(t, out.Script, "BLENDER_EEVEE")
	assert.Contains(t, out.Script, "/tmp/a.png")
	assert.Equal(t, "Render saved\n", out.Stdout)
	assert.Equal(t, 0, out.ExitCode)
	assert.InDelta(t, 2.0, out.DurationSeconds, 0.001)
	assert.Empty(t, out.Error)
	assert.Empty(t, out.Command)
}

func TestRunEmptyBodyUsesDefaults(t *testing.T) {
	rec := &recorder{}
	s := newTestServer(t, rec, config.Config{})

	w := do(t, s, "POST", "/api/run/reset", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Len(t, rec.steps, 1)
	assert.Equal(t, "reset", rec.steps[0].Name)
}

func TestRunReportsBlenderFailure(t *testing.T) {
	rec := &recorder{
		result: runner.Result{Stderr: "Traceback", ExitCode: 1},
		err:    errors.New("step 'build' on local: blender exited with status 1"),
	}
	s := newTestServer(t, rec, config.Config{})

	w := do(t, s, "POST", "/api/run/build", `{"type": "character"}`)
	require.Equal(t, http.StatusOK, w.Code)
	out := decode[RunOutput](t, w)
	assert.Equal(t, 1, out.ExitCode)
	assert.Equal(t, "Traceback", out.Stderr)
	assert.Contains(t, out.Error, "exited with status 1")
}

func TestRunDryRun(t *testing.T) {
	rec := &recorder{}
	s := newTestServer(t, rec, config.Config{})

	w := do(t, s, "POST", "/api/run/python?dry_run=true", `{"code": "print('hi')"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	out := decode[RunOutput](t, w)
	assert.Empty(t, rec.steps, "dry run must not start Blender")
	assert.Equal(t, "print('hi')", out.Script)
	require.NotEmpty(t, out.Command)
	assert.Equal(t, "blender", out.Command[0])
	assert.Contains(t, out.Command, "--python-expr")
}

func TestRunAgentDryRun(t *testing.T) {
	rec := &recorder{}
	s := newTestServer(t, rec, config.Config{})
	s.Agent.DryRun = true

	w := do(t, s, "POST", "/api/run/build", `{"type": "character"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	out := decode[RunOutput](t, w)
	assert.Empty(t, rec.steps, "a dry-run agent must not start Blender")
	assert.NotEmpty(t, out.Script)
	require.NotEmpty(t, out.Command)
	assert.Equal(t, "blender", out.Command[0])
}

func TestRunRequiresJSONContentType(t *testing.T) {
	tests := []struct {
		name, contentType string
		want              int
	}{
		{"missing", "", http.StatusUnsupportedMediaType},
		{"form", "application/x-www-form-urlencoded", http.StatusUnsupportedMediaType},
		{"plain text", "text/plain", http.StatusUnsupportedMediaType},
		{"json", "application/json", http.StatusOK},
		{"json with charset", "application/json; charset=utf-8", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recorder{}
			s := newTestServer(t, rec, config.Config{})
			w := doType(t, s, "POST", "/api/run/python", tt.contentType, `{"code": "print('hi')"}`)
			require.Equal(t, tt.want, w.Code, w.Body.String())
			if tt.want != http.StatusOK {
				assert.Contains(t, decode[errorResponse](t, w).Error, "unsupported Content-Type")
				assert.Empty(t, rec.steps)
			}
		})
	}
}

func TestRunRejectsBadRequests(t *testing.T) {
	cfg := config.Config{SSHHosts: []config.SSHHost{{Name: "farm", Hostname: "f", User: "u"}}}
	tests := []struct {
		name, target, body, wantErr string
	}{
		{"unknown operation", "/api/run/explode", `{}`, `unknown operation "explode"`},
		{"generic task type", "/api/run/analysis", `{}`, `unknown operation "analysis"`},
		{"invalid json", "/api/run/build", `{"type":`, "invalid request body"},
		{"invalid choice", "/api/run/render", `{"engine": "povray"}`, "invalid choice"},
		{"bad number", "/api/run/lighting", `{"energy": "lots"}`, "not a number"},
		{"unknown host", "/api/run/build?host=elsewhere", `{}`, "not found"},
		{"preview without object", "/api/run/preview", `{}`, "no object given"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recorder{}
			w := do(t, newTestServer(t, rec, cfg), "POST", tt.target, tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, decode[errorResponse](t, w).Error, tt.wantErr)
			assert.Empty(t, rec.steps)
		})
	}
}

func TestRunOnRemoteHost(t *testing.T) {
	rec := &recorder{}
	cfg := config.Config{SSHHosts: []config.SSHHost{{Name: "farm", Hostname: "f", User: "u", BlenderPath: "/opt/blender/blender"}}}
	s := newTestServer(t, rec, cfg)

	w := do(t, s, "POST", "/api/run/optimize?host=farm", `{"level": "high"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Len(t, rec.steps, 1)
	step := rec.steps[0]
	assert.True(t, step.Target.IsRemote)
	assert.Equal(t, "farm", step.Target.ServerName)
	assert.Equal(t, "/opt/blender/blender", step.Invocation.Executable)
	assert.False(t, s.Agent.Target.IsRemote, "the template agent must not be retargeted")
}

func TestStreamOperation(t *testing.T) {
	s := newTestServer(t, &recorder{}, config.Config{})
	var got runner.Step
	s.Stream = func(_ context.Context, step runner.Step) (<-chan runner.OutputLine, <-chan error) {
		got = step
		out := make(chan runner.OutputLine, 3)
		errc := make(chan error, 1)
		out <- runner.OutputLine{Line: "Light created\n"}
		out <- runner.OutputLine{Line: "   "}
		out <- runner.OutputLine{Line: "deprecated call", IsError: true}
		close(out)
		errc <- errors.New("blender exited with status 1")
		close(errc)
		return out, errc
	}

	w := do(t, s, "GET", "/api/run/lighting/stream?type=sun&energy=3", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "lighting", got.Name)
	assert.Contains(t, got.Invocation.Code, "SUN")

	body := w.Body.String()
	want := []string{
		"event: step\ndata: lighting on local\n\n",
		"event: stdout\ndata: Light created\n\n",
		"event: stderr\ndata: deprecated call\n\n",
		"event: error\ndata: Error during step 'lighting': blender exited with status 1\n\n",
		"event: done\ndata: finished\n\n",
	}
	last := -1
	for _, ev := range want {
		i := strings.Index(body, ev)
		require.GreaterOrEqual(t, i, 0, "missing %q in %q", ev, body)
		assert.Greater(t, i, last, "events out of order")
		last = i
	}
	assert.Equal(t, len(want), strings.Count(body, "event: "), "blank lines are not sent")
}

func TestStreamRejectsUnknownOperation(t *testing.T) {
	s := newTestServer(t, &recorder{}, config.Config{})
	w := do(t, s, "GET", "/api/run/nothing/stream", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStreamRejectsPython(t *testing.T) {
	tests := []struct {
		name, target, wantErr string
	}{
		{"python operation", "/api/run/python/stream?code=import+os", `operation "python" cannot be streamed`},
		{"code parameter", "/api/run/build/stream?type=character&code=import+os", `parameter "code" is not accepted`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, &recorder{}, config.Config{})
			started := false
			s.Stream = func(context.Context, runner.Step) (<-chan runner.OutputLine, <-chan error) {
				started = true
				return nil, nil
			}
			req := httptest.NewRequest("GET", tt.target, nil)
			req.Header.Set("Origin", "https://elsewhere.example")
			w := httptest.NewRecorder()
			s.Handler().ServeHTTP(w, req)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, decode[errorResponse](t, w).Error, tt.wantErr)
			assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
			assert.False(t, started)
		})
	}
}

func TestStreamDryRun(t *testing.T) {
	s := newTestServer(t, &recorder{}, config.Config{})
	s.Agent.DryRun = true
	s.Stream = func(context.Context, runner.Step) (<-chan runner.OutputLine, <-chan error) {
		t.Fatal("a dry run must not start Blender")
		return nil, nil
	}

	w := do(t, s, "GET", "/api/run/lighting/stream?type=sun", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "event: step\ndata: lighting on local\n\n")
	assert.Contains(t, body, "event: script\ndata: ")
	assert.Contains(t, body, "SUN")
	assert.Contains(t, body, "event: command\ndata: blender '--background'")
	assert.True(t, strings.HasSuffix(body, "event: done\ndata: finished\n\n"))
}

func TestSendEventEscapesNewlines(t *testing.T) {
	var b strings.Builder
	sendEvent(&b, "stdout", "a\nb\n")
	assert.Equal(t, "event: stdout\ndata: a\\nb\n\n", b.String())
}

func TestPipelineAndStatus(t *testing.T) {
	rec := &recorder{result: runner.Result{Stdout: "ok"}}
	s := newTestServer(t, rec, config.Config{})

	body := `{"tasks": [{"type": "build", "input": {"type": "architectural"}}, {"type": "analysis", "input": {"file": "a.py"}}]}`
	w := do(t, s, "POST", "/api/pipeline", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := decode[PipelineResponse](t, w)
	assert.True(t, resp.Succeeded)
	assert.Zero(t, resp.Skipped)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, engine.StatusCompleted, resp.Results[0].Status)
	assert.Equal(t, "build", resp.Results[0].Output["operation"])
	assert.Equal(t, "echo", resp.Results[1].Output["agent_name"])
	require.Len(t, rec.steps, 1)

	w = do(t, s, "GET", "/api/engine/status", "")
	require.Equal(t, http.StatusOK, w.Code)
	status := decode[engine.Status](t, w)
	assert.Equal(t, []string{"blender", "echo"}, status.RegisteredAgents)
	assert.Equal(t, 2, status.CompletedTasks)
	assert.Zero(t, status.ActiveTasks)

	w = do(t, s, "GET", "/api/engine/history?task_id="+resp.Results[1].TaskID, "")
	history := decode[[]engine.TaskResult](t, w)
	require.Len(t, history, 1)
	assert.Equal(t, resp.Results[1].TaskID, history[0].TaskID)
}

func TestPipelineStopsOnFailure(t *testing.T) {
	rec := &recorder{result: runner.Result{ExitCode: 1}, err: errors.New("exited with status 1")}
	s := newTestServer(t, rec, config.Config{})

	body := "tasks:\n  - type: reset\n  - type: build\n"
	w := doType(t, s, "POST", "/api/pipeline", "application/yaml", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[PipelineResponse](t, w)
	assert.False(t, resp.Succeeded)
	assert.Equal(t, 1, resp.Skipped)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, engine.StatusFailed, resp.Results[0].Status)
}

func TestPipelineRequiresDocumentContentType(t *testing.T) {
	rec := &recorder{}
	s := newTestServer(t, rec, config.Config{})

	w := doType(t, s, "POST", "/api/pipeline", "text/plain", "tasks:\n  - type: reset\n")
	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
	assert.Empty(t, rec.steps)

	w = doType(t, s, "POST", "/api/pipeline", "application/x-yaml", "tasks:\n  - type: reset\n")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Len(t, rec.steps, 1)
}

func TestSceneTasksLimitedToPresets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "local.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: local\nobjects:\n  - type: cube\n"), 0o644))

	rec := &recorder{}
	s := newTestServer(t, rec, config.Config{})

	w := do(t, s, "POST", "/api/pipeline", `{"tasks": [{"type": "scene", "input": {"scene": "`+path+`"}}]}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[PipelineResponse](t, w)
	assert.False(t, resp.Succeeded)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, engine.StatusFailed, resp.Results[0].Status)
	assert.Contains(t, resp.Results[0].Error, "unknown scene preset")

	w = do(t, s, "POST", "/api/run/scene", `{"scene": "`+path+`"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode[errorResponse](t, w).Error, "unknown scene preset")
	assert.Empty(t, rec.steps)

	w = do(t, s, "POST", "/api/pipeline", `{"tasks": [{"type": "scene", "input": {"scene": "test-scene"}}]}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, decode[PipelineResponse](t, w).Succeeded)
	assert.Len(t, rec.steps, 1)
}

func TestPipelineRejectsInvalidDocument(t *testing.T) {
	s := newTestServer(t, &recorder{}, config.Config{})

	w := doType(t, s, "POST", "/api/pipeline", "text/yaml", "tasks: []\n")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode[errorResponse](t, w).Error, "pipeline has no tasks")

	w = do(t, s, "POST", "/api/pipeline", `{"tasks": [{"type": "teleport"}]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode[errorResponse](t, w).Error, `unknown task type "teleport"`)
}

func TestEmptyHistory(t *testing.T) {
	s := newTestServer(t, &recorder{}, config.Config{})
	w := do(t, s, "GET", "/api/engine/history", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())
}

func TestHosts(t *testing.T) {
	cfg := config.Config{SSHHosts: []config.SSHHost{{Name: "farm", Hostname: "f", User: "u"}}}
	s := newTestServer(t, &recorder{}, cfg)
	s.Check = func(_ context.Context, step runner.Step) (runner.Result, error) {
		if step.Target.IsRemote {
			return runner.Result{ExitCode: 127}, errors.New("exited with status 127")
		}
		return runner.Result{Stdout: "Blender 4.2.1 LTS\n"}, nil
	}

	w := do(t, s, "GET", "/api/hosts", "")
	require.Equal(t, http.StatusOK, w.Code)
	hosts := decode[[]InstallationInfo](t, w)
	require.Len(t, hosts, 2)
	assert.Equal(t, InstallationInfo{Host: "local", Executable: hosts[0].Executable, Version: "4.2.1", Available: true}, hosts[0])
	assert.Equal(t, "farm", hosts[1].Host)
	assert.True(t, hosts[1].Remote)
	assert.False(t, hosts[1].Available)
	assert.Contains(t, hosts[1].Error, "status 127")

	w = do(t, s, "GET", "/api/hosts?remote_only=true", "")
	assert.Len(t, decode[[]InstallationInfo](t, w), 1)
}

func TestSSHHostsHideSecrets(t *testing.T) {
	cfg := config.Config{SSHHosts: []config.SSHHost{
		{Name: "farm", Hostname: "f", User: "u", Password: "hunter2"},
		{Name: "studio", Hostname: "s", User: "u", KeyPath: "~/.ssh/id_ed25519", BlenderPath: "/opt/b"},
	}}
	s := newTestServer(t, &recorder{}, cfg)

	w := do(t, s, "GET", "/api/ssh/hosts", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "hunter2")
	assert.NotContains(t, w.Body.String(), "id_ed25519")
	hosts := decode[[]HostInfo](t, w)
	require.Len(t, hosts, 2)
	assert.Equal(t, "password", hosts[0].Auth)
	assert.Equal(t, "blender", hosts[0].BlenderPath)
	assert.Equal(t, "key", hosts[1].Auth)

	w = do(t, s, "GET", "/api/ssh/hosts/studio", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "/opt/b", decode[HostInfo](t, w).BlenderPath)

	w = do(t, s, "GET", "/api/ssh/hosts/nope", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestScenes(t *testing.T) {
	s := newTestServer(t, &recorder{}, config.Config{})

	w := do(t, s, "GET", "/api/scenes", "")
	require.Equal(t, http.StatusOK, w.Code)
	scenes := decode[[]SceneInfo](t, w)
	var names []string
	for _, sc := range scenes {
		names = append(names, sc.Name)
		assert.Positive(t, sc.Objects, sc.Name)
	}
	assert.Equal(t, []string{"modern-house", "test-scene"}, names)

	w = do(t, s, "GET", "/api/scenes/test-scene", "")
	require.Equal(t, http.StatusOK, w.Code)
	sc := decode[SceneScript](t, w)
	assert.Equal(t, "test-scene", sc.Name)
	assert.Contains(t, sc.Script, "import bpy")

	w = do(t, s, "GET", "/api/scenes/missing", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMethodNotAllowed(t *testing.T) {
	s := newTestServer(t, &recorder{}, config.Config{})
	w := do(t, s, "GET", "/api/run/build", "")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}
