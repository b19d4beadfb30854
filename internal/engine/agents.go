// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

package engine

import (
	"context"
	"fmt"
	"os"
	"slices"
	"sync"
	"time"

	"blender-engine/internal/blender"
	"blender-engine/internal/logger"
	"blender-engine/internal/runner"
	"blender-engine/internal/scene"
	"blender-engine/internal/script"

	"golang.org/x/sync/semaphore"
)

// EchoAgent returns its input unchanged. It is useful for exercising
// workflows without Blender.
type EchoAgent struct {
	AgentName string
	Types     []TaskType
	// Delay simulates work and honours cancellation.
	Delay time.Duration
}

// NewEchoAgent returns an echo agent handling every generic task type.
func NewEchoAgent(name string) *EchoAgent {
	return &EchoAgent{AgentName: name, Types: slices.Clone(GenericTaskTypes), Delay: 100 * time.Millisecond}
}

func (a *EchoAgent) Name() string             { return a.AgentName }
func (a *EchoAgent) Capabilities() []TaskType { return a.Types }

func (a *EchoAgent) Execute(ctx context.Context, task TaskContext) (TaskResult, error) {
	if a.Delay > 0 {
		select {
		case <-time.After(a.Delay):
		case <-ctx.Done():
			return TaskResult{}, ctx.Err()
		}
	}
	return TaskResult{Output: map[string]any{
		"processed_input": task.Input,
		"agent_name":      a.AgentName,
		"task_type":       string(task.Type),
	}}, nil
}

// CaptureFunc runs a step to completion. runner.Capture outside tests.
type CaptureFunc func(ctx context.Context, step runner.Step) (runner.Result, error)

// BlenderAgent turns Blender task types into generated scripts and runs them
// on a host.
type BlenderAgent struct {
	AgentName  string
	Executable string
	Target     runner.HostTarget
	// BlendFile is the session file opened before, and saved after, each task.
	BlendFile string
	Timeout   time.Duration
	// DryRun returns the generated script without running Blender.
	DryRun bool
	// ScenePresetsOnly rejects scene tasks naming anything but a built-in
	// preset, so callers cannot make the agent read local files.
	ScenePresetsOnly bool
	Capture          CaptureFunc
}

// DefaultBlenderAgentName is the name BlenderAgent registers under when none is given.
const DefaultBlenderAgentName = "blender"

func (a *BlenderAgent) Name() string {
	if a.AgentName == "" {
		return DefaultBlenderAgentName
	}
	return a.AgentName
}

func (a *BlenderAgent) Capabilities() []TaskType { return BlenderTaskTypes }

// Operation builds the script operation for task. Scene tasks take a preset
// name or, unless ScenePresetsOnly is set, a file path in their "scene" input.
func (a *BlenderAgent) Operation(task TaskContext) (script.Operation, error) {
	if task.Type == TaskScene {
		ref, _ := task.Input["scene"].(string)
		if ref == "" {
			return nil, fmt.Errorf("scene task needs a %q input", "scene")
		}
		if a.ScenePresetsOnly && !slices.Contains(scene.PresetNames(), ref) {
			return nil, fmt.Errorf("unknown scene preset %q (available: %v)", ref, scene.PresetNames())
		}
		s, err := scene.Resolve(ref)
		if err != nil {
			return nil, err
		}
		return s.Operation(), nil
	}
	return script.FromParams(string(task.Type), script.Params(task.Input))
}

// sessionLocks holds one semaphore per host and session file.
var sessionLocks sync.Map

// LockSession waits until no other run uses the agent's session file on its
// host. Without a session file runs do not share state and nothing is held.
func (a *BlenderAgent) LockSession(ctx context.Context) (unlock func(), err error) {
	if a.BlendFile == "" {
		return func() {}, nil
	}
	key := a.Target.ServerName + ":" + a.BlendFile
	v, _ := sessionLocks.LoadOrStore(key, semaphore.NewWeighted(1))
	sem := v.(*semaphore.Weighted)
	if err := sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	return func() { sem.Release(1) }, nil
}

// Run captures step while holding the session lock.
func (a *BlenderAgent) Run(ctx context.Context, step runner.Step) (runner.Result, error) {
	unlock, err := a.LockSession(ctx)
	if err != nil {
		return runner.Result{}, err
	}
	defer unlock()
	capture := a.Capture
	if capture == nil {
		capture = runner.Capture
	}
	return capture(ctx, step)
}

// Step builds the runner step that executes op against the agent's session.
func (a *BlenderAgent) Step(op script.Operation) (runner.Step, error) {
	code, err := script.Generate(op, script.Options{SaveAs: a.BlendFile})
	if err != nil {
		return runner.Step{}, err
	}
	return a.step(op.Name(), blender.Invocation{Code: code}), nil
}

// FileStep builds a step running the Python file at path. The file is read
// and sent inline when it has to reach a remote host or be followed by a
// session save.
func (a *BlenderAgent) FileStep(path string) (runner.Step, error) {
	if !a.Target.IsRemote && a.BlendFile == "" {
		return a.step("run", blender.Invocation{ScriptFile: path}), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return runner.Step{}, fmt.Errorf("failed to read script: %w", err)
	}
	step, err := a.Step(script.Python{Code: string(data)})
	step.Name = "run"
	return step, err
}

func (a *BlenderAgent) step(name string, inv blender.Invocation) runner.Step {
	inv.Executable = a.Executable
	inv.BlendFile = blender.SessionFile(a.BlendFile, a.Target.IsRemote)
	inv.PythonExitCode = 1
	return runner.Step{Name: name, Invocation: inv, Target: a.Target, Timeout: a.Timeout}
}

func (a *BlenderAgent) Execute(ctx context.Context, task TaskContext) (TaskResult, error) {
	log := logger.FromContext(ctx)

	op, err := a.Operation(task)
	if err != nil {
		return TaskResult{}, err
	}
	step, err := a.Step(op)
	if err != nil {
		return TaskResult{}, err
	}

	result := TaskResult{
		Output:    map[string]any{"operation": op.Name(), "script": step.Invocation.Code, "host": a.Target.ServerName},
		Artifacts: map[string]string{},
	}
	if path, ok := script.OutputPath(op); ok {
		result.Artifacts[op.Name()] = path
	}
	if a.BlendFile != "" {
		result.Artifacts["session"] = a.BlendFile
	}

	if a.DryRun {
		result.Output["command"] = step.Invocation.Command()
		return result, nil
	}

	log.Debug("Running Blender", "operation", op.Name(), "host", a.Target.ServerName)
	res, err := a.Run(ctx, step)
	result.Output["stdout"] = res.Stdout
	result.Output["stderr"] = res.Stderr
	result.Output["exit_code"] = res.ExitCode
	result.Output["duration_seconds"] = res.Duration.Seconds()
	return result, err
}
