// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

package engine

import (
	"context"
	"fmt"
	"slices"
	"time"
)

// TaskStatus is the lifecycle state of a task.
type TaskStatus string

const (
	StatusPending   TaskStatus = "pending"
	StatusRunning   TaskStatus = "running"
	StatusCompleted TaskStatus = "completed"
	StatusFailed    TaskStatus = "failed"
	StatusCancelled TaskStatus = "cancelled"
)

// TaskType names the kind of work a task asks for.
type TaskType string

const (
	TaskCodeGeneration TaskType = "code_generation"
	TaskCodeReview     TaskType = "code_review"
	TaskRefactoring    TaskType = "refactoring"
	TaskTestGeneration TaskType = "test_generation"
	TaskDocumentation  TaskType = "documentation"
	TaskAnalysis       TaskType = "analysis"
	TaskOrchestration  TaskType = "orchestration"

	TaskBuild      TaskType = "build"
	TaskMaterial   TaskType = "material"
	TaskLighting   TaskType = "lighting"
	TaskCamera     TaskType = "camera"
	TaskRender     TaskType = "render"
	TaskExport     TaskType = "export"
	TaskReset      TaskType = "reset"
	TaskOptimize   TaskType = "optimize"
	TaskProcedural TaskType = "procedural"
	TaskPreview    TaskType = "preview"
	TaskPython     TaskType = "python"
	TaskScene      TaskType = "scene"
)

// GenericTaskTypes are the task types not tied to Blender.
var GenericTaskTypes = []TaskType{
	TaskCodeGeneration, TaskCodeReview, TaskRefactoring, TaskTestGeneration,
	TaskDocumentation, TaskAnalysis, TaskOrchestration,
}

// BlenderTaskTypes are the task types handled by BlenderAgent.
var BlenderTaskTypes = []TaskType{
	TaskBuild, TaskMaterial, TaskLighting, TaskCamera, TaskRender, TaskExport,
	TaskReset, TaskOptimize, TaskProcedural, TaskPreview, TaskPython, TaskScene,
}

// ParseTaskType validates a task type name.
func ParseTaskType(name string) (TaskType, error) {
	t := TaskType(name)
	if slices.Contains(GenericTaskTypes, t) || slices.Contains(BlenderTaskTypes, t) {
		return t, nil
	}
	return "", fmt.Errorf("unknown task type %q", name)
}

// TaskContext is everything an agent needs to run one task.
type TaskContext struct {
	ID          string         `json:"id"`
	Type        TaskType       `json:"type"`
	Input       map[string]any `json:"input,omitempty"`
	UserID      string         `json:"user_id,omitempty"`
	ProjectPath string         `json:"project_path,omitempty"`
	// Agent pins the task to a registered agent by name.
	Agent     string         `json:"agent,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// TaskResult is the outcome of one task.
type TaskResult struct {
	TaskID    string            `json:"task_id"`
	Status    TaskStatus        `json:"status"`
	Output    map[string]any    `json:"output,omitempty"`
	Error     string            `json:"error,omitempty"`
	Duration  time.Duration     `json:"duration"`
	Artifacts map[string]string `json:"artifacts,omitempty"`
}

// Success reports whether the task completed.
func (r TaskResult) Success() bool { return r.Status == StatusCompleted }

// Agent executes tasks of the types it advertises.
type Agent interface {
	Name() string
	Capabilities() []TaskType
	// Execute runs task. A non-nil error fails the task; the returned result's
	// Output and Artifacts are kept either way.
	Execute(ctx context.Context, task TaskContext) (TaskResult, error)
}

// CanHandle reports whether a advertises t.
func CanHandle(a Agent, t TaskType) bool {
	return slices.Contains(a.Capabilities(), t)
}
