// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

// Package engine dispatches tasks to registered agents, one at a time or as
// sequential and parallel workflows.
package engine

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"blender-engine/internal/logger"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

var (
	ErrAgentNotFound  = errors.New("agent not registered")
	ErrNoCapableAgent = errors.New("no agent available for task type")
	ErrAgentPanic     = errors.New("agent panicked")
)

// Engine holds the agent registry and the task history. It is safe for
// concurrent use.
type Engine struct {
	// MaxParallel limits concurrently running tasks in a parallel workflow.
	// Zero means no limit.
	MaxParallel int

	mu      sync.RWMutex
	agents  map[string]Agent
	order   []string
	active  map[string]TaskContext
	history []TaskResult
}

// New returns an empty engine.
func New() *Engine {
	return &Engine{
		agents: map[string]Agent{},
		active: map[string]TaskContext{},
	}
}

// Register adds a, replacing any agent with the same name. A replaced agent
// keeps its place in the selection order.
func (e *Engine) Register(a Agent) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.agents[a.Name()]; !exists {
		e.order = append(e.order, a.Name())
	}
	e.agents[a.Name()] = a
	logger.Info("Registered agent", "agent", a.Name(), "capabilities", a.Capabilities())
}

// Unregister removes the named agent and reports whether it was registered.
func (e *Engine) Unregister(name string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.agents[name]; !ok {
		return false
	}
	delete(e.agents, name)
	e.order = slices.DeleteFunc(e.order, func(n string) bool { return n == name })
	logger.Info("Unregistered agent", "agent", name)
	return true
}

// Agents lists registered agent names in registration order.
func (e *Engine) Agents() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return slices.Clone(e.order)
}

func (e *Engine) selectAgent(task TaskContext) (Agent, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if task.Agent != "" {
		a, ok := e.agents[task.Agent]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrAgentNotFound, task.Agent)
		}
		return a, nil
	}
	for _, name := range e.order {
		if a := e.agents[name]; CanHandle(a, task.Type) {
			return a, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNoCapableAgent, task.Type)
}

// ExecuteTask runs one task and records its result. It never returns an
// error: failures are reported in the result.
func (e *Engine) ExecuteTask(ctx context.Context, task TaskContext) TaskResult {
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	if task.CreatedAt.IsZero() {
		task.CreatedAt = time.Now()
	}
	log := logger.FromContext(ctx).With("task_id", task.ID, "task_type", string(task.Type))
	ctx = logger.WithContext(ctx, log)

	if err := ctx.Err(); err != nil {
		log.Info("Task cancelled before start")
		return e.record(TaskResult{TaskID: task.ID, Status: StatusCancelled, Error: err.Error()})
	}

	agent, err := e.selectAgent(task)
	if err != nil {
		log.Error("Task not dispatched", "error", err)
		return e.record(TaskResult{TaskID: task.ID, Status: StatusFailed, Error: err.Error()})
	}
	log = log.With("agent", agent.Name())
	ctx = logger.WithContext(ctx, log)
	log.Info("Starting task")

	e.setActive(task, true)
	start := time.Now()
	result, err := runAgent(ctx, agent, task)
	e.setActive(task, false)

	result.TaskID = task.ID
	result.Duration = time.Since(start)
	switch {
	case err != nil && ctx.Err() != nil && errors.Is(err, ctx.Err()):
		result.Status = StatusCancelled
		result.Error = err.Error()
		log.Warn("Task cancelled", "duration", result.Duration, "error", err)
	case err != nil:
		result.Status = StatusFailed
		result.Error = err.Error()
		log.Error("Task failed", "duration", result.Duration, "error", err)
	default:
		result.Status = StatusCompleted
		result.Error = ""
		log.Info("Task completed", "duration", result.Duration)
	}
	return e.record(result)
}

// runAgent calls a.Execute, turning a panic into ErrAgentPanic.
func runAgent(ctx context.Context, a Agent, task TaskContext) (result TaskResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = TaskResult{}
			err = fmt.Errorf("%w: %s: %v", ErrAgentPanic, a.Name(), r)
		}
	}()
	return a.Execute(ctx, task)
}

func (e *Engine) setActive(task TaskContext, running bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if running {
		e.active[task.ID] = task
	} else {
		delete(e.active, task.ID)
	}
}

func (e *Engine) record(r TaskResult) TaskResult {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.history = append(e.history, r)
	return r
}

// ExecuteWorkflow runs tasks and returns one result per task that was
// attempted, in input order. In parallel mode every task runs concurrently,
// bounded by MaxParallel. Sequentially, execution stops after the first task
// that does not complete.
func (e *Engine) ExecuteWorkflow(ctx context.Context, tasks []TaskContext, parallel bool) []TaskResult {
	log := logger.FromContext(ctx)
	log.Info("Executing workflow", "tasks", len(tasks), "parallel", parallel)

	if !parallel {
		results := make([]TaskResult, 0, len(tasks))
		for _, t := range tasks {
			r := e.ExecuteTask(ctx, t)
			results = append(results, r)
			if !r.Success() {
				log.Warn("Workflow stopped due to task failure", "task_id", r.TaskID, "status", string(r.Status))
				break
			}
		}
		return results
	}

	results := make([]TaskResult, len(tasks))
	var g errgroup.Group
	if e.MaxParallel > 0 {
		g.SetLimit(e.MaxParallel)
	}
	for i, t := range tasks {
		g.Go(func() error {
			results[i] = e.ExecuteTask(ctx, t)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// Status summarizes the engine.
type Status struct {
	RegisteredAgents []string `json:"registered_agents"`
	ActiveTasks      int      `json:"active_tasks"`
	CompletedTasks   int      `json:"completed_tasks"`
	FailedTasks      int      `json:"failed_tasks"`
	CancelledTasks   int      `json:"cancelled_tasks"`
}

// Status returns the current registry and history counts.
func (e *Engine) Status() Status {
	e.mu.RLock()
	defer e.mu.RUnlock()
	s := Status{RegisteredAgents: slices.Clone(e.order), ActiveTasks: len(e.active)}
	if s.RegisteredAgents == nil {
		s.RegisteredAgents = []string{}
	}
	for _, r := range e.history {
		switch r.Status {
		case StatusCompleted:
			s.CompletedTasks++
		case StatusFailed:
			s.FailedTasks++
		case StatusCancelled:
			s.CancelledTasks++
		}
	}
	return s
}

// History returns recorded results, all of them when taskID is empty.
func (e *Engine) History(taskID string) []TaskResult {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if taskID == "" {
		return slices.Clone(e.history)
	}
	var out []TaskResult
	for _, r := range e.history {
		if r.TaskID == taskID {
			out = append(out, r)
		}
	}
	return out
}
