// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// PipelineBuilder accumulates tasks for a workflow.
type PipelineBuilder struct {
	engine *Engine
	tasks  []TaskContext
}

// NewPipeline returns an empty pipeline bound to e.
func NewPipeline(e *Engine) *PipelineBuilder {
	return &PipelineBuilder{engine: e}
}

// Add appends a task with a fresh id. agent may be empty to let the engine
// pick one by capability.
func (p *PipelineBuilder) Add(t TaskType, input map[string]any, agent string) *PipelineBuilder {
	p.tasks = append(p.tasks, TaskContext{
		ID:        uuid.NewString(),
		Type:      t,
		Input:     input,
		Agent:     agent,
		CreatedAt: time.Now(),
	})
	return p
}

// Tasks returns the tasks added so far.
func (p *PipelineBuilder) Tasks() []TaskContext {
	return p.tasks
}

// Execute runs the pipeline as a workflow.
func (p *PipelineBuilder) Execute(ctx context.Context, parallel bool) []TaskResult {
	return p.engine.ExecuteWorkflow(ctx, p.tasks, parallel)
}

// PipelineFile is the YAML form of a pipeline:
//
//	parallel: false
//	tasks:
//	  - type: build
//	    input: {type: house}
//	  - type: render
//	    agent: blender
//	    input: {engine: eevee, output: /tmp/house.png}
type PipelineFile struct {
	Parallel bool           `yaml:"parallel" json:"parallel"`
	Tasks    []PipelineTask `yaml:"tasks" json:"tasks"`
}

// PipelineTask is one entry of a PipelineFile.
type PipelineTask struct {
	Type  string         `yaml:"type" json:"type"`
	Agent string         `yaml:"agent,omitempty" json:"agent,omitempty"`
	Input map[string]any `yaml:"input,omitempty" json:"input,omitempty"`
}

// DecodePipeline reads and checks a pipeline document.
func DecodePipeline(r io.Reader) (*PipelineFile, error) {
	var pf PipelineFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&pf); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty pipeline document")
		}
		return nil, fmt.Errorf("failed to parse pipeline: %w", err)
	}
	if err := pf.Validate(); err != nil {
		return nil, err
	}
	return &pf, nil
}

// LoadPipeline reads a pipeline document from path.
func LoadPipeline(path string) (*PipelineFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open pipeline %s: %w", path, err)
	}
	defer f.Close()
	pf, err := DecodePipeline(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return pf, nil
}

// Validate checks that the pipeline has tasks of known types.
func (pf *PipelineFile) Validate() error {
	if len(pf.Tasks) == 0 {
		return errors.New("pipeline has no tasks")
	}
	var errs []error
	for i, t := range pf.Tasks {
		if _, err := ParseTaskType(t.Type); err != nil {
			errs = append(errs, fmt.Errorf("task %d: %w", i+1, err))
		}
	}
	return errors.Join(errs...)
}

// Builder converts the file into a pipeline bound to e.
func (pf *PipelineFile) Builder(e *Engine) *PipelineBuilder {
	p := NewPipeline(e)
	for _, t := range pf.Tasks {
		input := t.Input
		if input == nil {
			input = map[string]any{}
		}
		p.Add(TaskType(t.Type), input, t.Agent)
	}
	return p
}
