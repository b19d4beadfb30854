// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

// Package runner executes Blender invocations locally or on an SSH host and
// reports their output and exit status.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"blender-engine/internal/blender"
	"blender-engine/internal/config"
	"blender-engine/internal/logger"
	"blender-engine/internal/ssh"
)

var sshManager *ssh.Manager

// InitSSHManager sets the package-level SSH manager instance.
func InitSSHManager(manager *ssh.Manager) {
	if sshManager != nil {
		return
	}
	sshManager = manager
}

var (
	// ErrTimeout is returned when a run exceeds its timeout.
	ErrTimeout = errors.New("blender operation timed out")
	// ErrNoSSHManager is returned for remote steps before InitSSHManager.
	ErrNoSSHManager = errors.New("ssh manager not initialized")
)

// ExitError reports a non-zero exit status.
type ExitError struct {
	Desc string
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s exited with status %d", e.Desc, e.Code)
}

func (e *ExitError) Unwrap() error { return e.Err }

type OutputLine struct {
	Line    string
	IsError bool // True if the line came from stderr
}

// HostTarget defines where a step runs.
type HostTarget struct {
	IsRemote   bool
	HostConfig *config.SSHHost // Only set if IsRemote is true
	ServerName string          // "local" or the remote server name
}

// LocalTarget runs on this machine.
func LocalTarget() HostTarget {
	return HostTarget{ServerName: "local"}
}

// RemoteTarget runs on the given SSH host.
func RemoteTarget(host *config.SSHHost) HostTarget {
	return HostTarget{IsRemote: true, HostConfig: host, ServerName: host.Name}
}

// Step is one Blender invocation on one host.
type Step struct {
	Name       string
	Invocation blender.Invocation
	Target     HostTarget
	// Timeout bounds the run when positive.
	Timeout time.Duration
}

func (s Step) describe() string {
	server := s.Target.ServerName
	if server == "" {
		server = "local"
	}
	return fmt.Sprintf("step '%s' on %s", s.Name, server)
}

// Result is the collected outcome of Capture.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
	TimedOut bool
}

// Success reports whether the run exited cleanly.
func (r Result) Success() bool { return r.ExitCode == 0 && !r.TimedOut }

// Run executes step and streams its output.
// If cliMode is true, output goes directly to os.Stdout/Stderr.
// If cliMode is false, output is sent line by line over the output channel.
// The error channel yields at most one error and is closed when the run ends.
func Run(ctx context.Context, step Step, cliMode bool) (<-chan OutputLine, <-chan error) {
	// Buffered so rapid output does not stall the process between UI frames.
	outChan := make(chan OutputLine, 64)
	errChan := make(chan error, 1)

	go func() {
		defer close(outChan)
		defer close(errChan)

		var err error
		if cliMode {
			_, err = execute(ctx, step, os.Stdout, os.Stderr, true)
		} else {
			stdout := newLineWriter(outChan, false)
			stderr := newLineWriter(outChan, true)
			_, err = execute(ctx, step, stdout, stderr, false)
			stdout.Flush()
			stderr.Flush()
		}
		if err != nil {
			errChan <- err
		}
	}()

	return outChan, errChan
}

// Capture executes step and collects its output. The returned Result is
// filled in even when err is non-nil.
func Capture(ctx context.Context, step Step) (Result, error) {
	var stdout, stderr bytes.Buffer
	res, err := execute(ctx, step, &stdout, &stderr, false)
	res.Stdout = stdout.String()
	res.Stderr = stderr.String()
	return res, err
}

func execute(ctx context.Context, step Step, stdout, stderr io.Writer, tty bool) (Result, error) {
	if step.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, step.Timeout)
		defer cancel()
	}
	desc := step.describe()
	argv := step.Invocation.Command()
	log := logger.FromContext(ctx)
	log.Debug("starting blender", "step", step.Name, "host", step.Target.ServerName, "args", len(argv)-1)

	start := time.Now()
	var err error
	if step.Target.IsRemote {
		if step.Target.HostConfig == nil {
			err = fmt.Errorf("internal error: HostConfig is nil for remote host %s", step.Target.ServerName)
		} else {
			// Local executable discovery does not apply on the remote side.
			exe := step.Target.HostConfig.Executable()
			err = runSSHCommand(ctx, *step.Target.HostConfig, exe, argv[1:], desc, tty, stdout, stderr)
		}
	} else {
		err = runLocalCommand(ctx, argv[0], argv[1:], desc, stdout, stderr)
	}

	res := Result{Duration: time.Since(start)}
	err = classify(ctx, desc, err, &res)
	if err != nil {
		log.Warn("blender run failed", "step", step.Name, "host", step.Target.ServerName, "duration", res.Duration, "error", err)
	} else {
		log.Debug("blender run finished", "step", step.Name, "duration", res.Duration)
	}
	return res, err
}

// classify maps context expiry to ErrTimeout and fills in the exit code.
func classify(ctx context.Context, desc string, err error, res *Result) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		res.TimedOut = true
		res.ExitCode = -1
		return fmt.Errorf("%s: %w", desc, ErrTimeout)
	case errors.Is(ctx.Err(), context.Canceled):
		res.ExitCode = -1
		return fmt.Errorf("%s: %w", desc, context.Canceled)
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.Code
	} else {
		res.ExitCode = -1
	}
	return err
}
