// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"time"
)

// waitDelay bounds how long Wait blocks on output pipes after the process is
// killed, e.g. when Blender leaves a child holding stdout open.
const waitDelay = 2 * time.Second

// runLocalCommand executes a command locally, writing its output to stdout and stderr.
func runLocalCommand(ctx context.Context, name string, args []string, cmdDesc string, stdout, stderr io.Writer) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.WaitDelay = waitDelay
	localCmdDesc := fmt.Sprintf("local %s", cmdDesc)

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start %s: %w", localCmdDesc, err)
	}

	if cmdErr := cmd.Wait(); cmdErr != nil {
		var exitError *exec.ExitError
		if errors.As(cmdErr, &exitError) && exitError.ExitCode() >= 0 {
			return &ExitError{Desc: localCmdDesc, Code: exitError.ExitCode(), Err: cmdErr}
		}
		return fmt.Errorf("%s failed: %w", localCmdDesc, cmdErr)
	}
	return nil
}
