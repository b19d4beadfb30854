// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

package runner

import (
	"context"
	"errors"
	"fmt"
	"io"

	"blender-engine/internal/config"
	"blender-engine/internal/logger"
	"blender-engine/internal/util"

	gossh "golang.org/x/crypto/ssh"
)

// runSSHCommand executes a command remotely via SSH. Arguments are quoted for
// the remote shell. With tty set a PTY is requested, which merges stderr into
// stdout but keeps Blender's colored terminal output.
func runSSHCommand(
	ctx context.Context,
	hostConfig config.SSHHost,
	command string,
	args []string,
	cmdDesc string,
	tty bool,
	stdout, stderr io.Writer,
) error {
	if sshManager == nil {
		return fmt.Errorf("%w for %s", ErrNoSSHManager, cmdDesc)
	}

	client, err := sshManager.Client(hostConfig)
	if err != nil {
		return fmt.Errorf("failed to get ssh client for %s: %w", cmdDesc, err)
	}

	session, err := client.NewSession()
	if err != nil {
		sshManager.Close(hostConfig.Name)
		return fmt.Errorf("failed to create ssh session for %s: %w", cmdDesc, err)
	}
	defer session.Close()

	session.Stdout = stdout
	session.Stderr = stderr

	if tty {
		modes := gossh.TerminalModes{
			gossh.ECHO:          0,     // Disable echoing input
			gossh.TTY_OP_ISPEED: 14400, // Input speed = 14.4kbaud
			gossh.TTY_OP_OSPEED: 14400, // Output speed = 14.4kbaud
		}
		if err := session.RequestPty("xterm-256color", 80, 40, modes); err != nil {
			logger.FromContext(ctx).Warn("failed to request pty, continuing", "step", cmdDesc, "error", err)
		}
	}

	remoteCmdString := util.ShellCommand(command, args)
	if err := session.Start(remoteCmdString); err != nil {
		return fmt.Errorf("failed to start remote command for %s: %w", cmdDesc, err)
	}

	done := make(chan error, 1)
	go func() { done <- session.Wait() }()

	var cmdErr error
	select {
	case cmdErr = <-done:
	case <-ctx.Done():
		// Not every server honours signals, so the session is closed as well.
		_ = session.Signal(gossh.SIGKILL)
		_ = session.Close()
		<-done
		return fmt.Errorf("%s interrupted: %w", cmdDesc, ctx.Err())
	}

	if cmdErr != nil {
		var exitErr *gossh.ExitError
		if errors.As(cmdErr, &exitErr) {
			return &ExitError{Desc: cmdDesc, Code: exitErr.ExitStatus(), Err: cmdErr}
		}
		return fmt.Errorf("%s failed: %w", cmdDesc, cmdErr)
	}
	return nil
}
