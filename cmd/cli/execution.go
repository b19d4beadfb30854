// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"blender-engine/internal/engine"
	"blender-engine/internal/logger"
	"blender-engine/internal/runner"
	"blender-engine/internal/script"
	"blender-engine/internal/util"

	"github.com/spf13/cobra"
)

// runOperation generates the script for op and runs it through agent.
func runOperation(cmd *cobra.Command, agent *engine.BlenderAgent, op script.Operation) error {
	step, err := agent.Step(op)
	if err != nil {
		return err
	}
	return executeStep(cmd, agent, step)
}

// executeStep runs step with Blender's output attached to the terminal, or
// prints it when the agent is in dry-run mode.
func executeStep(cmd *cobra.Command, agent *engine.BlenderAgent, step runner.Step) error {
	out := cmd.OutOrStdout()
	if agent.DryRun {
		printDryRun(out, step)
		return nil
	}

	host := step.Target.ServerName
	stepColor.Fprintf(out, "--- Running %s on %s ---\n", step.Name, identifierColor.Sprint(host))
	logger.Info("Running Blender operation", "operation", step.Name, "host", host, "executable", step.Invocation.Executable)

	start := time.Now()
	// CLI mode writes straight to the terminal; only the error channel carries anything.
	_, errChan := runner.Run(cmd.Context(), step, true)
	err := <-errChan
	elapsed := time.Since(start).Round(10 * time.Millisecond)

	if err != nil {
		errorColor.Fprintf(os.Stderr, "--- %s failed on %s after %s: %v ---\n", step.Name, host, elapsed, err)
		logger.Error("Blender operation failed", "operation", step.Name, "host", host, "error", err)
		return errReported
	}
	successColor.Fprintf(out, "--- %s completed on %s in %s ---\n", step.Name, identifierColor.Sprint(host), elapsed)
	return nil
}

func printDryRun(w io.Writer, step runner.Step) {
	inv := step.Invocation
	if inv.Code != "" {
		stepColor.Fprintf(w, "--- Script (%s) ---\n", step.Name)
		fmt.Fprint(w, inv.Code)
		if !strings.HasSuffix(inv.Code, "\n") {
			fmt.Fprintln(w)
		}
	}
	argv := inv.Command()
	stepColor.Fprintf(w, "--- Command (%s) ---\n", step.Target.ServerName)
	fmt.Fprintln(w, util.ShellCommand(argv[0], argv[1:]))
}
