// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

package cli

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"blender-engine/internal/engine"
	"blender-engine/internal/util"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"
)

var (
	pipelineParallel    bool
	pipelineMaxParallel int
	pipelineVerbose     bool
)

var pipelineCmd = &cobra.Command{
	Use:   "pipeline <file>",
	Short: "Run a YAML pipeline of tasks through the engine",
	Long: `Runs every task of a pipeline document through the task engine. Blender
operations go to the Blender agent, generic task types to the echo agent.

Sequential pipelines stop at the first task that does not complete. Parallel
pipelines run every task and report results in document order.`,
	Example: `  bt pipeline house.yaml
  bt pipeline batch.yaml --parallel --max-parallel 2 --host studio`,
	Args:    cobra.ExactArgs(1),
	GroupID: managementGroup.ID,
	RunE: func(cmd *cobra.Command, args []string) error {
		pf, err := engine.LoadPipeline(args[0])
		if err != nil {
			return err
		}
		agent, _, err := loadAgent()
		if err != nil {
			return err
		}

		e := engine.New()
		e.MaxParallel = pipelineMaxParallel
		e.Register(agent)
		e.Register(engine.NewEchoAgent("echo"))

		parallel := pf.Parallel || pipelineParallel
		mode := "sequentially"
		if parallel {
			mode = "in parallel"
		}
		out := cmd.OutOrStdout()
		statusColor.Fprintf(out, "Running %d task(s) %s...\n", len(pf.Tasks), mode)

		s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
		s.Color("cyan")
		s.Suffix = " Waiting for tasks..."
		s.Writer = out
		s.Start()
		results := pf.Builder(e).Execute(cmd.Context(), parallel)
		s.Stop()

		return printResults(out, pf, results)
	},
}

func printResults(w io.Writer, pf *engine.PipelineFile, results []engine.TaskResult) error {
	failed := 0
	for i, r := range results {
		fmt.Fprintf(w, "\n%d. %s ", i+1, identifierColor.Sprint(pf.Tasks[i].Type))
		switch r.Status {
		case engine.StatusCompleted:
			successColor.Fprintf(w, "[%s]", r.Status)
		case engine.StatusCancelled:
			stepColor.Fprintf(w, "[%s]", r.Status)
		default:
			errorColor.Fprintf(w, "[%s]", r.Status)
		}
		fmt.Fprintln(w, dimColor.Sprintf(" %s", r.Duration.Round(time.Millisecond)))
		if !r.Success() {
			failed++
		}
		if r.Error != "" {
			errorColor.Fprintf(w, "   %s\n", r.Error)
		}
		for _, k := range sortedKeys(r.Artifacts) {
			fmt.Fprintf(w, "   %s: %s\n", k, r.Artifacts[k])
		}
		if pipelineVerbose {
			for _, k := range sortedKeys(r.Output) {
				fmt.Fprintf(w, "   %s %v\n", dimColor.Sprint(k+":"), util.Truncate(strings.TrimSpace(fmt.Sprint(r.Output[k])), 200))
			}
		}
	}
	if skipped := len(pf.Tasks) - len(results); skipped > 0 {
		stepColor.Fprintf(w, "\n%d task(s) not run after the failure.\n", skipped)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d task(s) did not complete", failed, len(results))
	}
	successColor.Fprintf(w, "\nAll %d task(s) completed.\n", len(results))
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func init() {
	pipelineCmd.Flags().BoolVar(&pipelineParallel, "parallel", false, "run tasks concurrently (overrides the document)")
	pipelineCmd.Flags().IntVar(&pipelineMaxParallel, "max-parallel", 0, "limit concurrent tasks in parallel mode (0 = no limit)")
	pipelineCmd.Flags().BoolVarP(&pipelineVerbose, "verbose", "v", false, "print each task's output")
	rootCmd.AddCommand(pipelineCmd)
}
