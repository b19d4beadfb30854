// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"slices"
	"strings"

	"blender-engine/internal/engine"
	"blender-engine/internal/logger"
	"blender-engine/internal/runner"
	"blender-engine/internal/util"

	"github.com/gorilla/mux"
)

// RunOutput is the response of a synchronous run.
type RunOutput struct {
	Script          string   `json:"script"`
	Command         []string `json:"command,omitempty"`
	Stdout          string   `json:"stdout"`
	Stderr          string   `json:"stderr"`
	ExitCode        int      `json:"exitCode"`
	DurationSeconds float64  `json:"durationSeconds"`
	Error           string   `json:"error,omitempty"`
}

// Query parameters that select how to run rather than what to run.
const (
	hostParam   = "host"
	dryRunParam = "dry_run"
)

func (s *Server) registerRunnerRoutes(router *mux.Router) {
	router.HandleFunc("/api/run/{operation}", s.runHandler).Methods("POST")
	router.HandleFunc("/api/run/{operation}/stream", s.streamHandler).Methods("GET")
}

// stepFromRequest builds the step for the route's operation with params.
func (s *Server) stepFromRequest(r *http.Request, params map[string]any) (runner.Step, *engine.BlenderAgent, error) {
	name := mux.Vars(r)["operation"]
	t, err := engine.ParseTaskType(name)
	if err != nil || !engine.CanHandle(s.Agent, t) {
		return runner.Step{}, nil, fmt.Errorf("unknown operation %q", name)
	}
	agent, err := s.agentFor(r.URL.Query().Get(hostParam))
	if err != nil {
		return runner.Step{}, nil, err
	}
	op, err := agent.Operation(engine.TaskContext{Type: t, Input: params})
	if err != nil {
		return runner.Step{}, nil, err
	}
	step, err := agent.Step(op)
	return step, agent, err
}

// errUnsupportedMediaType is returned for a POST body of the wrong type.
var errUnsupportedMediaType = errors.New("unsupported Content-Type")

// requireContentType checks the request's media type against allowed.
func requireContentType(r *http.Request, allowed ...string) error {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || !slices.Contains(allowed, mediaType) {
		return fmt.Errorf("%w %q, expected %s", errUnsupportedMediaType, r.Header.Get("Content-Type"), strings.Join(allowed, " or "))
	}
	return nil
}

// runHandler runs an operation with the JSON body as parameters and returns
// the captured output. Blender failures are reported in the body with 200.
func (s *Server) runHandler(w http.ResponseWriter, r *http.Request) {
	if err := requireContentType(r, "application/json"); err != nil {
		writeError(w, http.StatusUnsupportedMediaType, err)
		return
	}
	params := map[string]any{}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("error reading request body: %w", err))
		return
	}
	if len(strings.TrimSpace(string(body))) > 0 {
		if err := json.Unmarshal(body, &params); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
			return
		}
	}

	step, agent, err := s.stepFromRequest(r, params)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	out := RunOutput{Script: step.Invocation.Code}
	if r.URL.Query().Get(dryRunParam) == "true" || agent.DryRun {
		out.Command = step.Invocation.Command()
		writeJSON(w, http.StatusOK, out)
		return
	}

	logger.Info("API run", "operation", step.Name, "host", step.Target.ServerName)
	res, err := agent.Run(r.Context(), step)
	out.Stdout = res.Stdout
	out.Stderr = res.Stderr
	out.ExitCode = res.ExitCode
	out.DurationSeconds = res.Duration.Seconds()
	if err != nil {
		out.Error = err.Error()
	}
	writeJSON(w, http.StatusOK, out)
}

// streamHandler runs an operation with the query string as parameters and
// streams its output as Server-Sent Events: step, stdout, stderr, error and
// a final done. A dry run sends script and command events instead of output.
// Raw Python is only accepted by the POST route.
func (s *Server) streamHandler(w http.ResponseWriter, r *http.Request) {
	if mux.Vars(r)["operation"] == string(engine.TaskPython) {
		writeError(w, http.StatusBadRequest, fmt.Errorf("operation %q cannot be streamed, POST it to /api/run/%s", engine.TaskPython, engine.TaskPython))
		return
	}
	params := map[string]any{}
	for k, v := range r.URL.Query() {
		if k == hostParam || k == dryRunParam || len(v) == 0 {
			continue
		}
		params[k] = v[len(v)-1]
	}
	if _, ok := params["code"]; ok {
		writeError(w, http.StatusBadRequest, errors.New("parameter \"code\" is not accepted in a query string"))
		return
	}
	step, agent, err := s.stepFromRequest(r, params)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	dryRun := r.URL.Query().Get(dryRunParam) == "true" || agent.DryRun

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	sendEvent(w, "step", fmt.Sprintf("%s on %s", step.Name, step.Target.ServerName))
	flusher.Flush()

	if dryRun {
		argv := step.Invocation.Command()
		sendEvent(w, "script", step.Invocation.Code)
		sendEvent(w, "command", util.ShellCommand(argv[0], argv[1:]))
		sendEvent(w, "done", "finished")
		flusher.Flush()
		return
	}

	unlock, err := agent.LockSession(r.Context())
	if err != nil {
		logger.Info("Stream client went away", "operation", step.Name)
		return
	}
	defer unlock()

	outChan, errChan := s.Stream(r.Context(), step)
	for line := range outChan {
		text := strings.TrimRight(line.Line, " \t\r\n")
		if text == "" {
			continue
		}
		event := "stdout"
		if line.IsError {
			event = "stderr"
		}
		sendEvent(w, event, text)
		flusher.Flush()
	}
	if err := <-errChan; err != nil {
		if errors.Is(err, r.Context().Err()) {
			logger.Info("Stream client went away", "operation", step.Name)
			return
		}
		sendEvent(w, "error", fmt.Sprintf("Error during step '%s': %v", step.Name, err))
		flusher.Flush()
	}
	sendEvent(w, "done", "finished")
	flusher.Flush()
}

// sendEvent writes one SSE event. Embedded newlines are escaped so each event
// stays a single data line.
func sendEvent(w io.Writer, event, data string) {
	data = strings.ReplaceAll(strings.TrimRight(data, " \t\r\n"), "\n", "\\n")
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
}
