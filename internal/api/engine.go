// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

package api

import (
	"net/http"

	"blender-engine/internal/engine"

	"github.com/gorilla/mux"
)

// PipelineResponse is the outcome of POST /api/pipeline.
type PipelineResponse struct {
	Results []engine.TaskResult `json:"results"`
	// Skipped counts tasks a sequential pipeline did not reach.
	Skipped   int  `json:"skipped"`
	Succeeded bool `json:"succeeded"`
}

func (s *Server) registerEngineRoutes(router *mux.Router) {
	router.HandleFunc("/api/pipeline", s.pipelineHandler).Methods("POST")
	router.HandleFunc("/api/engine/status", s.statusHandler).Methods("GET")
	router.HandleFunc("/api/engine/history", s.historyHandler).Methods("GET")
}

// pipelineHandler runs a pipeline document, JSON or YAML, and waits for it.
func (s *Server) pipelineHandler(w http.ResponseWriter, r *http.Request) {
	if err := requireContentType(r, "application/json", "application/yaml", "application/x-yaml", "text/yaml"); err != nil {
		writeError(w, http.StatusUnsupportedMediaType, err)
		return
	}
	pf, err := engine.DecodePipeline(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	parallel := pf.Parallel || r.URL.Query().Get("parallel") == "true"
	results := pf.Builder(s.Engine).Execute(r.Context(), parallel)

	resp := PipelineResponse{Results: results, Skipped: len(pf.Tasks) - len(results), Succeeded: true}
	for _, res := range results {
		if !res.Success() {
			resp.Succeeded = false
		}
	}
	if resp.Skipped > 0 {
		resp.Succeeded = false
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) statusHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Engine.Status())
}

// historyHandler returns recorded results, optionally for one ?task_id=.
func (s *Server) historyHandler(w http.ResponseWriter, r *http.Request) {
	history := s.Engine.History(r.URL.Query().Get("task_id"))
	if history == nil {
		history = []engine.TaskResult{}
	}
	writeJSON(w, http.StatusOK, history)
}
