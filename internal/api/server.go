// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

// Package api implements the HTTP API served by `bt serve`: running Blender
// operations synchronously or as a Server-Sent Events stream, running engine
// pipelines, and listing hosts and scene presets.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"blender-engine/internal/config"
	"blender-engine/internal/discovery"
	"blender-engine/internal/engine"
	"blender-engine/internal/logger"
	"blender-engine/internal/runner"

	"github.com/gorilla/mux"
)

// StreamFunc starts a step and streams its output. runner.Run in channel mode
// outside tests.
type StreamFunc func(ctx context.Context, step runner.Step) (<-chan runner.OutputLine, <-chan error)

// Server holds what the handlers share.
type Server struct {
	// Agent is the template for every run; requests may retarget it with ?host=.
	Agent  *engine.BlenderAgent
	Config config.Config
	// Engine runs pipelines. It has Agent and an echo agent registered.
	Engine *engine.Engine

	Stream StreamFunc
	Check  discovery.Checker
}

// NewServer returns a server running operations through a copy of agent.
// Scene tasks from requests are limited to the built-in presets.
func NewServer(agent *engine.BlenderAgent, cfg config.Config) *Server {
	served := *agent
	served.ScenePresetsOnly = true
	agent = &served
	e := engine.New()
	e.Register(agent)
	e.Register(engine.NewEchoAgent("echo"))
	return &Server{
		Agent:  agent,
		Config: cfg,
		Engine: e,
		Stream: func(ctx context.Context, step runner.Step) (<-chan runner.OutputLine, <-chan error) {
			return runner.Run(ctx, step, false)
		},
	}
}

// RegisterRoutes registers every API route on router.
func (s *Server) RegisterRoutes(router *mux.Router) {
	router.Use(logRequests)
	s.registerRunnerRoutes(router)
	s.registerEngineRoutes(router)
	s.registerHostRoutes(router)
	registerSceneRoutes(router)
}

// Handler returns a router serving the API.
func (s *Server) Handler() http.Handler {
	router := mux.NewRouter()
	s.RegisterRoutes(router)
	return router
}

// agentFor returns a copy of the template agent targeting host. An empty
// host or "local" keeps the template's target.
func (s *Server) agentFor(host string) (*engine.BlenderAgent, error) {
	a := *s.Agent
	if host == "" || host == "local" {
		return &a, nil
	}
	h, err := s.Config.FindHost(host)
	if err != nil {
		return nil, err
	}
	a.Target = runner.RemoteTarget(h)
	a.Executable = h.Executable()
	return &a, nil
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logger.Debug("HTTP request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}
