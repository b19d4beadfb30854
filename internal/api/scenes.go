// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

package api

import (
	"net/http"

	"blender-engine/internal/scene"

	"github.com/gorilla/mux"
)

// SceneInfo summarizes a built-in preset.
type SceneInfo struct {
	Name        string `json:"name"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Objects     int    `json:"objects"`
	Lights      int    `json:"lights"`
}

// SceneScript is a preset compiled to Python.
type SceneScript struct {
	Name   string `json:"name"`
	Script string `json:"script"`
}

func registerSceneRoutes(router *mux.Router) {
	router.HandleFunc("/api/scenes", listScenesHandler).Methods("GET")
	router.HandleFunc("/api/scenes/{name}", getSceneScriptHandler).Methods("GET")
}

func listScenesHandler(w http.ResponseWriter, r *http.Request) {
	scenes := []SceneInfo{}
	for _, name := range scene.PresetNames() {
		s, err := scene.Preset(name)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		scenes = append(scenes, SceneInfo{
			Name:        name,
			Title:       s.Name,
			Description: s.Description,
			Objects:     s.ObjectCount(),
			Lights:      s.LightCount(),
		})
	}
	writeJSON(w, http.StatusOK, scenes)
}

// getSceneScriptHandler returns the script a preset compiles to. Only presets
// are served; scene files stay on the machine that owns them.
func getSceneScriptHandler(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	s, err := scene.Preset(name)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	code, err := scene.Compile(s)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, SceneScript{Name: name, Script: code})
}
