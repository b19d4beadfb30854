// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

package api

import (
	"fmt"
	"net/http"

	"blender-engine/internal/blender"
	"blender-engine/internal/config"
	"blender-engine/internal/discovery"

	"github.com/gorilla/mux"
)

// InstallationInfo is one checked host in GET /api/hosts.
type InstallationInfo struct {
	Host       string `json:"host"`
	Remote     bool   `json:"remote"`
	Executable string `json:"executable"`
	Version    string `json:"version,omitempty"`
	Available  bool   `json:"available"`
	Error      string `json:"error,omitempty"`
}

// HostInfo is a configured SSH host with its secrets left out.
type HostInfo struct {
	Name        string `json:"name"`
	Hostname    string `json:"hostname"`
	User        string `json:"user"`
	Port        int    `json:"port,omitempty"`
	BlenderPath string `json:"blenderPath"`
	Auth        string `json:"auth"`
	Disabled    bool   `json:"disabled,omitempty"`
}

func (s *Server) registerHostRoutes(router *mux.Router) {
	router.HandleFunc("/api/hosts", s.hostsHandler).Methods("GET")
	router.HandleFunc("/api/ssh/hosts", s.listSSHHostsHandler).Methods("GET")
	router.HandleFunc("/api/ssh/hosts/{name}", s.getSSHHostHandler).Methods("GET")
}

// hostsHandler checks Blender on this machine and every configured host.
func (s *Server) hostsHandler(w http.ResponseWriter, r *http.Request) {
	ch := discovery.FindInstallations(r.Context(), s.Config.SSHHosts, discovery.Options{
		LocalExecutable: blender.Resolve(s.Config.BlenderPath),
		SkipLocal:       r.URL.Query().Get("remote_only") == "true",
		Check:           s.Check,
	})
	infos := []InstallationInfo{}
	for _, inst := range discovery.Collect(ch) {
		info := InstallationInfo{
			Host:       inst.Host,
			Remote:     inst.Remote,
			Executable: inst.Executable,
			Available:  inst.Available(),
		}
		if inst.Available() {
			info.Version = inst.Version.String()
		} else {
			info.Error = inst.Err.Error()
		}
		infos = append(infos, info)
	}
	writeJSON(w, http.StatusOK, infos)
}

func hostInfo(h config.SSHHost) HostInfo {
	auth := "agent"
	switch {
	case h.KeyPath != "":
		auth = "key"
	case h.Password != "":
		auth = "password"
	}
	return HostInfo{
		Name:        h.Name,
		Hostname:    h.Hostname,
		User:        h.User,
		Port:        h.Port,
		BlenderPath: h.Executable(),
		Auth:        auth,
		Disabled:    h.Disabled,
	}
}

func (s *Server) listSSHHostsHandler(w http.ResponseWriter, r *http.Request) {
	hosts := make([]HostInfo, 0, len(s.Config.SSHHosts))
	for _, h := range s.Config.SSHHosts {
		hosts = append(hosts, hostInfo(h))
	}
	writeJSON(w, http.StatusOK, hosts)
}

func (s *Server) getSSHHostHandler(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	for _, h := range s.Config.SSHHosts {
		if h.Name == name {
			writeJSON(w, http.StatusOK, hostInfo(h))
			return
		}
	}
	writeError(w, http.StatusNotFound, fmt.Errorf("SSH host '%s' not found", name))
}
