// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/kevinburke/ssh_config"
)

// PotentialHost is a host block read from an OpenSSH client config.
type PotentialHost struct {
	Alias    string
	Hostname string
	User     string
	Port     int
	KeyPath  string
}

func DefaultSSHConfigPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".ssh", "config"), nil
}

// ParseSSHConfig reads ~/.ssh/config. A missing file yields no hosts.
func ParseSSHConfig() ([]PotentialHost, error) {
	sshConfigPath, err := DefaultSSHConfigPath()
	if err != nil {
		return nil, err
	}

	f, err := os.Open(sshConfigPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []PotentialHost{}, nil
		}
		return nil, fmt.Errorf("failed to open ssh config file %s: %w", sshConfigPath, err)
	}
	defer f.Close()

	hosts, err := DecodeSSHConfig(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse ssh config file %s: %w", sshConfigPath, err)
	}
	return hosts, nil
}

// DecodeSSHConfig returns one PotentialHost per concrete alias. Wildcard and
// negated patterns are skipped, as are aliases without a User.
func DecodeSSHConfig(r io.Reader) ([]PotentialHost, error) {
	cfg, err := ssh_config.Decode(r)
	if err != nil {
		return nil, err
	}

	var hosts []PotentialHost
	seen := map[string]bool{}
	for _, block := range cfg.Hosts {
		for _, pattern := range block.Patterns {
			alias := pattern.String()
			if seen[alias] || strings.HasPrefix(alias, "!") || strings.ContainsAny(alias, "*?") {
				continue
			}
			seen[alias] = true
			if h, ok := potentialHost(cfg, alias); ok {
				hosts = append(hosts, h)
			}
		}
	}
	return hosts, nil
}

// potentialHost resolves alias against every matching block of cfg.
func potentialHost(cfg *ssh_config.Config, alias string) (PotentialHost, bool) {
	get := func(key string) string {
		v, _ := cfg.Get(alias, key)
		return strings.TrimSpace(v)
	}
	h := PotentialHost{
		Alias:    alias,
		Hostname: get("HostName"),
		User:     get("User"),
		Port:     22,
		KeyPath:  get("IdentityFile"),
	}
	if h.User == "" {
		return PotentialHost{}, false
	}
	if h.Hostname == "" {
		h.Hostname = alias
	}
	if p, err := strconv.Atoi(get("Port")); err == nil && p > 0 {
		h.Port = p
	}
	if resolved, err := ResolvePath(h.KeyPath); err == nil {
		h.KeyPath = resolved
	}
	return h, true
}

// ConvertToRenderHost turns an imported host into a configured render host.
func ConvertToRenderHost(p PotentialHost, uniqueName, blenderPath string) (SSHHost, error) {
	if p.Hostname == "" || p.User == "" {
		return SSHHost{}, fmt.Errorf("cannot convert potential host '%s' with missing hostname or user", p.Alias)
	}
	if uniqueName == "" {
		return SSHHost{}, fmt.Errorf("a unique name is required for the render host")
	}

	return SSHHost{
		Name:        uniqueName,
		Hostname:    p.Hostname,
		User:        p.User,
		Port:        p.Port,
		KeyPath:     p.KeyPath,
		BlenderPath: blenderPath,
	}, nil
}
