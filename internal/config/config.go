// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

// Package config handles application configuration including reading and writing
// the configuration file, managing SSH render host definitions, and providing
// access to Blender invocation defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// PathEnvVar overrides the location of the configuration file.
const PathEnvVar = "BLENDER_ENGINE_CONFIG"

// DefaultTimeout bounds a single Blender invocation.
const DefaultTimeout = 120 * time.Second

// SSHHost represents a remote machine with a Blender installation that
// operations can be dispatched to.
type SSHHost struct {
	// Name is the unique identifier for this host configuration
	Name string `yaml:"name"`

	// Hostname is the server address (IP or domain)
	Hostname string `yaml:"hostname"`

	// User is the SSH username for authentication
	User string `yaml:"user"`

	// Port is the SSH port number (optional, defaults to standard SSH port)
	Port int `yaml:"port,omitempty"`

	// KeyPath is the path to the SSH private key file
	KeyPath string `yaml:"key_path,omitempty"`

	// Password is an optional authentication method (plaintext, discouraged)
	Password string `yaml:"password,omitempty"`

	// BlenderPath is the Blender executable on the remote host (default "blender")
	BlenderPath string `yaml:"blender_path,omitempty"`

	// Disabled indicates whether this host should be skipped
	Disabled bool `yaml:"disabled,omitempty"`
}

// Executable returns the Blender command to run on this host.
func (h SSHHost) Executable() string {
	if h.BlenderPath != "" {
		return h.BlenderPath
	}
	return "blender"
}

// RenderDefaults are applied when a render command omits a setting.
type RenderDefaults struct {
	Engine      string `yaml:"engine,omitempty"`
	Samples     int    `yaml:"samples,omitempty"`
	ResolutionX int    `yaml:"resolution_x,omitempty"`
	ResolutionY int    `yaml:"resolution_y,omitempty"`
}

// Duration is a time.Duration that reads and writes as "90s" style strings.
type Duration time.Duration

func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Config represents the top-level application configuration
type Config struct {
	// BlenderPath pins the local Blender executable; empty means search PATH
	BlenderPath string `yaml:"blender_path,omitempty"`

	// Timeout bounds each Blender invocation; zero means DefaultTimeout
	Timeout Duration `yaml:"timeout,omitempty"`

	// BlendFile is a session .blend file opened before and saved after each operation
	BlendFile string `yaml:"blend_file,omitempty"`

	// OutputDir is the default directory for renders and exports
	OutputDir string `yaml:"output_dir,omitempty"`

	// Render holds defaults for render operations
	Render RenderDefaults `yaml:"render,omitempty"`

	// SSHHosts is a list of remote render hosts
	SSHHosts []SSHHost `yaml:"ssh_hosts"`
}

// EffectiveTimeout returns the configured timeout or DefaultTimeout.
func (c Config) EffectiveTimeout() time.Duration {
	if c.Timeout <= 0 {
		return DefaultTimeout
	}
	return time.Duration(c.Timeout)
}

// FindHost returns the enabled host with the given name.
func (c Config) FindHost(name string) (*SSHHost, error) {
	for i := range c.SSHHosts {
		if c.SSHHosts[i].Name == name {
			if c.SSHHosts[i].Disabled {
				return nil, fmt.Errorf("host '%s' is disabled", name)
			}
			return &c.SSHHosts[i], nil
		}
	}
	return nil, fmt.Errorf("host '%s' not found in configuration", name)
}

func DefaultConfigPath() (string, error) {
	if p := os.Getenv(PathEnvVar); p != "" {
		return p, nil
	}
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}
	return filepath.Join(configDir, "blender-engine", "config.yaml"), nil
}

// LoadConfig reads the configuration file, dropping disabled hosts.
func LoadConfig() (Config, error) {
	cfg, err := LoadRawConfig()
	if err != nil {
		return Config{}, err
	}
	cfg.SSHHosts = slices.DeleteFunc(cfg.SSHHosts, func(h SSHHost) bool {
		return h.Disabled
	})
	return cfg, nil
}

// LoadRawConfig reads the configuration file as-is, disabled hosts included.
// Commands that rewrite the file must start from this.
func LoadRawConfig() (Config, error) {
	configPath, err := DefaultConfigPath()
	if err != nil {
		return Config{}, err
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Config{}, nil
		}
		return Config{}, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
	}
	return cfg, nil
}

func EnsureConfigDir() error {
	configPath, err := DefaultConfigPath()
	if err != nil {
		return err
	}
	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0750); err != nil {
		return fmt.Errorf("failed to create config directory %s: %w", configDir, err)
	}
	return nil
}

func SaveConfig(cfg Config) error {
	configPath, err := DefaultConfigPath()
	if err != nil {
		return err
	}

	if err := EnsureConfigDir(); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	// rw-r----- since a host entry may carry a password
	if err := os.WriteFile(configPath, data, 0640); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", configPath, err)
	}
	return nil
}

// ResolvePath expands a leading "~/" to the user's home directory.
func ResolvePath(path string) (string, error) {
	if !strings.HasPrefix(path, "~/") {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return path, fmt.Errorf("could not get user home directory to resolve path '%s': %w", path, err)
	}

	return filepath.Join(homeDir, path[2:]), nil
}
