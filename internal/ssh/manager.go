// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

// Package ssh keeps one SSH client per render host so that consecutive
// Blender runs on a host share a connection.
package ssh

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"blender-engine/internal/config"
	"blender-engine/internal/logger"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"
)

const dialTimeout = 10 * time.Second

// ErrNoAuth is returned when a host has neither a usable key, an agent nor a
// password.
var ErrNoAuth = errors.New("no suitable authentication method (key, agent or password required)")

// Manager pools SSH clients by host name. It is safe for concurrent use.
type Manager struct {
	mu      sync.Mutex
	clients map[string]*ssh.Client
}

func NewManager() *Manager {
	return &Manager{clients: make(map[string]*ssh.Client)}
}

// Client returns a connected client for host. A pooled client is reused while
// it answers a keepalive.
func (m *Manager) Client(host config.SSHHost) (*ssh.Client, error) {
	if c := m.pooled(host.Name); c != nil {
		return c, nil
	}

	cfg, err := ClientConfig(host)
	if err != nil {
		return nil, err
	}
	addr := Address(host)
	c, err := ssh.Dial("tcp", addr, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to dial ssh host %s (%s): %w", host.Name, addr, err)
	}
	logger.Debug("SSH client connected", "host", host.Name, "addr", addr)
	return m.keep(host.Name, c), nil
}

// pooled returns the live pooled client for name, dropping a dead one.
func (m *Manager) pooled(name string) *ssh.Client {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.clients[name]
	if !ok {
		return nil
	}
	if _, _, err := c.SendRequest("keepalive@openssh.com", true, nil); err == nil {
		return c
	}
	closeClient(name, c)
	delete(m.clients, name)
	return nil
}

// keep stores c unless another goroutine connected to name first, in which
// case c is closed and the winner returned.
func (m *Manager) keep(name string, c *ssh.Client) *ssh.Client {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.clients[name]; ok {
		closeClient(name, c)
		return existing
	}
	m.clients[name] = c
	return c
}

// Close drops the pooled client for name so the next Client call redials.
func (m *Manager) Close(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.clients[name]; ok {
		closeClient(name, c)
		delete(m.clients, name)
	}
}

func (m *Manager) CloseAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for name, c := range m.clients {
		closeClient(name, c)
		delete(m.clients, name)
	}
}

func closeClient(name string, c *ssh.Client) {
	if err := c.Close(); err != nil {
		logger.Warn("Error closing SSH client", "host", name, "error", err)
	}
}

// Address returns host:port, port 22 unless configured.
func Address(host config.SSHHost) string {
	port := host.Port
	if port == 0 {
		port = 22
	}
	return net.JoinHostPort(host.Hostname, strconv.Itoa(port))
}

// ClientConfig builds the client configuration for host: its auth methods
// and a known_hosts check.
func ClientConfig(host config.SSHHost) (*ssh.ClientConfig, error) {
	auth, err := authMethods(host)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare auth methods for %s: %w", host.Name, err)
	}
	if len(auth) == 0 {
		return nil, fmt.Errorf("%s: %w", host.Name, ErrNoAuth)
	}
	hostKeys, err := hostKeyCallback()
	if err != nil {
		logger.Warn("Host key will not be verified", "host", host.Name, "error", err)
		hostKeys = ssh.InsecureIgnoreHostKey()
	}
	return &ssh.ClientConfig{
		User:            host.User,
		Auth:            auth,
		HostKeyCallback: hostKeys,
		Timeout:         dialTimeout,
	}, nil
}

// authMethods tries, in order, the key file, the running agent and the
// password.
func authMethods(host config.SSHHost) ([]ssh.AuthMethod, error) {
	var methods []ssh.AuthMethod

	if host.KeyPath != "" {
		signer, err := loadKey(host.KeyPath)
		if err != nil {
			return nil, err
		}
		if signer != nil {
			methods = append(methods, ssh.PublicKeys(signer))
		}
	}

	if socket := os.Getenv("SSH_AUTH_SOCK"); socket != "" {
		if conn, err := net.Dial("unix", socket); err == nil {
			methods = append(methods, ssh.PublicKeysCallback(agent.NewClient(conn).Signers))
		} else {
			logger.Debug("SSH agent not reachable", "socket", socket, "error", err)
		}
	}

	if host.Password != "" {
		methods = append(methods, ssh.Password(host.Password))
	}
	return methods, nil
}

// loadKey parses the private key at path. An encrypted key yields a nil
// signer; it is expected to be loaded in the agent.
func loadKey(path string) (ssh.Signer, error) {
	resolved, err := config.ResolvePath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(resolved)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key file %s: %w", resolved, err)
	}
	signer, err := ssh.ParsePrivateKey(data)
	var missing *ssh.PassphraseMissingError
	switch {
	case errors.As(err, &missing):
		logger.Warn("Private key is encrypted, relying on the agent or a password", "path", resolved)
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("failed to parse private key file %s: %w", resolved, err)
	}
	return signer, nil
}

// hostKeyCallback checks against ~/.ssh/known_hosts. Without that file
// host keys are accepted unverified.
func hostKeyCallback() (ssh.HostKeyCallback, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get user home directory for known_hosts: %w", err)
	}
	path := filepath.Join(home, ".ssh", "known_hosts")
	cb, err := knownhosts.New(path)
	if errors.Is(err, os.ErrNotExist) {
		logger.Warn("known_hosts file not found, connecting without host key verification", "path", path)
		return ssh.InsecureIgnoreHostKey(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load known_hosts file %s: %w", path, err)
	}
	return cb, nil
}
