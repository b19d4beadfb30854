// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

// Package discovery finds Blender installations on this machine and on the
// configured SSH render hosts.
package discovery

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"blender-engine/internal/blender"
	"blender-engine/internal/config"
	"blender-engine/internal/logger"
	"blender-engine/internal/runner"

	"golang.org/x/sync/semaphore"
)

const maxConcurrentDiscoveries = 8

// checkTimeout bounds a single `blender --version` call.
const checkTimeout = 30 * time.Second

// Installation is the outcome of checking one host.
type Installation struct {
	Host       string
	Remote     bool
	Executable string
	Version    blender.Version
	Err        error
	Target     runner.HostTarget
}

// Available reports whether the check found a working Blender.
func (i Installation) Available() bool { return i.Err == nil }

// Checker runs a step and captures its output. runner.Capture outside tests.
type Checker func(ctx context.Context, step runner.Step) (runner.Result, error)

// Options configure FindInstallations.
type Options struct {
	// LocalExecutable overrides discovery of the local Blender binary.
	LocalExecutable string
	// SkipLocal checks only the SSH hosts.
	SkipLocal bool
	Check     Checker
}

// FindInstallations checks the local host and every enabled SSH host in
// hosts concurrently. The channel is closed once every check has reported.
func FindInstallations(ctx context.Context, hosts []config.SSHHost, opts Options) <-chan Installation {
	logger.Info("Starting Blender discovery", "ssh_host_count", len(hosts))

	capture := opts.Check
	if capture == nil {
		capture = runner.Capture
	}

	out := make(chan Installation, len(hosts)+1)
	var wg sync.WaitGroup
	sem := semaphore.NewWeighted(maxConcurrentDiscoveries)

	check := func(target runner.HostTarget, executable string) {
		defer wg.Done()
		inst := Installation{Host: target.ServerName, Remote: target.IsRemote, Executable: executable, Target: target}

		if err := sem.Acquire(ctx, 1); err != nil {
			inst.Err = fmt.Errorf("failed to acquire semaphore for %s: %w", target.ServerName, err)
			out <- inst
			return
		}
		defer sem.Release(1)

		inst.Version, inst.Err = checkVersion(ctx, capture, target, executable)
		if inst.Err != nil {
			logger.Warn("Blender version check failed", "host", inst.Host, "error", inst.Err)
		} else {
			logger.Info("Blender found", "host", inst.Host, "executable", executable, "version", inst.Version.String())
		}
		out <- inst
	}

	if !opts.SkipLocal {
		wg.Add(1)
		go check(runner.LocalTarget(), blender.Resolve(opts.LocalExecutable))
	}
	for i := range hosts {
		hc := hosts[i]
		if hc.Disabled {
			logger.Debug("Skipping disabled host", "host_name", hc.Name)
			continue
		}
		wg.Add(1)
		go check(runner.RemoteTarget(&hc), hc.Executable())
	}

	go func() {
		wg.Wait()
		close(out)
	}()
	return out
}

func checkVersion(ctx context.Context, check Checker, target runner.HostTarget, executable string) (blender.Version, error) {
	res, err := check(ctx, runner.Step{
		Name:       "version",
		Invocation: blender.VersionInvocation(executable),
		Target:     target,
		Timeout:    checkTimeout,
	})
	if err != nil {
		return blender.Version{}, err
	}
	return blender.ParseVersion(res.Stdout)
}

// Collect drains FindInstallations and sorts the result with the local host
// first, then by host name.
func Collect(ch <-chan Installation) []Installation {
	var all []Installation
	for inst := range ch {
		all = append(all, inst)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Remote != all[j].Remote {
			return !all[i].Remote
		}
		return all[i].Host < all[j].Host
	})
	return all
}
