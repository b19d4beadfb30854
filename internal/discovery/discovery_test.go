package discovery

import (
	"context"
	"errors"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"blender-engine/internal/blender"
	"blender-engine/internal/config"
	"blender-engine/internal/logger"
	"blender-engine/internal/runner"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logger.SetLogger(logger.Discard())
	os.Exit(m.Run())
}

func TestFindInstallations(t *testing.T) {
	hosts := []config.SSHHost{
		{Name: "zeta", Hostname: "z", User: "u", BlenderPath: "/opt/blender/blender"},
		{Name: "alpha", Hostname: "a", User: "u"},
		{Name: "off", Hostname: "o", User: "u", Disabled: true},
	}

	var seen []string
	check := func(_ context.Context, s runner.Step) (runner.Result, error) {
		assert.Equal(t, []string{"--version"}, s.Invocation.Flags)
		if s.Target.ServerName == "alpha" {
			return runner.Result{ExitCode: 127}, errors.New("exited with status 127")
		}
		return runner.Result{Stdout: "Blender 4.1.1\n"}, nil
	}

	got := Collect(FindInstallations(context.Background(), hosts, Options{LocalExecutable: "blender", Check: check}))
	for _, inst := range got {
		seen = append(seen, inst.Host)
	}
	require.Equal(t, []string{"local", "alpha", "zeta"}, seen)

	assert.True(t, got[0].Available())
	assert.False(t, got[0].Remote)
	assert.Equal(t, blender.Version{Major: 4, Minor: 1, Patch: 1}, got[0].Version)

	assert.False(t, got[1].Available())
	assert.ErrorContains(t, got[1].Err, "127")

	assert.True(t, got[2].Remote)
	assert.Equal(t, "/opt/blender/blender", got[2].Executable)
}

func TestFindInstallationsUnparsableVersion(t *testing.T) {
	check := func(context.Context, runner.Step) (runner.Result, error) {
		return runner.Result{Stdout: "sh: blender: not found"}, nil
	}
	got := Collect(FindInstallations(context.Background(), nil, Options{Check: check}))
	require.Len(t, got, 1)
	assert.Error(t, got[0].Err)
}

func TestFindInstallationsBoundsConcurrency(t *testing.T) {
	var hosts []config.SSHHost
	for _, n := range []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k", "l"} {
		hosts = append(hosts, config.SSHHost{Name: n, Hostname: n, User: "u"})
	}

	var active, peak int32
	check := func(context.Context, runner.Step) (runner.Result, error) {
		n := atomic.AddInt32(&active, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		atomic.AddInt32(&active, -1)
		return runner.Result{Stdout: "Blender 3.6.2"}, nil
	}

	got := Collect(FindInstallations(context.Background(), hosts, Options{SkipLocal: true, Check: check}))
	assert.Len(t, got, len(hosts))
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(maxConcurrentDiscoveries))
}
