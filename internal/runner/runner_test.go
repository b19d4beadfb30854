package runner

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"blender-engine/internal/blender"
	"blender-engine/internal/config"
	"blender-engine/internal/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logger.SetLogger(logger.Discard())
	os.Exit(m.Run())
}

// fakeBlender writes an executable shell script standing in for Blender.
func fakeBlender(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake blender needs a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "blender")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0755))
	return path
}

func step(exe string, code string) Step {
	return Step{
		Name:       "test",
		Invocation: blender.Invocation{Executable: exe, Code: code},
		Target:     LocalTarget(),
	}
}

const echoArgs = `for a in "$@"; do echo "arg:$a"; done
echo "Warning: fake" >&2`

func TestCaptureSuccess(t *testing.T) {
	exe := fakeBlender(t, echoArgs)

	res, err := Capture(context.Background(), step(exe, "print('hi')"))
	require.NoError(t, err)
	assert.True(t, res.Success())
	assert.Equal(t, 0, res.ExitCode)
	assert.Contains(t, res.Stdout, "arg:--background\n")
	assert.Contains(t, res.Stdout, "arg:--python-expr\n")
	assert.Contains(t, res.Stdout, "arg:print('hi')\n")
	assert.Equal(t, "Warning: fake\n", res.Stderr)
	assert.Greater(t, res.Duration, time.Duration(0))
}

func TestCaptureExitStatus(t *testing.T) {
	exe := fakeBlender(t, `echo "Error: boom" >&2
exit 3`)

	res, err := Capture(context.Background(), step(exe, "x"))
	require.Error(t, err)
	var exitErr *ExitError
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, 3, exitErr.Code)
	assert.Contains(t, err.Error(), "exited with status 3")
	assert.Equal(t, 3, res.ExitCode)
	assert.False(t, res.Success())
	assert.Contains(t, res.Stderr, "Error: boom")
}

func TestCaptureTimeout(t *testing.T) {
	exe := fakeBlender(t, "exec sleep 5")

	s := step(exe, "x")
	s.Timeout = 100 * time.Millisecond
	start := time.Now()
	res, err := Capture(context.Background(), s)
	require.ErrorIs(t, err, ErrTimeout)
	assert.True(t, res.TimedOut)
	assert.Equal(t, -1, res.ExitCode)
	assert.Less(t, time.Since(start), 4*time.Second)
}

func TestCaptureCancelled(t *testing.T) {
	exe := fakeBlender(t, "exec sleep 5")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Capture(ctx, step(exe, "x"))
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrTimeout)
}

func TestCaptureStartFailure(t *testing.T) {
	res, err := Capture(context.Background(), step(filepath.Join(t.TempDir(), "missing"), "x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to start")
	assert.Equal(t, -1, res.ExitCode)
}

func TestRunStreamsLines(t *testing.T) {
	exe := fakeBlender(t, echoArgs)

	outChan, errChan := Run(context.Background(), step(exe, "x"), false)
	var stdout, stderr []string
	for line := range outChan {
		if line.IsError {
			stderr = append(stderr, line.Line)
		} else {
			stdout = append(stdout, line.Line)
		}
	}
	assert.NoError(t, <-errChan)
	assert.Equal(t, []string{"arg:--background", "arg:--python-expr", "arg:x"}, stdout)
	assert.Equal(t, []string{"Warning: fake"}, stderr)
}

func TestRunReportsFailure(t *testing.T) {
	exe := fakeBlender(t, "exit 1")

	outChan, errChan := Run(context.Background(), step(exe, "x"), false)
	for range outChan {
	}
	err := <-errChan
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exited with status 1")
}

func TestRemoteStepErrors(t *testing.T) {
	s := step("blender", "x")
	s.Target = HostTarget{IsRemote: true, ServerName: "farm"}
	_, err := Capture(context.Background(), s)
	assert.ErrorContains(t, err, "HostConfig is nil")

	host := &config.SSHHost{Name: "farm", Hostname: "farm.example", User: "render"}
	s.Target = RemoteTarget(host)
	assert.Equal(t, "farm", s.Target.ServerName)
	_, err = Capture(context.Background(), s)
	assert.ErrorIs(t, err, ErrNoSSHManager)
}

func TestLineWriter(t *testing.T) {
	out := make(chan OutputLine, 10)
	w := newLineWriter(out, true)

	_, _ = w.Write([]byte("Fra:1 Mem:12M"))
	_, _ = w.Write([]byte(" | Sample 1/128\r\nFra:1 "))
	_, _ = w.Write([]byte("done\npartial"))
	w.Flush()
	close(out)

	var lines []string
	for l := range out {
		assert.True(t, l.IsError)
		lines = append(lines, l.Line)
	}
	assert.Equal(t, []string{"Fra:1 Mem:12M | Sample 1/128", "Fra:1 done", "partial"}, lines)
	assert.False(t, strings.Contains(strings.Join(lines, ""), "\r"))
}
