//go:build !windows

package pty

import (
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/renato0307/farol/internal/ports"
)

func TestSpawnRunsCommandInDir(t *testing.T) {
	dir := t.TempDir()
	sp := NewSpawner()

	h, err := sp.Spawn("sh", []string{"-c", "pwd"}, ports.SpawnOptions{
		Dir:  dir,
		Cols: 80,
		Rows: 24,
	})
	require.NoError(t, err)

	out, _ := io.ReadAll(h.Output())
	assert.Contains(t, string(out), strings.TrimPrefix(dir, "/private"))

	select {
	case <-h.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("process did not exit")
	}
	assert.NoError(t, h.ExitErr())
}

func TestSpawnUnknownCommand(t *testing.T) {
	sp := NewSpawner()

	_, err := sp.Spawn("definitely-not-a-real-command-xyz", nil, ports.SpawnOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "command not found")
}

func TestSpawnMissingDir(t *testing.T) {
	sp := NewSpawner()

	_, err := sp.Spawn("sh", nil, ports.SpawnOptions{Dir: "/does/not/exist"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "working directory does not exist")
}

func TestSpawnWriteReachesProcess(t *testing.T) {
	sp := NewSpawner()

	h, err := sp.Spawn("sh", []string{"-c", "read line; echo got:$line"}, ports.SpawnOptions{
		Dir: t.TempDir(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = h.Kill() })

	_, err = h.Write([]byte("hello\n"))
	require.NoError(t, err)

	out, _ := io.ReadAll(h.Output())
	assert.Contains(t, string(out), "got:hello")
}

func TestKillStopsProcess(t *testing.T) {
	sp := NewSpawner()

	h, err := sp.Spawn("sleep", []string{"60"}, ports.SpawnOptions{Dir: t.TempDir()})
	require.NoError(t, err)

	require.NoError(t, h.Kill())
	require.NoError(t, h.Kill(), "kill is idempotent")

	select {
	case <-h.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("process survived kill")
	}
	assert.Error(t, h.ExitErr(), "a killed process reports an abnormal exit")
}

func TestResize(t *testing.T) {
	sp := NewSpawner()

	h, err := sp.Spawn("sleep", []string{"60"}, ports.SpawnOptions{Dir: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = h.Kill() })

	assert.NoError(t, h.Resize(132, 43))
}
