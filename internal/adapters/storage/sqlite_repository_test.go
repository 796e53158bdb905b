package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/renato0307/farol/internal/domain"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func testSession(workDir string) domain.Session {
	now := time.Now().UTC().Truncate(time.Second)
	return domain.Session{
		Args:        []string{"--continue"},
		Command:     "claude",
		CreatedAt:   now,
		ExecutionID: "exec-1",
		LastUpdated: now,
		State:       domain.StateBusy,
		Tool:        "claude",
		WorkDir:     workDir,
	}
}

func TestAddAndGet(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	session := testSession("/w/alpha")
	require.NoError(t, repo.Add(ctx, session))

	got, err := repo.Get(ctx, "/w/alpha")
	require.NoError(t, err)
	assert.Equal(t, "/w/alpha", got.WorkDir)
	assert.Equal(t, "claude", got.Tool)
	assert.Equal(t, "claude", got.Command)
	assert.Equal(t, []string{"--continue"}, got.Args)
	assert.Equal(t, domain.StateBusy, got.State)
	assert.Equal(t, "exec-1", got.ExecutionID)
	assert.WithinDuration(t, session.CreatedAt, got.CreatedAt, time.Second)
}

func TestGetMissing(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.Get(context.Background(), "/w/missing")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestAddUpsertsExistingWorkDir(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	first := testSession("/w/alpha")
	first.State = domain.StateExited
	require.NoError(t, repo.Add(ctx, first))

	// A new session in the same directory replaces the stale record.
	second := testSession("/w/alpha")
	second.ExecutionID = "exec-2"
	second.Args = nil
	require.NoError(t, repo.Add(ctx, second))

	got, err := repo.Get(ctx, "/w/alpha")
	require.NoError(t, err)
	assert.Equal(t, "exec-2", got.ExecutionID)
	assert.Equal(t, domain.StateBusy, got.State)
	assert.Nil(t, got.Args)

	sessions, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, sessions, 1)
}

func TestListOrderedByWorkDir(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Add(ctx, testSession("/w/beta")))
	require.NoError(t, repo.Add(ctx, testSession("/w/alpha")))

	sessions, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, "/w/alpha", sessions[0].WorkDir)
	assert.Equal(t, "/w/beta", sessions[1].WorkDir)
}

func TestDelete(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Add(ctx, testSession("/w/alpha")))
	require.NoError(t, repo.Delete(ctx, "/w/alpha"))

	_, err := repo.Get(ctx, "/w/alpha")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	err = repo.Delete(ctx, "/w/alpha")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestUpdateState(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	session := testSession("/w/alpha")
	require.NoError(t, repo.Add(ctx, session))

	require.NoError(t, repo.UpdateState(ctx, "/w/alpha", domain.StateWaitingInput, "exec-2"))

	got, err := repo.Get(ctx, "/w/alpha")
	require.NoError(t, err)
	assert.Equal(t, domain.StateWaitingInput, got.State)
	assert.Equal(t, "exec-2", got.ExecutionID)
	assert.True(t, got.LastUpdated.After(session.LastUpdated) || got.LastUpdated.Equal(session.LastUpdated))

	err = repo.UpdateState(ctx, "/w/missing", domain.StateIdle, "exec-3")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestUpdateOutput(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	session := testSession("/w/alpha")
	require.NoError(t, repo.Add(ctx, session))

	raw := "\x1b[1mDo you want to proceed?\x1b[0m"
	require.NoError(t, repo.UpdateOutput(ctx, "/w/alpha", raw))

	got, err := repo.Get(ctx, "/w/alpha")
	require.NoError(t, err)
	assert.Equal(t, raw, got.LastOutput)
	assert.Equal(t, session.ExecutionID, got.ExecutionID, "output snapshot leaves state fields alone")

	err = repo.UpdateOutput(ctx, "/w/missing", raw)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}
