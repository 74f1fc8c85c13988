package persistence

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relicta-tech/revlabel/internal/domain/build"
	"github.com/relicta-tech/revlabel/internal/domain/label"
	rlerrors "github.com/relicta-tech/revlabel/internal/errors"
)

func sampleState(t *testing.T) *build.State {
	t.Helper()

	facts, err := label.Compute(label.RawRevisionFacts{
		CommitHash:   "abc1234def5678abc1234def5678abc1234def56",
		CheckinCount: 5,
	}, label.Policy{Grammar: label.GrammarDotted, Major: 1}, "1.0.5.3", true)
	require.NoError(t, err)

	s := &build.State{}
	now := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	_, err = s.Begin(facts, now)
	require.NoError(t, err)
	_, err = s.Finish(build.StatusSuccess, now.Add(time.Minute))
	require.NoError(t, err)
	_, err = s.Begin(facts, now.Add(2*time.Minute))
	require.NoError(t, err)
	return s
}

func TestFileStateRepository_LoadMissing(t *testing.T) {
	repo, err := NewFileStateRepository(filepath.Join(t.TempDir(), "state.json"))
	require.NoError(t, err)

	state, err := repo.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, label.SentinelLabel, state.PreviousLabel(label.SentinelLabel))
	assert.False(t, state.LastBuildSucceeded())
}

func TestFileStateRepository_SaveLoad(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), ".revlabel", "state.json")
	repo, err := NewFileStateRepository(path)
	require.NoError(t, err)
	assert.Equal(t, path, repo.Path())

	want := sampleState(t)
	require.NoError(t, repo.Save(ctx, want))

	got, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "1.0.5.4", got.LastSuccessfulLabel)
	assert.Equal(t, build.StatusSuccess, got.LastStatus)
	require.NotNil(t, got.Current)
	assert.Equal(t, want.Current.ID, got.Current.ID)
	assert.Equal(t, build.StatusPending, got.Current.Status)
	require.Len(t, got.History, 1)
	assert.True(t, want.History[0].FinishedAt.Equal(got.History[0].FinishedAt))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"version": 1`)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestFileStateRepository_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("empty path", func(t *testing.T) {
		_, err := NewFileStateRepository("")
		assert.True(t, rlerrors.IsKind(err, rlerrors.KindValidation))
	})

	t.Run("corrupt file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "state.json")
		require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))
		repo, err := NewFileStateRepository(path)
		require.NoError(t, err)

		_, err = repo.Load(ctx)
		require.Error(t, err)
		assert.Equal(t, rlerrors.KindState, rlerrors.GetKind(err))
	})

	t.Run("newer format", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "state.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"version": 99, "state": {}}`), 0o600))
		repo, err := NewFileStateRepository(path)
		require.NoError(t, err)

		_, err = repo.Load(ctx)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "newer release")
	})

	t.Run("oversized file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "state.json")
		require.NoError(t, os.WriteFile(path, []byte(strings.Repeat(" ", MaxStateFileSize+1)), 0o600))
		repo, err := NewFileStateRepository(path)
		require.NoError(t, err)

		_, err = repo.Load(ctx)
		assert.Error(t, err)
	})

	t.Run("nil state", func(t *testing.T) {
		repo, err := NewFileStateRepository(filepath.Join(t.TempDir(), "state.json"))
		require.NoError(t, err)
		assert.Error(t, repo.Save(ctx, nil))
	})

	t.Run("canceled context", func(t *testing.T) {
		repo, err := NewFileStateRepository(filepath.Join(t.TempDir(), "state.json"))
		require.NoError(t, err)

		canceled, cancel := context.WithCancel(ctx)
		cancel()

		_, err = repo.Load(canceled)
		assert.True(t, rlerrors.IsKind(err, rlerrors.KindCanceled))
		assert.True(t, rlerrors.IsKind(repo.Save(canceled, &build.State{}), rlerrors.KindCanceled))
	})
}

func TestFileStateRepository_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	repo, err := NewFileStateRepository(filepath.Join(t.TempDir(), "state.json"))
	require.NoError(t, err)
	state := sampleState(t)
	require.NoError(t, repo.Save(ctx, state))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = repo.Load(ctx)
		}()
		go func() {
			defer wg.Done()
			_ = repo.Save(ctx, state)
		}()
	}
	wg.Wait()

	got, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "1.0.5.4", got.LastSuccessfulLabel)
}

func TestMemoryStateRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryStateRepository(&build.State{LastSuccessfulLabel: "7-abc1234", LastStatus: build.StatusSuccess})

	got, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "7-abc1234", got.LastSuccessfulLabel)

	got.LastSuccessfulLabel = "mutated"
	again, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "7-abc1234", again.LastSuccessfulLabel, "Load must return a copy")

	want := sampleState(t)
	require.NoError(t, repo.Save(ctx, want))
	want.Current.Label = "mutated"

	got, err = repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "1.0.5.4", got.Current.Label)
	assert.Error(t, repo.Save(ctx, nil))

	empty, err := NewMemoryStateRepository(nil).Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, empty.LastSuccessfulLabel)
}
