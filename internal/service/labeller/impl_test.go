package labeller

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relicta-tech/revlabel/internal/domain/build"
	"github.com/relicta-tech/revlabel/internal/domain/label"
	"github.com/relicta-tech/revlabel/internal/domain/sourcecontrol"
	rlerrors "github.com/relicta-tech/revlabel/internal/errors"
	"github.com/relicta-tech/revlabel/internal/infrastructure/persistence"
	"github.com/relicta-tech/revlabel/internal/infrastructure/publish"
)

const (
	hashA = "abc1234def5678abc1234def5678abc1234def56"
	hashB = "fed9876cba5432fed9876cba5432fed9876cba54"
)

// fakeRepo is an in-memory sourcecontrol.Repository.
type fakeRepo struct {
	rev        *sourcecontrol.Revision
	revErr     error
	remotePath string
	remoteErr  error
	tags       sourcecontrol.TagList
	tagsErr    error
	refs       []string
}

func (f *fakeRepo) ReadRevision(_ context.Context, ref string) (*sourcecontrol.Revision, error) {
	f.refs = append(f.refs, ref)
	if f.revErr != nil {
		return nil, f.revErr
	}
	rev := *f.rev
	return &rev, nil
}

func (f *fakeRepo) RepositoryPath(context.Context, string) (string, error) {
	return f.remotePath, f.remoteErr
}

func (f *fakeRepo) ListTags(context.Context, string) (sourcecontrol.TagList, error) {
	return f.tags, f.tagsErr
}

func revision(hash string, count int) *sourcecontrol.Revision {
	return &sourcecontrol.Revision{
		Hash:         sourcecontrol.CommitHash(hash),
		Parents:      []sourcecontrol.CommitHash{"1111111111111111111111111111111111111111"},
		Tree:         "2222222222222222222222222222222222222222",
		CheckinCount: count,
	}
}

type harness struct {
	repo      *fakeRepo
	states    *persistence.MemoryStateRepository
	published *publish.InMemoryPublisher
	svc       *ServiceImpl
	logs      *bytes.Buffer
}

func newHarness(t *testing.T, repo *fakeRepo, initial *build.State, opts ...ServiceOption) *harness {
	t.Helper()

	h := &harness{
		repo:      repo,
		states:    persistence.NewMemoryStateRepository(initial),
		published: publish.NewInMemoryPublisher(),
		logs:      &bytes.Buffer{},
	}
	now := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	base := []ServiceOption{
		WithRepository(repo),
		WithStateRepository(h.states),
		WithPublisher(h.published),
		WithLogger(log.NewWithOptions(h.logs, log.Options{Level: log.DebugLevel})),
		WithClock(func() time.Time { return now }),
	}

	svc, err := NewService(append(base, opts...)...)
	require.NoError(t, err)
	h.svc = svc
	return h
}

func TestNewService_Validation(t *testing.T) {
	repo := &fakeRepo{rev: revision(hashA, 1)}
	states := persistence.NewMemoryStateRepository(nil)

	_, err := NewService(WithStateRepository(states))
	assert.True(t, rlerrors.IsKind(err, rlerrors.KindValidation))

	_, err = NewService(WithRepository(repo))
	assert.True(t, rlerrors.IsKind(err, rlerrors.KindValidation))

	_, err = NewService(WithRepository(repo), WithStateRepository(states), WithVersionSource("file", ""))
	assert.True(t, rlerrors.IsKind(err, rlerrors.KindValidation))

	_, err = NewService(WithRepository(repo), WithStateRepository(states), WithPolicy(label.Policy{Grammar: "calver"}))
	assert.ErrorIs(t, err, label.ErrUnknownGrammar)

	svc, err := NewService(WithRepository(repo), WithStateRepository(states), WithLogger(nil), WithClock(nil))
	require.NoError(t, err)
	assert.NotNil(t, svc.cfg.Logger)
	assert.Equal(t, "HEAD", svc.cfg.Ref)
}

func TestNext_Scenarios(t *testing.T) {
	tests := []struct {
		name      string
		policy    label.Policy
		rev       *sourcecontrol.Revision
		state     *build.State
		wantLabel string
	}{
		{
			name:      "dotted same checkin increments",
			policy:    label.Policy{Grammar: label.GrammarDotted, Major: 1},
			rev:       revision(hashA, 5),
			state:     &build.State{LastSuccessfulLabel: "1.0.5.3", LastStatus: build.StatusSuccess},
			wantLabel: "1.0.5.4",
		},
		{
			name:      "dotted new checkin resets",
			policy:    label.Policy{Grammar: label.GrammarDotted, Major: 1},
			rev:       revision(hashA, 6),
			state:     &build.State{LastSuccessfulLabel: "1.0.5.3", LastStatus: build.StatusSuccess},
			wantLabel: "1.0.6.1",
		},
		{
			name:      "legacy same hash increments",
			policy:    label.Policy{Grammar: label.GrammarLegacy},
			rev:       revision(hashA, 9),
			state:     &build.State{LastSuccessfulLabel: "4-abc1234", LastStatus: build.StatusSuccess},
			wantLabel: "5-abc1234",
		},
		{
			name:      "no history starts at one",
			policy:    label.Policy{Grammar: label.GrammarDotted, Major: 1},
			rev:       revision(hashA, 1),
			state:     nil,
			wantLabel: "1.0.1.1",
		},
		{
			name:      "failed build resets",
			policy:    label.Policy{Grammar: label.GrammarDotted, Major: 1},
			rev:       revision(hashA, 5),
			state:     &build.State{LastSuccessfulLabel: "1.0.5.3", LastStatus: build.StatusFailure},
			wantLabel: "1.0.5.1",
		},
		{
			name:      "failed build increments when allowed",
			policy:    label.Policy{Grammar: label.GrammarDotted, Major: 1, IncrementOnFailure: true},
			rev:       revision(hashA, 5),
			state:     &build.State{LastSuccessfulLabel: "1.0.5.3", LastStatus: build.StatusFailure},
			wantLabel: "1.0.5.4",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, &fakeRepo{rev: tt.rev, remotePath: "/srv/git/widgets"}, tt.state, WithPolicy(tt.policy))

			res, err := h.svc.Next(context.Background(), NextOptions{})
			require.NoError(t, err)
			assert.Equal(t, tt.wantLabel, res.Label())

			require.NotNil(t, res.Record)
			assert.Equal(t, build.StatusPending, res.Record.Status)

			stored, err := h.states.Load(context.Background())
			require.NoError(t, err)
			require.NotNil(t, stored.Current)
			assert.Equal(t, tt.wantLabel, stored.Current.Label)

			last := h.published.Last()
			v, ok := last.Get("CCNetLabel")
			assert.True(t, ok)
			assert.Equal(t, tt.wantLabel, v)
			v, _ = last.Get("CCNetGitRepositoryPath")
			assert.Equal(t, "/srv/git/widgets", v)
		})
	}
}

func TestNext_FullCycle(t *testing.T) {
	ctx := context.Background()
	repo := &fakeRepo{rev: revision(hashA, 5)}
	h := newHarness(t, repo, nil)

	first, err := h.svc.Next(ctx, NextOptions{})
	require.NoError(t, err)
	assert.Equal(t, "1.0.5.1", first.Label())
	assert.Equal(t, label.SentinelLabel, first.PreviousLabel)

	_, err = h.svc.Record(ctx, build.StatusSuccess)
	require.NoError(t, err)

	second, err := h.svc.Next(ctx, NextOptions{})
	require.NoError(t, err)
	assert.Equal(t, "1.0.5.2", second.Label())

	_, err = h.svc.Record(ctx, build.StatusFailure)
	require.NoError(t, err)

	third, err := h.svc.Next(ctx, NextOptions{})
	require.NoError(t, err)
	assert.Equal(t, "1.0.5.1", third.Label(), "a failed build resets the cycle")

	_, err = h.svc.Record(ctx, build.StatusSuccess)
	require.NoError(t, err)

	repo.rev = revision(hashB, 6)
	fourth, err := h.svc.Next(ctx, NextOptions{})
	require.NoError(t, err)
	assert.Equal(t, "1.0.6.1", fourth.Label())

	state, err := h.svc.State(ctx)
	require.NoError(t, err)
	assert.Len(t, state.History, 3)
	assert.Equal(t, "1.0.5.1", state.LastSuccessfulLabel)
	assert.Len(t, h.published.Published(), 4)
}

func TestNext_Overrides(t *testing.T) {
	h := newHarness(t, &fakeRepo{rev: revision(hashA, 5)},
		&build.State{LastSuccessfulLabel: "1.0.5.9", LastStatus: build.StatusFailure})

	previous := "1.0.5.3"
	succeeded := true
	res, err := h.svc.Next(context.Background(), NextOptions{PreviousLabel: &previous, LastBuildSucceeded: &succeeded})
	require.NoError(t, err)
	assert.Equal(t, "1.0.5.4", res.Label())
	assert.Equal(t, "1.0.5.3", res.PreviousLabel)
	assert.True(t, res.LastBuildSucceeded)
}

func TestNext_HardFailuresPublishNothing(t *testing.T) {
	boom := errors.New("git exploded")

	tests := []struct {
		name string
		repo *fakeRepo
		want error
	}{
		{"revision query fails", &fakeRepo{revErr: boom}, boom},
		{"incomplete revision", &fakeRepo{revErr: sourcecontrol.ErrIncompleteRevision}, sourcecontrol.ErrIncompleteRevision},
		{"short hash", &fakeRepo{rev: revision("abc12", 3)}, label.ErrHashTooShort},
		{"remote lookup fails", &fakeRepo{rev: revision(hashA, 3), remoteErr: boom}, boom},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, tt.repo, nil)

			res, err := h.svc.Next(context.Background(), NextOptions{})
			require.ErrorIs(t, err, tt.want)
			assert.Nil(t, res)
			assert.Empty(t, h.published.Published())

			state, err := h.states.Load(context.Background())
			require.NoError(t, err)
			assert.Nil(t, state.Current)
		})
	}
}

func TestNext_MissingRemoteIsNotFatal(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"not configured", sourcecontrol.ErrRemoteNotFound},
		{"no URLs", rlerrors.GitWrap(sourcecontrol.ErrRemoteNotFound, "git.RepositoryPath", "remote origin has no URLs")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, &fakeRepo{rev: revision(hashA, 2), remoteErr: tt.err}, nil)

			res, err := h.svc.Next(context.Background(), NextOptions{})
			require.NoError(t, err)
			assert.Empty(t, res.RepositoryPath)
			_, ok := res.Published.Get("CCNetGitRepositoryPath")
			assert.False(t, ok)
			assert.Contains(t, h.logs.String(), "remote not configured")
		})
	}
}

func TestNext_PublishFailure(t *testing.T) {
	boom := errors.New("disk full")
	h := newHarness(t, &fakeRepo{rev: revision(hashA, 2)}, nil,
		WithPublisher(publish.Multi{failing{boom}}))

	_, err := h.svc.Next(context.Background(), NextOptions{})
	require.ErrorIs(t, err, boom)
	assert.True(t, rlerrors.IsKind(err, rlerrors.KindPublish))
}

type failing struct{ err error }

func (f failing) Publish(context.Context, label.FactSet) error { return f.err }

func TestNext_CustomRefAndPrefix(t *testing.T) {
	repo := &fakeRepo{rev: revision(hashA, 2)}
	h := newHarness(t, repo, nil, WithRef("origin/master"), WithFactPrefix("BUILD_"), WithRemote(""))

	res, err := h.svc.Next(context.Background(), NextOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"origin/master"}, repo.refs)

	v, ok := res.Published.Get("BUILD_Label")
	assert.True(t, ok)
	assert.Equal(t, "1.0.2.1", v)
	assert.Len(t, res.Published, 6)
}

func TestNext_VersionFromTag(t *testing.T) {
	ctx := context.Background()

	t.Run("newest tag sets major and minor", func(t *testing.T) {
		repo := &fakeRepo{rev: revision(hashA, 12), tags: sourcecontrol.TagList{
			sourcecontrol.NewTag("v2.3.1", hashB, "v"),
			sourcecontrol.NewTag("v2.4.0", hashA, "v"),
			sourcecontrol.NewTag("v3.0.0-rc.1", hashA, "v"),
		}}
		h := newHarness(t, repo, nil, WithVersionSource(VersionSourceTag, "v"))

		res, err := h.svc.Next(ctx, NextOptions{})
		require.NoError(t, err)
		assert.Equal(t, "2.4.12.1", res.Label())
		assert.Equal(t, "v2.4.0", res.BaseVersion)
	})

	t.Run("no tags falls back to policy", func(t *testing.T) {
		repo := &fakeRepo{rev: revision(hashA, 12)}
		h := newHarness(t, repo, nil, WithVersionSource(VersionSourceTag, "v"),
			WithPolicy(label.Policy{Grammar: label.GrammarDotted, Major: 7, Minor: 1}))

		res, err := h.svc.Next(ctx, NextOptions{})
		require.NoError(t, err)
		assert.Equal(t, "7.1.12.1", res.Label())
		assert.Empty(t, res.BaseVersion)
	})

	t.Run("tag listing failure aborts", func(t *testing.T) {
		boom := errors.New("tags unavailable")
		repo := &fakeRepo{rev: revision(hashA, 12), tagsErr: boom}
		h := newHarness(t, repo, nil, WithVersionSource(VersionSourceTag, "v"))

		_, err := h.svc.Next(ctx, NextOptions{})
		assert.ErrorIs(t, err, boom)
	})
}

func TestPreview_DoesNotRecordOrPublish(t *testing.T) {
	h := newHarness(t, &fakeRepo{rev: revision(hashA, 5)},
		&build.State{LastSuccessfulLabel: "1.0.5.3", LastStatus: build.StatusSuccess})

	res, err := h.svc.Preview(context.Background(), NextOptions{})
	require.NoError(t, err)
	assert.Equal(t, "1.0.5.4", res.Label())
	assert.Nil(t, res.Record)
	assert.Empty(t, h.published.Published())

	state, err := h.states.Load(context.Background())
	require.NoError(t, err)
	assert.Nil(t, state.Current)
}

func TestRecord_Errors(t *testing.T) {
	h := newHarness(t, &fakeRepo{rev: revision(hashA, 5)}, nil)

	_, err := h.svc.Record(context.Background(), build.StatusSuccess)
	require.ErrorIs(t, err, build.ErrNoBuildInProgress)
	assert.True(t, rlerrors.IsKind(err, rlerrors.KindState))

	_, err = h.svc.Next(context.Background(), NextOptions{})
	require.NoError(t, err)

	_, err = h.svc.Record(context.Background(), build.StatusPending)
	assert.ErrorIs(t, err, build.ErrInvalidStatus)
}
