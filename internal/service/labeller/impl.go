package labeller

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/log"

	"github.com/relicta-tech/revlabel/internal/domain/build"
	"github.com/relicta-tech/revlabel/internal/domain/label"
	"github.com/relicta-tech/revlabel/internal/domain/sourcecontrol"
	rlerrors "github.com/relicta-tech/revlabel/internal/errors"
)

// Ensure ServiceImpl implements Service.
var _ Service = (*ServiceImpl)(nil)

// ServiceConfig configures a ServiceImpl.
type ServiceConfig struct {
	Policy        label.Policy
	VersionSource VersionSource
	TagPrefix     string
	Ref           string
	Remote        string
	FactPrefix    string

	Repository sourcecontrol.Repository
	States     build.Repository
	Publisher  label.Publisher
	Logger     *log.Logger
	Now        func() time.Time
}

// DefaultServiceConfig returns the defaults used by NewService.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		Policy:        label.Policy{Grammar: label.GrammarDotted, Major: 1},
		VersionSource: VersionSourceConfig,
		TagPrefix:     "v",
		Ref:           "HEAD",
		Remote:        "origin",
		FactPrefix:    label.DefaultFactPrefix,
		Now:           time.Now,
	}
}

// ServiceOption configures a ServiceImpl.
type ServiceOption func(*ServiceConfig)

// WithPolicy sets the label policy.
func WithPolicy(p label.Policy) ServiceOption {
	return func(c *ServiceConfig) { c.Policy = p }
}

// WithVersionSource sets where major and minor come from, and the tag
// prefix used with VersionSourceTag.
func WithVersionSource(source VersionSource, tagPrefix string) ServiceOption {
	return func(c *ServiceConfig) {
		c.VersionSource = source
		c.TagPrefix = tagPrefix
	}
}

// WithRef sets the revision that is labelled.
func WithRef(ref string) ServiceOption {
	return func(c *ServiceConfig) { c.Ref = ref }
}

// WithRemote sets the remote whose location is published.
func WithRemote(remote string) ServiceOption {
	return func(c *ServiceConfig) { c.Remote = remote }
}

// WithFactPrefix sets the prefix of published fact names.
func WithFactPrefix(prefix string) ServiceOption {
	return func(c *ServiceConfig) { c.FactPrefix = prefix }
}

// WithRepository sets the source control reader.
func WithRepository(repo sourcecontrol.Repository) ServiceOption {
	return func(c *ServiceConfig) { c.Repository = repo }
}

// WithStateRepository sets the build state store.
func WithStateRepository(states build.Repository) ServiceOption {
	return func(c *ServiceConfig) { c.States = states }
}

// WithPublisher sets the fact publisher.
func WithPublisher(p label.Publisher) ServiceOption {
	return func(c *ServiceConfig) { c.Publisher = p }
}

// WithLogger sets the logger.
func WithLogger(logger *log.Logger) ServiceOption {
	return func(c *ServiceConfig) { c.Logger = logger }
}

// WithClock sets the time source for build records.
func WithClock(now func() time.Time) ServiceOption {
	return func(c *ServiceConfig) { c.Now = now }
}

// ServiceImpl is the implementation of Service.
type ServiceImpl struct {
	cfg       ServiceConfig
	assembler *label.Assembler
}

// NewService creates a labelling service.
func NewService(opts ...ServiceOption) (*ServiceImpl, error) {
	const op = "labeller.NewService"

	cfg := DefaultServiceConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.Repository == nil {
		return nil, rlerrors.Validation(op, "source control repository is required")
	}
	if cfg.States == nil {
		return nil, rlerrors.Validation(op, "state repository is required")
	}
	if cfg.VersionSource != VersionSourceConfig && cfg.VersionSource != VersionSourceTag {
		return nil, rlerrors.Validation(op, "unknown version source "+string(cfg.VersionSource))
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	assembler, err := label.NewAssembler(cfg.Policy)
	if err != nil {
		return nil, rlerrors.LabelWrap(err, op, "invalid label policy")
	}

	return &ServiceImpl{cfg: cfg, assembler: assembler}, nil
}

// Next implements Service.
func (s *ServiceImpl) Next(ctx context.Context, opts NextOptions) (*Result, error) {
	const op = "labeller.Next"

	res, state, err := s.compute(ctx, opts)
	if err != nil {
		return nil, err
	}

	rec, err := state.Begin(res.Facts, s.cfg.Now())
	if err != nil {
		return nil, rlerrors.StateWrap(err, op, "failed to begin build")
	}
	if err := s.cfg.States.Save(ctx, state); err != nil {
		return nil, rlerrors.StateWrap(err, op, "failed to record build")
	}
	res.Record = &rec

	if s.cfg.Publisher != nil {
		if err := s.cfg.Publisher.Publish(ctx, res.Published); err != nil {
			return nil, rlerrors.PublishWrap(err, op, "failed to publish facts")
		}
	}

	s.cfg.Logger.Info("build labelled", "label", res.Label(), "build", rec.ID)
	return res, nil
}

// Preview implements Service.
func (s *ServiceImpl) Preview(ctx context.Context, opts NextOptions) (*Result, error) {
	res, _, err := s.compute(ctx, opts)
	return res, err
}

// Record implements Service.
func (s *ServiceImpl) Record(ctx context.Context, status build.Status) (*build.Record, error) {
	const op = "labeller.Record"

	state, err := s.cfg.States.Load(ctx)
	if err != nil {
		return nil, rlerrors.StateWrap(err, op, "failed to load build state")
	}

	rec, err := state.Finish(status, s.cfg.Now())
	if err != nil {
		return nil, rlerrors.StateWrap(err, op, "cannot record build outcome")
	}

	if err := s.cfg.States.Save(ctx, state); err != nil {
		return nil, rlerrors.StateWrap(err, op, "failed to save build state")
	}

	s.cfg.Logger.Info("build recorded", "label", rec.Label, "status", rec.Status)
	return &rec, nil
}

// State implements Service.
func (s *ServiceImpl) State(ctx context.Context) (*build.State, error) {
	state, err := s.cfg.States.Load(ctx)
	if err != nil {
		return nil, rlerrors.StateWrap(err, "labeller.State", "failed to load build state")
	}
	return state, nil
}

// compute queries the repository and the state store and assembles the
// label. Any failure aborts before a label exists.
func (s *ServiceImpl) compute(ctx context.Context, opts NextOptions) (*Result, *build.State, error) {
	const op = "labeller.compute"

	rev, err := s.cfg.Repository.ReadRevision(ctx, s.cfg.Ref)
	if err != nil {
		return nil, nil, err
	}
	s.cfg.Logger.Debug("revision", "ref", s.cfg.Ref, "commit", rev.Hash, "parents", rev.ParentHash(),
		"tree", rev.Tree, "checkins", rev.CheckinCount)

	repoPath, err := s.repositoryPath(ctx)
	if err != nil {
		return nil, nil, err
	}

	assembler, baseVersion, err := s.assemblerFor(ctx)
	if err != nil {
		return nil, nil, err
	}

	state, err := s.cfg.States.Load(ctx)
	if err != nil {
		return nil, nil, rlerrors.StateWrap(err, op, "failed to load build state")
	}

	previous := state.PreviousLabel(label.SentinelLabel)
	if opts.PreviousLabel != nil {
		previous = *opts.PreviousLabel
	}
	succeeded := state.LastBuildSucceeded()
	if opts.LastBuildSucceeded != nil {
		succeeded = *opts.LastBuildSucceeded
	}

	facts, err := assembler.Compute(label.RawRevisionFacts{
		CommitHash:   rev.Hash.String(),
		ParentHash:   rev.ParentHash(),
		TreeHash:     rev.Tree.String(),
		CheckinCount: rev.CheckinCount,
	}, previous, succeeded)
	if err != nil {
		return nil, nil, rlerrors.LabelWrap(err, op, "failed to compute label")
	}

	s.cfg.Logger.Debug("label computed", "previous", previous, "last_succeeded", succeeded,
		"label", facts.Label(), "grammar", facts.Grammar())

	return &Result{
		Facts:              facts,
		Published:          facts.Facts(s.cfg.FactPrefix, repoPath),
		RepositoryPath:     repoPath,
		PreviousLabel:      previous,
		LastBuildSucceeded: succeeded,
		BaseVersion:        baseVersion,
	}, state, nil
}

// repositoryPath resolves the configured remote. A repository without that
// remote yields an empty path; other failures abort.
func (s *ServiceImpl) repositoryPath(ctx context.Context) (string, error) {
	if s.cfg.Remote == "" {
		return "", nil
	}

	path, err := s.cfg.Repository.RepositoryPath(ctx, s.cfg.Remote)
	if err != nil {
		if errors.Is(err, sourcecontrol.ErrRemoteNotFound) {
			s.cfg.Logger.Warn("remote not configured, repository path will not be published", "remote", s.cfg.Remote)
			return "", nil
		}
		return "", err
	}
	return path, nil
}

// assemblerFor returns the assembler for this run. With VersionSourceTag the
// newest version tag replaces the configured major and minor.
func (s *ServiceImpl) assemblerFor(ctx context.Context) (*label.Assembler, string, error) {
	const op = "labeller.assemblerFor"

	if s.cfg.VersionSource != VersionSourceTag {
		return s.assembler, "", nil
	}

	tag, err := sourcecontrol.NewVersionDiscovery(s.cfg.TagPrefix).LatestVersionTag(ctx, s.cfg.Repository)
	if err != nil {
		if errors.Is(err, sourcecontrol.ErrNoVersionTag) {
			s.cfg.Logger.Warn("no version tag found, using configured version",
				"prefix", s.cfg.TagPrefix, "major", s.cfg.Policy.Major, "minor", s.cfg.Policy.Minor)
			return s.assembler, "", nil
		}
		return nil, "", err
	}

	policy := s.cfg.Policy
	policy.Major = int(tag.Version().Major())
	policy.Minor = int(tag.Version().Minor())

	assembler, err := label.NewAssembler(policy)
	if err != nil {
		return nil, "", rlerrors.LabelWrap(err, op, "invalid version tag "+tag.Name())
	}
	return assembler, tag.Name(), nil
}
