package git

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/relicta-tech/revlabel/internal/domain/label"
	"github.com/relicta-tech/revlabel/internal/domain/sourcecontrol"
	rlerrors "github.com/relicta-tech/revlabel/internal/errors"
)

// Ensure CLIRepository implements sourcecontrol.Repository.
var _ sourcecontrol.Repository = (*CLIRepository)(nil)

// commandRunner runs name with args in dir and returns its standard output.
type commandRunner func(ctx context.Context, dir, name string, args ...string) ([]byte, error)

// CLIRepository reads revision metadata by running the git executable.
type CLIRepository struct {
	executable string
	dir        string
	logger     *log.Logger
	run        commandRunner
}

// CLIOption configures a CLIRepository.
type CLIOption func(*CLIRepository)

// WithExecutable sets the git executable (default: "git" from PATH).
func WithExecutable(path string) CLIOption {
	return func(r *CLIRepository) {
		if path != "" {
			r.executable = path
		}
	}
}

// WithCLILogger sets the logger that records each git invocation.
func WithCLILogger(logger *log.Logger) CLIOption {
	return func(r *CLIRepository) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// withRunner replaces the process runner; used by tests.
func withRunner(run commandRunner) CLIOption {
	return func(r *CLIRepository) {
		r.run = run
	}
}

// NewCLIRepository creates a CLIRepository for the working directory dir.
func NewCLIRepository(dir string, opts ...CLIOption) (*CLIRepository, error) {
	const op = "git.NewCLIRepository"

	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, rlerrors.GitWrap(err, op, "failed to get absolute path")
	}

	r := &CLIRepository{
		executable: "git",
		dir:        absDir,
		logger:     log.Default(),
		run:        execRunner,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// ReadRevision runs `git log` and `git rev-list --count` for ref.
func (r *CLIRepository) ReadRevision(ctx context.Context, ref string) (*sourcecontrol.Revision, error) {
	const op = "git.ReadRevision"

	if err := ValidateGitRef(ref); err != nil {
		return nil, rlerrors.GitWrap(err, op, "refusing to query reference")
	}

	ctx, cancel := withLocalTimeout(ctx)
	defer cancel()

	out, err := r.git(ctx, "log", ref, "--date-order", "-1", revisionLogFormat)
	if err != nil {
		return nil, rlerrors.GitWrap(err, op, fmt.Sprintf("failed to read revision %s", ref))
	}

	rev, err := parseRevisionLog(string(out))
	if err != nil {
		return nil, rlerrors.GitWrap(err, op, "unexpected git log output")
	}

	count, err := r.git(ctx, "rev-list", "--count", ref)
	if err != nil {
		return nil, rlerrors.GitWrap(err, op, fmt.Sprintf("failed to count commits reachable from %s", ref))
	}
	rev.CheckinCount = label.ParseCheckinCount(string(count))

	return rev, nil
}

// RepositoryPath runs `git remote --verbose` and returns the fetch URL of
// remote, resolved to an absolute path when it is a local directory.
func (r *CLIRepository) RepositoryPath(ctx context.Context, remote string) (string, error) {
	const op = "git.RepositoryPath"

	if err := ValidateGitRef(remote); err != nil {
		return "", rlerrors.GitWrap(err, op, "refusing to query remote")
	}

	ctx, cancel := withLocalTimeout(ctx)
	defer cancel()

	out, err := r.git(ctx, "remote", "--verbose")
	if err != nil {
		return "", rlerrors.GitWrap(err, op, "failed to list remotes")
	}

	url, ok := parseRemoteVerbose(string(out), remote)
	if !ok {
		return "", rlerrors.GitWrap(sourcecontrol.ErrRemoteNotFound, op, fmt.Sprintf("remote %s is not configured", remote))
	}
	return resolveRepositoryPath(url, r.dir), nil
}

// ListTags runs `git for-each-ref` over refs/tags.
func (r *CLIRepository) ListTags(ctx context.Context, prefix string) (sourcecontrol.TagList, error) {
	const op = "git.ListTags"

	ctx, cancel := withLocalTimeout(ctx)
	defer cancel()

	out, err := r.git(ctx, "for-each-ref", "--format=%(refname:short) %(objectname) %(*objectname)", "refs/tags")
	if err != nil {
		return nil, rlerrors.GitWrap(err, op, "failed to list tags")
	}
	return parseTagRefs(string(out), prefix), nil
}

func (r *CLIRepository) git(ctx context.Context, args ...string) ([]byte, error) {
	r.logger.Debug("calling git", "executable", r.executable, "args", strings.Join(args, " "), "dir", r.dir)

	out, err := r.run(ctx, r.dir, r.executable, args...)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, rlerrors.CanceledWrap(ctxErr, "git."+args[0])
		}
		return nil, err
	}
	return out, nil
}

func execRunner(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...) // #nosec G204 -- executable comes from config, refs are validated
	cmd.Dir = dir

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%w: %s", err, msg)
		}
		return nil, err
	}
	return out, nil
}
