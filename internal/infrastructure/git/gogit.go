package git

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/relicta-tech/revlabel/internal/domain/sourcecontrol"
	rlerrors "github.com/relicta-tech/revlabel/internal/errors"
)

// Ensure GoGitRepository implements sourcecontrol.Repository.
var _ sourcecontrol.Repository = (*GoGitRepository)(nil)

// GoGitRepository reads revision metadata in-process with go-git.
type GoGitRepository struct {
	repo *git.Repository
	root string
}

// OpenGoGitRepository opens the repository containing dir.
func OpenGoGitRepository(dir string) (*GoGitRepository, error) {
	const op = "git.OpenGoGitRepository"

	absPath, err := filepath.Abs(dir)
	if err != nil {
		return nil, rlerrors.GitWrap(err, op, "failed to get absolute path")
	}

	repo, err := git.PlainOpenWithOptions(absPath, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return nil, rlerrors.GitWrap(sourcecontrol.ErrNotARepository, op, absPath)
		}
		return nil, rlerrors.GitWrap(err, op, "failed to open repository")
	}

	root := absPath
	if wt, err := repo.Worktree(); err == nil {
		root = wt.Filesystem.Root()
	}

	return &GoGitRepository{repo: repo, root: root}, nil
}

// ReadRevision resolves ref and counts the commits reachable from it.
func (r *GoGitRepository) ReadRevision(ctx context.Context, ref string) (*sourcecontrol.Revision, error) {
	const op = "git.ReadRevision"

	if err := ValidateGitRef(ref); err != nil {
		return nil, rlerrors.GitWrap(err, op, "refusing to query reference")
	}

	ctx, cancel := withLocalTimeout(ctx)
	defer cancel()

	hash, err := r.repo.ResolveRevision(plumbing.Revision(ref))
	if err != nil {
		return nil, rlerrors.GitWrap(fmt.Errorf("%w: %s: %v", sourcecontrol.ErrRefNotFound, ref, err), op, "failed to resolve reference")
	}

	commit, err := r.repo.CommitObject(*hash)
	if err != nil {
		return nil, rlerrors.GitWrap(err, op, fmt.Sprintf("failed to read commit %s", hash))
	}

	count, err := r.countReachable(ctx, commit.Hash)
	if err != nil {
		return nil, err
	}

	rev := &sourcecontrol.Revision{
		Hash:         sourcecontrol.CommitHash(commit.Hash.String()),
		Tree:         sourcecontrol.CommitHash(commit.TreeHash.String()),
		CheckinCount: count,
	}
	for _, p := range commit.ParentHashes {
		rev.Parents = append(rev.Parents, sourcecontrol.CommitHash(p.String()))
	}
	return rev, nil
}

// countReachable returns the number of commits reachable from from, the
// figure `git rev-list --count` reports.
func (r *GoGitRepository) countReachable(ctx context.Context, from plumbing.Hash) (int, error) {
	const op = "git.countReachable"

	iter, err := r.repo.Log(&git.LogOptions{From: from})
	if err != nil {
		return 0, rlerrors.GitWrap(err, op, "failed to get log iterator")
	}
	defer iter.Close()

	count := 0
	err = iter.ForEach(func(*object.Commit) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		count++
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return 0, rlerrors.CanceledWrap(ctx.Err(), op)
		}
		return 0, rlerrors.GitWrap(err, op, "failed to iterate commits")
	}
	return count, nil
}

// RepositoryPath returns the first URL of remote, resolved to an absolute
// path when it is a local directory.
func (r *GoGitRepository) RepositoryPath(_ context.Context, remote string) (string, error) {
	const op = "git.RepositoryPath"

	rem, err := r.repo.Remote(remote)
	if err != nil {
		if errors.Is(err, git.ErrRemoteNotFound) {
			return "", rlerrors.GitWrap(sourcecontrol.ErrRemoteNotFound, op, fmt.Sprintf("remote %s is not configured", remote))
		}
		return "", rlerrors.GitWrap(err, op, fmt.Sprintf("failed to get remote %s", remote))
	}

	urls := rem.Config().URLs
	if len(urls) == 0 {
		return "", rlerrors.GitWrap(sourcecontrol.ErrRemoteNotFound, op, fmt.Sprintf("remote %s has no URLs", remote))
	}
	return resolveRepositoryPath(urls[0], r.root), nil
}

// ListTags returns every tag, peeling annotated tags to their commit.
func (r *GoGitRepository) ListTags(ctx context.Context, prefix string) (sourcecontrol.TagList, error) {
	const op = "git.ListTags"

	iter, err := r.repo.Tags()
	if err != nil {
		return nil, rlerrors.GitWrap(err, op, "failed to list tags")
	}
	defer iter.Close()

	var tags sourcecontrol.TagList
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		hash := ref.Hash()
		if tagObj, err := r.repo.TagObject(hash); err == nil {
			hash = tagObj.Target
		}
		tags = append(tags, sourcecontrol.NewTag(ref.Name().Short(), sourcecontrol.CommitHash(hash.String()), prefix))
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, rlerrors.CanceledWrap(ctx.Err(), op)
		}
		return nil, rlerrors.GitWrap(err, op, "failed to iterate tags")
	}
	return tags, nil
}
