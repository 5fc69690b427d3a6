// Package git reads repository metadata for run reports. It uses go-git so
// no git binary is required on the runner.
package git

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// ShortHashLen is the length of abbreviated commit hashes in reports.
const ShortHashLen = 12

// ErrNotRepository is returned when dir is not inside a git work tree.
var ErrNotRepository = errors.New("not a git repository")

// Revision identifies the checked out commit.
type Revision struct {
	// Root is the work tree root.
	Root string
	// Branch is empty for a detached HEAD.
	Branch string
	Commit string
}

// Short returns the abbreviated commit hash.
func (r Revision) Short() string {
	if len(r.Commit) > ShortHashLen {
		return r.Commit[:ShortHashLen]
	}
	return r.Commit
}

// String formats the revision as "branch@short", or just the short hash
// when detached.
func (r Revision) String() string {
	if r.Branch == "" {
		return r.Short()
	}
	return r.Branch + "@" + r.Short()
}

// openRepo opens the repository containing path, walking up to find .git.
func openRepo(path string) (*git.Repository, error) {
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{
		DetectDotGit: true,
	})
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return nil, fmt.Errorf("%w: %s", ErrNotRepository, path)
	}
	if err != nil {
		return nil, fmt.Errorf("opening repository at %s: %w", path, err)
	}
	return repo, nil
}

// CurrentRevision reads HEAD of the repository containing dir.
func CurrentRevision(dir string) (Revision, error) {
	repo, err := openRepo(dir)
	if err != nil {
		return Revision{}, err
	}

	var rev Revision
	if wt, err := repo.Worktree(); err == nil {
		rev.Root = wt.Filesystem.Root()
	}

	head, err := repo.Head()
	if err != nil {
		// unborn branch
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return rev, nil
		}
		return Revision{}, fmt.Errorf("getting HEAD reference: %w", err)
	}

	if head.Name().IsBranch() {
		rev.Branch = head.Name().Short()
	}
	rev.Commit = head.Hash().String()
	return rev, nil
}

// Describe returns the revision string for dir, or "" when dir is not in a
// repository or HEAD cannot be read. Failures are logged at debug level.
func Describe(dir string, logger *slog.Logger) string {
	rev, err := CurrentRevision(dir)
	if err != nil {
		logger.Debug("no git revision", "dir", dir, "error", err)
		return ""
	}
	if rev.Commit == "" {
		return ""
	}
	return rev.String()
}
