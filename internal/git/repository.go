package git

import (
	gogit "github.com/go-git/go-git/v5"

	"github.com/Chifiwang/obsidian-git-integration/internal/errors"
)

// IsRepository reports whether path is inside a non-bare git working tree.
// A path that simply is not a repository yields (false, nil); other failures
// (permissions, corrupt .git) are returned as errors.
func IsRepository(path string) (bool, error) {
	repo, err := gogit.PlainOpenWithOptions(path, &gogit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if errors.Is(err, gogit.ErrRepositoryNotExists) {
			return false, nil
		}
		return false, errors.Wrapf(err, "open repository at %s", path)
	}

	if _, err := repo.Worktree(); err != nil {
		if errors.Is(err, gogit.ErrIsBareRepository) {
			return false, nil
		}
		return false, errors.Wrapf(err, "open worktree at %s", path)
	}
	return true, nil
}

// RepoInfo summarizes the checked-out state of a repository.
type RepoInfo struct {
	Branch string
	Head   string
	Clean  bool
}

// Describe reads the current branch, HEAD and worktree cleanliness.
// An unborn HEAD yields an empty Branch and Head.
func Describe(path string) (RepoInfo, error) {
	repo, err := gogit.PlainOpenWithOptions(path, &gogit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if errors.Is(err, gogit.ErrRepositoryNotExists) {
			return RepoInfo{}, errors.Wrap(errors.ErrNotGitRepository, path)
		}
		return RepoInfo{}, errors.Wrapf(err, "open repository at %s", path)
	}

	var info RepoInfo
	if head, err := repo.Head(); err == nil {
		info.Head = head.Hash().String()
		if head.Name().IsBranch() {
			info.Branch = head.Name().Short()
		}
	}

	wt, err := repo.Worktree()
	if err != nil {
		return info, errors.Wrapf(err, "open worktree at %s", path)
	}
	status, err := wt.Status()
	if err != nil {
		return info, errors.Wrapf(err, "read status of %s", path)
	}
	info.Clean = status.IsClean()
	return info, nil
}
