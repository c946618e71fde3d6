package git

import (
	"fmt"
	"path/filepath"

	"github.com/go-git/go-git/v5"
)

// Repository wraps a go-git repository opened from any directory inside it
type Repository struct {
	root string
	repo *git.Repository
}

// OpenRepository opens the git repository containing path
func OpenRepository(path string) (*Repository, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path: %w", err)
	}

	repo, err := git.PlainOpenWithOptions(absPath, &git.PlainOpenOptions{
		DetectDotGit:          true,
		EnableDotGitCommonDir: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open repository: %w", err)
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("failed to get worktree: %w", err)
	}

	root := worktree.Filesystem.Root()
	if resolved, err := filepath.EvalSymlinks(root); err == nil {
		root = resolved
	}

	return &Repository{
		root: root,
		repo: repo,
	}, nil
}

// Root returns the worktree top level
func (r *Repository) Root() string {
	return r.root
}

// Branch returns the short name of HEAD, or "" when HEAD is detached or unborn
func (r *Repository) Branch() string {
	head, err := r.repo.Head()
	if err != nil || !head.Name().IsBranch() {
		return ""
	}
	return head.Name().Short()
}

// Info returns root and branch
func (r *Repository) Info() Info {
	return Info{Root: r.root, Branch: r.Branch()}
}
