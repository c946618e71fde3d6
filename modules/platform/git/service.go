package git

import (
	"context"
	"path/filepath"
	"sync"
)

// Service answers status queries for directories, caching opened repositories
type Service struct {
	run   Runner
	repos map[string]*Repository
	mu    sync.RWMutex
}

// NewService creates a new git service. run may be nil to use the git binary.
func NewService(run Runner) *Service {
	if run == nil {
		run = ExecRunner
	}
	return &Service{
		run:   run,
		repos: make(map[string]*Repository),
	}
}

// GetRepository returns the repository containing dir
func (s *Service) GetRepository(dir string) (*Repository, error) {
	s.mu.RLock()
	if repo, ok := s.repos[dir]; ok {
		s.mu.RUnlock()
		return repo, nil
	}
	s.mu.RUnlock()

	repo, err := OpenRepository(dir)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.repos[dir] = repo
	s.mu.Unlock()

	return repo, nil
}

// topLevel resolves the worktree root, preferring go-git and falling back to
// asking the git binary (e.g. for repository formats go-git cannot open)
func (s *Service) topLevel(ctx context.Context, dir string) (string, error) {
	if repo, err := s.GetRepository(dir); err == nil {
		return repo.Root(), nil
	}
	return TopLevel(ctx, s.run, dir)
}

// Changes returns the changed paths under dir, relative to dir
func (s *Service) Changes(ctx context.Context, dir string) ([]Change, error) {
	if resolved, err := filepath.EvalSymlinks(dir); err == nil {
		dir = resolved
	}

	top, err := s.topLevel(ctx, dir)
	if err != nil {
		return nil, err
	}
	return QueryStatus(ctx, s.run, top, dir)
}

// Info returns repository root and branch for dir
func (s *Service) Info(dir string) (Info, bool) {
	repo, err := s.GetRepository(dir)
	if err != nil {
		return Info{}, false
	}
	return repo.Info(), true
}

// Invalidate drops the cached repository for dir
func (s *Service) Invalidate(dir string) {
	s.mu.Lock()
	delete(s.repos, dir)
	s.mu.Unlock()
}
