package tree

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"panetree/modules/core/ignore"
	"panetree/modules/platform/git"
)

// Mode selects what a build shows
type Mode int

const (
	// ModeAll walks the directory
	ModeAll Mode = iota
	// ModeDiff shows only paths reported by git status
	ModeDiff
)

func (m Mode) String() string {
	if m == ModeDiff {
		return "diff"
	}
	return "all"
}

// ParseMode parses "all" or "diff"
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "", "all":
		return ModeAll, nil
	case "diff", "git":
		return ModeDiff, nil
	default:
		return ModeAll, fmt.Errorf("unknown mode %q (want all or diff)", s)
	}
}

// Options bounds an all-files walk
type Options struct {
	MaxDepth   int // root is depth 0; directories at MaxDepth are not expanded
	MaxEntries int // total nodes across the whole walk
}

// DefaultOptions returns the standard walk limits
func DefaultOptions() Options {
	return Options{MaxDepth: 4, MaxEntries: 200}
}

// StatusSource reports changed paths under a directory, relative to it
type StatusSource interface {
	Changes(ctx context.Context, dir string) ([]git.Change, error)
}

// Builder produces forests for one root
type Builder struct {
	Root    string
	Mode    Mode
	Options Options
	Status  StatusSource
}

// Build runs a build in the configured mode. It never fails; problems show
// up as fewer nodes.
func (b *Builder) Build(ctx context.Context) Forest {
	if b.Mode == ModeDiff {
		return BuildGitDiff(ctx, b.Root, b.Status)
	}
	return BuildAll(b.Root, b.Options, ignore.Load(b.Root))
}

// ResolveRoot returns the absolute, symlink-free form of root when possible
func ResolveRoot(root string) string {
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	if resolved, err := filepath.EvalSymlinks(root); err == nil {
		root = resolved
	}
	return root
}

type walker struct {
	root      string
	maxDepth  int
	remaining int
	rules     ignore.Rules
}

// BuildAll walks root. The entry cap is shared by the whole walk and filled in
// traversal order.
func BuildAll(root string, opts Options, rules ignore.Rules) Forest {
	if opts.MaxDepth <= 0 || opts.MaxEntries <= 0 {
		d := DefaultOptions()
		if opts.MaxDepth <= 0 {
			opts.MaxDepth = d.MaxDepth
		}
		if opts.MaxEntries <= 0 {
			opts.MaxEntries = d.MaxEntries
		}
	}

	w := &walker{
		root:      ResolveRoot(root),
		maxDepth:  opts.MaxDepth,
		remaining: opts.MaxEntries,
		rules:     rules,
	}
	return w.walk(w.root, 1)
}

// walk lists dir, whose entries sit at depth
func (w *walker) walk(dir string, depth int) Forest {
	entries, err := os.ReadDir(dir)
	if err != nil {
		// Unreadable or vanished directory
		return Forest{}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return Less(entries[i].Name(), entries[i].IsDir(), entries[j].Name(), entries[j].IsDir())
	})

	nodes := make(Forest, 0, len(entries))
	for _, entry := range entries {
		if w.remaining <= 0 {
			break
		}

		name := entry.Name()
		full := filepath.Join(dir, name)
		rel, err := filepath.Rel(w.root, full)
		if err != nil {
			continue
		}
		if w.rules.ShouldIgnore(name, rel, entry.IsDir()) {
			continue
		}

		w.remaining--
		node := Node{
			Name:  name,
			Path:  full,
			IsDir: entry.IsDir(),
		}
		if node.IsDir {
			node.Children = []Node{}
			if depth < w.maxDepth {
				node.Children = w.walk(full, depth+1)
			}
		}
		nodes = append(nodes, node)
	}
	return nodes
}
