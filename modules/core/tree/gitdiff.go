package tree

import (
	"context"
	"path/filepath"
	"strings"

	"panetree/modules/core/ignore"
	"panetree/modules/platform/git"
)

// BuildGitDiff shows the paths git reports as changed under root. Any failure
// (not a repository, git missing, timeout) gives an empty forest.
func BuildGitDiff(ctx context.Context, root string, status StatusSource) Forest {
	if status == nil {
		return Forest{}
	}
	root = ResolveRoot(root)

	changes, err := status.Changes(ctx, root)
	if err != nil {
		return Forest{}
	}
	return GroupChanges(root, changes)
}

type dirGroup struct {
	dirs  map[string]*dirGroup
	files map[string]GitStatus
}

func newDirGroup() *dirGroup {
	return &dirGroup{
		dirs:  make(map[string]*dirGroup),
		files: make(map[string]GitStatus),
	}
}

// GroupChanges nests slash-separated change paths into synthetic directories
// rooted at root
func GroupChanges(root string, changes []git.Change) Forest {
	top := newDirGroup()

	for _, c := range changes {
		segments := splitPath(c.Path)
		if len(segments) == 0 || ignore.DefaultNames[segments[0]] {
			continue
		}

		g := top
		for _, seg := range segments[:len(segments)-1] {
			child, ok := g.dirs[seg]
			if !ok {
				child = newDirGroup()
				g.dirs[seg] = child
			}
			g = child
		}
		g.files[segments[len(segments)-1]] = StatusFromChange(c)
	}

	return top.forest(root)
}

// splitPath returns the clean segments of p, or nil if p escapes its root
func splitPath(p string) []string {
	var segments []string
	for _, seg := range strings.Split(p, "/") {
		switch seg {
		case "", ".":
			continue
		case "..":
			return nil
		}
		segments = append(segments, seg)
	}
	return segments
}

func (g *dirGroup) forest(dir string) Forest {
	nodes := make(Forest, 0, len(g.dirs)+len(g.files))
	for name, child := range g.dirs {
		full := filepath.Join(dir, name)
		nodes = append(nodes, Node{
			Name:     name,
			Path:     full,
			IsDir:    true,
			Children: child.forest(full),
		})
	}
	for name, status := range g.files {
		if _, isDir := g.dirs[name]; isDir {
			// a directory now occupies the path of a changed file
			continue
		}
		nodes = append(nodes, Node{
			Name:      name,
			Path:      filepath.Join(dir, name),
			GitStatus: status,
		})
	}
	sortNodes(nodes)
	return nodes
}
