// Package tree builds the displayable directory forest and its flat index.
package tree

import (
	"sort"

	"panetree/modules/platform/git"
)

// GitStatus marks a node in a diff-mode build
type GitStatus string

const (
	StatusNone      GitStatus = ""
	StatusModified  GitStatus = "modified"
	StatusAdded     GitStatus = "added"
	StatusDeleted   GitStatus = "deleted"
	StatusUntracked GitStatus = "untracked"
	StatusRenamed   GitStatus = "renamed"
)

// Symbol returns the one-letter marker shown next to a file
func (s GitStatus) Symbol() string {
	switch s {
	case StatusModified:
		return "M"
	case StatusAdded:
		return "A"
	case StatusDeleted:
		return "D"
	case StatusUntracked:
		return "?"
	case StatusRenamed:
		return "R"
	default:
		return ""
	}
}

// StatusFromCode maps a porcelain XY code to a status
func StatusFromCode(code string) GitStatus {
	if code == "??" {
		return StatusUntracked
	}
	has := func(c byte) bool {
		for i := 0; i < len(code); i++ {
			if code[i] == c {
				return true
			}
		}
		return false
	}
	switch {
	case has('R'):
		return StatusRenamed
	case has('A'):
		return StatusAdded
	case has('D'):
		return StatusDeleted
	default:
		return StatusModified
	}
}

// StatusFromChange maps a git change to a status
func StatusFromChange(c git.Change) GitStatus {
	if c.IsUntracked() {
		return StatusUntracked
	}
	return StatusFromCode(c.Code)
}

// Node is one filesystem entry. Nodes are value snapshots; a refresh builds
// a new forest instead of editing an old one.
type Node struct {
	Name      string
	Path      string
	IsDir     bool
	Children  []Node
	GitStatus GitStatus
}

// Forest is the ordered list of top-level nodes
type Forest []Node

// Count returns the number of nodes in the forest, at every depth
func Count(forest Forest) int {
	n := 0
	for i := range forest {
		n += 1 + Count(forest[i].Children)
	}
	return n
}

// Less orders directories before files, then by name (case-sensitive)
func Less(aName string, aDir bool, bName string, bDir bool) bool {
	if aDir != bDir {
		return aDir
	}
	return aName < bName
}

// sortNodes sorts one sibling group in place
func sortNodes(nodes []Node) {
	sort.SliceStable(nodes, func(i, j int) bool {
		return Less(nodes[i].Name, nodes[i].IsDir, nodes[j].Name, nodes[j].IsDir)
	})
}
