package git

import "time"

// StatusTimeout bounds a single status query
const StatusTimeout = 5 * time.Second

// Change is one line of a porcelain status report
type Change struct {
	Code    string `json:"code"`               // two-character XY status code
	Path    string `json:"path"`               // slash-separated, relative to the queried root
	OldPath string `json:"old_path,omitempty"` // source of a rename
}

// IsUntracked reports whether the change is an untracked file
func (c Change) IsUntracked() bool {
	return c.Code == "??"
}

// Info describes the repository containing a directory
type Info struct {
	Root   string `json:"root"`             // worktree top level
	Branch string `json:"branch,omitempty"` // short name of HEAD, empty when detached
}
