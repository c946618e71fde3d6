package git

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// Runner runs git with args in dir and returns its stdout
type Runner func(ctx context.Context, dir string, args ...string) ([]byte, error)

// ExecRunner runs the git binary found on PATH
func ExecRunner(ctx context.Context, dir string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	// Don't take the index lock away from the user's own git commands
	cmd.Env = append(os.Environ(), "GIT_OPTIONAL_LOCKS=0")
	return cmd.Output()
}

// statusArgs asks for every changed path, including files inside untracked
// directories rather than just the directory
func statusArgs(pathspec string) []string {
	return []string{"--literal-pathspecs", "status", "--porcelain=v1", "--untracked-files=all", "--", pathspec}
}

// QueryStatus runs the status query for dir inside the worktree rooted at top.
// Returned paths are relative to dir.
func QueryStatus(ctx context.Context, run Runner, top, dir string) ([]Change, error) {
	if run == nil {
		run = ExecRunner
	}

	rel, err := filepath.Rel(top, dir)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return nil, fmt.Errorf("%s is outside worktree %s", dir, top)
	}
	rel = filepath.ToSlash(rel)

	ctx, cancel := context.WithTimeout(ctx, StatusTimeout)
	defer cancel()

	out, err := run(ctx, top, statusArgs(rel)...)
	if err != nil {
		return nil, fmt.Errorf("git status failed: %w", err)
	}

	return Relativize(ParseStatus(out), rel), nil
}

// TopLevel asks git for the worktree root containing dir
func TopLevel(ctx context.Context, run Runner, dir string) (string, error) {
	if run == nil {
		run = ExecRunner
	}

	ctx, cancel := context.WithTimeout(ctx, StatusTimeout)
	defer cancel()

	out, err := run(ctx, dir, "rev-parse", "--show-toplevel")
	if err != nil {
		return "", fmt.Errorf("not a git worktree: %w", err)
	}
	top := strings.TrimSpace(string(out))
	if resolved, err := filepath.EvalSymlinks(top); err == nil {
		top = resolved
	}
	return top, nil
}

// ParseStatus parses porcelain v1 output. Lines that don't look like status
// lines are skipped.
func ParseStatus(out []byte) []Change {
	var changes []Change
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		line := scanner.Text()
		if len(line) < 4 || line[2] != ' ' {
			continue
		}

		change := Change{Code: line[:2]}
		rest := line[3:]

		if change.Code[0] == 'R' || change.Code[1] == 'R' || change.Code[0] == 'C' {
			if i := strings.Index(rest, " -> "); i >= 0 {
				change.OldPath = unquote(rest[:i])
				rest = rest[i+len(" -> "):]
			}
		}
		change.Path = strings.TrimSuffix(unquote(rest), "/")
		if change.Path == "" {
			continue
		}
		changes = append(changes, change)
	}
	return changes
}

func unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		if u, err := strconv.Unquote(s); err == nil {
			return u
		}
	}
	return s
}

// Relativize keeps changes under prefix and strips it. prefix "." or "" keeps all.
func Relativize(changes []Change, prefix string) []Change {
	if prefix == "" || prefix == "." {
		return changes
	}
	prefix = strings.TrimSuffix(prefix, "/") + "/"

	out := changes[:0:0]
	for _, c := range changes {
		if !strings.HasPrefix(c.Path, prefix) {
			continue
		}
		c.Path = strings.TrimPrefix(c.Path, prefix)
		c.OldPath = strings.TrimPrefix(c.OldPath, prefix)
		out = append(out, c)
	}
	return out
}
