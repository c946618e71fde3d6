// Package ignore decides which paths are left out of the tree.
package ignore

import (
	"bufio"
	"bytes"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// IgnoreFileName is read from the root of a walk
const IgnoreFileName = ".gitignore"

// DefaultNames is the fixed set of names that never appear in a tree
var DefaultNames = map[string]bool{
	".git":          true, // version control metadata
	"node_modules":  true, // dependency caches
	".venv":         true,
	"venv":          true,
	"__pycache__":   true, // byte-compiled artifacts
	".pytest_cache": true,
	".mypy_cache":   true,
	".DS_Store":     true, // OS metadata
	".claude":       true, // tool settings
}

// Rules bundles the static name set with the patterns of one root
type Rules struct {
	Names    map[string]bool
	Patterns []string
}

// Default returns rules with only the static names
func Default() Rules {
	return Rules{Names: DefaultNames}
}

// Load returns the static names plus the patterns of root's ignore file
func Load(root string) Rules {
	return Rules{
		Names:    DefaultNames,
		Patterns: LoadPatterns(root),
	}
}

// ShouldIgnore reports whether an entry is excluded
func (r Rules) ShouldIgnore(name, relPath string, isDir bool) bool {
	return ShouldIgnore(name, relPath, isDir, r.Names, r.Patterns)
}

// ShouldIgnore reports whether an entry is excluded. relPath is relative to
// the walked root. Lines starting with "!" are not treated as negations; they
// are matched like any other pattern and in practice never match.
func ShouldIgnore(name, relPath string, isDir bool, names map[string]bool, patterns []string) bool {
	if names[name] {
		return true
	}

	rel := filepath.ToSlash(relPath)
	for _, pattern := range patterns {
		if match(pattern, rel) || match(pattern, name) {
			return true
		}
		if isDir && match(pattern, name+"/") {
			return true
		}
	}
	return false
}

func match(pattern, s string) bool {
	ok, err := path.Match(pattern, s)
	return err == nil && ok
}

// LoadPatterns reads the ignore file at the root of dir. A missing or
// unreadable file yields no patterns.
func LoadPatterns(dir string) []string {
	data, err := os.ReadFile(filepath.Join(dir, IgnoreFileName))
	if err != nil {
		return nil
	}
	return ParsePatterns(data)
}

// ParsePatterns splits ignore-file content into patterns, dropping comments
// and blank lines
func ParsePatterns(data []byte) []string {
	var patterns []string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, line)
	}
	return patterns
}
