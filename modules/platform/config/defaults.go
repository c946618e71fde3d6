package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// GetUserConfigDir returns the user's config directory for panetree
func GetUserConfigDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "panetree"), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	return filepath.Join(homeDir, ".config", "panetree"), nil
}

// GetStateDir returns the directory holding pane identity files and logs
func GetStateDir() (string, error) {
	if xdg := os.Getenv("XDG_STATE_HOME"); xdg != "" {
		return filepath.Join(xdg, "panetree"), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	return filepath.Join(homeDir, ".local", "state", "panetree"), nil
}

// GetSocketDir returns the directory for control sockets. Unix socket paths
// are length-limited, so this prefers the short runtime dir.
func GetSocketDir() string {
	if xdg := os.Getenv("XDG_RUNTIME_DIR"); xdg != "" {
		return filepath.Join(xdg, "panetree")
	}
	return filepath.Join(os.TempDir(), fmt.Sprintf("panetree-%d", os.Getuid()))
}

// ResolveStateDir resolves the configured state dir or the default
func (s *Settings) ResolveStateDir() string {
	if s.StateDir != "" {
		return s.StateDir
	}
	if dir, err := GetStateDir(); err == nil {
		return dir
	}
	return filepath.Join(os.TempDir(), fmt.Sprintf("panetree-state-%d", os.Getuid()))
}

// ResolveSocketDir resolves the configured socket dir or the default
func (s *Settings) ResolveSocketDir() string {
	if s.SocketDir != "" {
		return s.SocketDir
	}
	return GetSocketDir()
}

// ResolveLogPath resolves the log file path
func (s *Settings) ResolveLogPath() string {
	if lc := s.GetLoggerConfig(); lc.FilePath != "" {
		return lc.FilePath
	}
	return filepath.Join(s.ResolveStateDir(), "panetree.log")
}

// ResolveEditor returns the editor command
func (s *Settings) ResolveEditor() string {
	if s.Editor != "" {
		return s.Editor
	}
	if e := os.Getenv("VISUAL"); e != "" {
		return e
	}
	if e := os.Getenv("EDITOR"); e != "" {
		return e
	}
	return "vi"
}

// ResolvePager returns the pager command used for diffs
func (s *Settings) ResolvePager() string {
	if s.Pager != "" {
		return s.Pager
	}
	if p := os.Getenv("PAGER"); p != "" {
		return p
	}
	return "less -R"
}

// EnsureDirectories creates the state and socket directories
func (s *Settings) EnsureDirectories() error {
	for _, dir := range []string{s.ResolveStateDir(), s.ResolveSocketDir()} {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return nil
}
