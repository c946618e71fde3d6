package pane

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"panetree/modules/platform/control"
)

// IdentityStore persists which pane was spawned for each originating pane
type IdentityStore struct {
	Dir string
}

// PathFor returns the identity file of origin
func (s IdentityStore) PathFor(origin string) string {
	return filepath.Join(s.Dir, "pane-"+control.Sanitize(origin))
}

// Load returns the recorded pane id for origin
func (s IdentityStore) Load(origin string) (string, bool) {
	data, err := os.ReadFile(s.PathFor(origin))
	if err != nil {
		return "", false
	}
	id := strings.TrimSpace(string(data))
	return id, id != ""
}

// Save records paneID as the pane spawned for origin
func (s IdentityStore) Save(origin, paneID string) error {
	if err := os.MkdirAll(s.Dir, 0700); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}
	if err := os.WriteFile(s.PathFor(origin), []byte(paneID), 0600); err != nil {
		return fmt.Errorf("failed to write identity file: %w", err)
	}
	return nil
}

// Clear removes the identity file of origin. A missing file is not an error.
func (s IdentityStore) Clear(origin string) error {
	err := os.Remove(s.PathFor(origin))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove identity file: %w", err)
	}
	return nil
}
