// Package pane manages the split pane that hosts the tree view of an
// originating pane.
package pane

import (
	"context"
	"errors"
)

// ErrNoMultiplexer is returned when no multiplexer session is reachable
var ErrNoMultiplexer = errors.New("not running inside a tmux session")

// PaneInfo describes one live pane
type PaneInfo struct {
	ID     string
	Active bool // focused pane of its window
	Window string
}

// Multiplexer is the subset of terminal multiplexer operations the pane
// lifecycle needs
type Multiplexer interface {
	CurrentPane(ctx context.Context) (string, error)
	ListPanes(ctx context.Context) ([]PaneInfo, error)
	PaneExists(ctx context.Context, id string) bool
	// SplitPane opens a pane left of target using percent of its width and
	// returns the new pane's id
	SplitPane(ctx context.Context, target string, percent int, cwd string, command []string) (string, error)
	SendKeys(ctx context.Context, id string, keys ...string) error
	SendLiteral(ctx context.Context, id, text string) error
	SelectPane(ctx context.Context, id string) error
	KillPane(ctx context.Context, id string) error
}
