package tui

import (
	"time"

	"panetree/modules/core/tree"
	"panetree/modules/platform/control"
)

// treeBuiltMsg carries a finished build. root and mode identify what it was
// built for; a result for a root the view has since left is discarded.
type treeBuiltMsg struct {
	forest     tree.Forest
	generation uint64
	root       string
	mode       tree.Mode
}

// rebuildMsg asks for a rebuild (debounced filesystem activity)
type rebuildMsg struct{}

// controlMsg is a command received on the control socket
type controlMsg struct {
	msg control.Message
}

type focusTickMsg time.Time

type focusMsg struct {
	focused bool
	ok      bool
}

// handoffDoneMsg is sent when the editor or pager exits
type handoffDoneMsg struct {
	err error
}
