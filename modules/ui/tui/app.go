package tui

import (
	"context"
	"fmt"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"panetree/modules/core/pane"
	"panetree/modules/core/tree"
	"panetree/modules/platform/config"
	"panetree/modules/platform/control"
	"panetree/modules/platform/git"
	"panetree/modules/platform/logger"
	"panetree/modules/platform/watcher"
)

// AppOptions configures the live view process
type AppOptions struct {
	Root       string
	Mode       tree.Mode
	SocketPath string // "" disables the control channel
	PaneID     string // pane the view runs in, "" when unknown
	Settings   *config.Settings
	Git        *git.Service
	Mux        pane.Multiplexer // nil disables focus tracking
	Logger     *logger.Logger

	// ProgramOptions are appended to the defaults, e.g. to run headless
	ProgramOptions []tea.ProgramOption
}

// App runs the tree view: the bubbletea program plus the watcher and control
// server feeding it
type App struct {
	opts    AppOptions
	log     *logger.Logger
	program *tea.Program
	server  *control.Server

	mu      sync.Mutex
	watcher *watcher.Watcher
	stopped bool
}

// NewApp creates the view
func NewApp(opts AppOptions) *App {
	if opts.Settings == nil {
		opts.Settings = config.DefaultSettings()
	}
	if opts.Git == nil {
		opts.Git = git.NewService(nil)
	}
	log := opts.Logger
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &App{opts: opts, log: log}
}

func (a *App) build(ctx context.Context, root string, mode tree.Mode) tree.Forest {
	b := &tree.Builder{
		Root: root,
		Mode: mode,
		Options: tree.Options{
			MaxDepth:   a.opts.Settings.MaxDepth,
			MaxEntries: a.opts.Settings.MaxEntries,
		},
		Status: a.opts.Git,
	}
	forest := b.Build(ctx)
	a.log.Debug("Built %s tree for %s: %d nodes", mode, root, tree.Count(forest))
	return forest
}

// branch is asked on every re-root, so the repository is reopened to pick up
// a checkout made since the last visit
func (a *App) branch(root string) string {
	a.opts.Git.Invalidate(root)
	info, ok := a.opts.Git.Info(root)
	if !ok {
		return ""
	}
	return info.Branch
}

func (a *App) focused(ctx context.Context) (bool, error) {
	panes, err := a.opts.Mux.ListPanes(ctx)
	if err != nil {
		return false, err
	}
	for _, p := range panes {
		if p.ID == a.opts.PaneID {
			return p.Active, nil
		}
	}
	return false, fmt.Errorf("pane %s not listed", a.opts.PaneID)
}

// watch moves the filesystem watch to root
func (a *App) watch(root string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stopped {
		return
	}
	if a.watcher != nil {
		a.watcher.Close()
	}

	s := a.opts.Settings
	w := watcher.New(root, func() { a.program.Send(rebuildMsg{}) },
		watcher.WithDebounce(s.Debounce()),
		watcher.WithPollInterval(s.PollInterval()),
		watcher.WithLogger(a.log),
	)
	if err := w.Start(); err != nil {
		a.log.Warn("Cannot watch %s: %v", root, err)
		return
	}
	a.watcher = w
	a.log.Info("Watching %s (%s)", root, w.Mode())
}

func (a *App) ready() {
	if a.server != nil {
		a.server.Broadcast(control.Message{Type: control.MsgReady})
	}
}

func (a *App) shutdown() {
	a.mu.Lock()
	a.stopped = true
	if a.watcher != nil {
		a.watcher.Close()
		a.watcher = nil
	}
	a.mu.Unlock()

	if a.server != nil {
		a.server.Close()
	}
}

// Run builds the first tree, starts the program and blocks until it exits
func (a *App) Run(ctx context.Context) error {
	root := tree.ResolveRoot(a.opts.Root)
	forest := a.build(ctx, root, a.opts.Mode)

	deps := Deps{
		Build:       a.build,
		RootChanged: a.watch,
		Ready:       a.ready,
		Branch:      a.branch,
	}
	if a.opts.Mux != nil && a.opts.PaneID != "" {
		deps.Focused = a.focused
	}

	s := a.opts.Settings
	model := NewModel(deps, ModelOptions{
		Root:      root,
		Mode:      a.opts.Mode,
		Forest:    forest,
		Editor:    s.ResolveEditor(),
		Pager:     s.ResolvePager(),
		FocusPoll: s.FocusPoll(),
	})

	programOpts := append([]tea.ProgramOption{tea.WithAltScreen()}, a.opts.ProgramOptions...)
	a.program = tea.NewProgram(model, programOpts...)
	program := a.program
	defer a.shutdown()

	if a.opts.SocketPath != "" {
		server := control.NewServer(a.opts.SocketPath, control.HandlerFunc(func(msg control.Message) {
			program.Send(controlMsg{msg: msg})
		}), control.WithServerLogger(a.log))
		if err := server.Start(); err != nil {
			// The view still works, it just can't be driven
			a.log.Warn("Control channel unavailable: %v", err)
		} else {
			a.server = server
		}
	}

	a.watch(root)
	a.ready()

	type runResult struct {
		model tea.Model
		err   error
	}
	resultCh := make(chan runResult, 1)
	go func() {
		finalModel, err := program.Run()
		resultCh <- runResult{model: finalModel, err: err}
	}()

	select {
	case <-ctx.Done():
		program.Quit()
		<-resultCh
		return ctx.Err()
	case result := <-resultCh:
		if final, ok := result.model.(Model); ok {
			a.log.Info("View exited at %s", final.Root())
		}
		return result.err
	}
}
