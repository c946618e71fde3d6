package tui

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"panetree/modules/core/pane"
	"panetree/modules/core/tree"
	"panetree/modules/platform/control"
)

// DefaultFocusPoll is how often the pane focus is sampled
const DefaultFocusPoll = 200 * time.Millisecond

// BuildFunc builds the forest for root in mode
type BuildFunc func(ctx context.Context, root string, mode tree.Mode) tree.Forest

// Deps are the side effects the model triggers. Every field is optional
// except Build.
type Deps struct {
	Build BuildFunc
	// RootChanged moves the filesystem watch to root
	RootChanged func(root string)
	// Ready tells connected controllers the view shows its current root
	Ready func()
	// Focused reports whether the view's pane has input focus
	Focused func(ctx context.Context) (bool, error)
	// Branch returns the branch name shown in the header, or ""
	Branch func(root string) string
}

// Model is the Bubble Tea model of the tree view. All state changes happen
// in Update; builds, handoffs and notifications arrive as messages.
type Model struct {
	deps Deps
	keys KeyMap
	help help.Model

	root   string
	mode   tree.Mode
	branch string
	forest tree.Forest
	flat   []tree.FlatEntry

	cursor int
	offset int
	width  int
	height int

	generation     uint64
	building       bool
	rebuildPending bool
	readyPending   bool

	// handoff to an editor or pager
	suspended      bool
	refreshPending bool
	deferred       []control.Message

	focusPoll time.Duration
	focused   bool

	editor  string
	pager   string
	message string

	showHelp bool
	quitting bool
}

// ModelOptions configures NewModel
type ModelOptions struct {
	Root      string
	Mode      tree.Mode
	Forest    tree.Forest // result of the initial build
	Editor    string
	Pager     string
	FocusPoll time.Duration
}

// NewModel creates a model showing an already built forest
func NewModel(deps Deps, opts ModelOptions) Model {
	if opts.FocusPoll <= 0 {
		opts.FocusPoll = DefaultFocusPoll
	}
	m := Model{
		deps:      deps,
		keys:      DefaultKeyMap(),
		help:      help.New(),
		root:      opts.Root,
		mode:      opts.Mode,
		editor:    opts.Editor,
		pager:     opts.Pager,
		focusPoll: opts.FocusPoll,
		focused:   true,
	}
	if deps.Branch != nil {
		m.branch = deps.Branch(opts.Root)
	}
	m.setForest(opts.Forest)
	return m
}

// Root returns the directory currently shown
func (m Model) Root() string {
	return m.root
}

// Init starts focus polling
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.focusTick(),
		tea.WindowSize(),
	)
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.ensureVisible()

	case tea.KeyMsg:
		if m.showHelp {
			m.showHelp = false
			if key.Matches(msg, m.keys.Quit) {
				cmds = append(cmds, m.quit())
			}
			break
		}
		cmds = append(cmds, m.handleKeyPress(msg))

	case rebuildMsg:
		cmds = append(cmds, m.requestBuild())

	case treeBuiltMsg:
		cmds = append(cmds, m.applyBuild(msg)...)

	case controlMsg:
		cmds = append(cmds, m.handleControl(msg.msg))

	case focusTickMsg:
		cmds = append(cmds, m.queryFocus())

	case focusMsg:
		if msg.ok {
			m.focused = msg.focused
		}
		cmds = append(cmds, m.focusTick())

	case handoffDoneMsg:
		cmds = append(cmds, m.resume(msg.err)...)
	}

	return m, tea.Batch(cmds...)
}

// handleKeyPress processes keyboard input
func (m *Model) handleKeyPress(msg tea.KeyMsg) tea.Cmd {
	m.message = ""

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m.quit()
	case key.Matches(msg, m.keys.Help):
		m.showHelp = true

	case key.Matches(msg, m.keys.Up):
		m.moveCursor(-1)
	case key.Matches(msg, m.keys.Down):
		m.moveCursor(1)
	case key.Matches(msg, m.keys.PageUp):
		m.moveCursor(-m.visibleRows())
	case key.Matches(msg, m.keys.PageDown):
		m.moveCursor(m.visibleRows())
	case key.Matches(msg, m.keys.Home):
		m.moveCursor(-len(m.flat))
	case key.Matches(msg, m.keys.End):
		m.moveCursor(len(m.flat))

	case key.Matches(msg, m.keys.Refresh):
		return m.requestBuild()
	case key.Matches(msg, m.keys.Mode):
		if m.mode == tree.ModeAll {
			m.mode = tree.ModeDiff
		} else {
			m.mode = tree.ModeAll
		}
		return m.requestBuild()

	case key.Matches(msg, m.keys.Open):
		entry, ok := m.selected()
		if !ok {
			return nil
		}
		if entry.Node.IsDir {
			return m.setRoot(entry.Node.Path)
		}
		return m.handoff(m.editCommand(entry.Node.Path))
	case key.Matches(msg, m.keys.Diff):
		entry, ok := m.selected()
		if !ok || entry.Node.IsDir {
			return nil
		}
		return m.handoff(m.diffCommand(entry.Node))
	case key.Matches(msg, m.keys.Into):
		entry, ok := m.selected()
		if !ok || !entry.Node.IsDir {
			return nil
		}
		return m.setRoot(entry.Node.Path)
	case key.Matches(msg, m.keys.Parent):
		parent := filepath.Dir(m.root)
		if parent == m.root {
			return nil
		}
		return m.setRoot(parent)
	}
	return nil
}

func (m *Model) quit() tea.Cmd {
	m.quitting = true
	return tea.Quit
}

// handleControl reacts to a controller command. While suspended, commands are
// kept and replayed on resume.
func (m *Model) handleControl(msg control.Message) tea.Cmd {
	if m.suspended {
		m.deferred = append(m.deferred, msg)
		return nil
	}

	switch msg.Type {
	case control.MsgClose:
		return m.quit()
	case control.MsgRefresh:
		return m.requestBuild()
	case control.MsgSetCwd:
		if msg.Cwd == "" {
			return nil
		}
		return m.setRoot(msg.Cwd)
	}
	return nil
}

// setRoot re-roots the view. Ready is announced once the new root is built.
func (m *Model) setRoot(root string) tea.Cmd {
	root = tree.ResolveRoot(root)
	if info, err := os.Stat(root); err != nil || !info.IsDir() {
		m.message = fmt.Sprintf("not a directory: %s", root)
		return nil
	}

	m.root = root
	m.cursor = 0
	m.offset = 0
	m.readyPending = true
	if m.deps.Branch != nil {
		m.branch = m.deps.Branch(root)
	}

	cmds := []tea.Cmd{m.requestBuild()}
	if m.deps.RootChanged != nil {
		notify := m.deps.RootChanged
		cmds = append(cmds, func() tea.Msg {
			notify(root)
			return nil
		})
	}
	return tea.Batch(cmds...)
}

// requestBuild starts a build unless one is running, in which case another
// build runs as soon as it finishes
func (m *Model) requestBuild() tea.Cmd {
	if m.suspended {
		m.refreshPending = true
		return nil
	}
	if m.building {
		m.rebuildPending = true
		return nil
	}

	m.building = true
	m.generation++
	gen, root, mode, build := m.generation, m.root, m.mode, m.deps.Build
	return func() tea.Msg {
		var forest tree.Forest
		if build != nil {
			forest = build(context.Background(), root, mode)
		}
		return treeBuiltMsg{forest: forest, generation: gen, root: root, mode: mode}
	}
}

func (m *Model) applyBuild(msg treeBuiltMsg) []tea.Cmd {
	if msg.generation != m.generation {
		return nil
	}
	m.building = false

	var cmds []tea.Cmd
	current := msg.root == m.root && msg.mode == m.mode
	if current {
		m.setForest(msg.forest)
		if m.readyPending && m.deps.Ready != nil {
			m.readyPending = false
			ready := m.deps.Ready
			cmds = append(cmds, func() tea.Msg {
				ready()
				return nil
			})
		}
	}

	if m.rebuildPending || !current {
		m.rebuildPending = false
		cmds = append(cmds, m.requestBuild())
	}
	return cmds
}

// setForest replaces the tree, keeping the cursor on the same path if it
// still exists
func (m *Model) setForest(forest tree.Forest) {
	var selectedPath string
	if entry, ok := m.selected(); ok {
		selectedPath = entry.Node.Path
	}

	m.forest = forest
	m.flat = tree.Flatten(forest)

	if idx := tree.IndexOfPath(m.flat, selectedPath); idx >= 0 {
		m.cursor = idx
	}
	m.clampCursor()
	m.ensureVisible()
}

func (m *Model) selected() (tree.FlatEntry, bool) {
	if m.cursor < 0 || m.cursor >= len(m.flat) {
		return tree.FlatEntry{}, false
	}
	return m.flat[m.cursor], true
}

func (m *Model) moveCursor(delta int) {
	m.cursor += delta
	m.clampCursor()
	m.ensureVisible()
}

func (m *Model) clampCursor() {
	if m.cursor >= len(m.flat) {
		m.cursor = len(m.flat) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

// visibleRows is the number of tree rows that fit between header and footer
func (m *Model) visibleRows() int {
	if m.height <= 0 {
		return 20
	}
	if rows := m.height - 2; rows > 0 {
		return rows
	}
	return 1
}

// ensureVisible adjusts scroll to keep selection visible
func (m *Model) ensureVisible() {
	rows := m.visibleRows()
	if m.cursor < m.offset {
		m.offset = m.cursor
	} else if m.cursor >= m.offset+rows {
		m.offset = m.cursor - rows + 1
	}
	if m.offset < 0 {
		m.offset = 0
	}
}

// Focus polling

func (m *Model) focusTick() tea.Cmd {
	if m.deps.Focused == nil {
		return nil
	}
	return tea.Tick(m.focusPoll, func(t time.Time) tea.Msg {
		return focusTickMsg(t)
	})
}

func (m *Model) queryFocus() tea.Cmd {
	focused := m.deps.Focused
	if focused == nil {
		return nil
	}
	poll := m.focusPoll
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), poll*5)
		defer cancel()
		f, err := focused(ctx)
		return focusMsg{focused: f, ok: err == nil}
	}
}

// Handoff

// handoff gives the terminal to cmd until it exits
func (m *Model) handoff(cmd *exec.Cmd) tea.Cmd {
	m.suspended = true
	return tea.ExecProcess(cmd, func(err error) tea.Msg {
		return handoffDoneMsg{err: err}
	})
}

func (m *Model) resume(err error) []tea.Cmd {
	m.suspended = false
	if err != nil {
		m.message = fmt.Sprintf("command failed: %v", err)
	}

	var cmds []tea.Cmd
	if m.refreshPending {
		m.refreshPending = false
		cmds = append(cmds, m.requestBuild())
	}

	deferred := m.deferred
	m.deferred = nil
	for _, msg := range deferred {
		cmds = append(cmds, m.handleControl(msg))
	}
	return cmds
}

func (m *Model) editCommand(path string) *exec.Cmd {
	editor := m.editor
	if editor == "" {
		editor = "vi"
	}
	cmd := exec.Command("sh", "-c", editor+" "+pane.ShellLine([]string{path}))
	cmd.Dir = m.root
	return cmd
}

// diffCommand pages the working tree diff of one file. Untracked files have
// no index entry, so they are diffed against an empty file.
func (m *Model) diffCommand(node *tree.Node) *exec.Cmd {
	pager := m.pager
	if pager == "" {
		pager = "less -R"
	}

	args := []string{"git", "diff", "--color=always"}
	if node.GitStatus == tree.StatusUntracked {
		args = append(args, "--no-index", "--", os.DevNull, node.Path)
	} else {
		args = append(args, "--", node.Path)
	}
	cmd := exec.Command("sh", "-c", pane.ShellLine(args)+" | "+pager)
	cmd.Dir = filepath.Dir(node.Path)
	return cmd
}

// View renders the UI
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	header := m.renderHeader()
	if m.showHelp {
		return lipgloss.JoinVertical(lipgloss.Left, header, m.help.FullHelpView(m.keys.FullHelp()))
	}
	return lipgloss.JoinVertical(lipgloss.Left, header, m.renderRows(), m.renderFooter())
}

func (m Model) renderHeader() string {
	title := displayPath(m.root)
	if m.branch != "" {
		title += " " + BranchStyle.Render("("+m.branch+")")
	}
	if m.mode == tree.ModeDiff {
		title += " " + ModeTagStyle.Render("[changes]")
	}
	if m.width > 0 {
		title = lipgloss.NewStyle().MaxWidth(m.width).Render(title)
	}
	if !m.focused {
		return HeaderBlurredStyle.Render(title)
	}
	return HeaderStyle.Render(title)
}

func (m Model) renderRows() string {
	rows := m.visibleRows()

	if len(m.flat) == 0 {
		empty := "(empty)"
		if m.mode == tree.ModeDiff {
			empty = "(no changes)"
		}
		return MutedStyle.Render(empty) + strings.Repeat("\n", rows-1)
	}

	end := m.offset + rows
	if end > len(m.flat) {
		end = len(m.flat)
	}

	lines := make([]string, 0, rows)
	for i := m.offset; i < end; i++ {
		lines = append(lines, m.renderRow(m.flat[i], i == m.cursor))
	}
	for len(lines) < rows {
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderRow(e tree.FlatEntry, selected bool) string {
	name := e.Node.Name
	style := FileStyle
	if e.Node.IsDir {
		name += "/"
		style = DirStyle
	}
	line := e.Prefix + statusMarker(e.Node.GitStatus) + style.Render(name)
	if m.width > 0 {
		line = lipgloss.NewStyle().MaxWidth(m.width).Render(line)
	}
	if selected {
		return SelectedStyle.Render(line)
	}
	return line
}

func (m Model) renderFooter() string {
	if m.message != "" {
		return MessageStyle.Render(m.message)
	}
	return m.help.ShortHelpView(m.keys.ShortHelp())
}

// displayPath abbreviates the home directory to ~
func displayPath(p string) string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return p
	}
	if p == home {
		return "~"
	}
	if strings.HasPrefix(p, home+string(filepath.Separator)) {
		return "~" + p[len(home):]
	}
	return p
}
