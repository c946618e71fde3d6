package tui

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"panetree/modules/core/tree"
	"panetree/modules/platform/control"
)

type buildCall struct {
	root string
	mode tree.Mode
}

type fakeBuilder struct {
	mu      sync.Mutex
	calls   []buildCall
	forests map[string]tree.Forest
}

func (f *fakeBuilder) build(ctx context.Context, root string, mode tree.Mode) tree.Forest {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, buildCall{root, mode})
	return f.forests[root+"|"+mode.String()]
}

func file(dir, name string) tree.Node {
	return tree.Node{Name: name, Path: filepath.Join(dir, name)}
}

func dir(parent, name string, children ...tree.Node) tree.Node {
	if children == nil {
		children = []tree.Node{}
	}
	return tree.Node{Name: name, Path: filepath.Join(parent, name), IsDir: true, Children: children}
}

// runCmd executes cmd and every command it batches, returning the messages
func runCmd(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, runCmd(c)...)
		}
		return out
	}
	if msg == nil {
		return nil
	}
	return []tea.Msg{msg}
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, []tea.Msg) {
	t.Helper()
	next, cmd := m.Update(msg)
	model, ok := next.(Model)
	require.True(t, ok)
	return model, runCmd(cmd)
}

// settle feeds produced messages back until no build is left
func settle(t *testing.T, m Model, msgs []tea.Msg) Model {
	t.Helper()
	for len(msgs) > 0 {
		var next []tea.Msg
		for _, msg := range msgs {
			var out []tea.Msg
			m, out = update(t, m, msg)
			next = append(next, out...)
		}
		msgs = next
	}
	return m
}

func mkdir(p string) error {
	return os.MkdirAll(p, 0755)
}

func keyRune(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func newTestModel(t *testing.T, fb *fakeBuilder, root string, deps Deps) Model {
	t.Helper()
	deps.Build = fb.build
	return NewModel(deps, ModelOptions{
		Root:   root,
		Forest: fb.forests[root+"|all"],
	})
}

func TestCursorFollowsPathAcrossRebuild(t *testing.T) {
	root := "/r"
	fb := &fakeBuilder{forests: map[string]tree.Forest{
		"/r|all": {file(root, "b.txt"), file(root, "c.txt")},
	}}
	m := newTestModel(t, fb, root, Deps{})

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyDown})
	entry, ok := m.selected()
	require.True(t, ok)
	require.Equal(t, "c.txt", entry.Node.Name)

	fb.forests["/r|all"] = tree.Forest{file(root, "a.txt"), file(root, "b.txt"), file(root, "c.txt")}
	m, msgs := update(t, m, rebuildMsg{})
	m = settle(t, m, msgs)

	entry, ok = m.selected()
	require.True(t, ok)
	assert.Equal(t, "c.txt", entry.Node.Name)
	assert.Equal(t, 2, m.cursor)

	fb.forests["/r|all"] = tree.Forest{file(root, "a.txt")}
	m, msgs = update(t, m, rebuildMsg{})
	m = settle(t, m, msgs)
	assert.Equal(t, 0, m.cursor)
}

func TestOnlyOneBuildInFlight(t *testing.T) {
	fb := &fakeBuilder{forests: map[string]tree.Forest{}}
	m := newTestModel(t, fb, "/r", Deps{})

	next, first := m.Update(rebuildMsg{})
	m = next.(Model)
	require.NotNil(t, first)
	assert.True(t, m.building)

	next, second := m.Update(rebuildMsg{})
	m = next.(Model)
	assert.Nil(t, second)
	assert.True(t, m.rebuildPending)

	// finishing the first build starts the remembered one
	m = settle(t, m, runCmd(first))
	assert.Len(t, fb.calls, 2)
	assert.False(t, m.building)
	assert.False(t, m.rebuildPending)
}

func TestSetCwdReRootsAndAnnouncesReady(t *testing.T) {
	root := t.TempDir()
	sub := filepath.Join(root, "sub")
	require.NoError(t, mkdir(sub))
	root = tree.ResolveRoot(root)
	sub = tree.ResolveRoot(sub)

	fb := &fakeBuilder{forests: map[string]tree.Forest{
		sub + "|all": {file(sub, "inner.go")},
	}}
	var moved []string
	readies := 0
	m := newTestModel(t, fb, root, Deps{
		RootChanged: func(r string) { moved = append(moved, r) },
		Ready:       func() { readies++ },
	})

	m, msgs := update(t, m, controlMsg{msg: control.Message{Type: control.MsgSetCwd, Cwd: sub}})
	m = settle(t, m, msgs)

	assert.Equal(t, sub, m.Root())
	assert.Equal(t, []string{sub}, moved)
	assert.Equal(t, 1, readies)
	require.Len(t, m.flat, 1)
	assert.Equal(t, "inner.go", m.flat[0].Node.Name)

	// a refresh doesn't announce again
	m, msgs = update(t, m, controlMsg{msg: control.Message{Type: control.MsgRefresh}})
	settle(t, m, msgs)
	assert.Equal(t, 1, readies)
}

func TestSetCwdRejectsMissingDirectory(t *testing.T) {
	fb := &fakeBuilder{forests: map[string]tree.Forest{}}
	m := newTestModel(t, fb, "/r", Deps{})

	m, msgs := update(t, m, controlMsg{msg: control.Message{Type: control.MsgSetCwd, Cwd: filepath.Join(t.TempDir(), "gone")}})
	assert.Empty(t, msgs)
	assert.Equal(t, "/r", m.Root())
	assert.Contains(t, m.message, "not a directory")
}

func TestStaleRootBuildIsDiscarded(t *testing.T) {
	root := tree.ResolveRoot(t.TempDir())
	other := tree.ResolveRoot(t.TempDir())
	fb := &fakeBuilder{forests: map[string]tree.Forest{
		root + "|all":  {file(root, "old.txt")},
		other + "|all": {file(other, "new.txt")},
	}}
	m := newTestModel(t, fb, root, Deps{})

	next, inflight := m.Update(rebuildMsg{})
	m = next.(Model)

	m, msgs := update(t, m, controlMsg{msg: control.Message{Type: control.MsgSetCwd, Cwd: other}})
	assert.Empty(t, msgs)

	m = settle(t, m, runCmd(inflight))
	require.Len(t, m.flat, 1)
	assert.Equal(t, "new.txt", m.flat[0].Node.Name)
}

func TestCloseQuits(t *testing.T) {
	m := newTestModel(t, &fakeBuilder{}, "/r", Deps{})
	m, msgs := update(t, m, controlMsg{msg: control.Message{Type: control.MsgClose}})
	require.Len(t, msgs, 1)
	assert.IsType(t, tea.QuitMsg{}, msgs[0])
	assert.Equal(t, "", m.View())
}

func TestHandoffSuspendsUpdates(t *testing.T) {
	root := "/r"
	fb := &fakeBuilder{forests: map[string]tree.Forest{
		"/r|all": {file(root, "main.go")},
	}}
	m := newTestModel(t, fb, root, Deps{})

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)
	require.NotNil(t, cmd)
	assert.True(t, m.suspended)

	m, msgs := update(t, m, rebuildMsg{})
	assert.Empty(t, msgs)
	m, msgs = update(t, m, controlMsg{msg: control.Message{Type: control.MsgClose}})
	assert.Empty(t, msgs)
	assert.True(t, m.refreshPending)
	assert.Empty(t, fb.calls)

	m, msgs = update(t, m, handoffDoneMsg{})
	assert.False(t, m.suspended)
	assert.Len(t, fb.calls, 1)

	var quit bool
	for _, msg := range msgs {
		if _, ok := msg.(tea.QuitMsg); ok {
			quit = true
		}
	}
	assert.True(t, quit, "deferred close is replayed on resume")
}

func TestEnterOnDirectoryReRoots(t *testing.T) {
	root := tree.ResolveRoot(t.TempDir())
	sub := filepath.Join(root, "pkg")
	require.NoError(t, mkdir(sub))

	fb := &fakeBuilder{forests: map[string]tree.Forest{
		root + "|all": {dir(root, "pkg")},
	}}
	m := newTestModel(t, fb, root, Deps{})

	m, msgs := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	m = settle(t, m, msgs)
	assert.Equal(t, sub, m.Root())
	assert.False(t, m.suspended)

	m, msgs = update(t, m, keyRune('-'))
	settle(t, m, msgs)
	assert.Equal(t, []buildCall{{sub, tree.ModeAll}, {root, tree.ModeAll}}, fb.calls)
}

func TestModeToggleRebuildsInDiffMode(t *testing.T) {
	fb := &fakeBuilder{forests: map[string]tree.Forest{}}
	m := newTestModel(t, fb, "/r", Deps{})

	m, msgs := update(t, m, keyRune('m'))
	m = settle(t, m, msgs)
	assert.Equal(t, []buildCall{{"/r", tree.ModeDiff}}, fb.calls)
	assert.Contains(t, m.View(), "(no changes)")
	assert.Contains(t, m.View(), "[changes]")
}

func TestFocusUpdatesHeader(t *testing.T) {
	m := newTestModel(t, &fakeBuilder{}, "/r", Deps{})
	assert.True(t, m.focused)

	m, _ = update(t, m, focusMsg{focused: false, ok: true})
	assert.False(t, m.focused)

	// failed focus checks keep the last known state
	m, _ = update(t, m, focusMsg{ok: false})
	assert.False(t, m.focused)
}

func TestViewRendersRows(t *testing.T) {
	root := "/r"
	fb := &fakeBuilder{forests: map[string]tree.Forest{
		"/r|all": {dir(root, "src", file(filepath.Join(root, "src"), "main.go")), file(root, "README.md")},
	}}
	m := newTestModel(t, fb, root, Deps{})
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 40, Height: 10})

	out := m.View()
	assert.Contains(t, out, "src/")
	assert.Contains(t, out, "main.go")
	assert.Contains(t, out, "README.md")

	lines := strings.Split(out, "\n")
	assert.Len(t, lines, 10)
}

func TestPageDownClamps(t *testing.T) {
	root := "/r"
	var forest tree.Forest
	for _, n := range []string{"a", "b", "c", "d", "e", "f", "g"} {
		forest = append(forest, file(root, n))
	}
	fb := &fakeBuilder{forests: map[string]tree.Forest{"/r|all": forest}}
	m := newTestModel(t, fb, root, Deps{})
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 40, Height: 5})

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyPgDown})
	assert.Equal(t, 3, m.cursor)
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyPgDown})
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyPgDown})
	assert.Equal(t, 6, m.cursor)
	assert.Equal(t, 4, m.offset)

	m, _ = update(t, m, keyRune('g'))
	assert.Equal(t, 0, m.cursor)
	assert.Equal(t, 0, m.offset)
}
