package pane

import (
	"context"
	"os"
	"strings"
	"time"

	"panetree/modules/platform/logger"
)

const (
	DefaultSplitPercent = 25
	DefaultSettleDelay  = 150 * time.Millisecond
)

// State is the lifecycle state of an originating pane
type State int

const (
	NoPane State = iota
	PaneActive
)

func (s State) String() string {
	if s == PaneActive {
		return "active"
	}
	return "none"
}

// CommandBuilder returns the argv that runs the view for origin at cwd
type CommandBuilder func(origin, cwd string) []string

// DefaultCommand runs this executable's view command
func DefaultCommand(origin, cwd string) []string {
	exe, err := os.Executable()
	if err != nil {
		exe = "panetree"
	}
	return []string{exe, "view", "--dir", cwd, "--origin", origin}
}

// KeepShell wraps cmd so the pane drops to the user's shell when cmd exits.
// Without it, interrupting the view would close the pane instead of leaving
// a prompt to relaunch into.
func KeepShell(cmd []string) []string {
	return []string{"sh", "-c", ShellLine(cmd) + `; exec "${SHELL:-sh}"`}
}

// Manager drives the pane lifecycle. The identity file is never trusted
// without asking the multiplexer whether the pane still exists.
type Manager struct {
	Mux          Multiplexer
	Store        IdentityStore
	Command      CommandBuilder
	SplitPercent int
	SettleDelay  time.Duration
	Logger       *logger.Logger
}

func (m *Manager) log() *logger.Logger {
	if m.Logger != nil {
		return m.Logger
	}
	return logger.GetGlobalLogger()
}

func (m *Manager) command(origin, cwd string) []string {
	if m.Command != nil {
		return m.Command(origin, cwd)
	}
	return DefaultCommand(origin, cwd)
}

// State returns the reconciled state for origin and the live pane id. A
// recorded pane that no longer exists has its identity file cleared.
func (m *Manager) State(ctx context.Context, origin string) (State, string) {
	id, ok := m.Store.Load(origin)
	if !ok {
		return NoPane, ""
	}
	if m.Mux.PaneExists(ctx, id) {
		return PaneActive, id
	}

	m.log().Debug("Recorded pane %s for %s is gone", id, origin)
	if err := m.Store.Clear(origin); err != nil {
		m.log().Warn("%v", err)
	}
	return NoPane, ""
}

// Toggle closes the view pane of origin if it is live, otherwise spawns one
// at cwd. It returns the new pane id and true only when a pane was spawned.
func (m *Manager) Toggle(ctx context.Context, origin, cwd string) (string, bool) {
	state, id := m.State(ctx, origin)
	if state == PaneActive {
		if err := m.Mux.KillPane(ctx, id); err != nil {
			m.log().Warn("Failed to kill pane %s: %v", id, err)
		}
		if err := m.Store.Clear(origin); err != nil {
			m.log().Warn("%v", err)
		}
		m.log().Info("Closed pane %s for %s", id, origin)
		return "", false
	}
	return m.spawn(ctx, origin, cwd)
}

// Show makes the view of origin display cwd. A live pane has its current
// program interrupted and the view relaunched in place.
func (m *Manager) Show(ctx context.Context, origin, cwd string) (string, bool) {
	state, id := m.State(ctx, origin)
	if state != PaneActive {
		return m.spawn(ctx, origin, cwd)
	}

	if err := m.Mux.SendKeys(ctx, id, "C-c"); err != nil {
		m.log().Warn("Failed to interrupt pane %s: %v", id, err)
		return "", false
	}

	delay := m.SettleDelay
	if delay <= 0 {
		delay = DefaultSettleDelay
	}
	select {
	case <-ctx.Done():
		return "", false
	case <-time.After(delay):
	}

	// A pane whose program was the view itself closes with it
	if !m.Mux.PaneExists(ctx, id) {
		m.log().Info("Pane %s closed on interrupt, opening a new one", id)
		return m.spawn(ctx, origin, cwd)
	}

	line := "clear && " + ShellLine(m.command(origin, cwd))
	if err := m.Mux.SendLiteral(ctx, id, line); err != nil {
		m.log().Warn("Failed to relaunch view in pane %s: %v", id, err)
		return "", false
	}
	if err := m.Mux.SendKeys(ctx, id, "Enter"); err != nil {
		m.log().Warn("Failed to relaunch view in pane %s: %v", id, err)
		return "", false
	}

	m.log().Info("Relaunched view in pane %s at %s", id, cwd)
	return id, true
}

// Close kills the view pane of origin if it exists and always clears the
// identity file. Only a failure to remove that file is reported.
func (m *Manager) Close(ctx context.Context, origin string) error {
	if id, ok := m.Store.Load(origin); ok && m.Mux.PaneExists(ctx, id) {
		if err := m.Mux.KillPane(ctx, id); err != nil {
			m.log().Warn("Failed to kill pane %s: %v", id, err)
		}
	}
	return m.Store.Clear(origin)
}

func (m *Manager) spawn(ctx context.Context, origin, cwd string) (string, bool) {
	if err := m.Store.Clear(origin); err != nil {
		m.log().Warn("%v", err)
	}

	percent := m.SplitPercent
	if percent <= 0 {
		percent = DefaultSplitPercent
	}

	id, err := m.Mux.SplitPane(ctx, origin, percent, cwd, KeepShell(m.command(origin, cwd)))
	if err != nil || id == "" {
		m.log().Error("Failed to open pane next to %s: %v", origin, err)
		return "", false
	}

	if err := m.Store.Save(origin, id); err != nil {
		m.log().Error("%v", err)
		m.Mux.KillPane(ctx, id)
		return "", false
	}

	// The split may take focus; give it back to the pane the user was typing in
	if err := m.Mux.SelectPane(ctx, origin); err != nil {
		m.log().Debug("Failed to refocus %s: %v", origin, err)
	}

	m.log().Info("Opened pane %s for %s at %s", id, origin, cwd)
	return id, true
}

// ShellLine joins args into a POSIX shell command line, single-quoting any
// argument that needs it
func ShellLine(args []string) string {
	quoted := make([]string, len(args))
	for i, a := range args {
		quoted[i] = shellQuote(a)
	}
	return strings.Join(quoted, " ")
}

func shellQuote(s string) string {
	if s == "" {
		return "''"
	}
	safe := true
	for _, c := range s {
		if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || strings.ContainsRune("_-./=:,+%@", c)) {
			safe = false
			break
		}
	}
	if safe {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
