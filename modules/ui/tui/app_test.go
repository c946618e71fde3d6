package tui

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"panetree/modules/core/tree"
	"panetree/modules/platform/config"
	"panetree/modules/platform/control"
	"panetree/modules/platform/logger"
)

func headless() []tea.ProgramOption {
	return []tea.ProgramOption{
		tea.WithInput(nil),
		tea.WithOutput(io.Discard),
		tea.WithoutRenderer(),
		tea.WithoutSignalHandler(),
	}
}

func TestAppRunReleasesEverythingOnExit(t *testing.T) {
	root := tree.ResolveRoot(t.TempDir())
	sub := filepath.Join(root, "sub")
	require.NoError(t, mkdir(sub))

	sockDir, err := os.MkdirTemp("", "pta")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(sockDir) })
	sock := control.SocketPath(sockDir, "%1")

	app := NewApp(AppOptions{
		Root:           root,
		SocketPath:     sock,
		Settings:       config.DefaultSettings(),
		Logger:         logger.Nop(),
		ProgramOptions: headless(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errc := make(chan error, 1)
	go func() { errc <- app.Run(ctx) }()

	require.Eventually(t, func() bool {
		return control.Ping(context.Background(), sock)
	}, 5*time.Second, 20*time.Millisecond)

	// a controller moving the view hears ready on its own connection
	sent, ready := control.Await(context.Background(), sock, control.Message{Type: control.MsgSetCwd, Cwd: sub}, control.MsgReady)
	assert.True(t, sent)
	assert.True(t, ready)

	cancel()
	select {
	case err := <-errc:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	_, err = os.Stat(sock)
	assert.True(t, os.IsNotExist(err), "socket file removed")
	assert.False(t, control.Ping(context.Background(), sock))

	app.mu.Lock()
	defer app.mu.Unlock()
	assert.True(t, app.stopped)
	assert.Nil(t, app.watcher)
}

func TestAppRunWithoutControlSocket(t *testing.T) {
	app := NewApp(AppOptions{
		Root:           t.TempDir(),
		Logger:         logger.Nop(),
		ProgramOptions: headless(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- app.Run(ctx) }()

	require.Eventually(t, func() bool {
		app.mu.Lock()
		defer app.mu.Unlock()
		return app.watcher != nil
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-errc:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.Nil(t, app.server)
}
