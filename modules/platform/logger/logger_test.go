package logger

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"debug", DEBUG},
		{"INFO", INFO},
		{"warning", WARN},
		{"warn", WARN},
		{"error", ERROR},
		{"bogus", INFO},
		{"", INFO},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseLevel(tt.in), tt.in)
	}
}

func TestLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(WARN, []io.Writer{&buf}, "test")

	l.Info("hidden %d", 1)
	l.Warn("shown %d", 2)
	l.Error("plain")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown 2")
	assert.Contains(t, out, "plain")
	assert.Contains(t, out, "WARN")

	l.SetLevel(DEBUG)
	l.Debug("now visible")
	assert.Contains(t, buf.String(), "now visible")
}

func TestLoggerWithFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(INFO, []io.Writer{&buf}, "test").With("pane", "%3")
	l.Info("spawned")
	assert.Contains(t, buf.String(), "spawned")
	assert.Contains(t, buf.String(), "%3")
}

func TestCreateLogFileRotates(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "panetree.log")

	f, err := CreateLogFile(path, 1)
	require.NoError(t, err)
	_, err = f.Write(bytes.Repeat([]byte("x"), 2*1024*1024))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	f, err = CreateLogFile(path, 1)
	require.NoError(t, err)
	defer f.Close()

	info, err := f.Stat()
	require.NoError(t, err)
	assert.Zero(t, info.Size())

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}
