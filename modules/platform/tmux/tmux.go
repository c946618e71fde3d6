// Package tmux drives the tmux CLI
package tmux

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"panetree/modules/core/pane"
)

// CommandTimeout bounds a single tmux invocation
const CommandTimeout = 2 * time.Second

// Runner runs tmux with args and returns its stdout
type Runner func(ctx context.Context, args ...string) ([]byte, error)

// ExecRunner runs the tmux binary found on PATH
func ExecRunner(ctx context.Context, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "tmux", args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return out, fmt.Errorf("tmux %s: %s", args[0], msg)
		}
		return out, fmt.Errorf("tmux %s: %w", args[0], err)
	}
	return out, nil
}

// Client implements pane.Multiplexer on top of the tmux CLI
type Client struct {
	run Runner
}

// New creates a client. run may be nil to use the tmux binary.
func New(run Runner) *Client {
	if run == nil {
		run = ExecRunner
	}
	return &Client{run: run}
}

// Detect returns a client for the tmux server of the current session
func Detect() (*Client, error) {
	if os.Getenv("TMUX") == "" {
		return nil, pane.ErrNoMultiplexer
	}
	if _, err := exec.LookPath("tmux"); err != nil {
		return nil, pane.ErrNoMultiplexer
	}
	return New(nil), nil
}

func (c *Client) exec(ctx context.Context, args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, CommandTimeout)
	defer cancel()
	return c.run(ctx, args...)
}

// CurrentPane returns the pane this process runs in
func (c *Client) CurrentPane(ctx context.Context) (string, error) {
	if id := os.Getenv("TMUX_PANE"); id != "" {
		return id, nil
	}
	out, err := c.exec(ctx, "display-message", "-p", "#{pane_id}")
	if err != nil {
		return "", err
	}
	id := strings.TrimSpace(string(out))
	if id == "" {
		return "", fmt.Errorf("tmux reported no current pane")
	}
	return id, nil
}

// paneFormat is parsed by parsePanes
const paneFormat = "#{pane_id}\t#{pane_active}\t#{window_id}\t#{window_active}"

// ListPanes returns every pane of the server. Active is set only for the
// focused pane of the focused window of the attached session.
func (c *Client) ListPanes(ctx context.Context) ([]pane.PaneInfo, error) {
	out, err := c.exec(ctx, "list-panes", "-a", "-F", paneFormat)
	if err != nil {
		return nil, err
	}
	return parsePanes(out), nil
}

func parsePanes(out []byte) []pane.PaneInfo {
	var panes []pane.PaneInfo
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		fields := strings.Split(scanner.Text(), "\t")
		if len(fields) < 4 || fields[0] == "" {
			continue
		}
		panes = append(panes, pane.PaneInfo{
			ID:     fields[0],
			Active: fields[1] == "1" && fields[3] == "1",
			Window: fields[2],
		})
	}
	return panes
}

// PaneExists asks tmux whether id is a live pane. Any failure counts as gone.
func (c *Client) PaneExists(ctx context.Context, id string) bool {
	if id == "" {
		return false
	}
	out, err := c.exec(ctx, "display-message", "-p", "-t", id, "#{pane_id}")
	return err == nil && strings.TrimSpace(string(out)) == id
}

// SplitPane opens a pane left of target and reads the new id from the
// split's own output
func (c *Client) SplitPane(ctx context.Context, target string, percent int, cwd string, command []string) (string, error) {
	args := []string{
		"split-window", "-h", "-b",
		"-l", strconv.Itoa(percent) + "%",
		"-t", target,
		"-P", "-F", "#{pane_id}",
	}
	if cwd != "" {
		args = append(args, "-c", cwd)
	}
	args = append(args, command...)

	out, err := c.exec(ctx, args...)
	if err != nil {
		return "", err
	}
	id := strings.TrimSpace(string(out))
	if id == "" {
		return "", fmt.Errorf("tmux split-window printed no pane id")
	}
	return id, nil
}

// SendKeys sends tmux key names such as "C-c" or "Enter"
func (c *Client) SendKeys(ctx context.Context, id string, keys ...string) error {
	_, err := c.exec(ctx, append([]string{"send-keys", "-t", id}, keys...)...)
	return err
}

// SendLiteral types text into the pane without key name lookup
func (c *Client) SendLiteral(ctx context.Context, id, text string) error {
	_, err := c.exec(ctx, "send-keys", "-t", id, "-l", "--", text)
	return err
}

// SelectPane focuses id
func (c *Client) SelectPane(ctx context.Context, id string) error {
	_, err := c.exec(ctx, "select-pane", "-t", id)
	return err
}

// KillPane closes id
func (c *Client) KillPane(ctx context.Context, id string) error {
	_, err := c.exec(ctx, "kill-pane", "-t", id)
	return err
}

var _ pane.Multiplexer = (*Client)(nil)
