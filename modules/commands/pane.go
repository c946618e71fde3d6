package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"panetree/modules/core/pane"
	"panetree/modules/platform/control"
	"panetree/modules/platform/logger"
)

var errSpawnFailed = errors.New("could not open the tree pane")

// readyTimeout bounds the wait for a re-rooted view to report ready
var readyTimeout = control.DefaultTimeout

// awaitReady sends set_cwd dir and waits for the view's ready on the same
// connection
func awaitReady(ctx context.Context, path, dir string) (sent, ready bool) {
	ctx, cancel := context.WithTimeout(ctx, readyTimeout)
	defer cancel()
	return control.Await(ctx, path, control.Message{Type: control.MsgSetCwd, Cwd: dir}, control.MsgReady)
}

func absDir(args []string) (string, error) {
	dir, err := workingDir(args)
	if err != nil {
		return "", err
	}
	return filepath.Abs(dir)
}

func newToggleCmd() *cobra.Command {
	var origin string
	cmd := &cobra.Command{
		Use:   "toggle [dir]",
		Short: "Open the tree pane next to this pane, or close it",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := absDir(args)
			if err != nil {
				return err
			}
			c, err := newController(cmd.Context(), origin)
			if err != nil {
				return err
			}
			return c.toggle(cmd, dir)
		},
	}
	cmd.Flags().StringVar(&origin, "origin", "", "originating pane (default: current pane)")
	return cmd
}

func (c *controller) toggle(cmd *cobra.Command, dir string) error {
	ctx := cmd.Context()
	wasActive, _ := c.manager.State(ctx, c.origin)

	id, ok := c.manager.Toggle(ctx, c.origin, dir)
	switch {
	case ok:
		fmt.Fprintf(cmd.OutOrStdout(), "opened %s\n", id)
	case wasActive == pane.PaneActive:
		fmt.Fprintln(cmd.OutOrStdout(), "closed")
	default:
		return errSpawnFailed
	}
	return nil
}

func newShowCmd() *cobra.Command {
	var origin string
	cmd := &cobra.Command{
		Use:   "show [dir]",
		Short: "Show dir in the tree pane, opening it if needed",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := absDir(args)
			if err != nil {
				return err
			}
			c, err := newController(cmd.Context(), origin)
			if err != nil {
				return err
			}
			return c.show(cmd, dir)
		},
	}
	cmd.Flags().StringVar(&origin, "origin", "", "originating pane (default: current pane)")
	return cmd
}

// show re-roots a responsive view over its socket and waits for it to report
// ready. A pane whose view doesn't answer has its program restarted.
func (c *controller) show(cmd *cobra.Command, dir string) error {
	ctx := cmd.Context()

	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return fmt.Errorf("not a directory: %s", dir)
	}

	if state, id := c.manager.State(ctx, c.origin); state == pane.PaneActive && control.Ping(ctx, c.socketPath()) {
		sent, ready := awaitReady(ctx, c.socketPath(), dir)
		switch {
		case ready:
			fmt.Fprintf(cmd.OutOrStdout(), "showing %s in %s\n", dir, id)
			return nil
		case sent:
			// Busy, e.g. handing the terminal to an editor; it applies the move later
			fmt.Fprintf(cmd.OutOrStdout(), "sent %s to %s, not confirmed yet\n", dir, id)
			return nil
		}
		logger.Debug("View in %s stopped answering, relaunching", id)
	}

	id, ok := c.manager.Show(ctx, c.origin, dir)
	if !ok {
		return errSpawnFailed
	}
	fmt.Fprintf(cmd.OutOrStdout(), "showing %s in %s\n", dir, id)
	return nil
}

func newCloseCmd() *cobra.Command {
	var origin string
	cmd := &cobra.Command{
		Use:   "close",
		Short: "Close the tree pane of this pane",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newController(cmd.Context(), origin)
			if err != nil {
				return err
			}
			return c.manager.Close(cmd.Context(), c.origin)
		},
	}
	cmd.Flags().StringVar(&origin, "origin", "", "originating pane (default: current pane)")
	return cmd
}
