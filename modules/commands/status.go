package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"panetree/modules"
	"panetree/modules/platform/control"
)

func newStatusCmd() *cobra.Command {
	var origin string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the tree pane state of this pane",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newController(cmd.Context(), origin)
			if err != nil {
				return err
			}
			c.status(cmd)
			return nil
		},
	}
	cmd.Flags().StringVar(&origin, "origin", "", "originating pane (default: current pane)")
	return cmd
}

func (c *controller) status(cmd *cobra.Command) {
	ctx := cmd.Context()
	state, id := c.manager.State(ctx, c.origin)
	responding := control.Ping(ctx, c.socketPath())

	out := cmd.OutOrStdout()
	row(out, "origin", c.origin)
	row(out, "identity", c.manager.Store.PathFor(c.origin))
	row(out, "state", state.String())
	if id != "" {
		row(out, "pane", id)
	}
	row(out, "socket", c.socketPath())
	row(out, "responding", fmt.Sprintf("%t", responding))
}

func row(w io.Writer, key, value string) {
	fmt.Fprintf(w, "%-11s %s\n", key+":", value)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), modules.VersionString())
			return err
		},
	}
}
