package commands

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"panetree/modules/platform/control"
)

var errNoReply = errors.New("no view is answering")

// parseSendArgs maps command line words to a control message
func parseSendArgs(args []string) (control.Message, error) {
	switch args[0] {
	case "ping":
		return control.Message{Type: control.MsgPing}, nil
	case "refresh":
		return control.Message{Type: control.MsgRefresh}, nil
	case "close":
		return control.Message{Type: control.MsgClose}, nil
	case "cwd", "set_cwd":
		if len(args) < 2 {
			return control.Message{}, fmt.Errorf("%s needs a directory", args[0])
		}
		dir, err := filepath.Abs(args[1])
		if err != nil {
			return control.Message{}, err
		}
		return control.Message{Type: control.MsgSetCwd, Cwd: dir}, nil
	default:
		return control.Message{}, fmt.Errorf("unknown message %q (want ping, refresh, close or cwd DIR)", args[0])
	}
}

func newSendCmd() *cobra.Command {
	var origin, socket string
	cmd := &cobra.Command{
		Use:   "send <ping|refresh|close|cwd DIR>",
		Short: "Send a control message to the running view",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			msg, err := parseSendArgs(args)
			if err != nil {
				return err
			}

			path := socket
			if path == "" {
				c, err := newController(cmd.Context(), origin)
				if err != nil {
					return err
				}
				path = c.socketPath()
			}
			return send(cmd, path, msg)
		},
	}
	cmd.Flags().StringVar(&origin, "origin", "", "originating pane (default: current pane)")
	cmd.Flags().StringVar(&socket, "socket", "", "socket path, overriding --origin")
	return cmd
}

// send waits for the reply to ping and for ready after set_cwd, and fires
// anything else
func send(cmd *cobra.Command, path string, msg control.Message) error {
	switch msg.Type {
	case control.MsgPing:
		reply, ok := control.SendCommand(cmd.Context(), path, msg)
		if !ok {
			return errNoReply
		}
		fmt.Fprintln(cmd.OutOrStdout(), reply.Type)
		return nil

	case control.MsgSetCwd:
		sent, ready := awaitReady(cmd.Context(), path, msg.Cwd)
		if !sent {
			return errNoReply
		}
		if !ready {
			return fmt.Errorf("view did not confirm %s within %s", msg.Cwd, readyTimeout)
		}
		fmt.Fprintln(cmd.OutOrStdout(), control.MsgReady)
		return nil
	}

	if !control.Notify(cmd.Context(), path, msg) {
		return errNoReply
	}
	return nil
}
