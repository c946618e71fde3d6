package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"panetree/modules"
	"panetree/modules/core/tree"
	"panetree/modules/platform/config"
	"panetree/modules/platform/control"
	"panetree/modules/platform/git"
	"panetree/modules/platform/logger"
	"panetree/modules/platform/tmux"
	"panetree/modules/ui/tui"
)

type viewFlags struct {
	dir    string
	origin string
	mode   string
}

func newViewCmd(global *globalFlags) *cobra.Command {
	flags := &viewFlags{}
	cmd := &cobra.Command{
		Use:   "view",
		Short: "Run the tree view in the current terminal",
		Long: "Run the tree view in the current terminal. This is what the tree pane runs;\n" +
			"it listens for controller commands on a socket named after --origin.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runView(cmd, global, flags)
		},
	}
	cmd.Flags().StringVar(&flags.dir, "dir", "", "directory to show (default: working directory)")
	cmd.Flags().StringVar(&flags.origin, "origin", "", "pane this view belongs to")
	cmd.Flags().StringVar(&flags.mode, "mode", "all", "all or diff")
	return cmd
}

// viewIdentity picks the id the control socket is named after
func viewIdentity(origin string) string {
	if origin != "" {
		return origin
	}
	if p := os.Getenv("TMUX_PANE"); p != "" {
		return p
	}
	return uuid.NewString()
}

// openViewLog sends the view's logs to the log file, since the terminal
// belongs to the tree
func openViewLog(s *config.Settings, verbose bool, id string) (*logger.Logger, io.Closer) {
	lc := s.GetLoggerConfig()
	level := logger.ParseLevel(lc.Level)
	if verbose {
		level = logger.DEBUG
	}

	f, err := logger.CreateLogFile(s.ResolveLogPath(), lc.MaxSizeMB)
	if err != nil {
		logger.Warn("Logging disabled: %v", err)
		return logger.Nop(), io.NopCloser(nil)
	}
	return logger.NewLogger(level, []io.Writer{f}, "view").With("view", id), f
}

func runView(cmd *cobra.Command, global *globalFlags, flags *viewFlags) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return fmt.Errorf("view needs a terminal")
	}

	mode, err := tree.ParseMode(flags.mode)
	if err != nil {
		return err
	}
	dir, err := workingDir([]string{flags.dir})
	if err != nil {
		return err
	}
	if dir, err = filepath.Abs(dir); err != nil {
		return err
	}

	s := settings()
	if err := s.EnsureDirectories(); err != nil {
		return err
	}

	id := viewIdentity(flags.origin)
	log, closer := openViewLog(s, global.verbose, id)
	defer closer.Close()
	defer log.Sync()
	logger.SetGlobalLogger(log)
	log.Info("Starting %s at %s", modules.VersionString(), dir)

	opts := tui.AppOptions{
		Root:       dir,
		Mode:       mode,
		SocketPath: control.SocketPath(s.ResolveSocketDir(), id),
		Settings:   s,
		Git:        git.NewService(nil),
		Logger:     log,
	}
	if mux, err := tmux.Detect(); err == nil {
		opts.Mux = mux
		if paneID, err := mux.CurrentPane(cmd.Context()); err == nil {
			opts.PaneID = paneID
		}
	} else {
		log.Info("Focus tracking off: %v", err)
	}

	err = tui.NewApp(opts).Run(cmd.Context())
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
