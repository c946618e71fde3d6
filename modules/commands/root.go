// Package commands holds the panetree command line
package commands

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"panetree/modules"
	"panetree/modules/platform/config"
	"panetree/modules/platform/logger"
)

type globalFlags struct {
	configPath string
	verbose    bool
}

// NewRootCmd builds the command tree
func NewRootCmd() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:           modules.AppName,
		Short:         modules.AppDescription,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return flags.setup(cmd)
		},
	}

	root.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "config file (default $"+config.EnvConfigPath+" or ~/.config/panetree/"+config.DefaultConfigFileName+")")
	root.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "log debug output")

	root.AddCommand(newToggleCmd())
	root.AddCommand(newShowCmd())
	root.AddCommand(newCloseCmd())
	root.AddCommand(newViewCmd(flags))
	root.AddCommand(newSendCmd())
	root.AddCommand(newStatusCmd())
	root.AddCommand(newConfigCmd())
	root.AddCommand(newVersionCmd())

	return root
}

// setup loads configuration and installs the stderr logger used by every
// short-lived command. The view replaces it with a file logger.
func (f *globalFlags) setup(cmd *cobra.Command) error {
	level := logger.WARN
	if f.verbose {
		level = logger.DEBUG
	}
	logger.SetGlobalLogger(logger.NewLogger(level, []io.Writer{cmd.ErrOrStderr()}, modules.AppName))

	path := f.configPath
	if path == "" {
		path = config.FindConfigFile()
	}
	if err := config.LoadGlobal(path); err != nil {
		return err
	}
	logger.Debug("Using config %s", config.GetGlobalPath())
	return nil
}

// Execute runs the command line, returning the process exit code
func Execute() int {
	ctx, stop := signalContext()
	defer stop()

	root := NewRootCmd()
	if err := root.ExecuteContext(ctx); err != nil {
		root.PrintErrf("%s: %v\n", modules.AppName, err)
		return 1
	}
	return 0
}

func settings() *config.Settings {
	s := config.GetGlobal().Settings
	if s == nil {
		return config.DefaultSettings()
	}
	return s
}

func workingDir(args []string) (string, error) {
	if len(args) > 0 && args[0] != "" {
		return args[0], nil
	}
	return os.Getwd()
}
