// SPDX-License-Identifier: MIT
// Package cmd wires the pulse command line.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"pulse/internal/config"
	applog "pulse/internal/log"
	"pulse/pkg/build"
)

// options holds the persistent flags and the configuration they resolve to.
type options struct {
	configPath string
	logLevel   string
	verbose    bool

	cfg *config.Config
}

// NewRootCommand builds the pulse command tree.
func NewRootCommand() *cobra.Command {
	buildInfo := build.Get()
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:           buildInfo.Name,
		Short:         "Camera-based heart-rate estimation",
		Version:       buildInfo.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load()
		},
	}

	// Display help message
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "",
		"Path to a YAML config file (default: ./config.yaml if present)")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "",
		"Logging level: debug, info, warn, error (overrides the config file)")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false,
		"Show verbose output (same as --log-level debug)")

	rootCmd.AddCommand(
		newRunCommand(opts),
		newReplayCommand(opts),
		newSimulateCommand(opts),
		newVersionCommand(),
	)
	return rootCmd
}

// Execute runs the command line with os.Args.
func Execute() error {
	return NewRootCommand().Execute()
}

// load reads the configuration and applies the effective log level. Flags win over
// the file, which wins over the defaults.
func (o *options) load() error {
	cfg, err := config.LoadConfig(o.configPath)
	if err != nil {
		return err
	}
	o.cfg = cfg

	levelName := cfg.LogLevel
	if o.logLevel != "" {
		levelName = o.logLevel
	}
	level, ok := applog.ParseLevel(levelName)
	if !ok {
		return fmt.Errorf("invalid log level %q", levelName)
	}
	if o.verbose || cfg.Debug {
		level = applog.LevelDebug
	}
	applog.SetLevel(level)
	return nil
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		// Needs no configuration.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), build.Get().String())
		},
	}
}
