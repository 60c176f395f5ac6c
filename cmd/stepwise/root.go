package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dshills/stepwise/internal/config"
	"github.com/dshills/stepwise/internal/logging"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
)

var (
	configPath string
	logLevel   string
	storeKind  string
	storePath  string
)

// settings holds the loaded configuration, populated in PersistentPreRunE.
var settings config.Settings

var rootCmd = &cobra.Command{
	Use:           "stepwise",
	Short:         "Step through Lua programs with breakpoints in the terminal",
	Version:       version + " (" + commit + ")",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("loading settings: %w", err)
		}
		if logLevel != "" {
			s.Logging.Level = logLevel
		}
		if storeKind != "" {
			s.Store.Kind = storeKind
		}
		if storePath != "" {
			s.Store.Path = storePath
		}
		settings = s
		return nil
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", "stepwise.toml", "settings file")
	flags.StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	flags.StringVar(&storeKind, "store-kind", "", "breakpoint store kind (memory, toml, yaml, sqlite)")
	flags.StringVar(&storePath, "store", "", "breakpoint store path")
}

// Execute runs the root command. Exits with code 1 on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newLogger builds the logger described by s. Without a log file, output
// goes to fallback. The returned func closes the log file.
func newLogger(s config.Settings, fallback io.Writer) (*logging.Logger, func(), error) {
	out := fallback
	closer := func() {}
	if s.Logging.File != "" {
		if dir := filepath.Dir(s.Logging.File); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, nil, fmt.Errorf("create log directory: %w", err)
			}
		}
		f, err := os.OpenFile(s.Logging.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		out = f
		closer = func() { f.Close() }
	}
	log := logging.New(logging.Config{
		Level:  logging.ParseLevel(s.Logging.Level),
		Output: out,
		Prefix: "stepwise",
	})
	return log, closer, nil
}
