// Package cli implements the mintwatch command-line interface.
//
// This package uses global variables to manage CLI state, which is the
// standard pattern for Cobra-based CLI applications. The globals are
// initialized in PersistentPreRunE and cleaned up in PersistentPostRun.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level state
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/mintwatch/mintwatch/internal/config"
	"github.com/mintwatch/mintwatch/internal/network"
	mwerr "github.com/mintwatch/mintwatch/pkg/errors"
)

var (
	// Global flags
	homeDir      string
	networkFlag  string
	contractFlag string
	verbose      bool

	// Global state initialized in PersistentPreRunE
	cfg      *config.Config
	logger   *zap.Logger
	registry *network.Registry
)

// rootCmd is the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "mintwatch",
	Short: "Track and purchase NFT blind boxes from the terminal",
	Long: `Mintwatch keeps a local view of an NFT blind-box sale in sync with the
chain through a wallet provider: sale terms, supply counters, and the
assets your account holds.

Example:
  mintwatch networks
  mintwatch sale --network sepolia
  mintwatch assets
  mintwatch purchase`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		return initGlobals()
	},
	PersistentPostRun: func(_ *cobra.Command, _ []string) {
		cleanup()
	},
}

// Execute runs the root command with the given build metadata.
func Execute(info BuildInfo) error {
	buildInfo = info
	err := rootCmd.Execute()
	if err != nil {
		printError(os.Stderr, err)
		return err
	}
	return nil
}

// ExitCode returns the appropriate exit code for an error.
func ExitCode(err error) int {
	return mwerr.ExitCode(err)
}

// printError renders a structured error with its suggestion.
func printError(w io.Writer, err error) {
	var me *mwerr.MintError
	if mwerr.As(err, &me) {
		fmt.Fprintf(w, "Error: %s\n", me.Error())
		if me.Suggestion != "" {
			fmt.Fprintf(w, "Hint: %s\n", me.Suggestion)
		}
		return
	}
	fmt.Fprintf(w, "Error: %v\n", err)
}

// initGlobals initializes configuration, logger, and network registry.
func initGlobals() error {
	home := homeDir
	if home == "" {
		home = os.Getenv(config.EnvHome)
	}
	if home == "" {
		home = config.DefaultHome()
	}

	var err error
	cfg, err = config.Load(config.Path(home))
	if err != nil {
		if !mwerr.Is(err, mwerr.ErrConfigNotFound) {
			return err
		}
		cfg = config.Defaults()
	}

	config.ApplyEnvironment(cfg)

	if verbose {
		cfg.Logging.Level = "debug"
	}

	logger, err = newLogger(cfg.Logging.Level)
	if err != nil {
		return err
	}

	registry, err = cfg.Registry()
	if err != nil {
		return err
	}

	// A network selected by flag must exist; Lookup attaches a
	// "did you mean" suggestion for typos.
	if networkFlag != "" {
		if _, err := registry.Lookup(networkFlag); err != nil {
			return err
		}
		cfg.DefaultNetwork = networkFlag
		registry, err = cfg.Registry()
		if err != nil {
			return err
		}
	}
	return nil
}

// newLogger builds a zap logger writing to stderr at the given level.
func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}

	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	zcfg.OutputPaths = []string{"stderr"}
	zcfg.ErrorOutputPaths = []string{"stderr"}
	return zcfg.Build()
}

// cleanup releases resources.
func cleanup() {
	if logger != nil {
		_ = logger.Sync()
	}
}

// Config returns the global configuration.
func Config() *config.Config {
	return cfg
}

// Logger returns the global logger.
func Logger() *zap.Logger {
	return logger
}

// Registry returns the global network registry.
func Registry() *network.Registry {
	return registry
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for flag registration
func init() {
	rootCmd.PersistentFlags().StringVar(&homeDir, "home", "", "mintwatch data directory (default: ~/.mintwatch)")
	rootCmd.PersistentFlags().StringVarP(&networkFlag, "network", "n", "", "network to operate on (default from config)")
	rootCmd.PersistentFlags().StringVar(&contractFlag, "contract", "", "explicit contract address override")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
}
