// Package cli provides the drivelink command-line interface.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/drivelink/drivelink/internal/logging"
)

var (
	cfgFile       string
	serverURL     string
	verbose       bool
	maxConcurrent int

	logger *logging.Logger

	rootContext context.Context
	cancelFunc  context.CancelFunc
)

// Version information, injected by the Makefile via LDFLAGS.
var (
	Version   = "v1.0.0-dev"
	BuildTime = "unknown"
)

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "drivelink",
		Short: "Drivelink - personal cloud file storage client",
		Long: `Drivelink ` + Version + ` - Built: ` + BuildTime + `
Client for the Drivelink file storage service.

Sign in once with 'drivelink login'; the session is restored on every
subsequent invocation until you log out or it expires.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger = logging.NewDefaultCLILogger()
			if verbose {
				logging.SetGlobalLevel(zerolog.DebugLevel)
			}
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server-url", "", "Drivelink server URL (overrides config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output (shows debug messages)")
	rootCmd.PersistentFlags().IntVar(&maxConcurrent, "max-concurrent", 0, "Maximum concurrent transfers (0 = default)")

	rootCmd.Version = Version + " (" + BuildTime + ")"

	return rootCmd
}

// AddCommands adds all subcommands to the root command.
func AddCommands(rootCmd *cobra.Command) {
	rootCmd.AddCommand(newLoginCmd())
	rootCmd.AddCommand(newSignupCmd())
	rootCmd.AddCommand(newLogoutCmd())
	rootCmd.AddCommand(newWhoamiCmd())
	rootCmd.AddCommand(newFilesCmd())
	rootCmd.AddCommand(newConfigCmd())
}

// Execute runs the CLI with signal-driven cancellation.
func Execute() error {
	rootContext, cancelFunc = context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		for sig := range sigChan {
			if sig != nil {
				fmt.Fprintf(os.Stderr, "\nReceived signal %v, cancelling...\n", sig)
				cancelFunc()
			}
		}
	}()

	rootCmd := NewRootCmd()
	AddCommands(rootCmd)
	err := rootCmd.Execute()

	signal.Stop(sigChan)
	close(sigChan)

	return err
}

// GetLogger returns the global CLI logger.
func GetLogger() *logging.Logger {
	if logger == nil {
		logger = logging.NewDefaultCLILogger()
	}
	return logger
}

// GetContext returns the root context, cancelled on SIGINT/SIGTERM.
func GetContext() context.Context {
	if rootContext == nil {
		return context.Background()
	}
	return rootContext
}
