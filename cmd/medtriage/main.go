// Package main implements the medtriage CLI: corpus statistics, single
// conversation analysis, follow-up scheduling and the HTTP server.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

var (
	// configPath overrides ~/.config/medtriage/config.yaml
	configPath string
	// logLevel overrides observability.log_level
	logLevel string
	// jsonOutput prints machine readable output instead of styled text
	jsonOutput bool
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "medtriage",
	Short: "Analyze medical conversations and schedule follow-ups",
	Long: `medtriage extracts symptoms, diseases and gender markers from patient
conversations, assigns each a risk tier, aggregates corpus statistics and
books follow-up meetings on Google Calendar.`,
	Version:       fmt.Sprintf("%s (commit %s, built %s)", version, gitCommit, buildDate),
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.config/medtriage/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level override (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print JSON instead of formatted text")
}
