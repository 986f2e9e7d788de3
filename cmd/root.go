package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/faceid/internal/app"
	"github.com/kozaktomas/faceid/internal/config"
	"github.com/kozaktomas/faceid/internal/logging"
)

var logLevel string

var rootCmd = &cobra.Command{
	Use:   "faceid",
	Short: "Face recognition service with an AI advisor",
	Long: `faceid recognizes people from a photo by comparing face descriptors against
stored identities, and relays questions about a recognized person to a
language model (Gemini or OpenAI).

Configuration is read from environment variables, optionally from a .env file.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error (overrides LOG_LEVEL)")
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}

// loadConfig reads the environment and applies global flag overrides.
func loadConfig() *config.Config {
	cfg := config.Load()
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	return cfg
}

// newApp builds the application context for a command. Logs go to stderr so
// that stdout stays clean for --json output.
func newApp(ctx context.Context, cfg *config.Config, opts app.Options) (*app.App, error) {
	logger := logging.New(cfg.LogLevel, os.Stderr)
	a, err := app.New(ctx, cfg, logger, opts)
	if err != nil {
		return nil, err
	}
	return a, nil
}
