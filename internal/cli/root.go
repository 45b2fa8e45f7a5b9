// Package cli provides the command-line interface for partchat.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/raphaelgruber/partchat/internal/assistant"
	"github.com/raphaelgruber/partchat/internal/client"
	"github.com/raphaelgruber/partchat/internal/config"
	"github.com/raphaelgruber/partchat/internal/metrics"
	"github.com/raphaelgruber/partchat/internal/render"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	verbose    bool
	serverURL  string
	configPath string

	// Global config, logger and service client
	cfg           config.Config
	logger        *slog.Logger
	closeLog      func() error
	apiClient     *client.Client
	gatewayMetric *metrics.Collector
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "partchat",
	Short: "Chat with the PartSelect parts assistant",
	Long: `Partchat is a terminal client for the PartSelect parts assistant service.

Ask about refrigerator and dishwasher parts, check compatibility with your
model and get installation help. Replies that list parts are shown as cards
with price, availability and links.

Running partchat without a subcommand starts the interactive chat.`,
	Version:      Version,
	SilenceUsage: true,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if closeLog != nil {
			if err := closeLog(); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to close log file: %v\n", err)
			}
		}
	},
}

// setup loads configuration and builds the logger and service client.
func setup(cmd *cobra.Command, args []string) error {
	// A missing .env is fine.
	_ = godotenv.Load()

	var err error
	cfg, err = loadConfig(configPath)
	if err != nil {
		return err
	}
	if serverURL != "" {
		cfg.ServerURL = serverURL
	}

	var console io.Writer
	level := cfg.LogLevel
	if verbose {
		console = os.Stderr
		level = slog.LevelDebug
	}
	if (cmd == chatCmd || cmd == rootCmd) && interactive() {
		// The chat screen owns the terminal.
		console = nil
	}
	logger, closeLog = config.SetupLogger(cfg.LogFile, level, console)
	slog.SetDefault(logger)

	gatewayMetric = metrics.NewCollector()
	apiClient = client.New(cfg.ServerURL,
		client.WithTimeout(cfg.ClientTimeout),
		client.WithMetrics(gatewayMetric),
		client.WithLogger(logger),
	)
	return nil
}

// loadConfig reads path when given, otherwise the first config file found.
func loadConfig(path string) (config.Config, error) {
	var c config.Config
	var err error
	if path != "" {
		c, err = config.LoadFromPath(path)
	} else {
		c, err = config.Load()
	}
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	return c, nil
}

// newAssistant builds the chat loop over the configured client.
func newAssistant(enableValidation bool) *assistant.Assistant {
	return assistant.New(apiClient, assistant.Options{
		EnableValidation:    enableValidation,
		ValidationThreshold: cfg.ValidationThreshold,
	}, logger)
}

func newRenderer() *render.Renderer {
	return render.NewRenderer(cfg.RetailerDomains)
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Assigned here since both refer back to rootCmd.
	rootCmd.PersistentPreRunE = setup
	rootCmd.RunE = runChat

	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log to stderr at debug level")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "assistant service URL (overrides config)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (YAML or TOML)")

	// Add subcommands
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(parseCmd)
	rootCmd.AddCommand(sessionCmd)
	rootCmd.AddCommand(healthCmd)
}
