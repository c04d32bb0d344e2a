package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/kayz/slidefit/internal/config"
	"github.com/kayz/slidefit/internal/logger"
	"github.com/spf13/cobra"
)

var (
	logLevel   string
	configPath string

	logFile io.Closer
)

var rootCmd = &cobra.Command{
	Use:   "slidefit",
	Short: "Generate slide content that fits its layout",
	Long: `slidefit fills slide templates with generated text whose length
matches the space each slot has on the slide.

Commands:
  slidefit serve       Run the HTTP/websocket API
  slidefit generate    Run one request from a JSON file
  slidefit check       Validate every variant against its template
  slidefit history     Inspect stored generations`,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Parse and set log level
		level, err := logger.ParseLevel(logLevel)
		if err != nil {
			return err
		}
		logger.SetLevel(level)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logFile != nil {
			_ = logFile.Close()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "info",
		"Log level: trace, debug, info, warn, error, fatal, panic")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"Path to config file (default: .slidefit.yaml next to the executable)")
}

// loadConfig reads the config selected by --config. The log level from the
// file applies unless --log was given explicitly.
func loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.LoadFromPath(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if !rootCmd.PersistentFlags().Changed("log") && cfg.Logging.Level != "" {
		level, err := logger.ParseLevel(cfg.Logging.Level)
		if err != nil {
			return nil, err
		}
		logger.SetLevel(level)
	}
	if cfg.Logging.File != "" && logFile == nil {
		f, err := logger.TeeToFile(cfg.Logging.File)
		if err != nil {
			return nil, err
		}
		logFile = f
	}
	return cfg, nil
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
