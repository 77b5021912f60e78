package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	cfgpkg "github.com/KaramelBytes/finlens/internal/config"
	"github.com/KaramelBytes/finlens/internal/logger"
)

var (
	// Global flags
	cfgFile     string
	datasetFlag string
	debug       bool

	// Loaded configuration
	cfg     *cfgpkg.Global
	cfgErr  error
	envFile = ".env"
)

var rootCmd = &cobra.Command{
	Use:   "finlens",
	Short: "FinLens: financial indicator dashboard for company solvency data",
	Long: `FinLens loads a company financials dataset once, filters it by industry, country and
company size, and presents rankings, per-company bars and per-industry breakdowns as text,
JSON, PNG charts or an HTTP dashboard. A language-model assistant answers solvency questions.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute is the entry point called by main.main()
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(loadConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.finlens/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&datasetFlag, "dataset", "", "dataset location: https URL, s3://bucket/key, file path (overrides config)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

func loadConfig() {
	// .env is optional; explicit environment variables win over it.
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to read %s: %v\n", envFile, err)
	}
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal: commands that need config report cfgErr
		cfg, cfgErr = nil, err
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to load config: %v\n", err)
		return
	}
	cfg, cfgErr = c, nil

	if rootCmd.PersistentFlags().Changed("dataset") && datasetFlag != "" {
		cfg.DatasetURL = datasetFlag
	}
	level := cfg.LogLevel
	if debug {
		level = "debug"
	}
	if err := logger.Get().Configure(level, cfg.LogFormat, cfg.LogOutput, cfg.LogMaxAgeDays); err != nil {
		fmt.Fprintf(os.Stderr, "⚠ Warning: logging config ignored: %v\n", err)
	}
}

// requireConfig returns the loaded configuration or the reason it is missing.
func requireConfig() (*cfgpkg.Global, error) {
	if cfg != nil {
		return cfg, nil
	}
	if cfgErr != nil {
		return nil, fmt.Errorf("config unavailable: %w", cfgErr)
	}
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	cfg = c
	return cfg, nil
}
