package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/finlens/internal/ai"
	cfgpkg "github.com/KaramelBytes/finlens/internal/config"
	"github.com/KaramelBytes/finlens/internal/logger"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set FinLens configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration (secrets masked)",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := requireConfig()
		if err != nil {
			return err
		}
		m := c.Masked()
		w := cmd.OutOrStdout()
		for _, key := range cfgpkg.Keys {
			fmt.Fprintf(w, "%s: %v\n", key, configValue(&m, key))
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		c, err := requireConfig()
		if err != nil {
			return err
		}
		next := *c
		if err := setConfigValue(&next, key, val); err != nil {
			return err
		}
		if err := next.Validate(); err != nil {
			return err
		}
		if err := cfgpkg.Save(&next, cfgFile); err != nil {
			return err
		}
		*c = next
		fmt.Fprintln(cmd.OutOrStdout(), "✓ Saved config")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

func configValue(c *cfgpkg.Global, key string) any {
	switch key {
	case "dataset_url":
		return c.DatasetURL
	case "dataset_timeout_sec":
		return c.DatasetTimeoutSec
	case "s3_region":
		return c.S3Region
	case "s3_endpoint":
		return c.S3Endpoint
	case "s3_path_style":
		return c.S3PathStyle
	case "s3_access_key_id":
		return c.S3AccessKeyID
	case "s3_secret_access_key":
		return c.S3SecretAccessKey
	case "assistant_provider":
		return c.AssistantProvider
	case "assistant_model":
		if c.AssistantModel == "" {
			return ai.DefaultModels[ai.NormalizeProvider(c.AssistantProvider)] + " (default)"
		}
		return c.AssistantModel
	case "api_key":
		return c.APIKey
	case "max_tokens":
		return c.MaxTokens
	case "temperature":
		return fmt.Sprintf("%.3f", c.Temperature)
	case "max_prompt_tokens":
		return c.MaxPromptTokens
	case "http_timeout_sec":
		return c.HTTPTimeoutSec
	case "ollama_host":
		return c.OllamaHost
	case "server_addr":
		return c.ServerAddr
	case "log_level":
		return c.LogLevel
	case "log_format":
		return c.LogFormat
	case "log_output":
		return c.LogOutput
	case "log_max_age_days":
		return c.LogMaxAgeDays
	}
	return ""
}

func setConfigValue(c *cfgpkg.Global, key, val string) error {
	atoi := func() (int, error) {
		i, err := strconv.Atoi(val)
		if err != nil || i < 0 {
			return 0, fmt.Errorf("invalid non-negative int for %s: %v", key, val)
		}
		return i, nil
	}
	var err error
	switch key {
	case "dataset_url":
		c.DatasetURL = val
	case "dataset_timeout_sec":
		c.DatasetTimeoutSec, err = atoi()
	case "s3_region":
		c.S3Region = val
	case "s3_endpoint":
		c.S3Endpoint = val
	case "s3_path_style":
		c.S3PathStyle, err = strconv.ParseBool(val)
		if err != nil {
			err = fmt.Errorf("invalid bool for s3_path_style: %w", err)
		}
	case "s3_access_key_id":
		c.S3AccessKeyID = val
	case "s3_secret_access_key":
		c.S3SecretAccessKey = val
	case "assistant_provider":
		p := ai.NormalizeProvider(val)
		if _, ok := ai.DefaultModels[p]; !ok {
			return fmt.Errorf("invalid assistant_provider: %s (use %s)", val, strings.Join(ai.Providers(), ", "))
		}
		c.AssistantProvider = p
	case "assistant_model":
		c.AssistantModel = val
	case "api_key":
		c.APIKey = val
	case "max_tokens":
		c.MaxTokens, err = atoi()
	case "temperature":
		c.Temperature, err = strconv.ParseFloat(val, 64)
		if err != nil {
			err = fmt.Errorf("invalid float for temperature: %w", err)
		}
	case "max_prompt_tokens":
		c.MaxPromptTokens, err = atoi()
	case "http_timeout_sec":
		c.HTTPTimeoutSec, err = atoi()
	case "ollama_host":
		c.OllamaHost = val
	case "server_addr":
		c.ServerAddr = val
	case "log_level", "log_format", "log_output":
		level, format, output := c.LogLevel, c.LogFormat, c.LogOutput
		switch key {
		case "log_level":
			level = val
		case "log_format":
			format = val
		default:
			output = val
		}
		// A throwaway logger validates the combination without touching the active one.
		if err := logger.New().Configure(level, format, "stderr", 0); err != nil {
			return err
		}
		c.LogLevel, c.LogFormat, c.LogOutput = level, format, output
	case "log_max_age_days":
		c.LogMaxAgeDays, err = atoi()
	default:
		return fmt.Errorf("unknown key: %s (known: %s)", key, strings.Join(cfgpkg.Keys, ", "))
	}
	return err
}
