package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/KaramelBytes/finlens/internal/dataset"
)

// DirName is the per-user configuration directory under $HOME.
const DirName = ".finlens"

// Global configuration structure.
type Global struct {
	// Dataset source
	DatasetURL        string `mapstructure:"dataset_url" yaml:"dataset_url"`
	DatasetTimeoutSec int    `mapstructure:"dataset_timeout_sec" yaml:"dataset_timeout_sec"`
	S3Region          string `mapstructure:"s3_region" yaml:"s3_region,omitempty"`
	S3Endpoint        string `mapstructure:"s3_endpoint" yaml:"s3_endpoint,omitempty"`
	S3PathStyle       bool   `mapstructure:"s3_path_style" yaml:"s3_path_style,omitempty"`
	S3AccessKeyID     string `mapstructure:"s3_access_key_id" yaml:"s3_access_key_id,omitempty"`
	S3SecretAccessKey string `mapstructure:"s3_secret_access_key" yaml:"s3_secret_access_key,omitempty"`

	// Assistant
	AssistantProvider string  `mapstructure:"assistant_provider" yaml:"assistant_provider"`
	AssistantModel    string  `mapstructure:"assistant_model" yaml:"assistant_model"`
	APIKey            string  `mapstructure:"api_key" yaml:"api_key,omitempty"`
	MaxTokens         int     `mapstructure:"max_tokens" yaml:"max_tokens"`
	Temperature       float64 `mapstructure:"temperature" yaml:"temperature"`
	MaxPromptTokens   int     `mapstructure:"max_prompt_tokens" yaml:"max_prompt_tokens"`
	HTTPTimeoutSec    int     `mapstructure:"http_timeout_sec" yaml:"http_timeout_sec"`
	OllamaHost        string  `mapstructure:"ollama_host" yaml:"ollama_host"`

	// Server
	ServerAddr string `mapstructure:"server_addr" yaml:"server_addr"`

	// Logging
	LogLevel      string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat     string `mapstructure:"log_format" yaml:"log_format"`
	LogOutput     string `mapstructure:"log_output" yaml:"log_output"`
	LogMaxAgeDays int    `mapstructure:"log_max_age_days" yaml:"log_max_age_days"`
}

// Keys lists every configuration key in display order.
var Keys = []string{
	"dataset_url", "dataset_timeout_sec",
	"s3_region", "s3_endpoint", "s3_path_style", "s3_access_key_id", "s3_secret_access_key",
	"assistant_provider", "assistant_model", "api_key",
	"max_tokens", "temperature", "max_prompt_tokens", "http_timeout_sec", "ollama_host",
	"server_addr",
	"log_level", "log_format", "log_output", "log_max_age_days",
}

// Path resolves the config file location: cfgFile if set, else ~/.finlens/config.yaml.
func Path(cfgFile string) (string, error) {
	if cfgFile != "" {
		return cfgFile, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, DirName, "config.yaml"), nil
}

// Save writes the given configuration to the cfgFile path, creating the
// directory if necessary.
func Save(c *Global, cfgFile string) error {
	path, err := Path(cfgFile)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	// The file may hold the API key.
	if err := os.WriteFile(path, b, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("dataset_url", dataset.DefaultURL)
	v.SetDefault("dataset_timeout_sec", 30)
	v.SetDefault("s3_region", "us-east-1")
	v.SetDefault("s3_path_style", false)
	v.SetDefault("assistant_provider", "openai")
	v.SetDefault("assistant_model", "")
	v.SetDefault("max_tokens", 300)
	v.SetDefault("temperature", 0.0)
	v.SetDefault("max_prompt_tokens", 2000)
	v.SetDefault("http_timeout_sec", 60)
	v.SetDefault("ollama_host", "http://127.0.0.1:11434")
	v.SetDefault("server_addr", ":8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("log_output", "stderr")
	v.SetDefault("log_max_age_days", 0)
}

// Load loads configuration from file, env, and defaults.
// Precedence: flags (applied by the caller) > env > config file > defaults.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("FINLENS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// The upstream key name is honoured as a fallback.
	if err := v.BindEnv("api_key", "FINLENS_API_KEY", "OPENAI_API_KEY"); err != nil {
		return nil, fmt.Errorf("bind env: %w", err)
	}
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home dir: %w", err)
		}
		v.AddConfigPath(filepath.Join(home, DirName))
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	// optional read; a malformed file is still an error
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &c, nil
}

// Validate rejects values no command could run with.
func (c *Global) Validate() error {
	if c.DatasetTimeoutSec < 0 || c.HTTPTimeoutSec < 0 {
		return errors.New("timeouts must be >= 0")
	}
	if c.MaxTokens < 0 || c.MaxPromptTokens < 0 {
		return errors.New("token limits must be >= 0")
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("temperature must be within [0, 2], got %g", c.Temperature)
	}
	if c.LogMaxAgeDays < 0 {
		return errors.New("log_max_age_days must be >= 0")
	}
	return nil
}

// Masked returns a copy safe to print: secrets are reduced to a short hint.
func (c *Global) Masked() Global {
	m := *c
	m.APIKey = Mask(m.APIKey)
	m.S3SecretAccessKey = Mask(m.S3SecretAccessKey)
	return m
}

// Mask keeps the first and last three characters of a secret.
func Mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 6 {
		return "******"
	}
	return s[:3] + "****" + s[len(s)-3:]
}
