package cmd

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/KaramelBytes/finlens/internal/ai"
	"github.com/KaramelBytes/finlens/internal/analysis"
	"github.com/KaramelBytes/finlens/internal/assistant"
	"github.com/KaramelBytes/finlens/internal/dataset"
	"github.com/KaramelBytes/finlens/internal/utils"
)

// filterFlags holds the repeatable --industry/--country/--size values.
type filterFlags struct {
	industry []string
	country  []string
	size     []string
}

func (f *filterFlags) register(cmd *cobra.Command) { f.bind(cmd.Flags()) }

// registerPersistent shares the filters with every subcommand of cmd.
func (f *filterFlags) registerPersistent(cmd *cobra.Command) { f.bind(cmd.PersistentFlags()) }

func (f *filterFlags) bind(fs *pflag.FlagSet) {
	fs.StringSliceVar(&f.industry, "industry", nil, "keep only these industries (repeatable, comma-separated)")
	fs.StringSliceVar(&f.country, "country", nil, "keep only these countries (repeatable, comma-separated)")
	fs.StringSliceVar(&f.size, "size", nil, "keep only these company sizes (repeatable, comma-separated)")
}

func (f *filterFlags) predicates() analysis.Predicates {
	return analysis.NewPredicates(f.industry, f.country, f.size)
}

// newLoader builds the dataset loader from the effective configuration.
func newLoader() (*dataset.Loader, error) {
	c, err := requireConfig()
	if err != nil {
		return nil, err
	}
	src, err := dataset.NewSource(c.DatasetURL, dataset.SourceOptions{
		Timeout: time.Duration(c.DatasetTimeoutSec) * time.Second,
		S3: dataset.S3Options{
			Region:          c.S3Region,
			Endpoint:        c.S3Endpoint,
			PathStyle:       c.S3PathStyle,
			AccessKeyID:     c.S3AccessKeyID,
			SecretAccessKey: c.S3SecretAccessKey,
		},
	})
	if err != nil {
		return nil, err
	}
	return dataset.NewLoader(src), nil
}

// loadDataset loads the configured dataset.
func loadDataset(ctx context.Context) (*dataset.Dataset, error) {
	loader, err := newLoader()
	if err != nil {
		return nil, err
	}
	return loader.Load(ctx)
}

// loadView loads the dataset and applies the command's filters.
func loadView(ctx context.Context, f *filterFlags) (*dataset.Dataset, *dataset.Dataset, error) {
	ds, err := loadDataset(ctx)
	if err != nil {
		return nil, nil, err
	}
	return ds, analysis.Filter(ds, f.predicates()), nil
}

// newGateway builds the assistant for the configured provider.
func newGateway() (*assistant.Gateway, error) {
	c, err := requireConfig()
	if err != nil {
		return nil, err
	}
	rt, err := ai.GetRuntime(c.AssistantProvider, ai.RuntimeConfig{
		HTTPTimeout: time.Duration(c.HTTPTimeoutSec) * time.Second,
		APIKey:      c.APIKey,
		Host:        c.OllamaHost,
	})
	if err != nil {
		return nil, err
	}
	return assistant.NewGateway(rt, assistant.Options{
		Provider:        c.AssistantProvider,
		Model:           c.AssistantModel,
		MaxTokens:       c.MaxTokens,
		Temperature:     c.Temperature,
		MaxPromptTokens: c.MaxPromptTokens,
	}), nil
}

func parseColumn(name string, want func(dataset.Column) bool, kind string) (dataset.Column, error) {
	col, err := dataset.ParseColumn(name)
	if err != nil {
		return "", err
	}
	if !want(col) {
		return "", fmt.Errorf("%w: %s is not a %s column", dataset.ErrInvalidColumn, col, kind)
	}
	return col, nil
}

func numericColumn(name string) (dataset.Column, error) {
	return parseColumn(name, dataset.Column.IsNumeric, "numeric")
}

func dimensionColumn(name string) (dataset.Column, error) {
	return parseColumn(name, dataset.Column.IsDimension, "dimension")
}

func printJSON(w io.Writer, v any) error {
	b, err := utils.PrettyJSON(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}

// writeOutput replaces path with data, creating parent directories.
func writeOutput(path string, data []byte) error {
	if err := utils.EnsureDir(filepath.Dir(path)); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	return utils.SafeWriteFile(path, data)
}
