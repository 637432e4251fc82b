package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Azee177/jianli/internal/bootstrap"
	"github.com/Azee177/jianli/internal/llm"
	"github.com/Azee177/jianli/internal/shared/config"
)

type configKeyType struct{}

var configKey = configKeyType{}

var outputFile string

var rootCmd = &cobra.Command{
	Use:   "jianli",
	Short: "Offline resume tailoring tools",
	Long: `jianli runs the tailoring pipeline steps on local files: extract requirements
from job postings, cluster them into commonality dimensions, compare a resume
against those dimensions, rewrite a span and check a rewrite for invented facts.

Output is JSON. Set LLM_PROVIDER to use a model; otherwise every step is rule-based.`,
	SilenceUsage: true,
}

// Execute runs the root command with cfg available to subcommands.
func Execute(ctx context.Context, cfg config.Config) error {
	rootCmd.SetContext(context.WithValue(ctx, configKey, cfg))
	return rootCmd.Execute()
}

func configFromContext(ctx context.Context) config.Config {
	if cfg, ok := ctx.Value(configKey).(config.Config); ok {
		return cfg
	}
	return config.Config{LLMProvider: "none"}
}

func llmFromContext(ctx context.Context) (llm.Client, error) {
	client, err := bootstrap.NewLLM(ctx, configFromContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("llm client: %w", err)
	}
	return client, nil
}

func readFile(path string) (string, error) {
	var (
		raw []byte
		err error
	)
	if path == "-" {
		raw, err = io.ReadAll(os.Stdin)
	} else {
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	text := strings.TrimSpace(string(raw))
	if text == "" {
		return "", fmt.Errorf("%s is empty", path)
	}
	return text, nil
}

func writeJSON(cmd *cobra.Command, v any) error {
	w := cmd.OutOrStdout()
	if outputFile != "" {
		f, err := os.Create(outputFile)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		w = f
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&outputFile, "output", "o", "", "Output file path (default: stdout)")
	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(clusterCmd)
	rootCmd.AddCommand(gapCmd)
	rootCmd.AddCommand(rewriteCmd)
	rootCmd.AddCommand(factcheckCmd)
}
