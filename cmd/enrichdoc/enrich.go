// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/enrichdoc/internal/document"
	"github.com/pdiddy/enrichdoc/internal/embedding"
	"github.com/pdiddy/enrichdoc/internal/enrich"
	"github.com/pdiddy/enrichdoc/internal/gate"
	"github.com/pdiddy/enrichdoc/internal/memory"
	"github.com/pdiddy/enrichdoc/internal/model"
	"github.com/pdiddy/enrichdoc/internal/wiki"
	"github.com/pdiddy/enrichdoc/pkg/types"
)

var enrichCmd = &cobra.Command{
	Use:   "enrich [file]",
	Short: "Enrich a Markdown file section by section",
	Long: `Enrich parses a Markdown file into sections and runs each through the
research, fact-check, link, and integrate stages. Original text is never
removed or rewritten; every addition passes the consistency gate. The
result is written next to the input as NAME_enriched.md unless --output
is given.

Interrupting a run (Ctrl-C) lets in-flight sections finish their current
stage, then writes the document with whatever enrichment completed.`,
	Args: cobra.ExactArgs(1),
	RunE: runEnrich,
}

func runEnrich(cmd *cobra.Command, args []string) error {
	inputPath := args[0]
	raw, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	doc, err := document.Parse(string(raw))
	if err != nil {
		return err
	}

	cfg := enrichConfig(cmd)

	if dryRun, _ := cmd.Flags().GetBool("dry-run"); dryRun {
		return reportSections(doc, inputPath)
	}

	docID, _ := cmd.Flags().GetString("doc-id")
	if docID == "" {
		docID = document.ID(inputPath)
	}

	embedder, err := embedding.New(cfg.Embedding)
	if err != nil {
		return err
	}

	store, err := memory.Open(cfg.Memory)
	if err != nil {
		return err
	}
	defer store.Close()

	deps := enrich.Deps{
		Model: &model.ClaudeBackend{Config: cfg.Pipeline.AIConfig},
		Wiki: &wiki.APIBackend{
			Config:      cfg.Wiki,
			AccessToken: secretDefault("wikipedia-access-token", ""),
		},
		Memory: memory.NewSectionMemory(store, embedder, docID, cfg.Memory),
		Gate:   gate.New(embedder, cfg.Gate),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(os.Stderr, "Enriching %s (%d sections, document %s)\n", inputPath, len(doc.Sections), docID)

	summary, runErr := enrich.Run(ctx, doc, deps, cfg.Pipeline, os.Stderr)
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}

	out := doc.Serialize()

	outputPath, _ := cmd.Flags().GetString("output")
	if outputPath == "" {
		outputPath = derivedOutputPath(inputPath)
	}
	if err := os.WriteFile(outputPath, []byte(out), 0o644); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Wrote %s (%s)\n", outputPath, summary)
	if runErr != nil {
		fmt.Fprintln(os.Stderr, "Interrupted: partial enrichment written")
	}
	return nil
}

// reportSections prints what an enrichment run would work on, without
// calling any external service.
func reportSections(doc *document.Document, inputPath string) error {
	fmt.Printf("%s: %d section(s), document %s\n\n", inputPath, len(doc.Sections), document.ID(inputPath))
	for i, sec := range doc.Sections {
		heading := sec.Heading
		if heading == "" {
			heading = "(preamble)"
		}
		fmt.Printf("%3d  level %d  %s\n", i, sec.Level, heading)
		if topics := enrich.Topics(sec.Heading, sec.OriginalBody, 3); len(topics) > 0 {
			fmt.Printf("     topics: %s\n", strings.Join(topics, ", "))
		}
	}
	return nil
}

// derivedOutputPath turns input.md into input_enriched.md.
func derivedOutputPath(inputPath string) string {
	ext := filepath.Ext(inputPath)
	return strings.TrimSuffix(inputPath, ext) + "_enriched" + ext
}

// enrichConfig assembles the run configuration: flags win over config file
// values, which win over defaults.
func enrichConfig(cmd *cobra.Command) types.EnrichConfig {
	var cfg types.EnrichConfig

	lang, _ := cmd.Flags().GetString("lang")
	cfg.Wiki.Language = fallback(lang, viper.GetString("wiki.language"))
	cfg.Wiki.UserAgent = fallback(viper.GetString("wiki.user_agent"), "enrichdoc/"+version)
	cfg.Wiki.MaxResults = viper.GetInt("wiki.max_results")
	cfg.Wiki.SummarySentences = viper.GetInt("wiki.summary_sentences")
	cfg.Wiki.MaxRetries = viper.GetInt("wiki.max_retries")
	cfg.Wiki.Timeout = viper.GetDuration("wiki.timeout")

	cfg.Embedding.Provider = viper.GetString("embedding.provider")
	cfg.Embedding.Endpoint = viper.GetString("embedding.endpoint")
	cfg.Embedding.Model = viper.GetString("embedding.model")
	cfg.Embedding.Dimensions = viper.GetInt("embedding.dimensions")
	cfg.Embedding.Timeout = viper.GetDuration("embedding.timeout")

	cfg.Memory.StorageDir = fallback(viper.GetString("memory.storage_dir"), "storage")
	cfg.Memory.DedupThreshold = viper.GetFloat64("memory.dedup_threshold")
	cfg.Memory.LinkThreshold = viper.GetFloat64("memory.link_threshold")

	cfg.Gate.Threshold = viper.GetFloat64("gate.threshold")

	modelName, _ := cmd.Flags().GetString("model")
	cfg.Pipeline.Model = fallback(modelName, fallback(viper.GetString("pipeline.model"), "claude-sonnet-4-5-20250929"))
	cfg.Pipeline.APIKey = secretDefault("anthropic-api-key", viper.GetString("pipeline.api_key"))
	cfg.Pipeline.MaxTokens = viper.GetInt("pipeline.max_tokens")
	cfg.Pipeline.MaxRetries = viper.GetInt("pipeline.max_retries")

	workers, _ := cmd.Flags().GetInt("workers")
	if workers <= 0 {
		workers = viper.GetInt("pipeline.workers")
	}
	cfg.Pipeline.Workers = workers
	cfg.Pipeline.MaxLinks = viper.GetInt("pipeline.max_links")
	cfg.Pipeline.MaxTopics = viper.GetInt("pipeline.max_topics")

	return cfg
}

// fallback returns value if set, def otherwise.
func fallback(value, def string) string {
	if value != "" {
		return value
	}
	return def
}

func init() {
	enrichCmd.Flags().StringP("output", "o", "", "output file (default: NAME_enriched.md next to input)")
	enrichCmd.Flags().String("lang", "", "Wikipedia language edition (default \"en\")")
	enrichCmd.Flags().String("model", "", "AI model identifier for enrichment")
	enrichCmd.Flags().Int("workers", 0, "concurrent section workers (0 = default)")
	enrichCmd.Flags().String("doc-id", "", "override the document identifier used for memory (default: hash of input path)")
	enrichCmd.Flags().Bool("dry-run", false, "report sections and research topics without calling any service")

	rootCmd.AddCommand(enrichCmd)
}
