// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/enrichdoc/internal/document"
	"github.com/pdiddy/enrichdoc/internal/embedding"
	"github.com/pdiddy/enrichdoc/internal/memory"
	"github.com/pdiddy/enrichdoc/pkg/types"
)

var memoryCmd = &cobra.Command{
	Use:   "memory",
	Short: "Inspect and manage the persistent section memory",
	Long: `Memory manages the per-document enrichment memory: research findings,
checked facts, and linked terms recorded by previous runs. Records persist
until explicitly cleared; re-running enrichment on the same document reuses
them to skip duplicate work.`,
}

// --- list subcommand ---

var memoryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List memory records for a document",
	RunE:  runMemoryList,
}

func runMemoryList(cmd *cobra.Command, args []string) error {
	docID, err := memoryDocID(cmd)
	if err != nil {
		return err
	}
	kinds, err := memoryKinds(cmd)
	if err != nil {
		return err
	}

	store, err := memory.Open(memoryStoreConfig())
	if err != nil {
		return err
	}
	defer store.Close()

	var records []types.MemoryRecord
	for _, kind := range kinds {
		recs, err := store.List(context.Background(), docID, kind)
		if err != nil {
			return err
		}
		records = append(records, recs...)
	}

	return formatRecords(cmd, records)
}

// --- recall subcommand ---

var memoryRecallCmd = &cobra.Command{
	Use:   "recall [topic]",
	Short: "Recall stored payloads most similar to a topic",
	Args:  cobra.ExactArgs(1),
	RunE:  runMemoryRecall,
}

func runMemoryRecall(cmd *cobra.Command, args []string) error {
	docID, err := memoryDocID(cmd)
	if err != nil {
		return err
	}
	kindName, _ := cmd.Flags().GetString("kind")
	kind := types.RecordKind(kindName)
	if !types.ValidRecordKinds[kind] {
		return fmt.Errorf("invalid kind %q: use research, factcheck, or link", kindName)
	}
	k, _ := cmd.Flags().GetInt("limit")

	embedder, err := embedding.New(memoryEmbeddingConfig())
	if err != nil {
		return err
	}
	store, err := memory.Open(memoryStoreConfig())
	if err != nil {
		return err
	}
	defer store.Close()

	mem := memory.NewSectionMemory(store, embedder, docID, memoryStoreConfig())
	payloads, err := mem.Recall(context.Background(), kind, args[0], k)
	if err != nil {
		return err
	}

	if len(payloads) == 0 {
		fmt.Println("No matching records.")
		return nil
	}
	for i, p := range payloads {
		fmt.Printf("%d. %s\n", i+1, p)
	}
	return nil
}

// --- clear subcommand ---

var memoryClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete memory records for a document",
	Long: `Clear deletes a document's memory records, all kinds by default or one
kind with --kind. Records are never garbage-collected automatically; this
is the only way to remove them.`,
	RunE: runMemoryClear,
}

func runMemoryClear(cmd *cobra.Command, args []string) error {
	docID, err := memoryDocID(cmd)
	if err != nil {
		return err
	}
	kinds, err := memoryKinds(cmd)
	if err != nil {
		return err
	}

	store, err := memory.Open(memoryStoreConfig())
	if err != nil {
		return err
	}
	defer store.Close()

	var total int64
	for _, kind := range kinds {
		n, err := store.Clear(context.Background(), docID, kind)
		if err != nil {
			return err
		}
		total += n
	}
	fmt.Printf("Deleted %d record(s) for document %s\n", total, docID)
	return nil
}

// --- shared helpers ---

// memoryDocID resolves the document namespace from --doc-id or --file.
func memoryDocID(cmd *cobra.Command) (string, error) {
	if docID, _ := cmd.Flags().GetString("doc-id"); docID != "" {
		return docID, nil
	}
	if file, _ := cmd.Flags().GetString("file"); file != "" {
		return document.ID(file), nil
	}
	return "", fmt.Errorf("document required: provide --file or --doc-id")
}

// memoryKinds resolves --kind into the kinds to operate on, all when unset.
func memoryKinds(cmd *cobra.Command) ([]types.RecordKind, error) {
	kindName, _ := cmd.Flags().GetString("kind")
	if kindName == "" {
		return []types.RecordKind{types.KindResearch, types.KindFactCheck, types.KindLink}, nil
	}
	kind := types.RecordKind(kindName)
	if !types.ValidRecordKinds[kind] {
		return nil, fmt.Errorf("invalid kind %q: use research, factcheck, or link", kindName)
	}
	return []types.RecordKind{kind}, nil
}

func memoryStoreConfig() types.MemoryConfig {
	return types.MemoryConfig{
		StorageDir:     fallback(viper.GetString("memory.storage_dir"), "storage"),
		DedupThreshold: viper.GetFloat64("memory.dedup_threshold"),
		LinkThreshold:  viper.GetFloat64("memory.link_threshold"),
	}
}

func memoryEmbeddingConfig() types.EmbeddingConfig {
	return types.EmbeddingConfig{
		HTTPConfig: types.HTTPConfig{Timeout: viper.GetDuration("embedding.timeout")},
		Provider:   viper.GetString("embedding.provider"),
		Endpoint:   viper.GetString("embedding.endpoint"),
		Model:      viper.GetString("embedding.model"),
		Dimensions: viper.GetInt("embedding.dimensions"),
	}
}

func formatRecords(cmd *cobra.Command, records []types.MemoryRecord) error {
	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	}
	if yamlOutput, _ := cmd.Flags().GetBool("yaml"); yamlOutput {
		return yaml.NewEncoder(os.Stdout).Encode(records)
	}

	if len(records) == 0 {
		fmt.Println("No records found.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-10s  %-30s  %-50s  %s\n", "Kind", "Topic", "Payload", "Updated")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 110))
	for _, r := range records {
		topic := r.Topic
		if len(topic) > 30 {
			topic = topic[:27] + "..."
		}
		payload := strings.ReplaceAll(r.Payload, "\n", " ")
		if len(payload) > 50 {
			payload = payload[:47] + "..."
		}
		fmt.Fprintf(os.Stdout, "%-10s  %-30s  %-50s  %s\n",
			r.Kind, topic, payload, r.UpdatedAt.Format("2006-01-02 15:04"))
	}
	fmt.Fprintf(os.Stdout, "\n%d record(s)\n", len(records))
	return nil
}

func init() {
	// Shared flags on the parent command, inherited by subcommands.
	memoryCmd.PersistentFlags().String("file", "", "document file whose memory to operate on")
	memoryCmd.PersistentFlags().String("doc-id", "", "explicit document identifier (overrides --file)")
	memoryCmd.PersistentFlags().String("kind", "", "restrict to one kind: research, factcheck, or link")

	// List flags.
	memoryListCmd.Flags().Bool("json", false, "output records as JSON")
	memoryListCmd.Flags().Bool("yaml", false, "output records as YAML")

	// Recall flags.
	memoryRecallCmd.Flags().Int("limit", 5, "maximum payloads to recall")

	// Wire subcommands.
	memoryCmd.AddCommand(memoryListCmd)
	memoryCmd.AddCommand(memoryRecallCmd)
	memoryCmd.AddCommand(memoryClearCmd)

	rootCmd.AddCommand(memoryCmd)
}
