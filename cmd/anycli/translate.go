// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yingkitw/anycli/internal/docstore"
	"github.com/yingkitw/anycli/internal/embed"
	"github.com/yingkitw/anycli/internal/indexer"
	"github.com/yingkitw/anycli/internal/learning"
	"github.com/yingkitw/anycli/internal/llm"
	"github.com/yingkitw/anycli/internal/quality"
	"github.com/yingkitw/anycli/internal/rag"
	"github.com/yingkitw/anycli/internal/translator"
	"github.com/yingkitw/anycli/internal/vectorindex"
	"github.com/yingkitw/anycli/pkg/types"
)

var translateCmd = &cobra.Command{
	Use:   "translate [request]",
	Short: "Translate a natural language request into a CLI command",
	Long: `Translate turns a free-text request into an executable cloud CLI command.
Previously learned corrections answer immediately; otherwise the request is
translated with retrieval-augmented generation against the watsonx.ai
backend and the candidate is quality-checked before it is printed.

The command is printed, never executed.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runTranslate,
}

func runTranslate(cmd *cobra.Command, args []string) error {
	cfg := pipelineConfig()
	applyIndexFlags(cmd, &cfg.Indexing)

	query := types.Query{Text: strings.Join(args, " ")}
	if p, _ := cmd.Flags().GetString("provider"); p != "" {
		parsed := types.ParseProvider(p)
		if parsed == "" {
			return fmt.Errorf("unknown provider %q: use ibmcloud, aws, gcp, azure, or vmware", p)
		}
		query.Provider = parsed
	}

	gen, err := llm.NewWatsonxClient(cfg.Watsonx)
	if err != nil {
		return err
	}

	tr, cleanup, err := buildTranslator(cfg, gen)
	if err != nil {
		return err
	}
	defer cleanup()

	result, err := tr.Translate(context.Background(), query)
	var te *translator.TranslationError
	if errors.As(err, &te) {
		return fmt.Errorf("could not produce an acceptable command: %s", te.LastReason)
	}
	if err != nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	return printResult(os.Stdout, result, jsonOutput)
}

// buildTranslator assembles the full pipeline: correction store, in-memory
// retrieval index over the corpus, quality analyzer, and orchestrator. The
// returned cleanup closes the store and catalog.
func buildTranslator(cfg types.PipelineConfig, gen llm.Generator) (*translator.Translator, func(), error) {
	if cfg.Learning.LogPath == "" {
		cfg.Learning.LogPath = ".anycli/corrections.jsonl"
	}
	store, _, err := learning.Open(cfg.Learning, os.Stderr)
	if err != nil {
		return nil, nil, err
	}

	catalog, err := docstore.Open(cfg.Indexing.CatalogDir)
	if err != nil {
		store.Close()
		return nil, nil, err
	}

	engine, err := buildRetrieval(cfg, catalog)
	if err != nil {
		store.Close()
		catalog.Close()
		return nil, nil, err
	}

	analyzer := quality.New(cfg.Quality)
	tr := translator.New(store, engine, gen, analyzer, cfg.Generation, cfg.Translation)
	cleanup := func() {
		store.Close()
		catalog.Close()
	}
	return tr, cleanup, nil
}

// buildRetrieval embeds the corpus into a fresh in-memory index. The catalog
// is not consulted for skipping here; every document must be present in
// memory for this process.
func buildRetrieval(cfg types.PipelineConfig, catalog *docstore.Store) (*rag.Engine, error) {
	embedder := embed.NewHashEmbedder(embed.DefaultDimension)
	ix := vectorindex.New()
	idx := indexer.New(embedder, ix, nil)

	var docs []indexer.CorpusDoc
	for _, d := range indexer.SeedDocuments() {
		docs = append(docs, indexer.CorpusDoc{Document: d})
	}
	if cfg.Indexing.CorpusDir != "" {
		loaded, err := indexer.LoadCorpus(cfg.Indexing.CorpusDir)
		if err != nil {
			return nil, err
		}
		docs = append(docs, loaded...)
	}

	if _, err := idx.IndexAll(context.Background(), docs, cfg.Indexing, io.Discard); err != nil {
		return nil, err
	}
	return rag.New(embedder, ix, catalog, cfg.Retrieval), nil
}

func printResult(w io.Writer, result translator.Result, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			RequestID string             `json:"request_id"`
			Command   string             `json:"command"`
			Provider  types.Provider     `json:"provider,omitempty"`
			Quality   types.QualityScore `json:"quality"`
			Attempts  int                `json:"attempts"`
			FastPath  bool               `json:"fast_path"`
		}{
			RequestID: result.RequestID,
			Command:   result.Command.Text,
			Provider:  result.Command.Provider,
			Quality:   result.Command.Quality,
			Attempts:  result.Attempts,
			FastPath:  result.FastPath,
		})
	}

	fmt.Fprintln(w, result.Command.Text)
	if result.FastPath {
		fmt.Fprintln(os.Stderr, "(from learned corrections)")
	}
	return nil
}

func init() {
	translateCmd.Flags().String("provider", "", "target provider: ibmcloud, aws, gcp, azure, or vmware")
	translateCmd.Flags().Bool("json", false, "output the full result as JSON")
	translateCmd.Flags().String("corpus", "", "directory of corpus YAML documents (default: corpus/)")
	translateCmd.Flags().String("catalog", "", "directory for the document catalog database (default: .anycli/)")

	rootCmd.AddCommand(translateCmd)
}
