// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/yingkitw/anycli/internal/docstore"
	"github.com/yingkitw/anycli/internal/embed"
	"github.com/yingkitw/anycli/internal/indexer"
	"github.com/yingkitw/anycli/internal/vectorindex"
	"github.com/yingkitw/anycli/pkg/types"
)

var indexCmd = &cobra.Command{
	Use:   "index [dir]",
	Short: "Index CLI documentation for retrieval",
	Long: `Index chunks and embeds CLI documentation into the retrieval corpus.
Documents are read from YAML files in the corpus directory; built-in seed
documentation for the supported providers is included unless --no-seed is
given. Unchanged documents are skipped on subsequent runs.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIndex,
}

func runIndex(cmd *cobra.Command, args []string) error {
	cfg := pipelineConfig().Indexing
	applyIndexFlags(cmd, &cfg)
	if len(args) == 1 {
		cfg.CorpusDir = args[0]
	}
	noSeed, _ := cmd.Flags().GetBool("no-seed")

	_, catalog, summary, err := buildCorpusIndex(context.Background(), cfg, !noSeed, os.Stdout)
	if err != nil {
		return err
	}
	defer catalog.Close()

	if summary.Failed > 0 {
		return fmt.Errorf("%d document(s) failed indexing", summary.Failed)
	}
	return nil
}

func applyIndexFlags(cmd *cobra.Command, cfg *types.IndexingConfig) {
	if corpus, _ := cmd.Flags().GetString("corpus"); corpus != "" {
		cfg.CorpusDir = corpus
	}
	if catalog, _ := cmd.Flags().GetString("catalog"); catalog != "" {
		cfg.CatalogDir = catalog
	}
	if cfg.CorpusDir == "" {
		cfg.CorpusDir = "corpus"
	}
	if cfg.CatalogDir == "" {
		cfg.CatalogDir = ".anycli"
	}
}

// buildCorpusIndex embeds the corpus into a fresh in-memory vector index
// backed by the document catalog. Seed documentation carries no file mod
// time, so it indexes once and is skipped afterwards.
func buildCorpusIndex(ctx context.Context, cfg types.IndexingConfig, seed bool, w io.Writer) (*vectorindex.Index, *docstore.Store, indexer.IngestSummary, error) {
	catalog, err := docstore.Open(cfg.CatalogDir)
	if err != nil {
		return nil, nil, indexer.IngestSummary{}, err
	}

	ix := vectorindex.New()
	idx := indexer.New(embed.NewHashEmbedder(embed.DefaultDimension), ix, catalog)

	var docs []indexer.CorpusDoc
	if seed {
		for _, d := range indexer.SeedDocuments() {
			docs = append(docs, indexer.CorpusDoc{Document: d, ModTime: "seed"})
		}
	}
	if cfg.CorpusDir != "" {
		loaded, err := indexer.LoadCorpus(cfg.CorpusDir)
		if err != nil {
			catalog.Close()
			return nil, nil, indexer.IngestSummary{}, err
		}
		docs = append(docs, loaded...)
	}

	summary, err := idx.IndexAll(ctx, docs, cfg, w)
	if err != nil {
		catalog.Close()
		return nil, nil, summary, err
	}
	return ix, catalog, summary, nil
}

func init() {
	indexCmd.Flags().String("corpus", "", "directory of corpus YAML documents (default: corpus/)")
	indexCmd.Flags().String("catalog", "", "directory for the document catalog database (default: .anycli/)")
	indexCmd.Flags().Bool("no-seed", false, "skip the built-in seed documentation")

	rootCmd.AddCommand(indexCmd)
}
