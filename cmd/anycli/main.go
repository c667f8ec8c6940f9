// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the anycli CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/yingkitw/anycli/internal/secrets"
	"github.com/yingkitw/anycli/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds credentials loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// rootCmd is the base command for the anycli CLI.
var rootCmd = &cobra.Command{
	Use:   "anycli",
	Short: "Translate natural language into cloud CLI commands",
	Long: `anycli translates free-text requests into executable cloud CLI commands
(ibmcloud, aws, gcloud, az, govc) using retrieval-augmented generation over
local CLI documentation.

Index documentation with the index subcommand, translate requests with
translate, and teach the tool corrected commands with learn. anycli never
executes commands; it only prints them.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedSecrets = s
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./anycli.yaml or ~/.config/anycli/anycli.yaml)")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("anycli")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "anycli"))
		}
	}

	viper.SetEnvPrefix("ANYCLI")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// pipelineConfig materializes the full pipeline configuration from viper.
// Credentials from .secrets/ fill any watsonx fields the config leaves
// empty.
func pipelineConfig() types.PipelineConfig {
	cfg := types.PipelineConfig{
		Indexing: types.IndexingConfig{
			ChunkSize:    viper.GetInt("indexing.chunk_size"),
			ChunkOverlap: viper.GetInt("indexing.chunk_overlap"),
			CorpusDir:    viper.GetString("indexing.corpus_dir"),
			CatalogDir:   viper.GetString("indexing.catalog_dir"),
		},
		Retrieval: types.RetrievalConfig{
			SearchConfig: types.SearchConfig{
				TopK:     viper.GetInt("retrieval.top_k"),
				MinScore: viper.GetFloat64("retrieval.min_score"),
			},
			MaxContextLength: viper.GetInt("retrieval.max_context_length"),
		},
		Generation: types.GenerationConfig{
			Model:         viper.GetString("generation.model"),
			Temperature:   viper.GetFloat64("generation.temperature"),
			MaxNewTokens:  viper.GetInt("generation.max_new_tokens"),
			MinNewTokens:  viper.GetInt("generation.min_new_tokens"),
			StopSequences: viper.GetStringSlice("generation.stop_sequences"),
			Timeout:       viper.GetDuration("generation.timeout"),
		},
		Quality: types.QualityConfig{
			MinTokens:       viper.GetInt("quality.min_tokens"),
			MaxTokens:       viper.GetInt("quality.max_tokens"),
			AcceptThreshold: viper.GetFloat64("quality.accept_threshold"),
		},
		Learning: types.LearningConfig{
			LogPath:        viper.GetString("learning.log_path"),
			FuzzyThreshold: viper.GetFloat64("learning.fuzzy_threshold"),
		},
		Translation: types.TranslationConfig{
			RetryBudget: viper.GetInt("translation.retry_budget"),
		},
		Watsonx: types.WatsonxConfig{
			APIKey:    viper.GetString("watsonx.api_key"),
			ProjectID: viper.GetString("watsonx.project_id"),
			Region:    viper.GetString("watsonx.region"),
		},
	}
	if viper.IsSet("quality.weights") {
		if err := viper.UnmarshalKey("quality.weights", &cfg.Quality.Weights); err != nil {
			fmt.Fprintf(os.Stderr, "warning: malformed quality.weights: %v\n", err)
		}
	}
	cfg.Watsonx = secrets.ApplyWatsonx(cfg.Watsonx, loadedSecrets)
	return cfg
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
