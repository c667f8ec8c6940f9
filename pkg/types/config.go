package types

import "time"

// IndexingConfig holds settings for the document indexing stage.
type IndexingConfig struct {
	// ChunkSize is the maximum chunk length in characters (default 1000).
	ChunkSize int `json:"chunk_size" yaml:"chunk_size"`

	// ChunkOverlap is the number of characters shared between consecutive
	// chunks (default 200). Must be smaller than ChunkSize.
	ChunkOverlap int `json:"chunk_overlap" yaml:"chunk_overlap"`

	// CorpusDir is the directory containing corpus document files.
	CorpusDir string `json:"corpus_dir" yaml:"corpus_dir"`

	// CatalogDir is the directory holding the document catalog database.
	CatalogDir string `json:"catalog_dir" yaml:"catalog_dir"`
}

// SearchConfig holds settings for vector similarity search.
type SearchConfig struct {
	// TopK is the maximum number of results to return (default 5).
	TopK int `json:"top_k" yaml:"top_k"`

	// MinScore is the minimum cosine similarity for a result to be kept.
	// Zero keeps every match.
	MinScore float64 `json:"min_score" yaml:"min_score"`
}

// RetrievalConfig holds settings for the retrieval engine.
type RetrievalConfig struct {
	SearchConfig `yaml:",inline"`

	// MaxContextLength is the character budget for assembled context
	// (default 4000). Truncation drops whole chunks, lowest score first.
	MaxContextLength int `json:"max_context_length" yaml:"max_context_length"`
}

// GenerationConfig holds per-request settings for the generation backend.
type GenerationConfig struct {
	// Model is the model identifier (default "ibm/granite-4-h-small").
	Model string `json:"model" yaml:"model"`

	// Temperature is the sampling temperature. Zero means greedy decoding.
	Temperature float64 `json:"temperature" yaml:"temperature"`

	// MaxNewTokens caps generated output length (default 200).
	MaxNewTokens int `json:"max_new_tokens" yaml:"max_new_tokens"`

	// MinNewTokens is the minimum generated output length (default 5).
	MinNewTokens int `json:"min_new_tokens" yaml:"min_new_tokens"`

	// StopSequences terminate generation when produced by the backend.
	StopSequences []string `json:"stop_sequences" yaml:"stop_sequences"`

	// Timeout bounds a single generation call (default 60s). A timed-out
	// call reports a network failure and counts against the retry budget.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`
}

// QualityConfig holds settings for the quality analyzer.
type QualityConfig struct {
	// MinTokens and MaxTokens bound the length-sanity window
	// (defaults 2 and 32).
	MinTokens int `json:"min_tokens" yaml:"min_tokens"`
	MaxTokens int `json:"max_tokens" yaml:"max_tokens"`

	// Weights are the sub-score weights in order: syntax, provider prefix,
	// length, forbidden patterns. Empty means equal weighting.
	Weights []float64 `json:"weights,omitempty" yaml:"weights,omitempty"`

	// AcceptThreshold is the minimum aggregate score for a candidate to be
	// accepted (default 0.6).
	AcceptThreshold float64 `json:"accept_threshold" yaml:"accept_threshold"`
}

// LearningConfig holds settings for the correction learning store.
type LearningConfig struct {
	// LogPath is the append-only correction log file
	// (default "anycli-corrections.jsonl").
	LogPath string `json:"log_path" yaml:"log_path"`

	// FuzzyThreshold is the minimum token-overlap ratio for a fuzzy lookup
	// hit (default 0.6).
	FuzzyThreshold float64 `json:"fuzzy_threshold" yaml:"fuzzy_threshold"`
}

// TranslationConfig holds settings for the translation orchestrator.
type TranslationConfig struct {
	// RetryBudget is the number of additional generation attempts after the
	// first rejection (default 2).
	RetryBudget int `json:"retry_budget" yaml:"retry_budget"`
}

// WatsonxConfig holds connection settings for the watsonx.ai backend.
type WatsonxConfig struct {
	// APIKey authenticates against IBM Cloud IAM.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// ProjectID is the watsonx.ai project the generation runs against.
	ProjectID string `json:"project_id" yaml:"project_id"`

	// Region selects the service endpoint (default "us-south").
	Region string `json:"region" yaml:"region"`
}

// PipelineConfig groups all stage configurations.
type PipelineConfig struct {
	Indexing    IndexingConfig    `json:"indexing" yaml:"indexing"`
	Retrieval   RetrievalConfig   `json:"retrieval" yaml:"retrieval"`
	Generation  GenerationConfig  `json:"generation" yaml:"generation"`
	Quality     QualityConfig     `json:"quality" yaml:"quality"`
	Learning    LearningConfig    `json:"learning" yaml:"learning"`
	Translation TranslationConfig `json:"translation" yaml:"translation"`
	Watsonx     WatsonxConfig     `json:"watsonx" yaml:"watsonx"`
}
