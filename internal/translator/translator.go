// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package translator turns free-text requests into executable CLI commands.
// It composes the learning store, retrieval engine, generation backend, and
// quality analyzer into one translate operation with bounded retries.
package translator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yingkitw/anycli/internal/learning"
	"github.com/yingkitw/anycli/internal/llm"
	"github.com/yingkitw/anycli/internal/provider"
	"github.com/yingkitw/anycli/internal/quality"
	"github.com/yingkitw/anycli/internal/rag"
	"github.com/yingkitw/anycli/pkg/types"
)

// backoffBase is the delay before the second generation attempt; it doubles
// each retry. Tests override it to avoid real sleeps.
var backoffBase = 500 * time.Millisecond

const defaultRetryBudget = 2

// Result is the outcome of one translation request.
type Result struct {
	RequestID string
	Command   types.Command
	Attempts  int
	FastPath  bool
}

// TranslationError is the terminal failure after the retry budget is spent.
type TranslationError struct {
	Query      string
	Attempts   int
	LastReason string
}

func (e *TranslationError) Error() string {
	return fmt.Sprintf("translation failed after %d attempts: %s", e.Attempts, e.LastReason)
}

// Translator orchestrates the translation pipeline.
type Translator struct {
	store    *learning.Store
	engine   *rag.Engine
	gen      llm.Generator
	analyzer *quality.Analyzer
	genCfg   types.GenerationConfig
	budget   int
}

// New wires the pipeline stages together. store and engine may be nil, in
// which case the fast path and retrieval enhancement are skipped.
func New(store *learning.Store, engine *rag.Engine, gen llm.Generator, analyzer *quality.Analyzer, genCfg types.GenerationConfig, cfg types.TranslationConfig) *Translator {
	budget := cfg.RetryBudget
	if budget <= 0 {
		budget = defaultRetryBudget
	}
	return &Translator{
		store:    store,
		engine:   engine,
		gen:      gen,
		analyzer: analyzer,
		genCfg:   genCfg,
		budget:   budget,
	}
}

// Translate runs one request through the pipeline: learning lookup, then
// retrieval-enhanced generation with up to 1 + RetryBudget attempts, each
// retry carrying the previous rejection reason as feedback.
func (t *Translator) Translate(ctx context.Context, query types.Query) (Result, error) {
	result := Result{RequestID: uuid.NewString()}

	hint := query.Provider
	if hint == "" {
		hint = provider.Detect(query.Text).Provider
	}

	if t.store != nil {
		if rec, ok := t.store.Lookup(query.Text); ok {
			cmdProvider := rec.Provider
			if cmdProvider == "" {
				cmdProvider = hint
			}
			result.FastPath = true
			result.Command = types.Command{
				Text:     rec.Corrected,
				Provider: cmdProvider,
				Quality:  t.analyzer.Analyze(rec.Corrected, cmdProvider),
			}
			return result, nil
		}
	}

	prompt, err := t.buildPrompt(ctx, query, hint)
	if err != nil {
		return result, err
	}

	attempts := 1 + t.budget
	reason := ""
	for attempt := 0; attempt < attempts; attempt++ {
		result.Attempts = attempt + 1
		if attempt > 0 {
			backoff := backoffBase << (attempt - 1)
			select {
			case <-ctx.Done():
				return result, ctx.Err()
			case <-time.After(backoff):
			}
		}

		var raw string
		var genErr error
		if attempt == 0 {
			raw, genErr = t.gen.Generate(ctx, prompt, t.genCfg)
		} else {
			raw, genErr = t.gen.GenerateWithFeedback(ctx, prompt, t.genCfg, reason)
		}
		if genErr != nil {
			reason = describeFailure(genErr)
			continue
		}

		candidate := llm.CleanResponse(raw)
		if candidate == "" {
			reason = "previous answer was empty"
			continue
		}

		score := t.analyzer.Analyze(candidate, hint)
		if t.analyzer.Acceptable(score) {
			result.Command = types.Command{Text: candidate, Provider: hint, Quality: score}
			return result, nil
		}
		reason = rejectionReason(candidate, score, hint)
	}

	return result, &TranslationError{Query: query.Text, Attempts: attempts, LastReason: reason}
}

// buildPrompt assembles the instruction template and, when retrieval is
// wired, prepends documentation context. The context is built once per
// request and reused across retries.
func (t *Translator) buildPrompt(ctx context.Context, query types.Query, hint types.Provider) (string, error) {
	base := basePrompt(query.Text, hint)
	if t.engine == nil {
		return base, nil
	}

	results, err := t.engine.Retrieve(ctx, query.Text)
	if err != nil {
		return "", fmt.Errorf("retrieve context: %w", err)
	}
	return t.engine.EnhancePrompt(base, t.engine.BuildContext(results)), nil
}

func basePrompt(query string, hint types.Provider) string {
	target := "cloud CLI"
	if hint != "" {
		target = fmt.Sprintf("%s CLI (%s)", hint.DisplayName(), hint.CLICommand())
	}
	return fmt.Sprintf(
		"You are an expert %s assistant. Translate the following request into a single CLI command.\n\n"+
			"Query: %s\n\n"+
			"Respond with only the exact command to run, with no explanations or markdown.",
		target, query)
}

// describeFailure maps a backend failure to feedback for the next attempt.
func describeFailure(err error) string {
	if be, ok := err.(*llm.BackendError); ok {
		switch be.Kind {
		case llm.FailureEmptyResponse:
			return "previous answer was empty"
		case llm.FailureMalformedResponse:
			return "previous answer could not be parsed"
		default:
			return fmt.Sprintf("previous attempt failed: %s", be.Kind)
		}
	}
	return fmt.Sprintf("previous attempt failed: %v", err)
}

// rejectionReason names the weakest quality dimension so the backend gets a
// concrete corrective signal.
func rejectionReason(candidate string, score types.QualityScore, hint types.Provider) string {
	switch {
	case score.Forbidden == 0:
		return "previous answer contained a forbidden or destructive pattern"
	case score.Syntax == 0:
		return "previous answer did not look like a single well-formed shell command"
	case hint != "" && score.ProviderPrefix == 0:
		return fmt.Sprintf("previous answer did not start with %q", hint.CLICommand())
	case score.Length < 1:
		return "previous answer had an implausible length for a CLI command"
	default:
		return fmt.Sprintf("previous answer %q was rejected by quality scoring", candidate)
	}
}

// RecordCorrection stores a user-confirmed fix. The provider tag is taken
// from the corrected command's leading token when it names a known CLI.
func (t *Translator) RecordCorrection(query, corrected, failed string) error {
	if t.store == nil {
		return fmt.Errorf("no learning store configured")
	}
	return t.store.Record(query, corrected, failed, commandProvider(corrected))
}

func commandProvider(command string) types.Provider {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return ""
	}
	for _, p := range types.AllProviders() {
		if fields[0] == p.CLICommand() {
			return p
		}
	}
	return ""
}
