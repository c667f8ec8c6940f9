// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package quality scores candidate CLI commands before they are accepted.
package quality

import (
	"strings"

	"github.com/yingkitw/anycli/pkg/types"
)

// forbiddenPatterns rejects destructive shell constructs and leftover prompt
// scaffolding. Matching any of them zeroes the forbidden sub-score.
var forbiddenPatterns = []string{
	"rm -rf /",
	":(){",
	"mkfs",
	"> /dev/sd",
	"`",
	"$(",
	"Answer:",
	"Query:",
	"Human:",
	"Assistant:",
	"```",
}

// Analyzer scores candidates along four dimensions and aggregates them into
// a single acceptance score.
type Analyzer struct {
	cfg types.QualityConfig
}

func New(cfg types.QualityConfig) *Analyzer {
	return &Analyzer{cfg: cfg}
}

// Analyze scores candidate against an optional provider hint. All sub-scores
// and the aggregate lie in [0, 1].
func (a *Analyzer) Analyze(candidate string, hint types.Provider) types.QualityScore {
	score := types.QualityScore{
		Syntax:         syntaxScore(candidate),
		ProviderPrefix: prefixScore(candidate, hint),
		Length:         a.lengthScore(candidate),
		Forbidden:      forbiddenScore(candidate),
	}
	score.Aggregate = a.aggregate(score)
	return score
}

// Acceptable reports whether the aggregate clears the acceptance threshold
// (default 0.6).
func (a *Analyzer) Acceptable(score types.QualityScore) bool {
	threshold := a.cfg.AcceptThreshold
	if threshold <= 0 {
		threshold = 0.6
	}
	return score.Aggregate >= threshold
}

// syntaxScore is 1 for a single-line candidate with balanced quotes and
// brackets, 0 otherwise.
func syntaxScore(candidate string) float64 {
	trimmed := strings.TrimSpace(candidate)
	if trimmed == "" || strings.ContainsAny(trimmed, "\n\r") {
		return 0
	}
	if strings.Count(trimmed, `"`)%2 != 0 || strings.Count(trimmed, "'")%2 != 0 {
		return 0
	}
	for _, p := range [][2]rune{{'(', ')'}, {'[', ']'}, {'{', '}'}} {
		if strings.Count(trimmed, string(p[0])) != strings.Count(trimmed, string(p[1])) {
			return 0
		}
	}
	return 1
}

// prefixScore checks the first token against the hinted provider's CLI
// executable. Without a hint the score is a neutral 0.5.
func prefixScore(candidate string, hint types.Provider) float64 {
	if hint == "" {
		return 0.5
	}
	fields := strings.Fields(candidate)
	if len(fields) == 0 {
		return 0
	}
	if fields[0] == hint.CLICommand() {
		return 1
	}
	return 0
}

// lengthScore is 1 inside the configured token window and decays linearly to
// 0 over a band the same width as the window on either side.
func (a *Analyzer) lengthScore(candidate string) float64 {
	minTokens := a.cfg.MinTokens
	if minTokens <= 0 {
		minTokens = 2
	}
	maxTokens := a.cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 32
	}

	n := len(strings.Fields(candidate))
	if n >= minTokens && n <= maxTokens {
		return 1
	}

	band := maxTokens - minTokens
	if band <= 0 {
		band = 1
	}

	var overshoot int
	if n < minTokens {
		overshoot = minTokens - n
	} else {
		overshoot = n - maxTokens
	}
	if overshoot >= band {
		return 0
	}
	return 1 - float64(overshoot)/float64(band)
}

func forbiddenScore(candidate string) float64 {
	for _, p := range forbiddenPatterns {
		if strings.Contains(candidate, p) {
			return 0
		}
	}
	return 1
}

// aggregate computes the weighted average of the sub-scores. Weights apply
// in order syntax, provider prefix, length, forbidden; missing or invalid
// weights fall back to equal weighting.
func (a *Analyzer) aggregate(s types.QualityScore) float64 {
	weights := a.cfg.Weights
	if len(weights) != 4 {
		weights = []float64{1, 1, 1, 1}
	}
	var total float64
	for _, w := range weights {
		if w < 0 {
			total = 0
			break
		}
		total += w
	}
	if total <= 0 {
		weights = []float64{1, 1, 1, 1}
		total = 4
	}

	sum := weights[0]*s.Syntax + weights[1]*s.ProviderPrefix + weights[2]*s.Length + weights[3]*s.Forbidden
	return sum / total
}
