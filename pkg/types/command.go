// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// Command is a translated, single-line CLI command together with the quality
// assessment that admitted it.
type Command struct {
	// Text is the command line, without a trailing newline.
	Text string `json:"text" yaml:"text"`

	// Provider is the CLI family the command targets.
	Provider Provider `json:"provider" yaml:"provider"`

	// Quality is the analyzer's verdict for this candidate.
	Quality QualityScore `json:"quality" yaml:"quality"`
}

// QualityScore is the per-dimension assessment of a candidate command. All
// scores lie in [0,1].
type QualityScore struct {
	// Syntax is 1 for a single balanced line, 0 otherwise.
	Syntax float64 `json:"syntax" yaml:"syntax"`

	// ProviderPrefix reflects whether the first token matches the expected
	// CLI executable (0.5 when no provider hint was given).
	ProviderPrefix float64 `json:"provider_prefix" yaml:"provider_prefix"`

	// Length is the length-sanity score, decayed linearly outside the
	// configured token window.
	Length float64 `json:"length" yaml:"length"`

	// Forbidden is 1 unless the candidate matches the deny list.
	Forbidden float64 `json:"forbidden" yaml:"forbidden"`

	// Aggregate is the weighted average of the sub-scores.
	Aggregate float64 `json:"aggregate" yaml:"aggregate"`
}

// CorrectionRecord is one immutable entry in the learning store's append log:
// a user-confirmed fix for a wrong or failed translation.
type CorrectionRecord struct {
	// Query is the original user request, as typed.
	Query string `json:"query"`

	// Failed is the rejected or failed command, if any.
	Failed string `json:"failed,omitempty"`

	// Corrected is the command the user confirmed as right.
	Corrected string `json:"corrected"`

	// Provider tags the CLI family of the corrected command, if known.
	Provider Provider `json:"provider,omitempty"`

	// RecordedAt is when the correction was written.
	RecordedAt time.Time `json:"recorded_at"`
}
