// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package llm defines the text generation capability and its failure
// taxonomy. Backends perform exactly one attempt per call; retry policy
// belongs to the caller.
package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/yingkitw/anycli/pkg/types"
)

// FailureKind classifies a generation failure for retry decisions.
type FailureKind int

const (
	FailureNetwork FailureKind = iota
	FailureAuthentication
	FailureMalformedResponse
	FailureEmptyResponse
)

func (k FailureKind) String() string {
	switch k {
	case FailureNetwork:
		return "network"
	case FailureAuthentication:
		return "authentication"
	case FailureMalformedResponse:
		return "malformed response"
	case FailureEmptyResponse:
		return "empty response"
	default:
		return "unknown"
	}
}

// BackendError reports a failed generation attempt.
type BackendError struct {
	Kind FailureKind
	Op   string
	Err  error
}

func (e *BackendError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }

// Fragment is one piece of a streamed generation. Err is set on the final
// fragment when the stream terminates abnormally.
type Fragment struct {
	Text string
	Err  error
}

// Generator produces text from a prompt against a language-model backend.
// Each call is a single attempt.
type Generator interface {
	Generate(ctx context.Context, prompt string, cfg types.GenerationConfig) (string, error)

	// GenerateWithFeedback amends the prompt with the reason the previous
	// attempt was rejected before generating.
	GenerateWithFeedback(ctx context.Context, prompt string, cfg types.GenerationConfig, previousFailure string) (string, error)

	// GenerateStream yields text fragments as the backend produces them.
	// The channel is closed on completion; the concatenation of fragment
	// texts equals what Generate would return before trimming. Consumers
	// cancel by cancelling ctx.
	GenerateStream(ctx context.Context, prompt string, cfg types.GenerationConfig) (<-chan Fragment, error)
}

// AmendPrompt appends a corrective instruction describing why the previous
// attempt was rejected.
func AmendPrompt(prompt, previousFailure string) string {
	if previousFailure == "" {
		return prompt
	}
	return prompt +
		"\n\nThe previous attempt was rejected: " + previousFailure +
		"\nReturn a single corrected CLI command and nothing else."
}

// CleanResponse strips prompt scaffolding the model tends to echo back: a
// leading "Answer:" label, anything from a repeated "Query:" marker onward,
// and everything after the first non-empty line.
func CleanResponse(text string) string {
	cleaned := strings.TrimSpace(text)
	cleaned = strings.TrimSpace(strings.TrimPrefix(cleaned, "Answer:"))
	if i := strings.Index(cleaned, "Query:"); i >= 0 {
		cleaned = strings.TrimSpace(cleaned[:i])
	}
	for _, line := range strings.Split(cleaned, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}
