// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/yingkitw/anycli/internal/httputil"
	"github.com/yingkitw/anycli/pkg/types"
)

// API base URLs. Tests point these at httptest servers.
var (
	IAMBaseURL        = "https://iam.cloud.ibm.com"
	GenerationBaseURL = "https://us-south.ml.cloud.ibm.com"
)

const (
	generationPath    = "/ml/v1/text/generation_stream"
	generationVersion = "2023-05-29"
	defaultModel      = "ibm/granite-4-h-small"
	defaultRegion     = "us-south"
	defaultTimeout    = 60 * time.Second
)

// WatsonxClient generates text against the watsonx.ai streaming endpoint.
// An IAM bearer token is exchanged for the API key on first use and cached;
// a 401 invalidates the cache so the next call re-authenticates.
type WatsonxClient struct {
	apiKey    string
	projectID string
	region    string
	client    *http.Client

	mu    sync.Mutex
	token string
}

// NewWatsonxClient returns a client for cfg. The API key and project ID are
// required; Region defaults to us-south.
func NewWatsonxClient(cfg types.WatsonxConfig) (*WatsonxClient, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("watsonx: api key is required")
	}
	if cfg.ProjectID == "" {
		return nil, errors.New("watsonx: project id is required")
	}
	region := cfg.Region
	if region == "" {
		region = defaultRegion
	}
	return &WatsonxClient{
		apiKey:    cfg.APIKey,
		projectID: cfg.ProjectID,
		region:    region,
		client:    &http.Client{},
	}, nil
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
}

// bearerToken exchanges the API key for an IAM access token, caching the
// result.
func (c *WatsonxClient) bearerToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" {
		return c.token, nil
	}

	form := url.Values{
		"grant_type": {"urn:ibm:params:oauth:grant-type:apikey"},
		"apikey":     {c.apiKey},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, IAMBaseURL+"/identity/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", &BackendError{Kind: FailureNetwork, Op: "iam token", Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", &BackendError{Kind: FailureNetwork, Op: "iam token", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &BackendError{
			Kind: FailureAuthentication,
			Op:   "iam token",
			Err:  fmt.Errorf("status %d", resp.StatusCode),
		}
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil || tr.AccessToken == "" {
		return "", &BackendError{Kind: FailureMalformedResponse, Op: "iam token", Err: err}
	}
	c.token = tr.AccessToken
	return c.token, nil
}

func (c *WatsonxClient) invalidateToken() {
	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()
}

type generationParams struct {
	DecodingMethod    string   `json:"decoding_method"`
	Temperature       float64  `json:"temperature,omitempty"`
	MaxNewTokens      int      `json:"max_new_tokens"`
	MinNewTokens      int      `json:"min_new_tokens"`
	RepetitionPenalty float64  `json:"repetition_penalty"`
	StopSequences     []string `json:"stop_sequences,omitempty"`
}

type generationRequest struct {
	Input      string           `json:"input"`
	Parameters generationParams `json:"parameters"`
	ModelID    string           `json:"model_id"`
	ProjectID  string           `json:"project_id"`
}

type generationEvent struct {
	Results []struct {
		GeneratedText string `json:"generated_text"`
	} `json:"results"`
}

// Generate performs one generation attempt and returns the trimmed aggregate
// of the stream. An aggregate that is empty after trimming fails with
// FailureEmptyResponse.
func (c *WatsonxClient) Generate(ctx context.Context, prompt string, cfg types.GenerationConfig) (string, error) {
	fragments, err := c.GenerateStream(ctx, prompt, cfg)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for f := range fragments {
		if f.Err != nil {
			return "", f.Err
		}
		b.WriteString(f.Text)
	}

	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", &BackendError{Kind: FailureEmptyResponse, Op: "generate"}
	}
	return text, nil
}

// GenerateWithFeedback generates with the prompt amended by the previous
// rejection reason.
func (c *WatsonxClient) GenerateWithFeedback(ctx context.Context, prompt string, cfg types.GenerationConfig, previousFailure string) (string, error) {
	return c.Generate(ctx, AmendPrompt(prompt, previousFailure), cfg)
}

// GenerateStream opens a streaming generation and yields fragments as SSE
// events arrive. The per-call timeout from cfg bounds the whole stream; a
// deadline hit surfaces as FailureNetwork.
func (c *WatsonxClient) GenerateStream(ctx context.Context, prompt string, cfg types.GenerationConfig) (<-chan Fragment, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)

	resp, err := c.openStream(ctx, prompt, cfg)
	if err != nil {
		cancel()
		return nil, err
	}

	out := make(chan Fragment)
	go func() {
		defer close(out)
		defer cancel()
		defer resp.Body.Close()

		sawData := false
		sawResult := false
		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			payload, ok := strings.CutPrefix(scanner.Text(), "data: ")
			if !ok {
				continue
			}
			payload = strings.TrimSpace(payload)
			if payload == "" || payload == "[DONE]" {
				continue
			}
			sawData = true

			var ev generationEvent
			if err := json.Unmarshal([]byte(payload), &ev); err != nil {
				continue
			}
			for _, r := range ev.Results {
				sawResult = true
				select {
				case out <- Fragment{Text: r.GeneratedText}:
				case <-ctx.Done():
					return
				}
			}
		}

		var failure *BackendError
		if err := scanner.Err(); err != nil {
			failure = &BackendError{Kind: FailureNetwork, Op: "generate stream", Err: err}
		} else if sawData && !sawResult {
			failure = &BackendError{
				Kind: FailureMalformedResponse,
				Op:   "generate stream",
				Err:  errors.New("no parsable generation events"),
			}
		}
		if failure != nil {
			select {
			case out <- Fragment{Err: failure}:
			case <-ctx.Done():
			}
		}
	}()
	return out, nil
}

func (c *WatsonxClient) openStream(ctx context.Context, prompt string, cfg types.GenerationConfig) (*http.Response, error) {
	token, err := c.bearerToken(ctx)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(c.buildRequest(prompt, cfg))
	if err != nil {
		return nil, &BackendError{Kind: FailureMalformedResponse, Op: "generate", Err: err}
	}

	base := strings.Replace(GenerationBaseURL, defaultRegion, c.region, 1)
	endpoint := base + generationPath + "?version=" + generationVersion
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &BackendError{Kind: FailureNetwork, Op: "generate", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := httputil.DoWithRetry(ctx, c.client, req, 0)
	if err != nil {
		return nil, &BackendError{Kind: FailureNetwork, Op: "generate", Err: err}
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		resp.Body.Close()
		c.invalidateToken()
		return nil, &BackendError{
			Kind: FailureAuthentication,
			Op:   "generate",
			Err:  fmt.Errorf("status %d", resp.StatusCode),
		}
	case resp.StatusCode != http.StatusOK:
		resp.Body.Close()
		return nil, &BackendError{
			Kind: FailureNetwork,
			Op:   "generate",
			Err:  fmt.Errorf("status %d", resp.StatusCode),
		}
	}
	return resp, nil
}

func (c *WatsonxClient) buildRequest(prompt string, cfg types.GenerationConfig) generationRequest {
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	maxTokens := cfg.MaxNewTokens
	if maxTokens <= 0 {
		maxTokens = 200
	}
	minTokens := cfg.MinNewTokens
	if minTokens <= 0 {
		minTokens = 5
	}
	stops := cfg.StopSequences
	if stops == nil {
		stops = []string{"\n\n", "Human:", "Assistant:"}
	}

	decoding := "greedy"
	if cfg.Temperature > 0 {
		decoding = "sample"
	}

	return generationRequest{
		Input: prompt,
		Parameters: generationParams{
			DecodingMethod:    decoding,
			Temperature:       cfg.Temperature,
			MaxNewTokens:      maxTokens,
			MinNewTokens:      minTokens,
			RepetitionPenalty: 1.1,
			StopSequences:     stops,
		},
		ModelID:   model,
		ProjectID: c.projectID,
	}
}
