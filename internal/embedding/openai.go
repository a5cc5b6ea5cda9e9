package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

const (
	defaultOpenAIBaseURL    = "https://api.openai.com/v1"
	defaultOpenAIModel      = "text-embedding-3-small"
	defaultOpenAIDimensions = 1536
	defaultHTTPTimeout      = 30 * time.Second
)

type openAIRequest struct {
	Model      string   `json:"model"`
	Input      []string `json:"input"`
	Dimensions int      `json:"dimensions,omitempty"`
}

type openAIResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
}

// OpenAIEmbedder calls an OpenAI-compatible /embeddings endpoint.
type OpenAIEmbedder struct {
	baseURL    string
	apiKey     string
	model      string
	dimensions int
	sendDims   bool
	httpClient *http.Client
	retry      RetryConfig
}

// OpenAIOption configures an OpenAIEmbedder.
type OpenAIOption func(*OpenAIEmbedder)

// WithBaseURL points the client at another OpenAI-compatible server.
func WithBaseURL(url string) OpenAIOption {
	return func(e *OpenAIEmbedder) {
		if url != "" {
			e.baseURL = strings.TrimRight(url, "/")
		}
	}
}

// WithDimensions asks the model for shortened vectors.
func WithDimensions(n int) OpenAIOption {
	return func(e *OpenAIEmbedder) {
		if n > 0 {
			e.dimensions = n
			e.sendDims = true
		}
	}
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) OpenAIOption {
	return func(e *OpenAIEmbedder) { e.httpClient = c }
}

// WithRetry replaces the default retry policy.
func WithRetry(cfg RetryConfig) OpenAIOption {
	return func(e *OpenAIEmbedder) { e.retry = cfg }
}

// NewOpenAIEmbedder creates an embedder. An empty apiKey falls back to OPENAI_API_KEY.
func NewOpenAIEmbedder(apiKey, model string, opts ...OpenAIOption) (*OpenAIEmbedder, error) {
	e := &OpenAIEmbedder{
		baseURL:    defaultOpenAIBaseURL,
		apiKey:     apiKey,
		model:      model,
		dimensions: defaultOpenAIDimensions,
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
		retry:      DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.apiKey == "" {
		e.apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if e.apiKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}
	if e.model == "" {
		e.model = defaultOpenAIModel
	}
	return e, nil
}

// Embed returns the embedding of one text.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch embeds texts in one request; the result is in input order.
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("no input texts provided")
	}
	req := openAIRequest{Model: e.model, Input: texts}
	if e.sendDims {
		req.Dimensions = e.dimensions
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	return retryWithBackoff(ctx, e.retry, func() ([][]float32, error) {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/embeddings", bytes.NewReader(body))
		if err != nil {
			return nil, permanent(fmt.Errorf("create request: %w", err))
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("Authorization", "Bearer "+e.apiKey)

		resp, err := e.httpClient.Do(httpReq)
		if err != nil {
			return nil, fmt.Errorf("send request: %w", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, apiError("openai", resp)
		}
		var out openAIResponse
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return nil, permanent(fmt.Errorf("decode response: %w", err))
		}
		if len(out.Data) != len(texts) {
			return nil, permanent(fmt.Errorf("openai returned %d embeddings for %d inputs", len(out.Data), len(texts)))
		}
		vecs := make([][]float32, len(texts))
		for _, d := range out.Data {
			if d.Index < 0 || d.Index >= len(vecs) {
				return nil, permanent(fmt.Errorf("openai returned out of range index %d", d.Index))
			}
			vecs[d.Index] = d.Embedding
		}
		return vecs, nil
	})
}

// Dimensions returns the configured vector size.
func (e *OpenAIEmbedder) Dimensions() int {
	return e.dimensions
}

// Close releases idle connections.
func (e *OpenAIEmbedder) Close() error {
	e.httpClient.CloseIdleConnections()
	return nil
}

// apiError builds an error from a non-200 response. Rate limits and server errors
// stay retryable; other statuses are permanent.
func apiError(provider string, resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	err := fmt.Errorf("%s API error (%s): %s", provider, resp.Status, strings.TrimSpace(string(data)))
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return err
	}
	return permanent(err)
}
