package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	defaultVertexLocation   = "us-central1"
	defaultVertexModel      = "text-embedding-004"
	defaultVertexDimensions = 768
	cloudPlatformScope      = "https://www.googleapis.com/auth/cloud-platform"
)

type vertexRequest struct {
	Instances []vertexInstance `json:"instances"`
}

type vertexInstance struct {
	Content string `json:"content"`
}

type vertexResponse struct {
	Predictions []struct {
		Embeddings struct {
			Values []float32 `json:"values"`
		} `json:"embeddings"`
	} `json:"predictions"`
}

// VertexEmbedder calls the Vertex AI predict endpoint of a Google text embedding model.
type VertexEmbedder struct {
	projectID   string
	location    string
	model       string
	endpoint    string
	dimensions  int
	httpClient  *http.Client
	tokenSource oauth2.TokenSource
	retry       RetryConfig
}

// VertexOption configures a VertexEmbedder.
type VertexOption func(*VertexEmbedder)

// WithLocation sets the Vertex region.
func WithLocation(location string) VertexOption {
	return func(e *VertexEmbedder) {
		if location != "" {
			e.location = location
		}
	}
}

// WithTokenSource replaces Application Default Credentials.
func WithTokenSource(ts oauth2.TokenSource) VertexOption {
	return func(e *VertexEmbedder) { e.tokenSource = ts }
}

// WithEndpoint overrides the computed predict URL.
func WithEndpoint(url string) VertexOption {
	return func(e *VertexEmbedder) { e.endpoint = url }
}

// WithVertexDimensions sets the reported vector size.
func WithVertexDimensions(n int) VertexOption {
	return func(e *VertexEmbedder) {
		if n > 0 {
			e.dimensions = n
		}
	}
}

// NewVertexEmbedder creates an embedder authenticated with Application Default Credentials
// unless a token source is given. An empty projectID falls back to GOOGLE_CLOUD_PROJECT.
func NewVertexEmbedder(ctx context.Context, projectID, model string, opts ...VertexOption) (*VertexEmbedder, error) {
	e := &VertexEmbedder{
		projectID:  projectID,
		location:   defaultVertexLocation,
		model:      model,
		dimensions: defaultVertexDimensions,
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
		retry:      DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.projectID == "" {
		e.projectID = os.Getenv("GOOGLE_CLOUD_PROJECT")
	}
	if e.projectID == "" && e.endpoint == "" {
		return nil, fmt.Errorf("vertex project id is required")
	}
	if e.model == "" {
		e.model = defaultVertexModel
	}
	if e.endpoint == "" {
		e.endpoint = fmt.Sprintf("https://%s-aiplatform.googleapis.com/v1/projects/%s/locations/%s/publishers/google/models/%s:predict",
			e.location, e.projectID, e.location, e.model)
	}
	if e.tokenSource == nil {
		ts, err := google.DefaultTokenSource(ctx, cloudPlatformScope)
		if err != nil {
			return nil, fmt.Errorf("vertex token source: %w", err)
		}
		e.tokenSource = ts
	}
	return e, nil
}

// Embed returns the embedding of one text.
func (e *VertexEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch embeds texts in one predict call.
func (e *VertexEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("no input texts provided")
	}
	instances := make([]vertexInstance, len(texts))
	for i, t := range texts {
		instances[i] = vertexInstance{Content: t}
	}
	body, err := json.Marshal(vertexRequest{Instances: instances})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	return retryWithBackoff(ctx, e.retry, func() ([][]float32, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(body))
		if err != nil {
			return nil, permanent(fmt.Errorf("create request: %w", err))
		}
		req.Header.Set("Content-Type", "application/json")
		token, err := e.tokenSource.Token()
		if err != nil {
			return nil, permanent(fmt.Errorf("vertex token: %w", err))
		}
		token.SetAuthHeader(req)

		resp, err := e.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("send request: %w", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, apiError("vertex", resp)
		}
		var out vertexResponse
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return nil, permanent(fmt.Errorf("decode response: %w", err))
		}
		if len(out.Predictions) != len(texts) {
			return nil, permanent(fmt.Errorf("vertex returned %d predictions for %d inputs", len(out.Predictions), len(texts)))
		}
		vecs := make([][]float32, len(out.Predictions))
		for i, p := range out.Predictions {
			vecs[i] = p.Embeddings.Values
		}
		return vecs, nil
	})
}

// Dimensions returns the reported vector size.
func (e *VertexEmbedder) Dimensions() int {
	return e.dimensions
}

// Close releases idle connections.
func (e *VertexEmbedder) Close() error {
	e.httpClient.CloseIdleConnections()
	return nil
}
