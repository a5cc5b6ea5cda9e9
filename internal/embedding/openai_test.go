package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func fastRetry() RetryConfig {
	return RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, Multiplier: 2}
}

func TestOpenAIEmbedder_EmbedBatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		var req openAIRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "text-embedding-3-small", req.Model)
		assert.Equal(t, []string{"one", "two"}, req.Input)
		// reversed order to check index mapping
		_, _ = w.Write([]byte(`{"data":[{"embedding":[0,2],"index":1},{"embedding":[1,0],"index":0}],"usage":{"total_tokens":4}}`))
	}))
	defer srv.Close()

	e, err := NewOpenAIEmbedder("sk-test", "", WithBaseURL(srv.URL+"/v1/"), WithRetry(fastRetry()))
	require.NoError(t, err)
	vecs, err := e.EmbedBatch(context.Background(), []string{"one", "two"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1, 0}, {0, 2}}, vecs)
	assert.Equal(t, defaultOpenAIDimensions, e.Dimensions())
}

func TestOpenAIEmbedder_RetriesServerErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"data":[{"embedding":[0.5],"index":0}]}`))
	}))
	defer srv.Close()

	e, err := NewOpenAIEmbedder("sk-test", "m", WithBaseURL(srv.URL), WithRetry(fastRetry()))
	require.NoError(t, err)
	vec, err := e.Embed(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5}, vec)
	assert.Equal(t, int32(3), hits.Load())
}

func TestOpenAIEmbedder_ClientErrorIsPermanent(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, `{"error":{"message":"bad key"}}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	e, err := NewOpenAIEmbedder("sk-test", "m", WithBaseURL(srv.URL), WithRetry(fastRetry()))
	require.NoError(t, err)
	_, err = e.Embed(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
	assert.Equal(t, int32(1), hits.Load())
}

func TestOpenAIEmbedder_RequiresKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	_, err := NewOpenAIEmbedder("", "")
	assert.Error(t, err)
}

func TestVertexEmbedder_EmbedBatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer vertex-token", r.Header.Get("Authorization"))
		var req vertexRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Instances, 2)
		assert.Equal(t, "b", req.Instances[1].Content)
		_, _ = w.Write([]byte(`{"predictions":[{"embeddings":{"values":[1,2]}},{"embeddings":{"values":[3,4]}}]}`))
	}))
	defer srv.Close()

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "vertex-token", TokenType: "Bearer"})
	e, err := NewVertexEmbedder(context.Background(), "proj", "", WithEndpoint(srv.URL), WithTokenSource(ts))
	require.NoError(t, err)
	vecs, err := e.EmbedBatch(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1, 2}, {3, 4}}, vecs)
	assert.Equal(t, defaultVertexDimensions, e.Dimensions())
}

func TestVertexEmbedder_PredictionCountMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"predictions":[]}`))
	}))
	defer srv.Close()

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "t"})
	e, err := NewVertexEmbedder(context.Background(), "proj", "", WithEndpoint(srv.URL), WithTokenSource(ts))
	require.NoError(t, err)
	_, err = e.Embed(context.Background(), "a")
	assert.Error(t, err)
}
