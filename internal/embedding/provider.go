package embedding

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/ghostwriter/pkg/utils"
)

const (
	// DefaultMaxInputChars is the longest text sent to the model.
	DefaultMaxInputChars = 8000
	// DefaultTimeout bounds one embedding call.
	DefaultTimeout = 15 * time.Second
	// DefaultBatchSize is the most texts sent to the model in one request.
	DefaultBatchSize = 8
)

// Provider wraps an Embedder with truncation, caching, and a timeout. It never returns an
// error: any failure is logged and reported as an empty vector, which callers treat as
// "embedding unavailable".
type Provider struct {
	embedder      Embedder
	cache         *Cache
	maxInputChars int
	timeout       time.Duration
	batchSize     int
	logger        *zap.Logger
}

// ProviderOption configures a Provider.
type ProviderOption func(*Provider)

// WithCache sets the embedding cache. Without one every call reaches the model.
func WithCache(c *Cache) ProviderOption {
	return func(p *Provider) { p.cache = c }
}

// WithMaxInputChars sets the truncation length in characters.
func WithMaxInputChars(n int) ProviderOption {
	return func(p *Provider) {
		if n > 0 {
			p.maxInputChars = n
		}
	}
}

// WithTimeout bounds each call to the embedder.
func WithTimeout(d time.Duration) ProviderOption {
	return func(p *Provider) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithBatchSize bounds how many texts EmbedBatch sends per request.
func WithBatchSize(n int) ProviderOption {
	return func(p *Provider) {
		if n > 0 {
			p.batchSize = n
		}
	}
}

// WithLogger sets a logger for failures and cache activity.
func WithLogger(l *zap.Logger) ProviderOption {
	return func(p *Provider) {
		if l != nil {
			p.logger = l
		}
	}
}

// NewProvider creates a provider. A nil embedder yields a provider that always returns
// empty vectors, which is how a deployment without an embedding model runs.
func NewProvider(e Embedder, opts ...ProviderOption) *Provider {
	p := &Provider{
		embedder:      e,
		maxInputChars: DefaultMaxInputChars,
		timeout:       DefaultTimeout,
		batchSize:     DefaultBatchSize,
		logger:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Enabled reports whether an embedding model is configured.
func (p *Provider) Enabled() bool {
	return p != nil && p.embedder != nil
}

// Dimensions returns the model's vector size, or 0 when disabled.
func (p *Provider) Dimensions() int {
	if !p.Enabled() {
		return 0
	}
	return p.embedder.Dimensions()
}

// Embed returns the embedding of text, or an empty vector on any failure.
func (p *Provider) Embed(ctx context.Context, text string) []float32 {
	if !p.Enabled() {
		return []float32{}
	}
	text = utils.TruncateRunes(text, p.maxInputChars)
	if p.cache != nil {
		if vec, ok := p.cache.Get(text); ok {
			return vec
		}
	}
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	vec, err := p.embedder.Embed(ctx, text)
	if err != nil {
		p.logger.Warn("embedding failed", zap.Int("chars", len(text)), zap.Error(err))
		return []float32{}
	}
	if len(vec) == 0 {
		return []float32{}
	}
	if p.cache != nil {
		p.cache.Set(text, vec)
	}
	return vec
}

// EmbedBatch embeds texts, answering from the cache where possible and sending the
// rest in requests of at most batchSize texts, each with its own timeout. Items that
// could not be embedded get an empty vector; a failed request only loses its own items.
func (p *Provider) EmbedBatch(ctx context.Context, texts []string) [][]float32 {
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = []float32{}
	}
	if !p.Enabled() || len(texts) == 0 {
		return out
	}
	var missIdx []int
	var missTexts []string
	for i, text := range texts {
		text = utils.TruncateRunes(text, p.maxInputChars)
		if p.cache != nil {
			if vec, ok := p.cache.Get(text); ok {
				out[i] = vec
				continue
			}
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, text)
	}
	for start := 0; start < len(missTexts); start += p.batchSize {
		if ctx.Err() != nil {
			break
		}
		end := min(start+p.batchSize, len(missTexts))
		p.embedBatch(ctx, missTexts[start:end], missIdx[start:end], out)
	}
	return out
}

func (p *Provider) embedBatch(ctx context.Context, texts []string, idx []int, out [][]float32) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	vecs, err := p.embedder.EmbedBatch(ctx, texts)
	if err != nil || len(vecs) != len(texts) {
		p.logger.Warn("batch embedding failed", zap.Int("texts", len(texts)), zap.Int("returned", len(vecs)), zap.Error(err))
		return
	}
	for j, vec := range vecs {
		if len(vec) == 0 {
			continue
		}
		out[idx[j]] = vec
		if p.cache != nil {
			p.cache.Set(texts[j], vec)
		}
	}
}

// Close closes the underlying embedder.
func (p *Provider) Close() error {
	if !p.Enabled() {
		return nil
	}
	return p.embedder.Close()
}
