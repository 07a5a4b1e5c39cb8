package embedder

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOllamaServer(t *testing.T, dim int, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/api/embeddings", r.URL.Path)

		var req ollamaRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if req.Prompt == "fail" {
			http.Error(w, "model not loaded", http.StatusInternalServerError)
			return
		}

		emb := make([]float64, dim)
		emb[0] = float64(len(req.Prompt))
		json.NewEncoder(w).Encode(ollamaResponse{Embedding: emb})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOllamaEmbedder_Embed(t *testing.T) {
	var calls atomic.Int32
	srv := newOllamaServer(t, 4, &calls)
	e := NewOllamaEmbedder(OllamaConfig{BaseURL: srv.URL, Model: "test", Dimension: 4})

	v, err := e.Embed(context.Background(), "장학금")
	require.NoError(t, err)
	assert.Equal(t, []float32{9, 0, 0, 0}, v)

	_, err = e.Embed(context.Background(), "fail")
	assert.ErrorContains(t, err, "status 500")
}

func TestOllamaEmbedder_DimensionMismatch(t *testing.T) {
	var calls atomic.Int32
	srv := newOllamaServer(t, 3, &calls)
	e := NewOllamaEmbedder(OllamaConfig{BaseURL: srv.URL, Model: "test", Dimension: 4})

	_, err := e.Embed(context.Background(), "x")
	assert.ErrorContains(t, err, "expected 4")
}

func TestOllamaEmbedder_Defaults(t *testing.T) {
	e := NewOllamaEmbedder(OllamaConfig{})
	assert.Equal(t, DefaultOllamaModel, e.ModelName())
	assert.Equal(t, 1024, e.Dimension())

	e = NewOllamaEmbedder(OllamaConfig{Model: "nomic-embed-text"})
	assert.Equal(t, 768, e.Dimension())
}

func TestOllamaEmbedder_EmbedBatch(t *testing.T) {
	var calls atomic.Int32
	srv := newOllamaServer(t, 2, &calls)
	e := NewOllamaEmbedder(OllamaConfig{BaseURL: srv.URL, Model: "test", Dimension: 2, BatchConcurrency: 2})

	out, err := e.EmbedBatch(context.Background(), []string{"a", "bb", "ccc"})
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, float32(1), out[0][0])
	assert.Equal(t, float32(2), out[1][0])
	assert.Equal(t, float32(3), out[2][0])

	_, err = e.EmbedBatch(context.Background(), []string{"a", "fail"})
	assert.Error(t, err)
}

type countingEmbedder struct {
	calls int
	err   error
}

func (c *countingEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return []float32{float32(len(text))}, nil
}

func (c *countingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := c.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (c *countingEmbedder) Dimension() int    { return 1 }
func (c *countingEmbedder) ModelName() string { return "counting" }

func TestCachedEmbedder(t *testing.T) {
	inner := &countingEmbedder{}
	c, err := NewCachedEmbedder(inner, 2)
	require.NoError(t, err)
	ctx := context.Background()

	v1, err := c.Embed(ctx, "abc")
	require.NoError(t, err)
	v2, err := c.Embed(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, v1, v2)
	assert.Equal(t, 1, inner.calls)

	out, err := c.EmbedBatch(ctx, []string{"abc", "de"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{3}, {2}}, out)
	assert.Equal(t, 2, inner.calls)
	assert.Equal(t, 2, c.Len())

	c.Embed(ctx, "fghi")
	assert.Equal(t, 2, c.Len(), "least recently used entry is evicted")
}

func TestCachedEmbedder_DoesNotCacheFailures(t *testing.T) {
	inner := &countingEmbedder{err: errors.New("ollama down")}
	c, err := NewCachedEmbedder(inner, 0)
	require.NoError(t, err)

	_, err = c.Embed(context.Background(), "abc")
	assert.Error(t, err)
	assert.Equal(t, 0, c.Len())

	inner.err = nil
	v, err := c.Embed(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, []float32{3}, v)
	assert.Equal(t, 2, inner.calls)
}
