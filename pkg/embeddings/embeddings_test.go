package embeddings

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/pkg/errors"
	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockProvider implements Provider for testing and counts the texts it embeds.
type MockProvider struct {
	model   EmbeddingModel
	calls   int
	embeds  int
	failing bool
}

func NewMockProvider() *MockProvider {
	return &MockProvider{model: EmbeddingModel{Name: "test-model", Dimensions: 3}}
}

func (m *MockProvider) GenerateEmbedding(_ context.Context, text string) ([]float32, error) {
	m.calls++
	m.embeds++
	if m.failing {
		return nil, errors.New("provider down")
	}
	// predictable embedding based on text length
	return []float32{float32(len(text)), 1.0, 2.0}, nil
}

func (m *MockProvider) GenerateBatchEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	m.calls++
	if m.failing {
		return nil, errors.New("provider down")
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		m.embeds++
		out[i] = []float32{float32(len(t)), 1.0, 2.0}
	}
	return out, nil
}

func (m *MockProvider) GetModel() EmbeddingModel {
	return m.model
}

func TestDiskCacheServesHitsFromDisk(t *testing.T) {
	dir := t.TempDir()
	mock := NewMockProvider()
	p, err := NewDiskCacheProvider(mock, WithDirectory(dir))
	require.NoError(t, err)
	ctx := context.Background()

	first, err := p.GenerateBatchEmbeddings(ctx, []string{"a", "bb", "ccc"})
	require.NoError(t, err)
	assert.Equal(t, 3, mock.embeds)

	second, err := p.GenerateBatchEmbeddings(ctx, []string{"bb", "dddd", "a"})
	require.NoError(t, err)
	assert.Equal(t, 4, mock.embeds, "only the miss is embedded")
	assert.Equal(t, first[1], second[0])
	assert.Equal(t, []float32{4, 1, 2}, second[1])
	assert.Equal(t, first[0], second[2])

	entry, err := p.GetCachedEntry("ccc")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, "ccc", entry.TextPrefix)
}

func TestDiskCacheTreatsCorruptEntriesAsMisses(t *testing.T) {
	dir := t.TempDir()
	mock := NewMockProvider()
	p, err := NewDiskCacheProvider(mock, WithDirectory(dir))
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(p.path("x"), []byte("{not json"), 0644))
	e, err := p.GenerateEmbedding(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 1, 2}, e)
	assert.Equal(t, 1, mock.embeds)
}

func TestDiskCachePrunesAboveMaxEntries(t *testing.T) {
	dir := t.TempDir()
	p, err := NewDiskCacheProvider(NewMockProvider(), WithDirectory(dir), WithMaxEntries(2))
	require.NoError(t, err)

	_, err = p.GenerateBatchEmbeddings(context.Background(), []string{"a", "b", "c", "d"})
	require.NoError(t, err)
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	require.NoError(t, p.ClearCache())
	entries, err = os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestDiskCachePropagatesProviderErrors(t *testing.T) {
	mock := NewMockProvider()
	mock.failing = true
	p, err := NewDiskCacheProvider(mock, WithDirectory(t.TempDir()))
	require.NoError(t, err)
	_, err = p.GenerateEmbedding(context.Background(), "x")
	require.Error(t, err)
}

func TestCachedProviderEvictsLeastRecentlyUsed(t *testing.T) {
	mock := NewMockProvider()
	c := NewCachedProvider(mock, 2)
	ctx := context.Background()

	_, _ = c.GenerateEmbedding(ctx, "a")
	_, _ = c.GenerateEmbedding(ctx, "b")
	_, _ = c.GenerateEmbedding(ctx, "a") // a is now most recent
	_, _ = c.GenerateEmbedding(ctx, "c") // evicts b
	assert.Equal(t, 3, mock.embeds)
	assert.Equal(t, 2, c.Len())

	_, _ = c.GenerateEmbedding(ctx, "a")
	assert.Equal(t, 3, mock.embeds)
	_, _ = c.GenerateEmbedding(ctx, "b")
	assert.Equal(t, 4, mock.embeds)
}

func TestOpenAIProviderOrdersByIndex(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Input []string `json:"input"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		resp := openai.EmbeddingResponse{}
		for i := len(req.Input) - 1; i >= 0; i-- {
			resp.Data = append(resp.Data, openai.Embedding{Index: i, Embedding: []float32{float32(i)}})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	p := NewOpenAIProvider("test", srv.URL, "", 0)
	out, err := p.GenerateBatchEmbeddings(context.Background(), []string{"x", "y", "z"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{0}, {1}, {2}}, out)
	assert.Equal(t, 1536, p.GetModel().Dimensions)
}
