package embeddings

import (
	"context"

	genai "github.com/google/generative-ai-go/genai"
	"github.com/pkg/errors"
	"google.golang.org/api/option"
)

// geminiBatchLimit is the maximum number of contents per batchEmbedContents call.
const geminiBatchLimit = 100

type GeminiProvider struct {
	client     *genai.Client
	model      string
	dimensions int
}

var _ Provider = &GeminiProvider{}

func NewGeminiProvider(ctx context.Context, apiKey string, model string, dimensions int) (*GeminiProvider, error) {
	if model == "" {
		model = "text-embedding-004"
	}
	if dimensions <= 0 {
		dimensions = 768
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create gemini client")
	}
	return &GeminiProvider{client: client, model: model, dimensions: dimensions}, nil
}

func (p *GeminiProvider) Close() error {
	return p.client.Close()
}

func (p *GeminiProvider) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	res, err := p.client.EmbeddingModel(p.model).EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, errors.Wrap(err, "gemini embed content")
	}
	if res == nil || res.Embedding == nil {
		return nil, errors.New("no embedding data received from gemini")
	}
	return res.Embedding.Values, nil
}

func (p *GeminiProvider) GenerateBatchEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	em := p.client.EmbeddingModel(p.model)
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += geminiBatchLimit {
		end := start + geminiBatchLimit
		if end > len(texts) {
			end = len(texts)
		}
		b := em.NewBatch()
		for _, t := range texts[start:end] {
			b = b.AddContent(genai.Text(t))
		}
		res, err := em.BatchEmbedContents(ctx, b)
		if err != nil {
			return nil, errors.Wrap(err, "gemini batch embed contents")
		}
		if len(res.Embeddings) != end-start {
			return nil, errors.Errorf("gemini returned %d embeddings for %d inputs", len(res.Embeddings), end-start)
		}
		for _, e := range res.Embeddings {
			out = append(out, e.Values)
		}
	}
	return out, nil
}

func (p *GeminiProvider) GetModel() EmbeddingModel {
	return EmbeddingModel{Name: p.model, Dimensions: p.dimensions}
}
