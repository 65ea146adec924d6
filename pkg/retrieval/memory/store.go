package memory

import (
	"context"
	"math"
	"sync"

	"github.com/go-go-golems/sevasetu/pkg/embeddings"
	"github.com/go-go-golems/sevasetu/pkg/retrieval"
	"github.com/pkg/errors"
)

type entry struct {
	doc    retrieval.Document
	vector []float32
}

// Store is an in-process vector index ranking by cosine similarity.
// Ties keep insertion order, so identical queries always rank identically.
type Store struct {
	provider embeddings.Provider

	mu      sync.RWMutex
	entries []entry
	byID    map[string]int
}

var _ retrieval.Store = (*Store)(nil)

func NewStore(provider embeddings.Provider) *Store {
	return &Store{provider: provider, byID: map[string]int{}}
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *Store) Upsert(ctx context.Context, docs []retrieval.Document) error {
	if len(docs) == 0 {
		return nil
	}
	texts := make([]string, len(docs))
	for i, d := range docs {
		if d.ID == "" {
			return errors.Errorf("document %q has no id", d.Name)
		}
		texts[i] = d.Text
	}
	vectors, err := s.provider.GenerateBatchEmbeddings(ctx, texts)
	if err != nil {
		return errors.Wrap(err, "embed documents")
	}
	if len(vectors) != len(docs) {
		return errors.Errorf("got %d vectors for %d documents", len(vectors), len(docs))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, d := range docs {
		e := entry{doc: d, vector: vectors[i]}
		if idx, ok := s.byID[d.ID]; ok {
			s.entries[idx] = e
			continue
		}
		s.byID[d.ID] = len(s.entries)
		s.entries = append(s.entries, e)
	}
	return nil
}

func (s *Store) Search(ctx context.Context, query string, k int) ([]retrieval.Result, error) {
	if err := retrieval.ValidateK(k); err != nil {
		return nil, err
	}
	s.mu.RLock()
	empty := len(s.entries) == 0
	s.mu.RUnlock()
	if empty {
		return []retrieval.Result{}, nil
	}

	qv, err := s.provider.GenerateEmbedding(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, "embed query")
	}

	s.mu.RLock()
	results := make([]retrieval.Result, 0, len(s.entries))
	for _, e := range s.entries {
		results = append(results, retrieval.Result{
			Name:  e.doc.Name,
			Text:  e.doc.Text,
			Score: Cosine(qv, e.vector),
		})
	}
	s.mu.RUnlock()

	retrieval.SortResults(results)
	return retrieval.Top(results, k), nil
}

// Cosine returns the cosine similarity of a and b, or 0 when either is a zero
// vector or their lengths differ.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
