package retrieval

import (
	"context"
	"sort"

	"github.com/pkg/errors"
)

// ErrInvalidK is returned by Search when k < 1.
var ErrInvalidK = errors.New("k must be at least 1")

// Result is one ranked snippet.
type Result struct {
	Name  string  `json:"name,omitempty" yaml:"name,omitempty"`
	Text  string  `json:"text" yaml:"text"`
	Score float64 `json:"score" yaml:"score"`
}

// Document is an indexable unit of text.
type Document struct {
	ID       string            `json:"id" yaml:"id"`
	Name     string            `json:"name" yaml:"name"`
	Text     string            `json:"text" yaml:"text"`
	Metadata map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// Retriever searches the index. Results are sorted by descending score and an
// empty slice means no match.
type Retriever interface {
	Search(ctx context.Context, query string, k int) ([]Result, error)
}

// Indexer writes documents into the index. Documents with a known ID replace
// the previous version.
type Indexer interface {
	Upsert(ctx context.Context, docs []Document) error
}

// Store is a backend that can both search and be populated.
type Store interface {
	Retriever
	Indexer
}

func ValidateK(k int) error {
	if k < 1 {
		return errors.Wrapf(ErrInvalidK, "got %d", k)
	}
	return nil
}

// SortResults orders by descending score, keeping the input order for ties.
func SortResults(rs []Result) {
	sort.SliceStable(rs, func(i, j int) bool { return rs[i].Score > rs[j].Score })
}

// Top returns at most k results.
func Top(rs []Result, k int) []Result {
	if len(rs) > k {
		return rs[:k]
	}
	return rs
}

// Empty is a Retriever over an empty index.
type Empty struct{}

func (Empty) Search(_ context.Context, _ string, k int) ([]Result, error) {
	if err := ValidateK(k); err != nil {
		return nil, err
	}
	return []Result{}, nil
}
