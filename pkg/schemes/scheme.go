package schemes

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/go-go-golems/sevasetu/pkg/retrieval"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const DefaultBatchSize = 50

// DocumentList accepts either a plain string or a list of strings in the
// source file and renders as a comma separated list.
type DocumentList string

func (d *DocumentList) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*d = DocumentList(s)
		return nil
	}
	var l []string
	if err := json.Unmarshal(b, &l); err != nil {
		return errors.New("documents must be a string or a list of strings")
	}
	*d = DocumentList(strings.Join(l, ", "))
	return nil
}

type Scheme struct {
	Name        string       `json:"name" yaml:"name"`
	Description string       `json:"description" yaml:"description"`
	Eligibility string       `json:"eligibility" yaml:"eligibility"`
	Documents   DocumentList `json:"documents" yaml:"documents"`
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// ID is the slug of the scheme name, used as the stable document id.
func (s Scheme) ID() string {
	return strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(s.Name), "-"), "-")
}

func (s Scheme) Text() string {
	return fmt.Sprintf("Scheme: %s. Description: %s Eligibility: %s Documents: %s",
		s.Name, s.Description, s.Eligibility, s.Documents)
}

func (s Scheme) Document() retrieval.Document {
	return retrieval.Document{
		ID:   s.ID(),
		Name: s.Name,
		Text: s.Text(),
		Metadata: map[string]string{
			"name":      s.Name,
			"documents": string(s.Documents),
		},
	}
}

func ParseSchemes(b []byte) ([]Scheme, error) {
	var out []Scheme
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, errors.Wrap(err, "parse schemes")
	}
	for i, s := range out {
		if strings.TrimSpace(s.Name) == "" {
			return nil, errors.Errorf("scheme #%d has no name", i)
		}
	}
	return out, nil
}

func LoadSchemes(path string) ([]Scheme, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	return ParseSchemes(b)
}

// Ingest upserts schemes into the index in batches of batchSize, at most two
// batches in flight. It returns the number of documents written.
func Ingest(ctx context.Context, idx retrieval.Indexer, schemes []Scheme, batchSize int) (int, error) {
	if idx == nil {
		return 0, errors.New("indexer is nil")
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	docs := make([]retrieval.Document, len(schemes))
	for i, s := range schemes {
		docs[i] = s.Document()
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(2)
	for start := 0; start < len(docs); start += batchSize {
		end := start + batchSize
		if end > len(docs) {
			end = len(docs)
		}
		batch := docs[start:end]
		first := start
		eg.Go(func() error {
			if err := idx.Upsert(ctx, batch); err != nil {
				return errors.Wrapf(err, "upsert schemes %d..%d", first, first+len(batch)-1)
			}
			log.Debug().Int("from", first).Int("count", len(batch)).Msg("ingested scheme batch")
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return 0, err
	}
	return len(docs), nil
}
