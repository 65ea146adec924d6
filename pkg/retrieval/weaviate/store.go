package weaviate

import (
	"context"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/go-go-golems/sevasetu/pkg/embeddings"
	"github.com/go-go-golems/sevasetu/pkg/retrieval"
	"github.com/go-openapi/strfmt"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/weaviate/weaviate-go-client/v4/weaviate"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/auth"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"
)

const (
	propName      = "name"
	propText      = "text"
	propDocuments = "documents"
)

// Config locates the Weaviate instance and class.
type Config struct {
	Host   string
	Scheme string
	APIKey string
	Class  string
}

// Store keeps scheme documents in a Weaviate class with externally computed
// vectors and searches it with nearVector queries.
type Store struct {
	client   *weaviate.Client
	class    string
	provider embeddings.Provider
}

var _ retrieval.Store = (*Store)(nil)

func NewStore(cfg Config, provider embeddings.Provider) (*Store, error) {
	class := ClassName(cfg.Class)
	if class == "" {
		return nil, errors.New("weaviate class is required")
	}
	wcfg := weaviate.Config{Host: cfg.Host, Scheme: cfg.Scheme}
	if wcfg.Scheme == "" {
		wcfg.Scheme = "http"
	}
	if cfg.APIKey != "" {
		wcfg.AuthConfig = auth.ApiKey{Value: cfg.APIKey}
	}
	client, err := weaviate.NewClient(wcfg)
	if err != nil {
		return nil, errors.Wrap(err, "create weaviate client")
	}
	return &Store{client: client, class: class, provider: provider}, nil
}

// ClassName returns the class name the way Weaviate stores it, with the first
// letter upper-cased. Responses are keyed by that form.
func ClassName(class string) string {
	class = strings.TrimSpace(class)
	r, size := utf8.DecodeRuneInString(class)
	if size == 0 {
		return ""
	}
	return string(unicode.ToUpper(r)) + class[size:]
}

// EnsureClass creates the class with vectorizer "none" when it does not exist yet.
func (s *Store) EnsureClass(ctx context.Context) error {
	exists, err := s.client.Schema().ClassExistenceChecker().WithClassName(s.class).Do(ctx)
	if err != nil {
		return errors.Wrapf(err, "check class %s", s.class)
	}
	if exists {
		return nil
	}
	err = s.client.Schema().ClassCreator().WithClass(classDefinition(s.class)).Do(ctx)
	if err != nil {
		return errors.Wrapf(err, "create class %s", s.class)
	}
	log.Info().Str("class", s.class).Msg("created weaviate class")
	return nil
}

func classDefinition(class string) *models.Class {
	return &models.Class{
		Class:       class,
		Description: "Government scheme documents",
		Vectorizer:  "none",
		Properties: []*models.Property{
			{Name: propName, DataType: []string{"text"}},
			{Name: propText, DataType: []string{"text"}},
			{Name: propDocuments, DataType: []string{"text"}},
		},
	}
}

// ObjectID derives a stable object id so re-ingesting a document overwrites it.
func ObjectID(class string, docID string) strfmt.UUID {
	return strfmt.UUID(uuid.NewSHA1(uuid.NameSpaceURL, []byte(class+"/"+docID)).String())
}

func (s *Store) Upsert(ctx context.Context, docs []retrieval.Document) error {
	if len(docs) == 0 {
		return nil
	}
	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Text
	}
	vectors, err := s.provider.GenerateBatchEmbeddings(ctx, texts)
	if err != nil {
		return errors.Wrap(err, "embed documents")
	}
	if len(vectors) != len(docs) {
		return errors.Errorf("got %d vectors for %d documents", len(vectors), len(docs))
	}

	batcher := s.client.Batch().ObjectsBatcher()
	for i, d := range docs {
		batcher = batcher.WithObjects(&models.Object{
			Class: s.class,
			ID:    ObjectID(s.class, d.ID),
			Properties: map[string]interface{}{
				propName:      d.Name,
				propText:      d.Text,
				propDocuments: d.Metadata[propDocuments],
			},
			Vector: vectors[i],
		})
	}
	resp, err := batcher.Do(ctx)
	if err != nil {
		return errors.Wrap(err, "batch objects")
	}

	var failures []string
	for _, r := range resp {
		if r.Result == nil || r.Result.Errors == nil {
			continue
		}
		for _, e := range r.Result.Errors.Error {
			if e != nil {
				failures = append(failures, e.Message)
			}
		}
	}
	if len(failures) > 0 {
		return errors.Errorf("weaviate rejected %d objects: %s", len(failures), strings.Join(failures, "; "))
	}
	return nil
}

func (s *Store) Search(ctx context.Context, query string, k int) ([]retrieval.Result, error) {
	if err := retrieval.ValidateK(k); err != nil {
		return nil, err
	}
	vec, err := s.provider.GenerateEmbedding(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, "embed query")
	}

	fields := []graphql.Field{
		{Name: propName},
		{Name: propText},
		{Name: "_additional", Fields: []graphql.Field{{Name: "certainty"}}},
	}
	nearVector := s.client.GraphQL().NearVectorArgBuilder().WithVector(vec)
	resp, err := s.client.GraphQL().Get().
		WithClassName(s.class).
		WithFields(fields...).
		WithNearVector(nearVector).
		WithLimit(k).
		Do(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "weaviate nearVector query")
	}
	results, err := parseGetResponse(resp, s.class)
	if err != nil {
		return nil, err
	}
	retrieval.SortResults(results)
	return retrieval.Top(results, k), nil
}

// parseGetResponse extracts results from a GraphQL Get response.
func parseGetResponse(resp *models.GraphQLResponse, class string) ([]retrieval.Result, error) {
	results := []retrieval.Result{}
	if resp == nil {
		return results, nil
	}
	if len(resp.Errors) > 0 {
		msgs := make([]string, 0, len(resp.Errors))
		for _, e := range resp.Errors {
			if e != nil {
				msgs = append(msgs, e.Message)
			}
		}
		return nil, errors.Errorf("weaviate query failed: %s", strings.Join(msgs, "; "))
	}

	get, ok := resp.Data["Get"].(map[string]interface{})
	if !ok {
		return results, nil
	}
	objects, ok := get[class].([]interface{})
	if !ok {
		return results, nil
	}
	for _, o := range objects {
		obj, ok := o.(map[string]interface{})
		if !ok {
			continue
		}
		r := retrieval.Result{}
		r.Name, _ = obj[propName].(string)
		r.Text, _ = obj[propText].(string)
		if add, ok := obj["_additional"].(map[string]interface{}); ok {
			if c, ok := add["certainty"].(float64); ok {
				r.Score = c
			}
		}
		if r.Text == "" {
			continue
		}
		results = append(results, r)
	}
	return results, nil
}
