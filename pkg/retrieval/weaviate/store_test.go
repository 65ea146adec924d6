package weaviate

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-go-golems/sevasetu/pkg/embeddings"
	"github.com/go-go-golems/sevasetu/pkg/retrieval"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/weaviate/weaviate/entities/models"
)

type constProvider struct{}

func (constProvider) GenerateEmbedding(context.Context, string) ([]float32, error) {
	return []float32{0.1, 0.2, 0.3}, nil
}

func (c constProvider) GenerateBatchEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i], _ = c.GenerateEmbedding(ctx, texts[i])
	}
	return out, nil
}

func (constProvider) GetModel() embeddings.EmbeddingModel {
	return embeddings.EmbeddingModel{Name: "const", Dimensions: 3}
}

func TestParseGetResponse(t *testing.T) {
	var resp models.GraphQLResponse
	require.NoError(t, json.Unmarshal([]byte(`{
		"data": {"Get": {"Scheme": [
			{"name": "PMKVY", "text": "Scheme: PMKVY. Description: skills", "_additional": {"certainty": 0.91}},
			{"name": "Empty", "text": "", "_additional": {"certainty": 0.95}},
			{"name": "PM Kisan", "text": "Scheme: PM Kisan. Description: farmers", "_additional": {"certainty": 0.72}}
		]}}
	}`), &resp))

	res, err := parseGetResponse(&resp, "Scheme")
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.Equal(t, "PMKVY", res[0].Name)
	assert.InDelta(t, 0.91, res[0].Score, 1e-9)
	assert.Equal(t, "Scheme: PM Kisan. Description: farmers", res[1].Text)
}

func TestParseGetResponseEdgeCases(t *testing.T) {
	res, err := parseGetResponse(nil, "Scheme")
	require.NoError(t, err)
	assert.Empty(t, res)

	res, err = parseGetResponse(&models.GraphQLResponse{Data: map[string]models.JSONObject{
		"Get": map[string]interface{}{"Scheme": nil},
	}}, "Scheme")
	require.NoError(t, err)
	assert.NotNil(t, res)
	assert.Empty(t, res)

	_, err = parseGetResponse(&models.GraphQLResponse{Errors: []*models.GraphQLError{{Message: "no such class"}}}, "Scheme")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no such class")
}

func TestObjectIDIsStable(t *testing.T) {
	a := ObjectID("Scheme", "pm-kisan")
	assert.Equal(t, a, ObjectID("Scheme", "pm-kisan"))
	assert.NotEqual(t, a, ObjectID("Scheme", "pmkvy"))
	assert.NotEqual(t, a, ObjectID("Other", "pm-kisan"))
}

func TestClassDefinition(t *testing.T) {
	c := classDefinition("Scheme")
	assert.Equal(t, "none", c.Vectorizer)
	require.Len(t, c.Properties, 3)
	assert.Equal(t, propText, c.Properties[1].Name)
}

func TestSearchAgainstFakeServer(t *testing.T) {
	var query string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/graphql") {
			http.NotFound(w, r)
			return
		}
		var body struct {
			Query string `json:"query"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		query = body.Query
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"Get":{"Scheme":[
			{"name":"B","text":"second","_additional":{"certainty":0.5}},
			{"name":"A","text":"first","_additional":{"certainty":0.9}}
		]}}}`))
	}))
	defer srv.Close()

	s, err := NewStore(Config{Host: strings.TrimPrefix(srv.URL, "http://"), Scheme: "http", Class: "Scheme"}, constProvider{})
	require.NoError(t, err)

	res, err := s.Search(context.Background(), "farmer", 1)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "A", res[0].Name)
	assert.Contains(t, query, "nearVector")

	_, err = s.Search(context.Background(), "farmer", 0)
	assert.ErrorIs(t, err, retrieval.ErrInvalidK)
}

func TestClassName(t *testing.T) {
	assert.Equal(t, "Scheme", ClassName("scheme"))
	assert.Equal(t, "Scheme", ClassName("Scheme"))
	assert.Equal(t, "GovScheme", ClassName(" govScheme "))
	assert.Equal(t, "", ClassName("  "))
}

func TestSearchWithLowercaseClass(t *testing.T) {
	var query string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Query string `json:"query"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		query = body.Query
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"Get":{"Scheme":[
			{"name":"A","text":"first","_additional":{"certainty":0.9}}
		]}}}`))
	}))
	defer srv.Close()

	s, err := NewStore(Config{Host: strings.TrimPrefix(srv.URL, "http://"), Scheme: "http", Class: "scheme"}, constProvider{})
	require.NoError(t, err)

	res, err := s.Search(context.Background(), "farmer", 3)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "first", res[0].Text)
	assert.Contains(t, query, "Scheme")

	_, err = NewStore(Config{Host: "localhost:8080", Class: " "}, constProvider{})
	assert.Error(t, err)
}
