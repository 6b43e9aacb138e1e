package search

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/research_repository/internal/models"
)

type captured struct {
	method, path string
	body         []byte
}

func fakeES(t *testing.T, status int, reply string) (*ES, *[]captured) {
	t.Helper()
	var calls []captured
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		calls = append(calls, captured{r.Method, r.URL.Path, b})
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(reply))
	}))
	t.Cleanup(srv.Close)

	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)
	return New(client, "assets"), &calls
}

func TestIndexAsset(t *testing.T) {
	s, calls := fakeES(t, http.StatusCreated, `{"result":"created"}`)

	err := s.IndexAsset(context.Background(), &models.Asset{ID: 9, Title: "Soil study", Type: models.AssetStudy})
	require.NoError(t, err)

	require.Len(t, *calls, 1)
	c := (*calls)[0]
	assert.Equal(t, "/assets/_doc/9", c.path)
	var doc Document
	require.NoError(t, json.Unmarshal(c.body, &doc))
	assert.Equal(t, "Soil study", doc.Title)
	assert.Equal(t, "study", doc.Type)
}

func TestDeleteAsset_NotFoundIgnored(t *testing.T) {
	s, _ := fakeES(t, http.StatusNotFound, `{"result":"not_found"}`)
	assert.NoError(t, s.DeleteAsset(context.Background(), 3))
}

func TestSearch_DecodesHits(t *testing.T) {
	s, calls := fakeES(t, http.StatusOK, `{
	  "hits": {
	    "total": {"value": 1},
	    "hits": [{"_source": {"id": 4, "title": "Rainfall report", "type": "report"}}]
	  }
	}`)

	res, err := s.Search(context.Background(), "rain", 0, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Total)
	require.Len(t, res.Hits, 1)
	assert.Equal(t, uint(4), res.Hits[0].ID)
	assert.Equal(t, "/assets/_search", (*calls)[0].path)
	assert.Contains(t, string((*calls)[0].body), `"rain"`)
}

func TestSearch_ErrorStatus(t *testing.T) {
	s, _ := fakeES(t, http.StatusBadRequest, `{"error":"bad"}`)
	_, err := s.Search(context.Background(), "x", 0, 10)
	require.Error(t, err)
}
