// Package search keeps published assets in an Elasticsearch index and
// answers full text queries against it.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/elastic/go-elasticsearch/v8"

	"github.com/Skotchmaster/research_repository/internal/models"
)

type Document struct {
	ID          uint       `json:"id"`
	Title       string     `json:"title"`
	Type        string     `json:"type"`
	Summary     string     `json:"summary"`
	Authors     string     `json:"authors"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
}

func FromAsset(a *models.Asset) Document {
	return Document{
		ID:          a.ID,
		Title:       a.Title,
		Type:        string(a.Type),
		Summary:     a.Summary,
		Authors:     a.Authors,
		PublishedAt: a.PublishedAt,
	}
}

type Result struct {
	Total int64      `json:"total"`
	Hits  []Document `json:"hits"`
}

type ES struct {
	Client *elasticsearch.Client
	Index  string
}

func New(client *elasticsearch.Client, index string) *ES {
	return &ES{Client: client, Index: index}
}

const mapping = `{
  "mappings": {
    "properties": {
      "id":           {"type": "long"},
      "title":        {"type": "text"},
      "type":         {"type": "keyword"},
      "summary":      {"type": "text"},
      "authors":      {"type": "text"},
      "published_at": {"type": "date"}
    }
  }
}`

func (s *ES) EnsureIndex(ctx context.Context) error {
	res, err := s.Client.Indices.Exists([]string{s.Index}, s.Client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("search: index exists: %w", err)
	}
	res.Body.Close()
	if res.StatusCode == http.StatusOK {
		return nil
	}

	res, err = s.Client.Indices.Create(s.Index,
		s.Client.Indices.Create.WithContext(ctx),
		s.Client.Indices.Create.WithBody(bytes.NewReader([]byte(mapping))),
	)
	if err != nil {
		return fmt.Errorf("search: create index: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return responseError("create index", res.Status(), res.Body)
	}
	return nil
}

func (s *ES) IndexAsset(ctx context.Context, a *models.Asset) error {
	body, err := json.Marshal(FromAsset(a))
	if err != nil {
		return fmt.Errorf("search: encode: %w", err)
	}
	res, err := s.Client.Index(s.Index, bytes.NewReader(body),
		s.Client.Index.WithContext(ctx),
		s.Client.Index.WithDocumentID(strconv.FormatUint(uint64(a.ID), 10)),
	)
	if err != nil {
		return fmt.Errorf("search: index: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return responseError("index", res.Status(), res.Body)
	}
	return nil
}

// DeleteAsset is a no-op for documents that were never indexed.
func (s *ES) DeleteAsset(ctx context.Context, id uint) error {
	res, err := s.Client.Delete(s.Index, strconv.FormatUint(uint64(id), 10),
		s.Client.Delete.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("search: delete: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return responseError("delete", res.Status(), res.Body)
	}
	return nil
}

func (s *ES) Search(ctx context.Context, query string, from, size int) (*Result, error) {
	body := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":     query,
				"fields":    []string{"title^2", "summary", "authors"},
				"fuzziness": "AUTO",
			},
		},
		"from": from,
		"size": size,
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, fmt.Errorf("search: encode query: %w", err)
	}

	res, err := s.Client.Search(
		s.Client.Search.WithContext(ctx),
		s.Client.Search.WithIndex(s.Index),
		s.Client.Search.WithBody(&buf),
	)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, responseError("search", res.Status(), res.Body)
	}

	var r struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				Source Document `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, fmt.Errorf("search: decode: %w", err)
	}

	docs := make([]Document, len(r.Hits.Hits))
	for i, hit := range r.Hits.Hits {
		docs[i] = hit.Source
	}
	return &Result{Total: r.Hits.Total.Value, Hits: docs}, nil
}

func responseError(op, status string, body io.Reader) error {
	b, _ := io.ReadAll(io.LimitReader(body, 1024))
	return fmt.Errorf("search: %s: %s: %s", op, status, b)
}
