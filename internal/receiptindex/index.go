// Package receiptindex keeps a full-text index of issued receipts in
// Elasticsearch.
package receiptindex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/Skotchmaster/restaurant_orders/internal/domain"
	"github.com/Skotchmaster/restaurant_orders/internal/service"
	"github.com/elastic/go-elasticsearch/v9"
)

const mapping = `{
  "mappings": {
    "properties": {
      "id":             {"type": "keyword"},
      "restaurant_id":  {"type": "keyword"},
      "order_id":       {"type": "keyword"},
      "code":           {"type": "keyword"},
      "table_number":   {"type": "keyword"},
      "payment_method": {"type": "text"},
      "closed_by":      {"type": "text"},
      "closed_at":      {"type": "date"},
      "total":          {"type": "long"},
      "items": {
        "properties": {
          "name":     {"type": "text"},
          "category": {"type": "keyword"},
          "note":     {"type": "text"}
        }
      }
    }
  }
}`

// NewClient connects to Elasticsearch and checks the cluster answers.
func NewClient(ctx context.Context, url, user, password string, log *slog.Logger) (*elasticsearch.Client, error) {
	log.Info("es_connecting", "url", url)

	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{url},
		Username:  user,
		Password:  password,
	})
	if err != nil {
		return nil, fmt.Errorf("es client: %w", err)
	}

	res, err := client.Info(client.Info.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("es info: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("es info: %s: %s", res.Status(), body)
	}

	log.Info("es_connected")
	return client, nil
}

type Index struct {
	es   *elasticsearch.Client
	name string
}

func New(es *elasticsearch.Client, name string) *Index {
	return &Index{es: es, name: name}
}

// Ensure creates the index with its mapping unless it already exists.
func (x *Index) Ensure(ctx context.Context) error {
	res, err := x.es.Indices.Exists([]string{x.name}, x.es.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("%w: index exists: %v", service.ErrExternalService, err)
	}
	res.Body.Close()
	if res.StatusCode == http.StatusOK {
		return nil
	}

	res, err = x.es.Indices.Create(x.name,
		x.es.Indices.Create.WithContext(ctx),
		x.es.Indices.Create.WithBody(bytes.NewReader([]byte(mapping))),
	)
	if err != nil {
		return fmt.Errorf("%w: create index: %v", service.ErrExternalService, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return responseError("create index", res.Status(), res.Body)
	}
	return nil
}

// Put writes r under its id, so indexing the same receipt twice is harmless.
func (x *Index) Put(ctx context.Context, r domain.Receipt) error {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(r); err != nil {
		return fmt.Errorf("encode receipt: %w", err)
	}

	res, err := x.es.Index(x.name, &buf,
		x.es.Index.WithContext(ctx),
		x.es.Index.WithDocumentID(r.ID),
	)
	if err != nil {
		return fmt.Errorf("%w: index receipt: %v", service.ErrExternalService, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return responseError("index receipt", res.Status(), res.Body)
	}
	return nil
}

// Search runs a fuzzy match over the receipts of one restaurant, newest
// first among equal scores.
func (x *Index) Search(ctx context.Context, restaurantID, q string, from, size int) (int64, []domain.Receipt, error) {
	body := map[string]any{
		"query": map[string]any{
			"bool": map[string]any{
				"filter": []any{
					map[string]any{"term": map[string]any{"restaurant_id": restaurantID}},
				},
				"must": map[string]any{
					"multi_match": map[string]any{
						"query":     q,
						"fields":    []string{"code^3", "items.name^2", "table_number", "closed_by", "payment_method", "items.note"},
						"fuzziness": "AUTO",
						"lenient":   true,
					},
				},
			},
		},
		"sort": []any{"_score", map[string]any{"closed_at": "desc"}},
		"from": from,
		"size": size,
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return 0, nil, fmt.Errorf("encode query: %w", err)
	}

	res, err := x.es.Search(
		x.es.Search.WithContext(ctx),
		x.es.Search.WithIndex(x.name),
		x.es.Search.WithBody(&buf),
	)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: search: %v", service.ErrExternalService, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return 0, nil, responseError("search", res.Status(), res.Body)
	}

	var r struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				Source domain.Receipt `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return 0, nil, fmt.Errorf("%w: decode search: %v", service.ErrExternalService, err)
	}

	out := make([]domain.Receipt, len(r.Hits.Hits))
	for i, hit := range r.Hits.Hits {
		out[i] = hit.Source
	}
	return r.Hits.Total.Value, out, nil
}

func responseError(op, status string, body io.Reader) error {
	b, _ := io.ReadAll(io.LimitReader(body, 1024))
	return fmt.Errorf("%w: %s: %s: %s", service.ErrExternalService, op, status, b)
}
