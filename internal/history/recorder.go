// Package history archives completed searches to Elasticsearch.
package history

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/elastic/go-elasticsearch/v8"

	apperrors "smart-dealer/internal/common/errors"
	"smart-dealer/internal/models"
)

const DefaultIndex = "dealer-searches"

// Record summarizes one search.
type Record struct {
	SearchID          string          `json:"search_id"`
	Category          models.Category `json:"category"`
	Query             string          `json:"query"`
	UserID            string          `json:"user_id,omitempty"`
	Status            string          `json:"status"`
	ResultCount       int             `json:"result_count"`
	BestPlatform      models.Platform `json:"best_platform,omitempty"`
	BestTotal         float64         `json:"best_total,omitempty"`
	SearchTimeMs      int64           `json:"search_time_ms"`
	AdaptersSucceeded []string        `json:"adapters_succeeded"`
	AdaptersFailed    []string        `json:"adapters_failed"`
	CacheHits         int             `json:"cache_hits"`
	DealsApplied      []string        `json:"deals_applied"`
	CreatedAt         time.Time       `json:"created_at"`
}

// Recorder stores search records.
type Recorder interface {
	Record(ctx context.Context, r Record) error
}

// ESRecorder indexes one document per search, keyed by search id.
type ESRecorder struct {
	client *elasticsearch.Client
	index  string
}

func NewESRecorder(client *elasticsearch.Client, index string) *ESRecorder {
	if index == "" {
		index = DefaultIndex
	}
	return &ESRecorder{client: client, index: index}
}

func (r *ESRecorder) Index() string { return r.index }

func (r *ESRecorder) Record(ctx context.Context, rec Record) error {
	body, err := json.Marshal(rec)
	if err != nil {
		return apperrors.NewArchiveError(err)
	}

	res, err := r.client.Index(r.index, bytes.NewReader(body),
		r.client.Index.WithContext(ctx),
		r.client.Index.WithDocumentID(rec.SearchID),
	)
	if err != nil {
		return apperrors.NewArchiveError(err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return apperrors.NewArchiveError(fmt.Errorf("index %s: %s", r.index, res.Status()))
	}
	return nil
}
