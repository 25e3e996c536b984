package history

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "smart-dealer/internal/common/errors"
	"smart-dealer/internal/models"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *elasticsearch.Client {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		handler(w, r)
	}))
	t.Cleanup(server.Close)

	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{server.URL}})
	require.NoError(t, err)
	return client
}

func TestESRecorder_Record(t *testing.T) {
	var (
		path string
		doc  Record
	)
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &doc)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"result":"created","_id":"s-1"}`))
	})

	rec := NewESRecorder(client, "")
	assert.Equal(t, DefaultIndex, rec.Index())

	err := rec.Record(context.Background(), Record{
		SearchID:          "s-1",
		Category:          models.CategoryFood,
		Query:             "pizza",
		Status:            "completed",
		ResultCount:       3,
		BestPlatform:      models.PlatformGrubhub,
		BestTotal:         12.5,
		SearchTimeMs:      42,
		AdaptersSucceeded: []string{"grubhub", "doordash"},
		AdaptersFailed:    []string{"postmates"},
		CreatedAt:         time.Now().UTC(),
	})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(path, "/dealer-searches/_doc/s-1"), path)
	assert.Equal(t, "s-1", doc.SearchID)
	assert.Equal(t, models.PlatformGrubhub, doc.BestPlatform)
	assert.Equal(t, []string{"postmates"}, doc.AdaptersFailed)
}

func TestESRecorder_ServerError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"type":"mapper_parsing_exception"}}`))
	})

	err := NewESRecorder(client, "archive").Record(context.Background(), Record{SearchID: "s-2"})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeArchiveFailed, apperrors.CodeOf(err))
}
