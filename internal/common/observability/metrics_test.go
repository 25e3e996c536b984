package observability

import (
	"context"
	"testing"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestObservability_RecordsSearchAndSpans(t *testing.T) {
	reg := promclient.NewRegistry()
	recorder := tracetest.NewSpanRecorder()

	obs, err := New("dealer-test", WithRegisterer(reg), WithSpanProcessor(recorder))
	require.NoError(t, err)
	defer obs.Shutdown()

	ctx, span := obs.Tracer().Start(context.Background(), "search")
	obs.RecordSearch(ctx, "food", "completed", 120*time.Millisecond)
	obs.RecordAdapter(ctx, "doordash", "success")
	span.End()

	families, err := reg.Gather()
	require.NoError(t, err)

	joined := ""
	for _, f := range families {
		joined += f.GetName() + " "
	}
	assert.Contains(t, joined, "searches_processed")
	assert.Contains(t, joined, "adapters_results")
	assert.Contains(t, joined, "searches_duration")
	assert.NotContains(t, joined, "searches.processed")

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "search", ended[0].Name())
}

func TestObservability_ZeroValueIsSafe(t *testing.T) {
	var obs *Observability
	assert.NotPanics(t, func() {
		obs.RecordSearch(context.Background(), "food", "failed", time.Second)
		obs.RecordAdapter(context.Background(), "uber", "timeout")
		_, span := obs.Tracer().Start(context.Background(), "noop")
		span.End()
		obs.Shutdown()
	})
}
