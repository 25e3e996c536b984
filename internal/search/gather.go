package search

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"smart-dealer/internal/adapters"
	"smart-dealer/internal/cache"
	apperrors "smart-dealer/internal/common/errors"
	"smart-dealer/internal/common/logger"
	"smart-dealer/internal/common/metrics"
	"smart-dealer/internal/models"
)

// gathered is the output slot of one adapter task.
type gathered struct {
	report AdapterReport
	offers []models.Offer
}

type attempt struct {
	offers []models.Offer
	err    error
}

// gather runs one task per adapter and waits for all of them to settle. A
// cancelled ctx stops the wait immediately; tasks still in flight finish in
// the background and cache what they get.
func (o *Orchestrator) gather(ctx context.Context, intent models.SearchIntent, targets []adapters.Adapter, log logger.Logger) ([]gathered, error) {
	out := make([]gathered, len(targets))

	// background is held for every task before gather can return, so the
	// detached adapter calls register with it while the count is positive.
	var wg sync.WaitGroup
	for i, a := range targets {
		wg.Add(1)
		o.background.Add(1)
		go func(i int, a adapters.Adapter) {
			defer o.background.Done()
			defer wg.Done()
			out[i] = o.call(ctx, intent, a, log)
		}(i, a)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return out, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// call serves one adapter from cache or queries it under the per-adapter
// deadline. The query runs detached from ctx so a result that lands after the
// search is abandoned still reaches the cache.
func (o *Orchestrator) call(ctx context.Context, intent models.SearchIntent, a adapters.Adapter, log logger.Logger) gathered {
	platform := a.Platform()
	start := time.Now()
	key := cache.Key(platform, intent)

	ctx, span := o.obs.Tracer().Start(ctx, "adapter",
		trace.WithAttributes(attribute.String("platform", string(platform))))
	defer span.End()

	if offers, ok := o.cache.Lookup(ctx, key); ok {
		g := gathered{
			report: AdapterReport{Platform: platform, Outcome: OutcomeCached, Offers: len(offers)},
			offers: offers,
		}
		o.observeAdapter(ctx, &g.report, start)
		return g
	}

	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.adapterTimeout)
	results := make(chan attempt, 1)

	// The enclosing task still holds a background count, so this Add never
	// starts from zero while Wait may be running.
	o.background.Add(1)
	go func() {
		defer o.background.Done()
		defer cancel()

		offers, err := a.Search(callCtx, intent)
		if err != nil {
			results <- attempt{err: err}
			return
		}
		offers = o.normalize(platform, intent.Category, offers, log)
		results <- attempt{offers: offers}

		saveCtx, done := context.WithTimeout(context.WithoutCancel(ctx), sinkTimeout)
		defer done()
		o.cache.Save(saveCtx, key, offers)
	}()

	g := gathered{report: AdapterReport{Platform: platform}}
	o.await(ctx, callCtx, results, &g)

	o.observeAdapter(ctx, &g.report, start)
	span.SetAttributes(attribute.String("outcome", g.report.Outcome))
	if !g.report.succeeded() && g.report.Error != "" {
		span.SetStatus(codes.Error, g.report.Error)
	}
	if !g.report.succeeded() && g.report.Outcome != OutcomeCancelled {
		log.Warn("adapter excluded from search", map[string]interface{}{
			"platform": string(platform),
			"outcome":  g.report.Outcome,
			"error":    g.report.Error,
		})
	}
	return g
}

// await fills g from whichever comes first: the adapter's answer, its
// deadline or the search's cancellation. An answer that is already waiting
// when the deadline fires still counts.
func (o *Orchestrator) await(ctx, callCtx context.Context, results <-chan attempt, g *gathered) {
	select {
	case res := <-results:
		o.settle(g, res)
	case <-callCtx.Done():
		select {
		case res := <-results:
			o.settle(g, res)
		default:
			g.report.Outcome = OutcomeTimeout
			g.report.Error = apperrors.NewAdapterTimeoutError(string(g.report.Platform), o.adapterTimeout).Error()
		}
	case <-ctx.Done():
		g.report.Outcome = OutcomeCancelled
		g.report.Error = ctx.Err().Error()
	}
}

// settle records what a finished adapter call returned.
func (o *Orchestrator) settle(g *gathered, res attempt) {
	switch {
	case res.err == nil:
		g.report.Outcome = OutcomeOK
		g.report.Offers = len(res.offers)
		g.offers = res.offers
	case errors.Is(res.err, context.DeadlineExceeded):
		g.report.Outcome = OutcomeTimeout
		g.report.Error = apperrors.NewAdapterTimeoutError(string(g.report.Platform), o.adapterTimeout).Error()
	default:
		g.report.Outcome = OutcomeError
		g.report.Error = res.err.Error()
	}
}

// normalize drops offers that break the offer invariants and reconciles the
// rest so every total matches its fee breakdown.
func (o *Orchestrator) normalize(platform models.Platform, category models.Category, offers []models.Offer, log logger.Logger) []models.Offer {
	out := make([]models.Offer, 0, len(offers))
	for _, offer := range offers {
		if offer.Platform == "" {
			offer.Platform = platform
		}
		if offer.Category == "" {
			offer.Category = category
		}
		if err := offer.Validate(); err != nil {
			log.Warn("dropping invalid offer", map[string]interface{}{
				"platform": string(platform),
				"error":    err.Error(),
			})
			continue
		}
		offer = offer.Reconcile()
		out = append(out, offer)
	}
	return out
}

func (o *Orchestrator) observeAdapter(ctx context.Context, r *AdapterReport, start time.Time) {
	elapsed := time.Since(start)
	r.DurationMs = elapsed.Milliseconds()

	metrics.AdapterCalls.WithLabelValues(string(r.Platform), r.Outcome).Inc()
	metrics.AdapterDuration.WithLabelValues(string(r.Platform)).Observe(elapsed.Seconds())
	switch r.Outcome {
	case OutcomeError:
		metrics.ErrorsTotal.WithLabelValues("ADAPTER", string(apperrors.ErrCodeAdapterFailed)).Inc()
	case OutcomeTimeout:
		metrics.ErrorsTotal.WithLabelValues("ADAPTER", string(apperrors.ErrCodeAdapterTimeout)).Inc()
	}
	o.obs.RecordAdapter(ctx, string(r.Platform), r.Outcome)
}
