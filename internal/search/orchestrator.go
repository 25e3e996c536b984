// Package search coordinates one price comparison: it fans the intent out to
// every platform adapter of the category, gathers what comes back within the
// per-adapter deadline, applies deals, filters by the intent's constraints and
// ranks the survivors.
package search

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"smart-dealer/internal/adapters"
	"smart-dealer/internal/cache"
	apperrors "smart-dealer/internal/common/errors"
	"smart-dealer/internal/common/logger"
	"smart-dealer/internal/common/metrics"
	"smart-dealer/internal/common/observability"
	"smart-dealer/internal/deals"
	"smart-dealer/internal/history"
	"smart-dealer/internal/models"
	"smart-dealer/internal/notify"
	"smart-dealer/internal/profile"
	"smart-dealer/internal/ranking"
)

const (
	DefaultAdapterTimeout = 5 * time.Second
	DefaultSurgeThreshold = 1.5

	sinkTimeout = 5 * time.Second
)

// Emitter accepts events for asynchronous delivery.
type Emitter interface {
	Emit(events ...notify.Event)
}

type Config struct {
	AdapterTimeout time.Duration
	SurgeThreshold float64
	// MaxResults applies when the intent does not ask for a size.
	MaxResults int
}

// Dependencies are the collaborators of the orchestrator. Registry is
// required; nil Cache, Deals, Profiles, Events, Archive and Observability
// switch the matching step off.
type Dependencies struct {
	Registry      *adapters.Registry
	Cache         *cache.OfferCache
	Deals         deals.Source
	Evaluator     *deals.Evaluator
	Ranker        *ranking.Engine
	Profiles      profile.Store
	Events        Emitter
	Archive       history.Recorder
	Observability *observability.Observability
	Logger        logger.Logger
}

type Orchestrator struct {
	registry  *adapters.Registry
	cache     *cache.OfferCache
	deals     deals.Source
	evaluator *deals.Evaluator
	ranker    *ranking.Engine
	profiles  profile.Store
	events    Emitter
	archive   history.Recorder
	obs       *observability.Observability
	logger    logger.Logger

	adapterTimeout time.Duration
	surgeThreshold float64
	maxResults     int
	now            func() time.Time

	// background tracks late cache writes and archive writes.
	background sync.WaitGroup
}

func New(cfg Config, deps Dependencies) *Orchestrator {
	if cfg.AdapterTimeout <= 0 {
		cfg.AdapterTimeout = DefaultAdapterTimeout
	}
	if cfg.SurgeThreshold <= 0 {
		cfg.SurgeThreshold = DefaultSurgeThreshold
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = models.DefaultMaxResults
	}

	log := deps.Logger
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	evaluator := deps.Evaluator
	if evaluator == nil {
		evaluator = deals.NewEvaluator()
	}
	ranker := deps.Ranker
	if ranker == nil {
		ranker = ranking.NewEngine(log)
	}

	return &Orchestrator{
		registry:       deps.Registry,
		cache:          deps.Cache,
		deals:          deps.Deals,
		evaluator:      evaluator,
		ranker:         ranker,
		profiles:       deps.Profiles,
		events:         deps.Events,
		archive:        deps.Archive,
		obs:            deps.Observability,
		logger:         logger.ForComponent(log, "search"),
		adapterTimeout: cfg.AdapterTimeout,
		surgeThreshold: cfg.SurgeThreshold,
		maxResults:     cfg.MaxResults,
		now:            time.Now,
	}
}

// Wait blocks until background cache and archive writes have finished.
func (o *Orchestrator) Wait() {
	o.background.Wait()
}

// Search runs one search to completion. When no adapter of the category
// succeeds it returns a failed Response together with a NO_OFFERS_FOUND
// error, so callers can still render the adapter reports. A cancelled ctx
// returns ctx.Err() without waiting for in-flight adapters.
func (o *Orchestrator) Search(ctx context.Context, intent models.SearchIntent) (*Response, error) {
	start := o.now()
	metrics.SearchesActive.Inc()
	defer metrics.SearchesActive.Dec()

	ctx, span := o.obs.Tracer().Start(ctx, "search",
		trace.WithAttributes(
			attribute.String("category", string(intent.Category)),
			attribute.String("query", intent.NormalizedQuery()),
		))
	defer span.End()

	resp := &Response{
		SearchID:   uuid.NewString(),
		State:      StateReceived,
		Category:   intent.Category,
		Query:      intent.Query,
		Results:    []models.RankedResult{},
		DealsFound: []models.Deal{},
	}
	log := o.logger.With(map[string]interface{}{
		"searchId": resp.SearchID,
		"category": string(intent.Category),
	})

	resp.State = StateDispatching
	targets := o.registry.For(intent)
	resp.Stats.AdaptersTotal = len(targets)

	resp.State = StateCollecting
	gathered, err := o.gather(ctx, intent, targets, log)
	if err != nil {
		span.SetStatus(codes.Error, "cancelled")
		o.finish(ctx, resp, start, "cancelled")
		log.Warn("search abandoned", map[string]interface{}{"error": err.Error()})
		return nil, err
	}

	offers := make([]models.Offer, 0)
	for _, g := range gathered {
		resp.Adapters = append(resp.Adapters, g.report)
		if !g.report.succeeded() {
			resp.Stats.AdaptersFailed++
			continue
		}
		resp.Stats.AdaptersSucceeded++
		if g.report.Outcome == OutcomeCached {
			resp.Stats.CacheHits++
		}
		offers = append(offers, g.offers...)
	}

	if resp.Stats.AdaptersSucceeded == 0 {
		resp.State = StateFailed
		resp.Status = StatusFailed
		noOffers := apperrors.NewNoOffersFoundError(string(intent.Category))
		resp.Error = noOffers
		span.SetStatus(codes.Error, noOffers.Message)
		o.finish(ctx, resp, start, string(StatusFailed))
		o.record(ctx, intent, resp)
		log.Warn("no adapter returned offers", map[string]interface{}{
			"adapters": resp.Stats.AdaptersTotal,
		})
		return resp, noOffers
	}

	resp.State = StateEvaluating
	offers, applied := o.applyDeals(ctx, intent.Category, offers, log)
	offers = filterByConstraints(offers, intent.Constraints)

	resp.State = StateRanking
	weights, prefs := o.preferences(ctx, intent.UserID, log)
	ranked, err := o.ranker.Rank(offers, weights, prefs)
	if err != nil {
		resp.State = StateFailed
		span.RecordError(err)
		span.SetStatus(codes.Error, "ranking failed")
		o.finish(ctx, resp, start, string(StatusFailed))
		return nil, err
	}

	limit := intent.ResultLimit(o.maxResults)
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	resp.Results = ranked
	resp.DealsFound = dealsIn(ranked, applied)

	resp.State = StateCompleted
	resp.Status = StatusCompleted
	if resp.Stats.AdaptersFailed > 0 {
		resp.Status = StatusPartial
	}
	o.finish(ctx, resp, start, string(resp.Status))
	o.emit(resp)
	o.record(ctx, intent, resp)

	log.Info("search completed", map[string]interface{}{
		"status":       string(resp.Status),
		"results":      len(resp.Results),
		"succeeded":    resp.Stats.AdaptersSucceeded,
		"failed":       resp.Stats.AdaptersFailed,
		"cacheHits":    resp.Stats.CacheHits,
		"searchTimeMs": resp.SearchTimeMs,
	})
	return resp, nil
}

// applyDeals routes every offer through the evaluator. A deal source failure
// is logged and the search continues without deals.
func (o *Orchestrator) applyDeals(ctx context.Context, category models.Category, offers []models.Offer, log logger.Logger) ([]models.Offer, map[string]models.Deal) {
	applied := make(map[string]models.Deal)
	if o.deals == nil {
		return offers, applied
	}

	active, err := o.deals.ActiveDeals(ctx, category, o.now())
	if err != nil {
		log.Warn("deal source unavailable, continuing without deals", map[string]interface{}{
			"error": err.Error(),
		})
		metrics.ErrorsTotal.WithLabelValues("SEARCH", string(apperrors.ErrCodeDealSourceUnavailable)).Inc()
		return offers, applied
	}
	if len(active) == 0 {
		return offers, applied
	}

	out := make([]models.Offer, len(offers))
	for i, offer := range offers {
		adjusted, deal := o.evaluator.Apply(offer, active)
		out[i] = adjusted
		if deal != nil {
			applied[deal.ID] = *deal
			metrics.DealsApplied.WithLabelValues(deal.ID).Inc()
		}
	}
	return out, applied
}

// preferences resolves the user's weights. Anonymous searches, unknown users
// and profile store failures all rank with the defaults.
func (o *Orchestrator) preferences(ctx context.Context, userID string, log logger.Logger) (models.WeightVector, ranking.Preferences) {
	if userID == "" || o.profiles == nil {
		return models.DefaultWeights(), nil
	}

	p, err := o.profiles.Get(ctx, userID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrProfileNotFound) {
			log.Warn("profile lookup failed, using default weights", map[string]interface{}{
				"userId": userID,
				"error":  err.Error(),
			})
		}
		return models.DefaultWeights(), nil
	}
	return p.Weights, p.Preferences()
}

func (o *Orchestrator) finish(ctx context.Context, resp *Response, start time.Time, status string) {
	elapsed := o.now().Sub(start)
	resp.SearchTimeMs = elapsed.Milliseconds()

	metrics.Searches.WithLabelValues(string(resp.Category), status).Inc()
	metrics.SearchDuration.WithLabelValues(string(resp.Category)).Observe(elapsed.Seconds())
	o.obs.RecordSearch(ctx, string(resp.Category), status, elapsed)
}

// emit publishes one deal_applied event per distinct deal in the results and
// one surge_alert per surging ride platform.
func (o *Orchestrator) emit(resp *Response) {
	if o.events == nil {
		return
	}
	at := o.now()

	counts := make(map[string]int)
	for _, r := range resp.Results {
		for _, id := range r.DealIDs {
			counts[id]++
		}
	}

	var events []notify.Event
	for _, d := range resp.DealsFound {
		events = append(events, notify.DealApplied(resp.SearchID, resp.Category, d, counts[d.ID], at))
	}

	surging := make(map[models.Platform]bool)
	for _, r := range resp.Results {
		if r.SurgeMultiplier == nil || *r.SurgeMultiplier <= o.surgeThreshold || surging[r.Platform] {
			continue
		}
		surging[r.Platform] = true
		events = append(events, notify.SurgeAlert(resp.SearchID, r.Offer, at))
	}

	if len(events) > 0 {
		o.events.Emit(events...)
	}
}

// record archives the search in the background.
func (o *Orchestrator) record(ctx context.Context, intent models.SearchIntent, resp *Response) {
	if o.archive == nil {
		return
	}

	rec := history.Record{
		SearchID:          resp.SearchID,
		Category:          resp.Category,
		Query:             intent.Query,
		UserID:            intent.UserID,
		Status:            string(resp.Status),
		ResultCount:       len(resp.Results),
		SearchTimeMs:      resp.SearchTimeMs,
		AdaptersSucceeded: []string{},
		AdaptersFailed:    []string{},
		CacheHits:         resp.Stats.CacheHits,
		DealsApplied:      make([]string, 0, len(resp.DealsFound)),
		CreatedAt:         o.now().UTC(),
	}
	for _, a := range resp.Adapters {
		if a.succeeded() {
			rec.AdaptersSucceeded = append(rec.AdaptersSucceeded, string(a.Platform))
		} else {
			rec.AdaptersFailed = append(rec.AdaptersFailed, string(a.Platform))
		}
	}
	for _, d := range resp.DealsFound {
		rec.DealsApplied = append(rec.DealsApplied, d.ID)
	}
	if len(resp.Results) > 0 {
		rec.BestPlatform = resp.Results[0].Platform
		rec.BestTotal = resp.Results[0].TotalPrice
	}

	o.background.Add(1)
	go func() {
		defer o.background.Done()
		archiveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sinkTimeout)
		defer cancel()
		if err := o.archive.Record(archiveCtx, rec); err != nil {
			o.logger.Warn("search archive failed", map[string]interface{}{
				"searchId": rec.SearchID,
				"error":    err.Error(),
			})
			metrics.ErrorsTotal.WithLabelValues("SINK", string(apperrors.ErrCodeArchiveFailed)).Inc()
		}
	}()
}

// filterByConstraints drops offers over budget or slower than allowed.
// Offers without a time are kept.
func filterByConstraints(offers []models.Offer, c models.Constraints) []models.Offer {
	if c.MaxPrice == nil && c.MaxTimeMinutes == nil {
		return offers
	}
	out := offers[:0:0]
	for _, o := range offers {
		if c.MaxPrice != nil && o.TotalPrice > *c.MaxPrice+models.PriceTolerance {
			continue
		}
		if c.MaxTimeMinutes != nil && o.TimeMinutes != nil && *o.TimeMinutes > *c.MaxTimeMinutes {
			continue
		}
		out = append(out, o)
	}
	return out
}

// dealsIn lists the deals applied to the returned results, deduplicated by
// id and sorted by id.
func dealsIn(results []models.RankedResult, applied map[string]models.Deal) []models.Deal {
	seen := make(map[string]bool)
	out := make([]models.Deal, 0)
	for _, r := range results {
		for _, id := range r.DealIDs {
			d, ok := applied[id]
			if !ok || seen[id] {
				continue
			}
			seen[id] = true
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
