// cmd/dealer-server/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"smart-dealer/internal/adapters"
	"smart-dealer/internal/api"
	"smart-dealer/internal/cache"
	appaws "smart-dealer/internal/common/aws"
	"smart-dealer/internal/common/config"
	"smart-dealer/internal/common/database"
	apphttp "smart-dealer/internal/common/http"
	"smart-dealer/internal/common/logger"
	"smart-dealer/internal/common/observability"
	"smart-dealer/internal/deals"
	"smart-dealer/internal/history"
	"smart-dealer/internal/intent"
	"smart-dealer/internal/models"
	"smart-dealer/internal/notify"
	"smart-dealer/internal/profile"
	"smart-dealer/internal/search"
	"smart-dealer/pkg/registry"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting dealer server...", zap.String("environment", cfg.App.Environment))

	obs, err := observability.New(cfg.App.Name)
	if err != nil {
		zapLog.Warn("observability init failed, continuing without otel metrics", zap.Error(err))
	}
	defer obs.Shutdown()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// readiness checks for whatever infrastructure is configured
	var checks []func(context.Context) error

	// --- PostgreSQL (profiles, deals) ---
	var pg *database.PostgresClient
	if cfg.Database.Postgres.Enabled() {
		err = retryWithBackoff(func() error {
			var err error
			pg, err = database.NewPostgres(cfg.Database.Postgres)
			if err != nil {
				return err
			}
			return pg.Ping(ctx)
		}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
		if err != nil {
			zapLog.Fatal("postgres failed after retries", zap.Error(err))
		}
		defer pg.Close()

		if err := pg.Migrate(ctx); err != nil {
			zapLog.Fatal("postgres migration failed", zap.Error(err))
		}
		checks = append(checks, pg.Ping)
		zapLog.Info("PostgreSQL connected successfully")
	}

	// --- Redis (offer cache, profile cache) ---
	var rdb *database.RedisClient
	if cfg.Database.Redis.Enabled() {
		err = retryWithBackoff(func() error {
			var err error
			rdb, err = database.NewRedis(cfg.Database.Redis)
			if err != nil {
				return err
			}
			return rdb.Ping(ctx)
		}, 10, 2*time.Second, zapLog, "Redis connection")
		if err != nil {
			zapLog.Fatal("redis failed after retries", zap.Error(err))
		}
		defer rdb.Close()
		checks = append(checks, rdb.Ping)
		zapLog.Info("Redis connected successfully")
	}

	// --- Elasticsearch (search archive) ---
	var archive history.Recorder
	if cfg.History.Enabled {
		var es *database.ElasticsearchClient
		err = retryWithBackoff(func() error {
			var err error
			es, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return es.Ping(ctx)
		}, 15, 2*time.Second, zapLog, "Elasticsearch connection")
		if err != nil {
			zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
		}
		if err := es.EnsureIndex(ctx, cfg.History.Index); err != nil {
			zapLog.Fatal("elasticsearch index setup failed", zap.Error(err))
		}
		archive = history.NewESRecorder(es.Client, cfg.History.Index)
		checks = append(checks, es.Ping)
		zapLog.Info("Elasticsearch connected successfully", zap.String("index", cfg.History.Index))
	}

	// --- Offer cache ---
	var store cache.Store
	if rdb != nil {
		store = cache.NewRedisStore(rdb.Client)
	} else {
		mem := cache.NewMemoryStore()
		go mem.RunJanitor(ctx, time.Minute)
		store = mem
	}
	offerCache := cache.New(store, cfg.CacheTTL(), log)

	// --- Profiles ---
	var profiles profile.Store = profile.NewMemoryStore()
	if pg != nil {
		profiles = profile.NewPostgresStore(pg.DB)
	}
	if rdb != nil {
		profiles = profile.NewCachedStore(profiles, rdb.Client, profile.DefaultCacheTTL, log)
	}

	// --- Deals ---
	dealSource, err := buildDealSource(ctx, cfg, pg, log)
	if err != nil {
		zapLog.Fatal("deal catalog failed to load", zap.Error(err))
	}

	// --- Notifications ---
	var publisher notify.Publisher = notify.NewLogPublisher(log)
	if cfg.Notifications.SNS.Enabled {
		snsClient, err := appaws.NewSNSClient(ctx, cfg.Notifications.SNS.Region, cfg.Notifications.SNS.TopicARN)
		if err != nil {
			zapLog.Fatal("sns client failed", zap.Error(err))
		}
		publisher = notify.NewSNSPublisher(snsClient)
		zapLog.Info("SNS publisher ready", zap.String("topic", snsClient.TopicARN()))
	}
	dispatcher := notify.NewDispatcher(publisher, log, 0)

	// --- Adapters ---
	adapterRegistry := adapters.NewRegistry()
	switch cfg.Adapters.Mode {
	case "http":
		client := apphttp.NewClient(cfg.AdapterTimeout(), cfg.Search.RateLimitPerMinute)
		err = adapters.RegisterHTTP(adapterRegistry, cfg.Adapters.Endpoints, client)
	default:
		err = adapters.RegisterSimulated(adapterRegistry)
	}
	if err != nil {
		zapLog.Fatal("adapter registration failed", zap.Error(err))
	}
	zapLog.Info("Adapters registered", zap.String("mode", cfg.Adapters.Mode), zap.Int("count", adapterRegistry.Len()))

	orchestrator := search.New(search.Config{
		AdapterTimeout: cfg.AdapterTimeout(),
		SurgeThreshold: cfg.Notifications.SurgeThreshold,
		MaxResults:     cfg.Search.MaxResults,
	}, search.Dependencies{
		Registry:      adapterRegistry,
		Cache:         offerCache,
		Deals:         dealSource,
		Evaluator:     deals.NewEvaluator(),
		Profiles:      profiles,
		Events:        dispatcher,
		Archive:       archive,
		Observability: obs,
		Logger:        log,
	})

	server := api.NewServer(api.Options{
		Searcher:           orchestrator,
		Parser:             intent.NewParser(log),
		Registry:           adapterRegistry,
		Deals:              dealSource,
		Profiles:           profiles,
		RateLimitPerMinute: cfg.Search.RateLimitPerMinute,
		Logger:             log,
		Ready: func(ctx context.Context) error {
			for _, check := range checks {
				if err := check(ctx); err != nil {
					return err
				}
			}
			return nil
		},
	})

	httpServer := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      server.Handler(),
		ReadTimeout:  config.GetDuration(cfg.Server.ReadTimeout),
		WriteTimeout: config.GetDuration(cfg.Server.WriteTimeout),
	}

	go func() {
		zapLog.Info("HTTP server listening", zap.String("address", cfg.Server.Address))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, draining requests...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.Server.ShutdownTimeout))
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error shutting down HTTP server", zap.Error(err))
	}
	stop()
	orchestrator.Wait()
	if err := dispatcher.Close(shutdownCtx); err != nil {
		zapLog.Error("Error draining notifications", zap.Error(err))
	}

	zapLog.Info("Dealer server stopped gracefully")
}

// buildDealSource picks the configured deal source. The in-memory catalog is
// seeded from the catalog file when one is set and follows its changes when
// deals.watch is on.
func buildDealSource(ctx context.Context, cfg *config.Config, pg *database.PostgresClient, log logger.Logger) (deals.Source, error) {
	if cfg.Deals.Source == "postgres" {
		return deals.NewPostgresSource(pg.DB), nil
	}

	seed := deals.DefaultDeals()
	if cfg.Deals.CatalogPath != "" {
		loaded, err := registry.LoadDeals(cfg.Deals.CatalogPath)
		if err != nil {
			return nil, err
		}
		seed = loaded
	}
	catalog := deals.NewCatalog(seed)

	if cfg.Deals.CatalogPath != "" && cfg.Deals.Watch {
		watchLog := logger.ForComponent(log, "deal-catalog")
		go func() {
			err := registry.Watch(ctx, cfg.Deals.CatalogPath,
				func(next []models.Deal) {
					catalog.Replace(next)
					watchLog.Info("deal catalog reloaded", map[string]interface{}{"deals": len(next)})
				},
				func(err error) {
					watchLog.Warn("deal catalog reload failed, keeping previous catalog", map[string]interface{}{"error": err.Error()})
				})
			if err != nil {
				watchLog.Error("deal catalog watch stopped", map[string]interface{}{"error": err.Error()})
			}
		}()
	}
	return catalog, nil
}
