package app

import (
	"context"
	"fmt"
	"io"
	"time"

	"coachdesk/internal/alerts"
	"coachdesk/internal/config"
	"coachdesk/internal/decision"
	"coachdesk/internal/features"
	"coachdesk/internal/journal"
	"coachdesk/internal/logger"
	"coachdesk/internal/marketclock"
	"coachdesk/internal/metrics"
	"coachdesk/internal/model"
	"coachdesk/internal/pkg/circuit"
	"coachdesk/internal/store/gormstore"
	"coachdesk/internal/store/kv"
	"coachdesk/internal/tier"
	apihttp "coachdesk/internal/transport/http/api"
	"coachdesk/internal/vwap"
)

type AppBuilder struct {
	cfg *config.Config

	kvStoreFn     func(context.Context, config.AlertsConfig) (kv.Store, io.Closer, error)
	journalRepoFn func(config.JournalConfig, kv.Store) (journal.Repository, io.Closer, error)
	now           func() time.Time
}

type AppBuilderOption func(*AppBuilder)

// WithKVStore replaces the alert/journal KV backend (tests, embedded use).
func WithKVStore(store kv.Store) AppBuilderOption {
	return func(b *AppBuilder) {
		b.kvStoreFn = func(context.Context, config.AlertsConfig) (kv.Store, io.Closer, error) {
			return store, nil, nil
		}
	}
}

func WithClock(now func() time.Time) AppBuilderOption {
	return func(b *AppBuilder) { b.now = now }
}

func NewAppBuilder(cfg *config.Config, opts ...AppBuilderOption) *AppBuilder {
	b := &AppBuilder{
		cfg:           cfg,
		kvStoreFn:     buildKVStore,
		journalRepoFn: buildJournalRepository,
		now:           time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

func (b *AppBuilder) Build(ctx context.Context) (*App, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if b.cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	cfg := b.cfg
	app := &App{cfg: cfg}
	fail := func(err error) (*App, error) {
		app.Close()
		return nil, err
	}

	cal, err := marketclock.New(cfg.Session.Timezone, cfg.Session.EarlyCloseDates)
	if err != nil {
		return nil, fmt.Errorf("session calendar: %w", err)
	}
	rec := metrics.New()

	tiers, err := tier.NewRegistry(cfg.ML.TierWeightsPath, cfg.ML.WatchWeights)
	if err != nil {
		return nil, fmt.Errorf("tier weights: %w", err)
	}
	tiers.OnChange(func(s tier.Snapshot) {
		logger.Infof("✓ tier weights reloaded version=%s generation=%d", s.Version, s.Generation)
	})
	confidence := model.NewConfidenceModel(model.DefaultWeights())

	engine := decision.NewEngine(
		decision.WithExtractor(features.NewExtractor(cal)),
		decision.WithConfidenceModel(confidence),
		decision.WithClassifierSource(tiers),
		decision.WithFlags(cfg.ML.Flags()),
		decision.WithObserver(rec),
		decision.WithParallelism(cfg.ML.Parallelism),
	)

	rawStore, storeCloser, err := b.kvStoreFn(ctx, cfg.Alerts)
	if err != nil {
		return nil, fmt.Errorf("alert store: %w", err)
	}
	if storeCloser != nil {
		app.closers = append(app.closers, storeCloser)
	}
	breaker := circuit.NewCircuitBreaker("kv-"+cfg.Alerts.Backend, cfg.Store.BreakerThreshold, cfg.Store.BreakerTimeout())
	breaker.SetStateChangeHandler(func(name string, from, to circuit.State) {
		logger.Warnf("store breaker %s: %s -> %s", name, from, to)
		rec.ObserveBreaker(name, from, to)
	})
	store := kv.NewGuarded(rawStore, breaker)

	repo, repoCloser, err := b.journalRepoFn(cfg.Journal, store)
	if err != nil {
		return fail(fmt.Errorf("journal store: %w", err))
	}
	if repoCloser != nil {
		app.closers = append(app.closers, repoCloser)
	}

	agg := vwap.NewAggregator(cal)
	server, err := apihttp.NewServer(apihttp.ServerConfig{
		Addr:    cfg.App.HTTPAddr,
		Metrics: rec,
		Deps: apihttp.Deps{
			Engine:     engine,
			Confidence: confidence,
			Tiers:      tiers,
			VWAP:       agg,
			Journal:    journal.New(repo, cfg.Journal.MaxItems),
			Alerts:     alerts.NewManager(store, cfg.Alerts.TTL()),
			FeedHealth: cfg.FeedHealth.Thresholds(),
			Metrics:    rec,
			Now:        b.now,
		},
	})
	if err != nil {
		return fail(err)
	}
	app.server = server
	app.vwap = agg
	app.metrics = rec
	app.Summary = newStartupSummary(cfg, confidence, tiers.Snapshot())
	return app, nil
}

func buildKVStore(ctx context.Context, cfg config.AlertsConfig) (kv.Store, io.Closer, error) {
	switch cfg.Backend {
	case config.BackendSQLite:
		s, err := kv.NewSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	case config.BackendRedis:
		s, err := kv.NewRedis(ctx, kv.RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Prefix:   cfg.RedisPrefix,
		})
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	default:
		return kv.NewMemory(), nil, nil
	}
}

func buildJournalRepository(cfg config.JournalConfig, store kv.Store) (journal.Repository, io.Closer, error) {
	if cfg.Backend == config.BackendGorm {
		gs, err := gormstore.NewGormStore(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		return gs, gs, nil
	}
	return journal.NewKVRepository(store), nil, nil
}
