package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/BearBump/TrackMirror/config"
	"github.com/BearBump/TrackMirror/internal/broker/kafka"
	"github.com/BearBump/TrackMirror/internal/cache/rediscache"
	"github.com/BearBump/TrackMirror/internal/integrations/mirror"
	"github.com/BearBump/TrackMirror/internal/integrations/translator"
	"github.com/BearBump/TrackMirror/internal/integrations/translator/deepl"
	"github.com/BearBump/TrackMirror/internal/logger"
	"github.com/BearBump/TrackMirror/internal/services/tracking"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// apiDeps is everything the HTTP process needs, with closers in open order.
type apiDeps struct {
	svc     *tracking.Service
	ready   func(ctx context.Context) error
	closers []func()
}

func (d *apiDeps) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		d.closers[i]()
	}
}

func buildAPIDeps(cfg *config.Config, log *zap.Logger) (*apiDeps, error) {
	urls := cfg.MirrorURLs()
	if len(urls) == 0 {
		return nil, errors.New("no mirrors configured")
	}
	providers := make([]tracking.Provider, 0, len(urls))
	for _, u := range urls {
		providers = append(providers, mirror.NewSource(mirror.New(u, cfg.Mirror.Timeout())))
	}

	deps := &apiDeps{}

	var rc *redis.Client
	if cfg.Redis.Enabled() {
		rc = rediscache.NewClient(rediscache.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		deps.closers = append(deps.closers, func() { _ = rc.Close() })
		deps.ready = func(ctx context.Context) error {
			return errors.Wrap(rc.Ping(ctx).Err(), "redis ping")
		}
	}

	var tr tracking.Translator
	if cfg.Translator.AuthKey != "" {
		var t translator.Translator = deepl.New(
			cfg.Translator.BaseURL,
			cfg.Translator.AuthKey,
			cfg.Translator.TargetLang,
			cfg.Translator.Timeout(),
		)
		if rc != nil {
			t = translator.NewCached(t, rediscache.New(rc, ""), cfg.Translator.CacheTTL(), cfg.Translator.TargetLang)
		}
		tr = t
	} else {
		log.Info("translator auth key is not set, statuses are returned as is")
	}

	svc := tracking.New(providers, tr, log).
		WithTranslateConcurrency(cfg.Translator.Concurrency)

	if rc != nil && cfg.Mirror.RateLimitPerMinute > 0 {
		svc.WithRateLimiter(rediscache.NewRateLimiter(rc), int64(cfg.Mirror.RateLimitPerMinute))
	}

	if cfg.Kafka.Enabled() {
		p := kafka.NewProducer(cfg.Kafka.Brokers(), log)
		svc.WithPublisher(p, cfg.Kafka.LookupsTopicName)
		deps.closers = append(deps.closers, func() { _ = p.Close() })
	}

	deps.svc = svc
	return deps, nil
}

type trackAPIApp struct {
	ctx    context.Context
	cancel context.CancelFunc
	opts   trackAPIOpts
	deps   *apiDeps
	log    *zap.Logger
}

func mustBootstrapTrackAPI() *trackAPIApp {
	cfgPath := os.Getenv("configPath")
	if cfgPath == "" {
		panic("configPath env var is required")
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		panic("ошибка парсинга конфига, " + err.Error())
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		panic(err)
	}

	deps, err := buildAPIDeps(cfg, log)
	if err != nil {
		log.Fatal("bootstrap track-api", zap.Error(err))
	}
	log.Info("track-api configured",
		zap.Strings("mirrors", cfg.MirrorURLs()),
		zap.Bool("redis", cfg.Redis.Enabled()),
		zap.Bool("kafka", cfg.Kafka.Enabled()),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	return &trackAPIApp{
		ctx:    ctx,
		cancel: cancel,
		opts: trackAPIOpts{
			httpAddr:    cfg.HTTP.Addr,
			swaggerPath: os.Getenv("swaggerPath"),
		},
		deps: deps,
		log:  log,
	}
}

func (a *trackAPIApp) Close() {
	if a.cancel != nil {
		a.cancel()
	}
	if a.deps != nil {
		a.deps.Close()
	}
	_ = a.log.Sync()
}

func (a *trackAPIApp) Run() error {
	return runTrackAPI(a.ctx, a.opts, a.deps, a.log)
}
