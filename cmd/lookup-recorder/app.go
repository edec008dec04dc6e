package main

import (
	"context"
	"net"
	"time"

	"github.com/BearBump/TrackMirror/config"
	"github.com/BearBump/TrackMirror/internal/broker/kafka"
	"github.com/BearBump/TrackMirror/internal/httpserver"
	"github.com/BearBump/TrackMirror/internal/services/lookups"
	"github.com/BearBump/TrackMirror/internal/storage/pglookups"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type lookupStore interface {
	lookups.Repository
	Ping(ctx context.Context) error
}

type messageConsumer interface {
	Consume(ctx context.Context, handler func(key, value []byte) error) error
	Close() error
}

type recorderFactories struct {
	newStorage  func(cfg *config.Config) (store lookupStore, closeFn func(), err error)
	newConsumer func(cfg *config.Config) messageConsumer
}

func defaultRecorderFactories() recorderFactories {
	return recorderFactories{
		newStorage: func(cfg *config.Config) (lookupStore, func(), error) {
			st, err := openPostgresWithRetry(cfg.Database.ConnString(), 60*time.Second)
			if err != nil {
				return nil, nil, err
			}
			return st, st.Close, nil
		},
		newConsumer: func(cfg *config.Config) messageConsumer {
			return kafka.NewConsumer(cfg.Kafka.Brokers(), cfg.Kafka.LookupsTopicName, cfg.Kafka.ConsumerGroup)
		},
	}
}

func openPostgresWithRetry(connString string, wait time.Duration) (*pglookups.Storage, error) {
	deadline := time.Now().Add(wait)
	var lastErr error
	for time.Now().Before(deadline) {
		st, err := pglookups.New(connString)
		if err == nil {
			return st, nil
		}
		lastErr = err
		time.Sleep(1 * time.Second)
	}
	return nil, errors.Wrapf(lastErr, "postgres is not ready after %s", wait)
}

type recorderOpts struct {
	httpAddr    string
	swaggerPath string
	onListen    func(httpAddr string)
}

// RunLookupRecorder consumes lookup events into Postgres and serves the ops
// endpoints until ctx is done or either side fails.
func RunLookupRecorder(ctx context.Context, cfg *config.Config, f recorderFactories, opts recorderOpts, log *zap.Logger) error {
	if !cfg.Kafka.Enabled() {
		return errors.New("kafka host is required")
	}

	store, closeFn, err := f.newStorage(cfg)
	if err != nil {
		return err
	}
	if closeFn != nil {
		defer closeFn()
	}

	consumer := f.newConsumer(cfg)
	defer func() { _ = consumer.Close() }()

	rec := lookups.NewRecorder(store, log)

	r, err := httpserver.NewRouter(log, httpserver.Ops{
		Ready:       store.Ping,
		Stats:       func() any { return rec.Stats() },
		SwaggerPath: opts.swaggerPath,
	})
	if err != nil {
		return err
	}

	lis, err := net.Listen("tcp", opts.httpAddr)
	if err != nil {
		return err
	}
	if opts.onListen != nil {
		opts.onListen(lis.Addr().String())
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return httpserver.Serve(gctx, lis, r, log)
	})
	g.Go(func() error {
		log.Info("kafka consumer started",
			zap.String("topic", cfg.Kafka.LookupsTopicName),
			zap.String("group", cfg.Kafka.ConsumerGroup),
		)
		return consumer.Consume(gctx, func(key, value []byte) error {
			return rec.Handle(gctx, key, value)
		})
	})
	return g.Wait()
}
