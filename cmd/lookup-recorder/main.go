package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/BearBump/TrackMirror/config"
	"github.com/BearBump/TrackMirror/internal/logger"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.LoadConfig(os.Getenv("configPath"))
	if err != nil {
		panic("ошибка парсинга конфига, " + err.Error())
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	err = RunLookupRecorder(ctx, cfg, defaultRecorderFactories(), recorderOpts{
		httpAddr:    cfg.Recorder.HTTPAddr,
		swaggerPath: os.Getenv("swaggerPath"),
	}, log)
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Error("lookup-recorder stopped", zap.Error(err))
		cancel()
		_ = log.Sync()
		os.Exit(1)
	}
}
