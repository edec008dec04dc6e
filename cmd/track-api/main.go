package main

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

func main() {
	app := mustBootstrapTrackAPI()
	err := app.Run()
	app.Close()
	if err != nil && !errors.Is(err, context.Canceled) {
		app.log.Fatal("track-api stopped", zap.Error(err))
	}
}
