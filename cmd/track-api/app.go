package main

import (
	"context"
	"net"

	"github.com/BearBump/TrackMirror/internal/api/tracking_api"
	"github.com/BearBump/TrackMirror/internal/httpserver"
	"go.uber.org/zap"
)

type trackAPIOpts struct {
	httpAddr    string
	swaggerPath string

	onListen func(httpAddr string)
}

func runTrackAPI(ctx context.Context, opts trackAPIOpts, deps *apiDeps, log *zap.Logger) error {
	r, err := httpserver.NewRouter(log, httpserver.Ops{
		Ready:       deps.ready,
		Stats:       func() any { return deps.svc.Stats() },
		SwaggerPath: opts.swaggerPath,
	})
	if err != nil {
		return err
	}
	tracking_api.New(deps.svc, log).Register(r)

	lis, err := net.Listen("tcp", opts.httpAddr)
	if err != nil {
		return err
	}
	if opts.onListen != nil {
		opts.onListen(lis.Addr().String())
	}

	return httpserver.Serve(ctx, lis, r, log)
}
