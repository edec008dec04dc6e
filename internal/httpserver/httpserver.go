// Package httpserver holds the chi plumbing shared by track-api and
// lookup-recorder: ops endpoints, swagger and graceful serve.
package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/BearBump/TrackMirror/internal/middleware"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/pkg/errors"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"
)

const shutdownTimeout = 2 * time.Second

type Ops struct {
	// Ready reports whether dependencies answer. nil means always ready.
	Ready func(ctx context.Context) error
	// Stats returns a JSON-encodable snapshot for /stats. nil disables the route.
	Stats func() any
	// SwaggerPath enables /swagger.json and /docs/* when set.
	SwaggerPath string
}

// NewRouter returns a chi router with request id, recoverer, access log and
// the ops endpoints already mounted.
func NewRouter(log *zap.Logger, ops Ops) (chi.Router, error) {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(middleware.WithRequestLogging(log))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if ops.Ready != nil {
			if err := ops.Ready(r.Context()); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready", "error": err.Error()})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})
	if ops.Stats != nil {
		r.Get("/stats", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, ops.Stats())
		})
	}

	if ops.SwaggerPath != "" {
		fi, err := os.Stat(ops.SwaggerPath)
		if err != nil {
			return nil, errors.Wrapf(err, "swagger file %s", ops.SwaggerPath)
		}
		swaggerPath := ops.SwaggerPath
		r.Get("/swagger.json", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "no-store")
			http.ServeFile(w, r, swaggerPath)
		})
		// cachebuster, иначе swagger-ui держит старую схему
		swaggerURL := fmt.Sprintf("/swagger.json?v=%d", fi.ModTime().Unix())
		r.Get("/docs/*", httpSwagger.Handler(httpSwagger.URL(swaggerURL)))
	}

	return r, nil
}

// Serve runs h on lis until ctx is done, then shuts down gracefully.
// It returns ctx.Err() after a clean shutdown.
func Serve(ctx context.Context, lis net.Listener, h http.Handler, log *zap.Logger) error {
	srv := &http.Server{
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		_ = lis.Close()
	}()

	log.Info("HTTP server listening", zap.String("addr", lis.Addr().String()))
	err := srv.Serve(lis)
	if errors.Is(err, http.ErrServerClosed) && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
