package tracking_api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/BearBump/TrackMirror/internal/models"
	"github.com/BearBump/TrackMirror/internal/services/tracking"
	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	maxRequestBytes = 64 << 10

	msgInvalidNumber = "Invalid tracking number"
	msgNotFound      = "Tracking information not found"
	msgInternal      = "Internal server error"
)

type Tracker interface {
	Track(ctx context.Context, q models.TrackingQuery) (*models.TrackingResult, error)
}

type TrackingAPI struct {
	svc Tracker
	log *zap.Logger
}

func New(svc Tracker, log *zap.Logger) *TrackingAPI {
	if log == nil {
		log = zap.NewNop()
	}
	return &TrackingAPI{svc: svc, log: log}
}

func (a *TrackingAPI) Register(r chi.Router) {
	r.Post("/api/tracking", a.Track)
}

type errorResponse struct {
	Error string `json:"error"`
}

// Track handles POST /api/tracking.
func (a *TrackingAPI) Track(w http.ResponseWriter, r *http.Request) {
	var q models.TrackingQuery
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&q); err != nil {
		a.log.Error("decode tracking request", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: msgInternal})
		return
	}

	// Клиент может оборвать соединение, но опрос зеркал доводим до конца.
	ctx := context.WithoutCancel(r.Context())

	res, err := a.svc.Track(ctx, q)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, res)
	case errors.Is(err, tracking.ErrValidation):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: msgInvalidNumber})
	case errors.Is(err, tracking.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: msgNotFound})
	default:
		a.log.Error("tracking lookup failed", zap.String("tracking_number", q.TrackingNumber), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: msgInternal})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
