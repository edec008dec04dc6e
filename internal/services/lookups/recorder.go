// Package lookups persists lookup audit events consumed from the broker.
package lookups

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/BearBump/TrackMirror/internal/broker/messages"
	"github.com/BearBump/TrackMirror/internal/models"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type Repository interface {
	InsertLookup(ctx context.Context, l *models.Lookup) (bool, error)
}

type Recorder struct {
	repo Repository
	log  *zap.Logger

	startedAtUnixNano int64
	received          atomic.Int64
	recorded          atomic.Int64
	duplicates        atomic.Int64
	malformed         atomic.Int64
	failed            atomic.Int64

	lastErrorMu sync.Mutex
	lastError   string
}

func NewRecorder(repo Repository, log *zap.Logger) *Recorder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Recorder{
		repo:              repo,
		log:               log,
		startedAtUnixNano: time.Now().UTC().UnixNano(),
	}
}

// Handle stores one LookupCompleted message. Malformed payloads are dropped
// (returning nil lets the consumer commit them); storage errors are returned
// so the offset stays uncommitted.
func (r *Recorder) Handle(ctx context.Context, key, value []byte) error {
	r.received.Add(1)

	var msg messages.LookupCompleted
	if err := json.Unmarshal(value, &msg); err != nil || msg.LookupID == uuid.Nil || msg.TrackingNumber == "" {
		r.malformed.Add(1)
		r.log.Warn("drop malformed lookup event", zap.ByteString("key", key), zap.Error(err))
		return nil
	}

	inserted, err := r.repo.InsertLookup(ctx, &models.Lookup{
		ID:             msg.LookupID,
		TrackingNumber: msg.TrackingNumber,
		Found:          msg.Found,
		Source:         msg.Source,
		Attempts:       msg.Attempts,
		DurationMS:     msg.DurationMS,
		CompletedAt:    msg.CompletedAt,
	})
	if err != nil {
		r.failed.Add(1)
		err = errors.Wrapf(err, "record lookup %s", msg.LookupID)
		r.lastErrorMu.Lock()
		r.lastError = err.Error()
		r.lastErrorMu.Unlock()
		return err
	}
	if !inserted {
		r.duplicates.Add(1)
		r.log.Debug("lookup already recorded", zap.Stringer("lookup_id", msg.LookupID))
		return nil
	}
	r.recorded.Add(1)
	return nil
}

type Stats struct {
	StartedAt  time.Time `json:"startedAt"`
	Received   int64     `json:"received"`
	Recorded   int64     `json:"recorded"`
	Duplicates int64     `json:"duplicates"`
	Malformed  int64     `json:"malformed"`
	Failed     int64     `json:"failed"`
	LastError  string    `json:"lastError,omitempty"`
}

func (r *Recorder) Stats() Stats {
	st := Stats{
		StartedAt:  time.Unix(0, r.startedAtUnixNano).UTC(),
		Received:   r.received.Load(),
		Recorded:   r.recorded.Load(),
		Duplicates: r.duplicates.Load(),
		Malformed:  r.malformed.Load(),
		Failed:     r.failed.Load(),
	}
	r.lastErrorMu.Lock()
	st.LastError = r.lastError
	r.lastErrorMu.Unlock()
	return st
}
