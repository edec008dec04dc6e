package pglookups

import (
	"context"

	"github.com/pkg/errors"
)

func (s *Storage) initSchema(ctx context.Context) error {
	stmts := []string{
		`
CREATE TABLE IF NOT EXISTS tracking_lookups (
  lookup_id UUID PRIMARY KEY,
  tracking_number TEXT NOT NULL,
  found BOOLEAN NOT NULL,
  source TEXT NOT NULL DEFAULT '',
  attempts INT NOT NULL,
  duration_ms BIGINT NOT NULL,
  completed_at TIMESTAMPTZ NOT NULL,
  recorded_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`,
		`CREATE INDEX IF NOT EXISTS idx_tracking_lookups_number_completed_at ON tracking_lookups(tracking_number, completed_at DESC)`,
	}

	for _, q := range stmts {
		if _, err := s.db.Exec(ctx, q); err != nil {
			return errors.Wrap(err, "init schema")
		}
	}
	return nil
}
