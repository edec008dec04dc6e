package pglookups

import (
	"context"

	"github.com/BearBump/TrackMirror/internal/models"
	"github.com/pkg/errors"
)

const maxListLimit = 500

// InsertLookup stores l once. Redelivered events (same ID) are ignored and
// reported with inserted=false.
func (s *Storage) InsertLookup(ctx context.Context, l *models.Lookup) (bool, error) {
	tag, err := s.db.Exec(ctx, `
INSERT INTO tracking_lookups (
  lookup_id, tracking_number, found, source, attempts, duration_ms, completed_at
)
VALUES ($1,$2,$3,$4,$5,$6,$7)
ON CONFLICT (lookup_id) DO NOTHING
`, l.ID, l.TrackingNumber, l.Found, l.Source, l.Attempts, l.DurationMS, l.CompletedAt)
	if err != nil {
		return false, errors.Wrap(err, "insert lookup")
	}
	return tag.RowsAffected() == 1, nil
}

// ListLookups returns the newest lookups of one tracking number first.
func (s *Storage) ListLookups(ctx context.Context, trackingNumber string, limit, offset int) ([]*models.Lookup, error) {
	if limit <= 0 || limit > maxListLimit {
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := s.db.Query(ctx, `
SELECT
  lookup_id, tracking_number, found, source,
  attempts, duration_ms, completed_at, recorded_at
FROM tracking_lookups
WHERE tracking_number = $1
ORDER BY completed_at DESC, lookup_id
LIMIT $2 OFFSET $3
`, trackingNumber, limit, offset)
	if err != nil {
		return nil, errors.Wrap(err, "select lookups")
	}
	defer rows.Close()

	out := make([]*models.Lookup, 0)
	for rows.Next() {
		var l models.Lookup
		if err := rows.Scan(
			&l.ID, &l.TrackingNumber, &l.Found, &l.Source,
			&l.Attempts, &l.DurationMS, &l.CompletedAt, &l.RecordedAt,
		); err != nil {
			return nil, errors.Wrap(err, "scan lookup")
		}
		out = append(out, &l)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "rows")
	}
	return out, nil
}
