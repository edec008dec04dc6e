package messages

import (
	"time"

	"github.com/google/uuid"
)

// LookupCompleted is the audit record of one tracking lookup.
// It carries no statuses or timeline.
type LookupCompleted struct {
	LookupID       uuid.UUID `json:"lookup_id"`
	TrackingNumber string    `json:"tracking_number"`
	Found          bool      `json:"found"`
	Source         string    `json:"source,omitempty"`
	Attempts       int       `json:"attempts"`
	DurationMS     int64     `json:"duration_ms"`
	CompletedAt    time.Time `json:"completed_at"`
}
