package models

import (
	"time"

	"github.com/google/uuid"
)

// Lookup is one recorded tracking lookup (audit row, no timeline).
type Lookup struct {
	ID             uuid.UUID `json:"id"`
	TrackingNumber string    `json:"trackingNumber"`
	Found          bool      `json:"found"`
	Source         string    `json:"source,omitempty"`
	Attempts       int       `json:"attempts"`
	DurationMS     int64     `json:"durationMs"`
	CompletedAt    time.Time `json:"completedAt"`
	RecordedAt     time.Time `json:"recordedAt"`
}
