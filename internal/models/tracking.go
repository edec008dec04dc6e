package models

// Канонические ключи сводки (не зависят от языка зеркала).
const (
	KeyTrackingNumber = "trackingNumber"
	KeyReferenceNo    = "referenceNo"
	KeyCountry        = "country"
	KeyDate           = "date"
	KeyLastStatus     = "lastStatus"
	KeyConsigneeName  = "consigneeName"
)

// CanonicalKeys in the order they appear in the response.
var CanonicalKeys = []string{
	KeyTrackingNumber,
	KeyReferenceNo,
	KeyCountry,
	KeyDate,
	KeyLastStatus,
	KeyConsigneeName,
}

type TrackingQuery struct {
	TrackingNumber string `json:"trackingNumber" validate:"required,alphanum"`
}

// Summary maps a canonical key (or an unrecognised raw label) to its value.
type Summary map[string]string

func (s Summary) Get(key string) string {
	if s == nil {
		return ""
	}
	return s[key]
}

// Extra returns the entries whose keys are not canonical.
func (s Summary) Extra() map[string]string {
	var out map[string]string
	for k, v := range s {
		if IsCanonicalKey(k) {
			continue
		}
		if out == nil {
			out = make(map[string]string)
		}
		out[k] = v
	}
	return out
}

func IsCanonicalKey(k string) bool {
	for _, c := range CanonicalKeys {
		if c == k {
			return true
		}
	}
	return false
}

type TrackingEvent struct {
	Date     string `json:"date"`
	Location string `json:"location"`
	Status   string `json:"status"`
	Icon     string `json:"icon"`
}

// ParsedRecord is what one mirror response yields after parsing.
type ParsedRecord struct {
	Summary Summary
	Events  []TrackingEvent
}

// Usable reports whether the record carries a tracking number.
func (r ParsedRecord) Usable() bool {
	return r.Summary.Get(KeyTrackingNumber) != ""
}

type TrackingResult struct {
	TrackingNumber string            `json:"trackingNumber"`
	ReferenceNo    string            `json:"referenceNo"`
	Country        string            `json:"country"`
	Date           string            `json:"date"`
	LastStatus     string            `json:"lastStatus"`
	ConsigneeName  string            `json:"consigneeName"`
	Details        []TrackingEvent   `json:"details"`
	Source         string            `json:"source"`
	ExtraFields    map[string]string `json:"extraFields,omitempty"`
}

// NewTrackingResult builds the response from an accepted record.
// lastStatus and events are passed separately so translated values can be used.
func NewTrackingResult(source string, rec ParsedRecord, lastStatus string, events []TrackingEvent) *TrackingResult {
	if events == nil {
		events = []TrackingEvent{}
	}
	return &TrackingResult{
		TrackingNumber: rec.Summary.Get(KeyTrackingNumber),
		ReferenceNo:    rec.Summary.Get(KeyReferenceNo),
		Country:        rec.Summary.Get(KeyCountry),
		Date:           rec.Summary.Get(KeyDate),
		LastStatus:     lastStatus,
		ConsigneeName:  rec.Summary.Get(KeyConsigneeName),
		Details:        events,
		Source:         source,
		ExtraFields:    rec.Summary.Extra(),
	}
}
