package tracking

import (
	"sync/atomic"
	"time"
)

type counters struct {
	startedAtUnixNano    int64
	lookups              atomic.Int64
	invalid              atomic.Int64
	found                atomic.Int64
	notFound             atomic.Int64
	mirrorFailures       atomic.Int64
	translationFallbacks atomic.Int64
}

type Stats struct {
	StartedAt            time.Time `json:"startedAt"`
	Lookups              int64     `json:"lookups"`
	Invalid              int64     `json:"invalid"`
	Found                int64     `json:"found"`
	NotFound             int64     `json:"notFound"`
	MirrorFailures       int64     `json:"mirrorFailures"`
	TranslationFallbacks int64     `json:"translationFallbacks"`
}

func (s *Service) Stats() Stats {
	return Stats{
		StartedAt:            time.Unix(0, s.stats.startedAtUnixNano).UTC(),
		Lookups:              s.stats.lookups.Load(),
		Invalid:              s.stats.invalid.Load(),
		Found:                s.stats.found.Load(),
		NotFound:             s.stats.notFound.Load(),
		MirrorFailures:       s.stats.mirrorFailures.Load(),
		TranslationFallbacks: s.stats.translationFallbacks.Load(),
	}
}
