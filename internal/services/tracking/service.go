package tracking

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/BearBump/TrackMirror/internal/broker/messages"
	"github.com/BearBump/TrackMirror/internal/fallback"
	"github.com/BearBump/TrackMirror/internal/integrations/mirror"
	"github.com/BearBump/TrackMirror/internal/models"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	ErrValidation = errors.New("invalid tracking number")
	ErrNotFound   = errors.New("tracking information not found")
)

const (
	defaultTranslateConcurrency = 8
	rateLimitWindow             = 70 * time.Second
)

// Provider is one mirror in the priority list.
type Provider interface {
	URL() string
	Lookup(ctx context.Context, trackingNumber string) (models.ParsedRecord, error)
}

type Translator interface {
	Translate(ctx context.Context, text string) (string, error)
}

type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (bool, int64, error)
}

type Producer interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}

type Service struct {
	providers  []Provider
	translator Translator
	log        *zap.Logger
	validate   *validator.Validate

	rl          RateLimiter
	rlPerMinute int64

	producer Producer
	topic    string

	translateConcurrency int
	now                  func() time.Time

	stats counters
}

// New builds the orchestrator. providers are tried strictly in the given order.
// A nil translator disables translation.
func New(providers []Provider, tr Translator, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Service{
		providers:            providers,
		translator:           tr,
		log:                  log,
		validate:             validator.New(),
		translateConcurrency: defaultTranslateConcurrency,
		now:                  func() time.Time { return time.Now().UTC() },
	}
	s.stats.startedAtUnixNano = time.Now().UTC().UnixNano()
	return s
}

func (s *Service) WithRateLimiter(rl RateLimiter, perMinute int64) *Service {
	if rl != nil && perMinute > 0 {
		s.rl = rl
		s.rlPerMinute = perMinute
	}
	return s
}

func (s *Service) WithPublisher(p Producer, topic string) *Service {
	s.producer = p
	s.topic = topic
	return s
}

func (s *Service) WithTranslateConcurrency(n int) *Service {
	if n > 0 {
		s.translateConcurrency = n
	}
	return s
}

func (s *Service) ValidateQuery(q models.TrackingQuery) error {
	if err := s.validate.Struct(q); err != nil {
		return errors.Wrap(ErrValidation, err.Error())
	}
	return nil
}

// Track validates q, queries mirrors until one returns a usable record and
// translates its statuses. ErrValidation and ErrNotFound are the only
// expected errors.
func (s *Service) Track(ctx context.Context, q models.TrackingQuery) (*models.TrackingResult, error) {
	s.stats.lookups.Add(1)
	if err := s.ValidateQuery(q); err != nil {
		s.stats.invalid.Add(1)
		return nil, err
	}

	started := s.now()
	source, rec, attempts, ok := s.queryMirrors(ctx, q.TrackingNumber)
	if !ok {
		s.stats.notFound.Add(1)
		s.publishLookup(ctx, q.TrackingNumber, "", attempts, started)
		return nil, errors.Wrapf(ErrNotFound, "%s after %d mirrors", q.TrackingNumber, attempts)
	}

	res := s.buildResult(ctx, source, rec)
	s.stats.found.Add(1)
	s.publishLookup(ctx, q.TrackingNumber, source, attempts, started)
	return res, nil
}

func (s *Service) queryMirrors(ctx context.Context, trackingNumber string) (string, models.ParsedRecord, int, bool) {
	attempts := 0
	for _, p := range s.providers {
		attempts++
		log := s.log.With(zap.String("mirror", p.URL()), zap.String("tracking_number", trackingNumber))

		if !s.allowMirror(ctx, p.URL(), log) {
			s.stats.mirrorFailures.Add(1)
			continue
		}

		rec, err := p.Lookup(ctx, trackingNumber)
		if err == nil && !rec.Usable() {
			err = mirror.ErrUnusable
		}
		if err != nil {
			s.stats.mirrorFailures.Add(1)
			log.Warn("mirror lookup failed", zap.Error(err))
			continue
		}
		return p.URL(), rec, attempts, true
	}
	return "", models.ParsedRecord{}, attempts, false
}

// allowMirror fails open: a broken limiter must not block lookups.
func (s *Service) allowMirror(ctx context.Context, mirrorURL string, log *zap.Logger) bool {
	if s.rl == nil {
		return true
	}
	key := fmt.Sprintf("rl:mirror:%s:%s", mirrorHost(mirrorURL), s.now().Format("200601021504"))
	allowed, n, err := s.rl.Allow(ctx, key, s.rlPerMinute, rateLimitWindow)
	if err != nil {
		log.Warn("mirror rate limiter unavailable", zap.Error(err))
		return true
	}
	if !allowed {
		log.Warn("mirror rate limit exceeded, skipping", zap.Int64("count", n), zap.Int64("limit", s.rlPerMinute))
	}
	return allowed
}

func (s *Service) buildResult(ctx context.Context, source string, rec models.ParsedRecord) *models.TrackingResult {
	lastStatus := rec.Summary.Get(models.KeyLastStatus)
	events := make([]models.TrackingEvent, len(rec.Events))
	copy(events, rec.Events)

	if s.translator != nil {
		var g errgroup.Group
		g.SetLimit(s.translateConcurrency)
		g.Go(func() error {
			lastStatus = s.translateText(ctx, lastStatus)
			return nil
		})
		for i := range events {
			i := i
			g.Go(func() error {
				events[i].Status = s.translateText(ctx, events[i].Status)
				return nil
			})
		}
		_ = g.Wait()
	}

	return models.NewTrackingResult(source, rec, lastStatus, events)
}

func (s *Service) translateText(ctx context.Context, text string) string {
	if text == "" {
		return text
	}
	var cause error
	out, ok := fallback.Identity(text, func(in string) (string, error) {
		res, err := s.translator.Translate(ctx, in)
		cause = err
		return res, err
	})
	if !ok {
		s.stats.translationFallbacks.Add(1)
		s.log.Debug("translation skipped, keeping original text", zap.Error(cause))
	}
	return out
}

func (s *Service) publishLookup(ctx context.Context, trackingNumber, source string, attempts int, started time.Time) {
	if s.producer == nil {
		return
	}
	finished := s.now()
	msg := messages.LookupCompleted{
		LookupID:       uuid.New(),
		TrackingNumber: trackingNumber,
		Found:          source != "",
		Source:         source,
		Attempts:       attempts,
		DurationMS:     finished.Sub(started).Milliseconds(),
		CompletedAt:    finished,
	}
	b, err := json.Marshal(msg)
	if err != nil {
		s.log.Warn("marshal lookup event", zap.Error(err))
		return
	}
	if err := s.producer.Publish(ctx, s.topic, []byte(trackingNumber), b); err != nil {
		s.log.Warn("publish lookup event", zap.String("topic", s.topic), zap.Error(err))
	}
}

func mirrorHost(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	return u.Host
}
