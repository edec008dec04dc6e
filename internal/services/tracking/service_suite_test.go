package tracking

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/BearBump/TrackMirror/internal/broker/messages"
	"github.com/BearBump/TrackMirror/internal/integrations/mirror"
	"github.com/BearBump/TrackMirror/internal/models"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

type providerMock struct {
	mock.Mock
	url string
}

func (m *providerMock) URL() string { return m.url }

func (m *providerMock) Lookup(ctx context.Context, trackingNumber string) (models.ParsedRecord, error) {
	args := m.Called(ctx, trackingNumber)
	return args.Get(0).(models.ParsedRecord), args.Error(1)
}

type translatorMock struct{ mock.Mock }

func (m *translatorMock) Translate(ctx context.Context, text string) (string, error) {
	args := m.Called(ctx, text)
	if fn, ok := args.Get(0).(func(context.Context, string) string); ok {
		return fn(ctx, text), args.Error(1)
	}
	return args.String(0), args.Error(1)
}

type producerMock struct{ mock.Mock }

func (m *producerMock) Publish(ctx context.Context, topic string, key, value []byte) error {
	return m.Called(ctx, topic, key, value).Error(0)
}

type limiterMock struct{ mock.Mock }

func (m *limiterMock) Allow(ctx context.Context, key string, limit int64, window time.Duration) (bool, int64, error) {
	args := m.Called(ctx, key, limit, window)
	return args.Bool(0), args.Get(1).(int64), args.Error(2)
}

func usableRecord(number string) models.ParsedRecord {
	return models.ParsedRecord{
		Summary: models.Summary{
			models.KeyTrackingNumber: number,
			models.KeyCountry:        "Poland",
			models.KeyLastStatus:     "Delivered",
		},
		Events: []models.TrackingEvent{
			{Date: "2024-01-02", Location: "Krakow", Status: "Delivered"},
			{Date: "2024-01-01", Location: "Warsaw", Status: "In transit"},
		},
	}
}

type ServiceSuite struct {
	suite.Suite

	m1, m2, m3 *providerMock
	tr         *translatorMock
	svc        *Service
}

func (s *ServiceSuite) SetupTest() {
	s.m1 = &providerMock{url: "http://m1.example/track"}
	s.m2 = &providerMock{url: "http://m2.example/track"}
	s.m3 = &providerMock{url: "http://m3.example/track"}
	s.tr = &translatorMock{}
	s.svc = New([]Provider{s.m1, s.m2, s.m3}, s.tr, nil)
}

func (s *ServiceSuite) identityTranslations() {
	s.tr.On("Translate", mock.Anything, mock.Anything).
		Return(func(_ context.Context, text string) string { return text }, nil)
}

func (s *ServiceSuite) TestTrack_FirstUsableWins() {
	s.identityTranslations()
	s.m1.On("Lookup", mock.Anything, "AB1").Return(usableRecord("AB1"), nil).Once()

	res, err := s.svc.Track(context.Background(), models.TrackingQuery{TrackingNumber: "AB1"})
	s.Require().NoError(err)
	s.Require().Equal(s.m1.url, res.Source)
	s.Require().Equal("AB1", res.TrackingNumber)
	s.m2.AssertNotCalled(s.T(), "Lookup", mock.Anything, mock.Anything)
	s.m3.AssertNotCalled(s.T(), "Lookup", mock.Anything, mock.Anything)
}

func (s *ServiceSuite) TestTrack_SkipsFailedAndUnusableMirrors() {
	s.identityTranslations()
	s.m1.On("Lookup", mock.Anything, "AB1").
		Return(models.ParsedRecord{}, errors.Wrap(mirror.ErrUnavailable, "timeout")).Once()
	s.m2.On("Lookup", mock.Anything, "AB1").
		Return(models.ParsedRecord{Summary: models.Summary{models.KeyCountry: "Poland"}}, nil).Once()
	s.m3.On("Lookup", mock.Anything, "AB1").Return(usableRecord("AB1"), nil).Once()

	res, err := s.svc.Track(context.Background(), models.TrackingQuery{TrackingNumber: "AB1"})
	s.Require().NoError(err)
	s.Require().Equal(s.m3.url, res.Source)
	s.Require().Equal(int64(2), s.svc.Stats().MirrorFailures)
}

func (s *ServiceSuite) TestTrack_AllMirrorsFail() {
	for _, m := range []*providerMock{s.m1, s.m2, s.m3} {
		m.On("Lookup", mock.Anything, "AB1").Return(models.ParsedRecord{}, mirror.ErrUnavailable).Once()
	}

	res, err := s.svc.Track(context.Background(), models.TrackingQuery{TrackingNumber: "AB1"})
	s.Require().Nil(res)
	s.Require().True(errors.Is(err, ErrNotFound))
	s.tr.AssertNotCalled(s.T(), "Translate", mock.Anything, mock.Anything)

	st := s.svc.Stats()
	s.Require().Equal(int64(1), st.NotFound)
	s.Require().Equal(int64(3), st.MirrorFailures)
}

func (s *ServiceSuite) TestTrack_InvalidInputMakesNoCalls() {
	for _, n := range []string{"", "AB-12", "AB 12", "ŻÓŁW1", "AB1\n"} {
		_, err := s.svc.Track(context.Background(), models.TrackingQuery{TrackingNumber: n})
		s.Require().True(errors.Is(err, ErrValidation), n)
	}
	s.m1.AssertNotCalled(s.T(), "Lookup", mock.Anything, mock.Anything)
	s.tr.AssertNotCalled(s.T(), "Translate", mock.Anything, mock.Anything)
	s.Require().Equal(int64(5), s.svc.Stats().Invalid)
}

func (s *ServiceSuite) TestTrack_TranslatesStatusesAndFallsBack() {
	rec := usableRecord("AB1")
	rec.Events = append(rec.Events, models.TrackingEvent{Date: "2023-12-31", Location: "Gdansk"})
	s.m1.On("Lookup", mock.Anything, "AB1").Return(rec, nil).Once()
	s.tr.On("Translate", mock.Anything, "Delivered").Return("Doręczono", nil)
	s.tr.On("Translate", mock.Anything, "In transit").Return("", errors.New("deepl down"))

	res, err := s.svc.Track(context.Background(), models.TrackingQuery{TrackingNumber: "AB1"})
	s.Require().NoError(err)
	s.Require().Equal("Doręczono", res.LastStatus)
	s.Require().Equal([]models.TrackingEvent{
		{Date: "2024-01-02", Location: "Krakow", Status: "Doręczono"},
		{Date: "2024-01-01", Location: "Warsaw", Status: "In transit"},
		{Date: "2023-12-31", Location: "Gdansk"},
	}, res.Details)
	// the record returned by the mirror is left intact
	s.Require().Equal("Delivered", rec.Events[0].Status)
	s.tr.AssertNotCalled(s.T(), "Translate", mock.Anything, "")
	s.Require().Equal(int64(1), s.svc.Stats().TranslationFallbacks)
}

func (s *ServiceSuite) TestTrack_NoTranslator() {
	svc := New([]Provider{s.m1}, nil, nil)
	s.m1.On("Lookup", mock.Anything, "AB1").Return(usableRecord("AB1"), nil).Once()

	res, err := svc.Track(context.Background(), models.TrackingQuery{TrackingNumber: "AB1"})
	s.Require().NoError(err)
	s.Require().Equal("Delivered", res.LastStatus)
	s.Require().Equal("In transit", res.Details[1].Status)
}

func (s *ServiceSuite) TestTrack_PublishesLookup() {
	s.identityTranslations()
	p := &producerMock{}
	s.svc.WithPublisher(p, "tracking.lookups")

	var published []byte
	p.On("Publish", mock.Anything, "tracking.lookups", []byte("AB1"), mock.Anything).
		Run(func(args mock.Arguments) { published = args.Get(3).([]byte) }).
		Return(nil).Once()
	s.m1.On("Lookup", mock.Anything, "AB1").Return(models.ParsedRecord{}, mirror.ErrUnavailable).Once()
	s.m2.On("Lookup", mock.Anything, "AB1").Return(usableRecord("AB1"), nil).Once()

	_, err := s.svc.Track(context.Background(), models.TrackingQuery{TrackingNumber: "AB1"})
	s.Require().NoError(err)
	p.AssertExpectations(s.T())

	var msg messages.LookupCompleted
	s.Require().NoError(json.Unmarshal(published, &msg))
	s.Require().True(msg.Found)
	s.Require().Equal(s.m2.url, msg.Source)
	s.Require().Equal(2, msg.Attempts)
	s.Require().Equal("AB1", msg.TrackingNumber)
	s.Require().NotZero(msg.LookupID)
}

func (s *ServiceSuite) TestTrack_PublishErrorDoesNotFailLookup() {
	p := &producerMock{}
	s.svc.WithPublisher(p, "tracking.lookups")
	p.On("Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(errors.New("broker down")).Once()
	for _, m := range []*providerMock{s.m1, s.m2, s.m3} {
		m.On("Lookup", mock.Anything, "AB1").Return(models.ParsedRecord{}, mirror.ErrUnavailable).Once()
	}

	_, err := s.svc.Track(context.Background(), models.TrackingQuery{TrackingNumber: "AB1"})
	s.Require().True(errors.Is(err, ErrNotFound))
	p.AssertExpectations(s.T())
}

func (s *ServiceSuite) TestTrack_InvalidInputIsNotPublished() {
	p := &producerMock{}
	s.svc.WithPublisher(p, "tracking.lookups")

	_, err := s.svc.Track(context.Background(), models.TrackingQuery{TrackingNumber: "??"})
	s.Require().Error(err)
	p.AssertNotCalled(s.T(), "Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (s *ServiceSuite) TestTrack_RateLimitedMirrorIsSkipped() {
	s.identityTranslations()
	rl := &limiterMock{}
	s.svc.WithRateLimiter(rl, 10)

	rl.On("Allow", mock.Anything, mock.MatchedBy(func(k string) bool {
		return strings.HasPrefix(k, "rl:mirror:m1.example:")
	}), int64(10), rateLimitWindow).Return(false, int64(11), nil).Once()
	rl.On("Allow", mock.Anything, mock.MatchedBy(func(k string) bool {
		return strings.HasPrefix(k, "rl:mirror:m2.example:")
	}), int64(10), rateLimitWindow).Return(true, int64(1), nil).Once()
	s.m2.On("Lookup", mock.Anything, "AB1").Return(usableRecord("AB1"), nil).Once()

	res, err := s.svc.Track(context.Background(), models.TrackingQuery{TrackingNumber: "AB1"})
	s.Require().NoError(err)
	s.Require().Equal(s.m2.url, res.Source)
	s.m1.AssertNotCalled(s.T(), "Lookup", mock.Anything, mock.Anything)
	rl.AssertExpectations(s.T())
}

func (s *ServiceSuite) TestTrack_LimiterErrorFailsOpen() {
	s.identityTranslations()
	rl := &limiterMock{}
	s.svc.WithRateLimiter(rl, 10)
	rl.On("Allow", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(false, int64(0), errors.New("redis down"))
	s.m1.On("Lookup", mock.Anything, "AB1").Return(usableRecord("AB1"), nil).Once()

	res, err := s.svc.Track(context.Background(), models.TrackingQuery{TrackingNumber: "AB1"})
	s.Require().NoError(err)
	s.Require().Equal(s.m1.url, res.Source)
}

func (s *ServiceSuite) TestTrack_RepeatedLookupsAreStable() {
	s.identityTranslations()
	s.m1.On("Lookup", mock.Anything, "AB1").Return(usableRecord("AB1"), nil).Twice()

	a, err := s.svc.Track(context.Background(), models.TrackingQuery{TrackingNumber: "AB1"})
	s.Require().NoError(err)
	b, err := s.svc.Track(context.Background(), models.TrackingQuery{TrackingNumber: "AB1"})
	s.Require().NoError(err)
	s.Require().Equal(a, b)

	st := s.svc.Stats()
	s.Require().Equal(int64(2), st.Lookups)
	s.Require().Equal(int64(2), st.Found)
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}
