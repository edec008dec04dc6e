package mirror

import (
	"context"

	"github.com/BearBump/TrackMirror/internal/integrations/mirror/markup"
	"github.com/BearBump/TrackMirror/internal/models"
	"github.com/pkg/errors"
)

// Source is one entry of the mirror priority list: fetch + parse.
type Source struct {
	client *Client
	parse  func(html string) (models.ParsedRecord, error)
}

func NewSource(c *Client) *Source {
	return &Source{client: c, parse: markup.Parse}
}

func (s *Source) URL() string { return s.client.URL() }

func (s *Source) Lookup(ctx context.Context, trackingNumber string) (models.ParsedRecord, error) {
	html, err := s.client.Fetch(ctx, trackingNumber)
	if err != nil {
		return models.ParsedRecord{}, err
	}
	rec, err := s.parse(html)
	if err != nil {
		return models.ParsedRecord{}, errors.Wrapf(ErrUnavailable, "parse: %v", err)
	}
	return rec, nil
}
