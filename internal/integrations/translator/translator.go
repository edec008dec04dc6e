package translator

import (
	"context"

	"github.com/pkg/errors"
)

// ErrNotConfigured is returned when no API key is set; callers fall back to the original text.
var ErrNotConfigured = errors.New("translator not configured")

type Translator interface {
	Translate(ctx context.Context, text string) (string, error)
}
