package translator

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"time"

	"github.com/BearBump/TrackMirror/internal/cache"
)

// Cached remembers successful translations. Failures are not cached and
// cache errors only cost a call to next.
type Cached struct {
	next  Translator
	cache cache.BytesCache
	ttl   time.Duration
	lang  string
}

func NewCached(next Translator, c cache.BytesCache, ttl time.Duration, lang string) *Cached {
	return &Cached{next: next, cache: c, ttl: ttl, lang: lang}
}

func (c *Cached) Translate(ctx context.Context, text string) (string, error) {
	key := c.key(text)
	if b, ok, err := c.cache.Get(ctx, key); err == nil && ok {
		return string(b), nil
	}

	out, err := c.next.Translate(ctx, text)
	if err != nil {
		return "", err
	}
	_ = c.cache.Set(ctx, key, []byte(out), c.ttl)
	return out, nil
}

func (c *Cached) key(text string) string {
	sum := sha1.Sum([]byte(text))
	return "translation:" + c.lang + ":" + hex.EncodeToString(sum[:])
}
