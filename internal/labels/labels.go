// Package labels maps the field labels scraped from mirror pages (English or
// Polish) onto canonical summary keys.
package labels

import (
	"strings"

	"github.com/BearBump/TrackMirror/internal/fallback"
	"github.com/BearBump/TrackMirror/internal/models"
	"github.com/pkg/errors"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var errUnknownLabel = errors.New("unknown label")

// Ключи таблицы уже в нижнем регистре.
var table = map[string]string{
	"tracking number":    models.KeyTrackingNumber,
	"tracking no":        models.KeyTrackingNumber,
	"tracking no.":       models.KeyTrackingNumber,
	"numer śledzenia":    models.KeyTrackingNumber,
	"numer przesyłki":    models.KeyTrackingNumber,
	"reference no":       models.KeyReferenceNo,
	"reference no.":      models.KeyReferenceNo,
	"reference number":   models.KeyReferenceNo,
	"numer referencyjny": models.KeyReferenceNo,
	"nr referencyjny":    models.KeyReferenceNo,
	"country":            models.KeyCountry,
	"destination":        models.KeyCountry,
	"kraj":               models.KeyCountry,
	"kraj docelowy":      models.KeyCountry,
	"date":               models.KeyDate,
	"data":               models.KeyDate,
	"data nadania":       models.KeyDate,
	"last status":        models.KeyLastStatus,
	"status":             models.KeyLastStatus,
	"ostatni status":     models.KeyLastStatus,
	"consignee name":     models.KeyConsigneeName,
	"consignee":          models.KeyConsigneeName,
	"nazwa odbiorcy":     models.KeyConsigneeName,
	"odbiorca":           models.KeyConsigneeName,
}

// Normalize returns the canonical key for label, or label itself when the
// table has no entry for it.
func Normalize(label string) string {
	out, _ := fallback.Identity(label, lookup)
	return out
}

func lookup(label string) (string, error) {
	key, ok := table[fold(label)]
	if !ok {
		return "", errors.Wrapf(errUnknownLabel, "%q", label)
	}
	return key, nil
}

// fold lower-cases with Polish rules and drops the decoration mirrors put
// around labels ("Tracking Number: ").
func fold(label string) string {
	// cases.Caser is stateful, a new one per call.
	s := cases.Lower(language.Polish).String(label)
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, ":")
	return strings.Join(strings.Fields(s), " ")
}
