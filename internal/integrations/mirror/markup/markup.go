// Package markup extracts a tracking record from a mirror's HTML page.
//
// The summary is positional: the first <ul> under div.menu_ holds labels and
// the second holds values, matched by <li> index. Every table row with exactly
// three cells is a history event (date, location, status).
package markup

import (
	"strings"

	"github.com/BearBump/TrackMirror/internal/labels"
	"github.com/BearBump/TrackMirror/internal/models"
	"github.com/PuerkitoBio/goquery"
	"github.com/pkg/errors"
)

const (
	summaryListsSelector = "div.menu_ ul"
	eventCells           = 3
)

func Parse(html string) (models.ParsedRecord, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return models.ParsedRecord{}, errors.Wrap(err, "read html")
	}
	return models.ParsedRecord{
		Summary: parseSummary(doc),
		Events:  parseEvents(doc),
	}, nil
}

func parseSummary(doc *goquery.Document) models.Summary {
	summary := models.Summary{}

	lists := doc.Find(summaryListsSelector)
	if lists.Length() < 2 {
		return summary
	}
	names := itemTexts(lists.Eq(0))
	values := itemTexts(lists.Eq(1))

	for i, name := range names {
		if name == "" {
			continue
		}
		value := ""
		if i < len(values) {
			value = values[i]
		}
		summary[labels.Normalize(name)] = value
	}
	return summary
}

func parseEvents(doc *goquery.Document) []models.TrackingEvent {
	var events []models.TrackingEvent
	doc.Find("tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.ChildrenFiltered("td")
		if cells.Length() != eventCells {
			return
		}
		events = append(events, models.TrackingEvent{
			Date:     cleanText(cells.Eq(0).Text()),
			Location: cleanText(cells.Eq(1).Text()),
			Status:   cleanText(cells.Eq(2).Text()),
		})
	})
	return events
}

func itemTexts(list *goquery.Selection) []string {
	items := list.ChildrenFiltered("li")
	out := make([]string, 0, items.Length())
	items.Each(func(_ int, li *goquery.Selection) {
		out = append(out, cleanText(li.Text()))
	})
	return out
}

func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
