package chat

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dateai/dateai-server/internal/types"
)

var (
	eventBlockPattern = regexp.MustCompile(`(?s)EVENT_START\n(.*?)EVENT_END`)
	timeOfDayPattern  = regexp.MustCompile(`(?i)\d{1,2}:\d{2}\s*(?:AM|PM)`)

	fieldPatterns = map[string]*regexp.Regexp{
		"Title":       fieldPattern("Title"),
		"Date":        fieldPattern("Date"),
		"Time":        fieldPattern("Time"),
		"Location":    fieldPattern("Location"),
		"Category":    fieldPattern("Category"),
		"Price":       fieldPattern("Price"),
		"Description": fieldPattern("Description"),
	}
)

func fieldPattern(name string) *regexp.Regexp {
	return regexp.MustCompile(`(?im)^` + name + `:\s*(.+)$`)
}

// modelDateLayouts are the formats models actually emit despite the prompt
// asking for MM/DD/YYYY.
var modelDateLayouts = []string{
	"1/2/2006",
	"2006-01-02",
	"January 2, 2006",
	"Jan 2, 2006",
}

// ParseEventBlocks extracts the delimited EVENT_START/EVENT_END blocks from
// model output. Coordinates are zero at this stage; the caller resolves the
// Location text through the geocoder before the records can pass validation.
func ParseEventBlocks(content string) []types.Event {
	matches := eventBlockPattern.FindAllStringSubmatch(content, -1)
	events := make([]types.Event, 0, len(matches))

	for _, match := range matches {
		block := match[1]
		ev := types.Event{
			ID:       fmt.Sprintf("ai-%d-%s", time.Now().UnixMilli(), uuid.NewString()[:8]),
			Category: types.CategorySpecial,
			Status:   "active",
		}

		if v, ok := fieldValue(block, "Title"); ok {
			ev.Title = v
		}
		if v, ok := fieldValue(block, "Date"); ok {
			ev.Date = normalizeDate(v)
		}
		if v, ok := fieldValue(block, "Time"); ok {
			if ts := timeOfDayPattern.FindString(v); ts != "" {
				ev.Time = ts
			} else {
				ev.Time = v
			}
		}
		if v, ok := fieldValue(block, "Location"); ok {
			ev.Location = types.EventLocation{Address: v}
		}
		if v, ok := fieldValue(block, "Category"); ok {
			category := types.EventCategory(strings.ToLower(v))
			if types.IsValidCategory(category) {
				ev.Category = category
			}
		}
		if v, ok := fieldValue(block, "Price"); ok {
			ev.PriceRange = v
		}
		if v, ok := fieldValue(block, "Description"); ok {
			ev.Description = v
		}

		if ev.Title == "" || ev.Location.Address == "" {
			continue
		}
		events = append(events, ev)
	}
	return events
}

func fieldValue(block, field string) (string, bool) {
	m := fieldPatterns[field].FindStringSubmatch(block)
	if m == nil {
		return "", false
	}
	value := strings.TrimSpace(m[1])
	return value, value != ""
}

// normalizeDate reformats parseable dates to the canonical display form and
// passes everything else through untouched.
func normalizeDate(value string) string {
	for _, layout := range modelDateLayouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts.Format("1/2/2006")
		}
	}
	return value
}
