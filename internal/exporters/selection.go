package exporters

import (
	"strings"
	"time"

	"github.com/mrlokans/shelfport/internal/snapshot"
)

// Selection is the set of categories to export.
type Selection struct {
	set map[snapshot.Category]bool
}

// SelectAll selects every category.
func SelectAll() Selection {
	return Select(snapshot.AllCategories...)
}

// Select selects the given categories.
func Select(categories ...snapshot.Category) Selection {
	s := Selection{set: make(map[snapshot.Category]bool, len(categories))}
	for _, c := range categories {
		s.set[c] = true
	}
	return s
}

// ParseSelection reads a comma separated category list. An empty list
// selects everything.
func ParseSelection(list string) (Selection, error) {
	if strings.TrimSpace(list) == "" {
		return SelectAll(), nil
	}
	var categories []snapshot.Category
	for _, name := range strings.Split(list, ",") {
		if strings.TrimSpace(name) == "" {
			continue
		}
		c, ok := snapshot.ParseCategory(name)
		if !ok {
			return Selection{}, snapshot.NewError(snapshot.KindValidation, "unknown category %q", strings.TrimSpace(name))
		}
		categories = append(categories, c)
	}
	return Select(categories...), nil
}

// Has reports whether a category is selected.
func (s Selection) Has(c snapshot.Category) bool {
	return s.set[c]
}

// Categories lists the selected categories in dependency order.
func (s Selection) Categories() []snapshot.Category {
	var out []snapshot.Category
	for _, c := range snapshot.AllCategories {
		if s.set[c] {
			out = append(out, c)
		}
	}
	return out
}

// DateRange bounds reading sessions by calendar day, inclusive on both ends.
// A zero bound is open.
type DateRange struct {
	From time.Time
	To   time.Time
}

const dateLayout = "2006-01-02"

// ParseDateRange parses YYYY-MM-DD bounds. It returns nil when both are empty.
func ParseDateRange(from, to string) (*DateRange, error) {
	from, to = strings.TrimSpace(from), strings.TrimSpace(to)
	if from == "" && to == "" {
		return nil, nil
	}

	var r DateRange
	var err error
	if from != "" {
		if r.From, err = time.Parse(dateLayout, from); err != nil {
			return nil, snapshot.WrapError(snapshot.KindValidation, err, "invalid from date %q", from)
		}
	}
	if to != "" {
		if r.To, err = time.Parse(dateLayout, to); err != nil {
			return nil, snapshot.WrapError(snapshot.KindValidation, err, "invalid to date %q", to)
		}
	}
	if !r.From.IsZero() && !r.To.IsZero() && r.To.Before(r.From) {
		return nil, snapshot.NewError(snapshot.KindValidation, "date range ends before it starts")
	}
	return &r, nil
}

// Contains reports whether t falls on a day inside the range.
func (r *DateRange) Contains(t time.Time) bool {
	if r == nil {
		return true
	}
	d := day(t)
	if !r.From.IsZero() && d.Before(day(r.From)) {
		return false
	}
	if !r.To.IsZero() && d.After(day(r.To)) {
		return false
	}
	return true
}

func (r *DateRange) filter(sessions []snapshot.ReadingSessionRecord) []snapshot.ReadingSessionRecord {
	if r == nil {
		return sessions
	}
	out := make([]snapshot.ReadingSessionRecord, 0, len(sessions))
	for _, rs := range sessions {
		if r.Contains(rs.SessionDate) {
			out = append(out, rs)
		}
	}
	return out
}

func day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
