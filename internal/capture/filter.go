package capture

import (
	"strings"

	"github.com/sahilm/fuzzy"
)

// Filter selects events from a snapshot. Zero-value fields are ignored; an
// event matches when every set field matches.
type Filter struct {
	// Method matches the request method, case-insensitively.
	Method string

	// URLContains matches a case-insensitive substring of the URL.
	URLContains string

	// Query fuzzy-matches against the URL.
	Query string

	// Status matches the response status code exactly.
	Status int

	// HasError filters by error presence.
	HasError *bool
}

// Match reports whether the event satisfies every set criterion.
func (f Filter) Match(e Event) bool {
	if f.Method != "" && !strings.EqualFold(f.Method, e.Method) {
		return false
	}
	if f.URLContains != "" && !strings.Contains(strings.ToLower(e.URL), strings.ToLower(f.URLContains)) {
		return false
	}
	if f.Query != "" {
		if matches := fuzzy.Find(f.Query, []string{e.URL}); len(matches) == 0 {
			return false
		}
	}
	if f.Status != 0 && e.StatusCode != f.Status {
		return false
	}
	if f.HasError != nil && *f.HasError != e.IsError() {
		return false
	}
	return true
}

// Apply returns the events from a snapshot matching f, most recent first.
// The zero filter returns the full snapshot in that order.
func Apply(events []Event, f Filter) []Event {
	out := make([]Event, 0, len(events))
	for i := len(events) - 1; i >= 0; i-- {
		if f.Match(events[i]) {
			out = append(out, events[i])
		}
	}
	return out
}
