package catalog

import (
	"strconv"
	"strings"
	"time"

	"swingboard/internal/model"
)

// Category filter sentinels. An empty or "all" filter passes every category;
// "none" represents an intentionally empty view and excludes everything.
const (
	CategoryAll  = "all"
	CategoryNone = "none"
)

// FilterContext is one viewing context: the knobs a user has set when the
// catalog re-renders. Zero values mean "not set".
type FilterContext struct {
	// Category is "", "all", "none" or one of the model.Category names.
	Category string

	// Per-category genre selections; each applies only to records of the
	// matching category.
	EventGenre string
	ClassGenre string
	ClubGenre  string

	SearchTerm string

	// Date is an explicitly selected day (YYYY-MM-DD).
	Date string

	// Month view context, used when no explicit Date is set.
	HasMonth bool
	Year     int
	Month    time.Month
	View     View

	// Weekday filters month views to records touching this weekday
	// (0=Sunday..6=Saturday). Nil means no weekday filter.
	Weekday *int

	// Now is the evaluation instant; the zero value means time.Now().
	// Tests pin it for reproducibility.
	Now time.Time
}

func (ctx FilterContext) now() time.Time {
	if ctx.Now.IsZero() {
		return time.Now()
	}
	return ctx.Now
}

// Matches applies the context's predicates to a single record, in
// short-circuit order: category, genre-within-category, search (which
// bypasses date context but applies a ±1 year recency guard), explicit
// date, then weekday + month view. A record with no date context to check
// passes.
func Matches(rec model.EventRecord, ctx FilterContext) bool {
	if !matchesCategory(rec, ctx.Category) {
		return false
	}
	if !matchesGenre(rec, ctx) {
		return false
	}

	if term := strings.TrimSpace(ctx.SearchTerm); term != "" {
		return matchesSearch(rec, term, ctx.now())
	}

	if ctx.Date != "" {
		return MatchesDate(rec, ctx.Date)
	}

	if ctx.HasMonth {
		if ctx.Weekday != nil && !MatchesWeekday(rec, *ctx.Weekday) {
			return false
		}
		view := ctx.View
		if view == "" {
			view = ViewMonth
		}
		return MatchesMonth(rec, ctx.Year, ctx.Month, view)
	}

	return true
}

// Filter reduces a snapshot to the records matching the context. The input
// slice is never mutated.
func Filter(recs []model.EventRecord, ctx FilterContext) []model.EventRecord {
	out := make([]model.EventRecord, 0, len(recs))
	for _, rec := range recs {
		if Matches(rec, ctx) {
			out = append(out, rec)
		}
	}
	return out
}

func matchesCategory(rec model.EventRecord, filter string) bool {
	switch filter {
	case "", CategoryAll:
		return true
	case CategoryNone:
		return false
	}
	return string(rec.Category) == filter
}

// matchesGenre applies the per-category genre selection. The record's genre
// string is split on commas and compared as normalized whole tags, not
// substrings.
func matchesGenre(rec model.EventRecord, ctx FilterContext) bool {
	var want string
	switch rec.Category {
	case model.CategoryClass:
		want = ctx.ClassGenre
	case model.CategoryClub:
		want = ctx.ClubGenre
	case model.CategoryEvent:
		want = ctx.EventGenre
	case model.CategorySocial:
		// Socials carry no per-category genre selector.
		want = ""
	}
	if want == "" {
		return true
	}
	if rec.Genre == "" {
		return false
	}
	search := strings.ToLower(strings.TrimSpace(want))
	for _, tag := range strings.Split(rec.Genre, ",") {
		if strings.ToLower(strings.TrimSpace(tag)) == search {
			return true
		}
	}
	return false
}

// matchesSearch checks the term against title, location, organizer and
// genre, then applies the coarse recency guard: only records whose year is
// within one year of the current KST year are searchable. Month/date
// context is deliberately bypassed under search.
func matchesSearch(rec model.EventRecord, term string, now time.Time) bool {
	term = strings.ToLower(term)
	hit := containsFold(rec.Title, term) ||
		containsFold(rec.Location, term) ||
		containsFold(rec.Organizer, term) ||
		containsFold(rec.Genre, term)
	if !hit {
		return false
	}

	eventDate := EffectiveStart(rec)
	if eventDate == "" {
		return false
	}
	year, err := strconv.Atoi(eventDate[:min(4, len(eventDate))])
	if err != nil {
		return false
	}
	currentYear := now.In(KST).Year()
	return year >= currentYear-1 && year <= currentYear+1
}

func containsFold(s, lowerTerm string) bool {
	if s == "" {
		return false
	}
	return strings.Contains(strings.ToLower(s), lowerTerm)
}

// Partition splits an already-filtered list into ongoing and ended subsets
// by comparing each record's effective end date against KST "today".
// Records whose end date is strictly before today are ended; everything
// else, including dateless records, is ongoing. Ongoing records always
// precede ended ones in any final ordering.
func Partition(recs []model.EventRecord, now time.Time) (ongoing, ended []model.EventRecord) {
	today := DateString(now)
	ongoing = make([]model.EventRecord, 0, len(recs))
	ended = make([]model.EventRecord, 0)
	for _, rec := range recs {
		end := EffectiveEnd(rec)
		if end != "" && end < today {
			ended = append(ended, rec)
		} else {
			ongoing = append(ongoing, rec)
		}
	}
	return ongoing, ended
}
