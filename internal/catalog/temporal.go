// Package catalog is the pure-logic engine behind the event catalog: the
// temporal predicates, the context filter with its ongoing/ended partition,
// the fair-exposure sampler and the ingestion dedup matcher. It performs no
// I/O and never mutates its inputs; the host hands it a frozen record
// snapshot on every invocation.
package catalog

import (
	"errors"
	"fmt"
	"time"

	"swingboard/internal/model"
)

// KST is the single fixed offset used for every "today"/weekday calculation.
// 고정 UTC+9 오프셋만 사용하고 타임존 DB 에는 의존하지 않는다.
var KST = time.FixedZone("KST", 9*60*60)

// ErrDateless marks a record that resolves to no calendar date under any of
// the three temporal representations. Callers decide whether to show such
// records in a catch-all view or hide them.
var ErrDateless = errors.New("record has no resolvable date")

const dateLayout = "2006-01-02"

// DateString converts an instant to its KST civil date in YYYY-MM-DD form.
func DateString(t time.Time) string {
	return t.In(KST).Format(dateLayout)
}

// Weekday returns the KST weekday of an instant (0=Sunday..6=Saturday).
func Weekday(t time.Time) int {
	return int(t.In(KST).Weekday())
}

// parseDate parses a YYYY-MM-DD string as a civil date. The returned time is
// anchored at noon UTC so that weekday arithmetic is unaffected by offsets.
func parseDate(s string) (time.Time, bool) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, false
	}
	return t.Add(12 * time.Hour), true
}

// weekdayOfDate returns the weekday of a civil date string.
func weekdayOfDate(s string) (int, bool) {
	t, ok := parseDate(s)
	if !ok {
		return 0, false
	}
	return int(t.Weekday()), true
}

// EffectiveStart resolves the start of the contiguous interpretation of a
// record: StartDate, falling back to Date. Explicit date sets are handled by
// their own predicates and do not participate here.
func EffectiveStart(rec model.EventRecord) string {
	if rec.StartDate != "" {
		return rec.StartDate
	}
	return rec.Date
}

// EffectiveEnd resolves the date a record stops being "ongoing": EndDate,
// then Date, then the latest explicit date.
func EffectiveEnd(rec model.EventRecord) string {
	if rec.EndDate != "" {
		return rec.EndDate
	}
	if rec.Date != "" {
		return rec.Date
	}
	latest := ""
	for _, d := range rec.EventDates {
		if d > latest {
			latest = d
		}
	}
	return latest
}

// EffectiveRange reports the record's full [start, end] civil-date interval,
// or ErrDateless when none of the temporal representations is present.
func EffectiveRange(rec model.EventRecord) (start, end string, err error) {
	if len(rec.EventDates) > 0 {
		start, end = rec.EventDates[0], rec.EventDates[0]
		for _, d := range rec.EventDates {
			if d < start {
				start = d
			}
			if d > end {
				end = d
			}
		}
		return start, end, nil
	}
	start = EffectiveStart(rec)
	end = rec.EndDate
	if end == "" {
		end = rec.Date
	}
	if start == "" && end == "" {
		return "", "", fmt.Errorf("%s: %w", rec.ID, ErrDateless)
	}
	if start == "" {
		start = end
	}
	if end == "" {
		end = start
	}
	return start, end, nil
}

// Dateless reports whether the record carries no temporal information at all.
func Dateless(rec model.EventRecord) bool {
	_, _, err := EffectiveRange(rec)
	return err != nil
}

// MatchesDate reports whether the record occupies the given civil date.
// Explicit date sets take precedence: when present, only set membership
// counts. Otherwise the inclusive [start, end] range is checked, with
// single-date records acting as a one-day range. Missing date fields
// exclude rather than error.
func MatchesDate(rec model.EventRecord, date string) bool {
	if len(rec.EventDates) > 0 {
		for _, d := range rec.EventDates {
			if d == date {
				return true
			}
		}
		return false
	}

	startDate := EffectiveStart(rec)
	endDate := rec.EndDate
	if endDate == "" {
		endDate = rec.Date
	}
	if startDate == "" || endDate == "" {
		return false
	}
	return date >= startDate && date <= endDate
}

// View is the calendar granularity of a month-navigation context.
type View string

const (
	ViewMonth View = "month"
	ViewYear  View = "year"
)

// MatchesMonth reports whether the record is visible in the given month (or
// year, for year-granularity views). Explicit date sets match when any entry
// falls in the target month/year; ranges match on interval overlap, not
// containment.
func MatchesMonth(rec model.EventRecord, year int, month time.Month, view View) bool {
	if len(rec.EventDates) > 0 {
		if view == ViewYear {
			prefix := fmt.Sprintf("%04d-", year)
			for _, d := range rec.EventDates {
				if len(d) >= 5 && d[:5] == prefix {
					return true
				}
			}
			return false
		}
		prefix := fmt.Sprintf("%04d-%02d", year, int(month))
		for _, d := range rec.EventDates {
			if len(d) >= 7 && d[:7] == prefix {
				return true
			}
		}
		return false
	}

	startDate := EffectiveStart(rec)
	endDate := rec.EndDate
	if endDate == "" {
		endDate = rec.Date
	}
	if startDate == "" || endDate == "" {
		return false
	}

	if view == ViewYear {
		yearStart := fmt.Sprintf("%04d-01-01", year)
		yearEnd := fmt.Sprintf("%04d-12-31", year)
		return startDate <= yearEnd && endDate >= yearStart
	}

	monthStart := fmt.Sprintf("%04d-%02d-01", year, int(month))
	lastDay := time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
	monthEnd := fmt.Sprintf("%04d-%02d-%02d", year, int(month), lastDay)
	return startDate <= monthEnd && endDate >= monthStart
}

// MatchesWeekday reports whether any date the record occupies falls on the
// given weekday (0=Sunday..6=Saturday).
//
// For range-based records spanning >= 6 rounded calendar days the check
// short-circuits to true instead of enumerating days. Known discrepancy
// carried over from the legacy catalog: only a 7-day span is guaranteed to
// cover every weekday, so the 6-day threshold over-matches one-day-short
// ranges. Kept as-is because changing it changes which events a weekday
// filter shows.
func MatchesWeekday(rec model.EventRecord, weekday int) bool {
	if len(rec.EventDates) > 0 {
		for _, d := range rec.EventDates {
			if wd, ok := weekdayOfDate(d); ok && wd == weekday {
				return true
			}
		}
		return false
	}

	startDate := EffectiveStart(rec)
	if startDate == "" {
		return false
	}
	endDate := rec.EndDate
	if endDate == "" {
		endDate = rec.Date
	}
	if endDate == "" {
		endDate = startDate
	}

	start, okS := parseDate(startDate)
	end, okE := parseDate(endDate)
	if !okS || !okE {
		return false
	}

	diffDays := int(end.Sub(start).Hours()/24 + 0.5)
	if diffDays < 0 {
		diffDays = -diffDays
	}
	if diffDays >= 6 {
		return true
	}

	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if int(d.Weekday()) == weekday {
			return true
		}
	}
	return false
}
