// Package recur materializes weekly recurring records into explicit date
// sets before the catalog engine sees them. The source schema marks weekly
// socials with a day_of_week column instead of concrete dates; the engine
// only understands concrete dates.
package recur

import (
	"errors"
	"time"

	"github.com/teambition/rrule-go"

	"swingboard/internal/catalog"
	appLog "swingboard/internal/log"
	"swingboard/internal/model"
)

const defaultMaxOccurrences = 500

// Config controls the expansion window.
type Config struct {
	// RangeStart / RangeEnd bound the materialized dates (inclusive).
	RangeStart time.Time
	RangeEnd   time.Time

	// MaxOccurrences caps the dates produced per record. Zero means
	// defaultMaxOccurrences.
	MaxOccurrences int
}

// weekdayRules maps the schema's 0=Sunday..6=Saturday convention onto rrule
// weekdays.
var weekdayRules = [7]rrule.Weekday{
	rrule.SU, rrule.MO, rrule.TU, rrule.WE, rrule.TH, rrule.FR, rrule.SA,
}

// Materialize returns a copy of the snapshot in which every weekly record
// (DayOfWeek set, no explicit dates yet) has EventDates filled with the
// concrete KST dates inside the window. Records that already carry explicit
// dates, and records whose rule fails to build, pass through unchanged.
func Materialize(recs []model.EventRecord, cfg Config) ([]model.EventRecord, error) {
	if cfg.RangeEnd.Before(cfg.RangeStart) {
		return nil, errors.New("recur: RangeEnd is before RangeStart")
	}
	if cfg.MaxOccurrences <= 0 {
		cfg.MaxOccurrences = defaultMaxOccurrences
	}

	out := make([]model.EventRecord, len(recs))
	copy(out, recs)

	for i := range out {
		rec := &out[i]
		if rec.DayOfWeek == nil || len(rec.EventDates) > 0 {
			continue
		}
		wd := *rec.DayOfWeek
		if wd < 0 || wd > 6 {
			appLog.Error("recur: day_of_week out of range", errors.New("invalid weekday"),
				"id", rec.ID, "day_of_week", wd)
			continue
		}

		dates, hitCap := expandWeekly(wd, cfg)
		if hitCap {
			appLog.Error("recur: truncated occurrences due to cap",
				errors.New("max occurrences reached"),
				"id", rec.ID, "cap", cfg.MaxOccurrences)
		}
		rec.EventDates = dates
	}

	return out, nil
}

// expandWeekly produces the KST civil dates of one weekday inside the
// window, capped.
func expandWeekly(weekday int, cfg Config) ([]string, bool) {
	start := dayStart(cfg.RangeStart)
	end := dayStart(cfg.RangeEnd)

	r, err := rrule.NewRRule(rrule.ROption{
		Freq:      rrule.WEEKLY,
		Byweekday: []rrule.Weekday{weekdayRules[weekday]},
		Dtstart:   start,
	})
	if err != nil {
		appLog.Error("recur: failed to build weekly rule", err, "weekday", weekday)
		return nil, false
	}

	occ := r.Between(start, end, true)
	hitCap := false
	if len(occ) > cfg.MaxOccurrences {
		occ = occ[:cfg.MaxOccurrences]
		hitCap = true
	}

	dates := make([]string, 0, len(occ))
	for _, t := range occ {
		dates = append(dates, t.Format("2006-01-02"))
	}
	return dates, hitCap
}

// dayStart truncates an instant to its KST midnight, expressed in UTC so
// that rrule iteration steps over civil days.
func dayStart(t time.Time) time.Time {
	k := t.In(catalog.KST)
	return time.Date(k.Year(), k.Month(), k.Day(), 0, 0, 0, 0, time.UTC)
}
