// Package ical serializes the catalog as an iCalendar feed so external
// calendar apps can subscribe to the listing.
package ical

import (
	"fmt"
	"time"

	ics "github.com/arran4/golang-ical"

	"swingboard/internal/catalog"
	appLog "swingboard/internal/log"
	"swingboard/internal/model"
)

const prodID = "-//swingboard//catalog//KO"

// Export renders records as an all-day-event ICS payload. Explicit date
// sets produce one VEVENT per date; range and single-date records produce
// one VEVENT spanning the range. Dateless records are skipped.
func Export(recs []model.EventRecord, now time.Time) (string, error) {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(prodID)

	for _, rec := range recs {
		if len(rec.EventDates) > 0 {
			for i, d := range rec.EventDates {
				start, ok := civilDate(d)
				if !ok {
					appLog.Debug("ical: unparsable explicit date; skipping", "id", rec.ID, "date", d)
					continue
				}
				uid := fmt.Sprintf("%s-%d@swingboard", rec.ID, i)
				addEvent(cal, uid, rec, start, start.AddDate(0, 0, 1), now)
			}
			continue
		}

		startStr, endStr, err := catalog.EffectiveRange(rec)
		if err != nil {
			appLog.Debug("ical: dateless record skipped", "id", rec.ID)
			continue
		}
		start, okS := civilDate(startStr)
		end, okE := civilDate(endStr)
		if !okS || !okE {
			appLog.Debug("ical: unparsable range; skipping", "id", rec.ID, "start", startStr, "end", endStr)
			continue
		}
		uid := fmt.Sprintf("%s@swingboard", rec.ID)
		// DTEND is exclusive for all-day events.
		addEvent(cal, uid, rec, start, end.AddDate(0, 0, 1), now)
	}

	return cal.Serialize(), nil
}

func addEvent(cal *ics.Calendar, uid string, rec model.EventRecord, start, end, now time.Time) {
	ev := cal.AddEvent(uid)
	ev.SetDtStampTime(now.UTC())
	ev.SetAllDayStartAt(start)
	ev.SetAllDayEndAt(end)
	ev.SetSummary(rec.Title)
	if rec.Location != "" {
		ev.SetLocation(rec.Location)
	}
	if rec.Organizer != "" {
		ev.SetDescription("주최: " + rec.Organizer)
	}
}

func civilDate(s string) (time.Time, bool) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
