package catalog

import (
	"testing"
	"time"

	"swingboard/internal/model"
)

// fixedNow pins evaluation time: 2025-06-15 12:00 KST.
var fixedNow = time.Date(2025, 6, 15, 12, 0, 0, 0, KST)

func TestFilterCategory(t *testing.T) {
	recs := []model.EventRecord{
		{ID: "1", Category: model.CategoryClass, Date: "2025-06-20"},
		{ID: "2", Category: model.CategoryEvent, Date: "2025-06-21"},
	}

	got := Filter(recs, FilterContext{Category: "class", Now: fixedNow})
	if len(got) != 1 || got[0].ID != "1" {
		t.Fatalf("category filter: got %v", ids(got))
	}

	if got := Filter(recs, FilterContext{Category: CategoryAll, Now: fixedNow}); len(got) != 2 {
		t.Errorf("'all' must pass every category, got %v", ids(got))
	}

	// 'none' represents an intentionally empty view.
	if got := Filter(recs, FilterContext{Category: CategoryNone, Now: fixedNow}); len(got) != 0 {
		t.Errorf("'none' must exclude everything, got %v", ids(got))
	}
}

func TestFilterGenreExactTag(t *testing.T) {
	rec := model.EventRecord{
		ID:       "1",
		Category: model.CategoryClass,
		Genre:    "린디합, 솔로재즈",
		Date:     "2025-06-20",
	}

	if !Matches(rec, FilterContext{ClassGenre: "솔로재즈", Now: fixedNow}) {
		t.Error("trimmed tag should match")
	}
	if !Matches(rec, FilterContext{ClassGenre: " 린디합 ", Now: fixedNow}) {
		t.Error("requested genre is normalized before comparison")
	}
	// Tag match is exact, not substring.
	if Matches(rec, FilterContext{ClassGenre: "린디", Now: fixedNow}) {
		t.Error("prefix of a tag must not match")
	}
	// Missing genre excludes when a genre filter is active.
	bare := model.EventRecord{ID: "2", Category: model.CategoryClass, Date: "2025-06-20"}
	if Matches(bare, FilterContext{ClassGenre: "린디합", Now: fixedNow}) {
		t.Error("record without genre must not match a genre filter")
	}
}

func TestFilterGenrePerCategory(t *testing.T) {
	classRec := model.EventRecord{ID: "1", Category: model.CategoryClass, Genre: "발보아", Date: "2025-06-20"}
	eventRec := model.EventRecord{ID: "2", Category: model.CategoryEvent, Genre: "블루스", Date: "2025-06-21"}

	// A class genre selection does not constrain event records.
	ctx := FilterContext{ClassGenre: "발보아", Now: fixedNow}
	if !Matches(classRec, ctx) {
		t.Error("class record with matching class genre should pass")
	}
	if !Matches(eventRec, ctx) {
		t.Error("event record is not subject to the class genre selection")
	}

	ctx = FilterContext{EventGenre: "린디합", Now: fixedNow}
	if Matches(eventRec, ctx) {
		t.Error("event record with non-matching event genre must fail")
	}
}

func TestFilterSearch(t *testing.T) {
	rec := model.EventRecord{
		ID:        "1",
		Category:  model.CategoryEvent,
		Title:     "한강 스윙 피크닉",
		Organizer: "Seoul Lindy",
		Date:      "2025-09-20",
	}

	// Case-insensitive substring over organizer.
	if !Matches(rec, FilterContext{SearchTerm: "seoul", Now: fixedNow}) {
		t.Error("search should match organizer case-insensitively")
	}
	if Matches(rec, FilterContext{SearchTerm: "부산", Now: fixedNow}) {
		t.Error("non-matching term must exclude")
	}
}

func TestFilterSearchBypassesMonth(t *testing.T) {
	rec := model.EventRecord{ID: "1", Title: "연말 파티", Date: "2025-12-31"}
	ctx := FilterContext{
		SearchTerm: "연말",
		HasMonth:   true,
		Year:       2025,
		Month:      time.June,
		Now:        fixedNow,
	}
	if !Matches(rec, ctx) {
		t.Error("active search must bypass the month filter")
	}
}

func TestFilterSearchYearWindow(t *testing.T) {
	// Record two years ahead of "now" is excluded even on a text hit.
	farFuture := model.EventRecord{ID: "1", Title: "스윙 캠프", Date: "2027-06-01"}
	if Matches(farFuture, FilterContext{SearchTerm: "캠프", Now: fixedNow}) {
		t.Error("record outside the ±1 year window must be excluded under search")
	}

	lastYear := model.EventRecord{ID: "2", Title: "스윙 캠프", Date: "2024-06-01"}
	if !Matches(lastYear, FilterContext{SearchTerm: "캠프", Now: fixedNow}) {
		t.Error("previous year is inside the window")
	}

	dateless := model.EventRecord{ID: "3", Title: "스윙 캠프"}
	if Matches(dateless, FilterContext{SearchTerm: "캠프", Now: fixedNow}) {
		t.Error("dateless record is excluded under search")
	}
}

func TestFilterExplicitDate(t *testing.T) {
	recs := []model.EventRecord{
		{ID: "1", StartDate: "2025-06-01", EndDate: "2025-06-03"},
		{ID: "2", EventDates: []string{"2025-06-02", "2025-06-09"}},
		{ID: "3", Date: "2025-06-05"},
	}
	got := Filter(recs, FilterContext{Date: "2025-06-02", Now: fixedNow})
	if len(got) != 2 || got[0].ID != "1" || got[1].ID != "2" {
		t.Errorf("explicit date filter: got %v, want [1 2]", ids(got))
	}
}

func TestFilterWeekdayWithinMonth(t *testing.T) {
	wednesday := 3
	recs := []model.EventRecord{
		// 2025-06-04 is a Wednesday.
		{ID: "1", Date: "2025-06-04"},
		// Sun..Tue only.
		{ID: "2", StartDate: "2025-06-01", EndDate: "2025-06-03"},
	}
	ctx := FilterContext{
		HasMonth: true,
		Year:     2025,
		Month:    time.June,
		View:     ViewMonth,
		Weekday:  &wednesday,
		Now:      fixedNow,
	}
	got := Filter(recs, ctx)
	if len(got) != 1 || got[0].ID != "1" {
		t.Errorf("weekday filter: got %v, want [1]", ids(got))
	}
}

func TestFilterNoDateContextPasses(t *testing.T) {
	rec := model.EventRecord{ID: "1", Category: model.CategoryClub, Date: "2099-01-01"}
	if !Matches(rec, FilterContext{Now: fixedNow}) {
		t.Error("record with no date context to check should pass")
	}
}

func TestPartitionCompleteness(t *testing.T) {
	recs := []model.EventRecord{
		{ID: "past", EndDate: "2025-06-10"},
		{ID: "today", Date: "2025-06-15"},
		{ID: "future", StartDate: "2025-06-20", EndDate: "2025-06-22"},
		{ID: "explicit-past", EventDates: []string{"2025-05-01", "2025-05-08"}},
		{ID: "dateless"},
	}

	ongoing, ended := Partition(recs, fixedNow)

	if len(ongoing)+len(ended) != len(recs) {
		t.Fatalf("partition dropped records: %d + %d != %d", len(ongoing), len(ended), len(recs))
	}
	seen := map[string]int{}
	for _, r := range ongoing {
		seen[r.ID]++
	}
	for _, r := range ended {
		seen[r.ID]++
	}
	for _, r := range recs {
		if seen[r.ID] != 1 {
			t.Errorf("record %s appears %d times across partitions", r.ID, seen[r.ID])
		}
	}

	wantEnded := map[string]bool{"past": true, "explicit-past": true}
	for _, r := range ended {
		if !wantEnded[r.ID] {
			t.Errorf("record %s should not be ended", r.ID)
		}
	}
	// A record ending today is still ongoing; dateless records stay visible.
	for _, r := range ongoing {
		if wantEnded[r.ID] {
			t.Errorf("record %s should be ended", r.ID)
		}
	}
}

func ids(recs []model.EventRecord) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.ID
	}
	return out
}
