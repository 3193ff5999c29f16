package catalog

import (
	"testing"
	"time"

	"swingboard/internal/model"
)

func seedPtr(v int64) *int64 { return &v }

func regularRecord(id, genre string) model.EventRecord {
	// CreatedAt well outside the 72h window.
	return model.EventRecord{
		ID:        id,
		Title:     id,
		Genre:     genre,
		Date:      "2025-06-20",
		CreatedAt: fixedNow.Add(-30 * 24 * time.Hour),
	}
}

func TestSortRandomDeterministic(t *testing.T) {
	recs := []model.EventRecord{
		regularRecord("a", "린디합"),
		regularRecord("b", "발보아"),
		regularRecord("c", "블루스"),
		regularRecord("d", "솔로재즈"),
		regularRecord("e", "기타"),
	}
	opts := SortOptions{Mode: SortRandom, Seed: seedPtr(42), Now: fixedNow}

	first := Sort(recs, opts)
	second := Sort(recs, opts)

	if len(first) != len(recs) {
		t.Fatalf("sort changed length: %d", len(first))
	}
	for i := range first {
		if first[i].ID != second[i].ID {
			t.Fatalf("same seed produced different orders: %v vs %v", ids(first), ids(second))
		}
	}

	other := Sort(recs, SortOptions{Mode: SortRandom, Seed: seedPtr(43), Now: fixedNow})
	same := true
	for i := range first {
		if first[i].ID != other[i].ID {
			same = false
			break
		}
	}
	if same {
		t.Log("seeds 42 and 43 coincidentally agree; acceptable but unusual for 5 records")
	}
}

func TestSortRandomInputNotMutated(t *testing.T) {
	recs := []model.EventRecord{
		regularRecord("a", ""),
		regularRecord("b", ""),
		regularRecord("c", ""),
	}
	Sort(recs, SortOptions{Mode: SortRandom, Seed: seedPtr(7), Now: fixedNow})
	if recs[0].ID != "a" || recs[1].ID != "b" || recs[2].ID != "c" {
		t.Error("Sort must not mutate its input slice")
	}
}

func TestSortRandomNewPinning(t *testing.T) {
	fresh1 := regularRecord("fresh1", "기타")
	fresh1.CreatedAt = fixedNow.Add(-1 * time.Hour)
	fresh2 := regularRecord("fresh2", "기타")
	fresh2.CreatedAt = fixedNow.Add(-10 * time.Hour)
	old := regularRecord("old", "린디합")

	recs := []model.EventRecord{old, fresh2, fresh1}
	weights := model.GenreWeights{"린디합": 100.0, "기타": 0.0001}

	for seed := int64(1); seed <= 50; seed++ {
		got := Sort(recs, SortOptions{
			Mode:         SortRandom,
			Seed:         seedPtr(seed),
			Weights:      weights,
			ApplyWeights: true,
			Now:          fixedNow,
		})
		// New records lead in recency order regardless of genre weight.
		if got[0].ID != "fresh1" || got[1].ID != "fresh2" {
			t.Fatalf("seed %d: new records not pinned front: %v", seed, ids(got))
		}
	}
}

func TestSortRandomWeightMonotonicity(t *testing.T) {
	const perGenre = 5
	recs := make([]model.EventRecord, 0, perGenre*2)
	for i := 0; i < perGenre; i++ {
		recs = append(recs, regularRecord("a"+string(rune('0'+i)), "A"))
		recs = append(recs, regularRecord("b"+string(rune('0'+i)), "B"))
	}
	weights := model.GenreWeights{"A": 3.0, "B": 1.0}

	var sumA, sumB float64
	const draws = 1000
	for seed := int64(1); seed <= draws; seed++ {
		got := Sort(recs, SortOptions{
			Mode:         SortRandom,
			Seed:         seedPtr(seed),
			Weights:      weights,
			ApplyWeights: true,
			Now:          fixedNow,
		})
		for rank, rec := range got {
			if rec.Genre == "A" {
				sumA += float64(rank)
			} else {
				sumB += float64(rank)
			}
		}
	}

	meanA := sumA / (draws * perGenre)
	meanB := sumB / (draws * perGenre)
	if meanA >= meanB {
		t.Errorf("weight 3.0 genre should rank strictly better: meanA=%.2f meanB=%.2f", meanA, meanB)
	}
}

func TestSortTimeMode(t *testing.T) {
	recs := []model.EventRecord{
		{ID: "late", Date: "2025-06-20", Time: "20:00"},
		{ID: "nodate", Title: "dateless"},
		{ID: "early", Date: "2025-06-20", Time: "11:00"},
		{ID: "prev", StartDate: "2025-06-18"},
	}
	got := Sort(recs, SortOptions{Mode: SortTime, Now: fixedNow})

	want := []string{"prev", "early", "late", "nodate"}
	for i, id := range want {
		if got[i].ID != id {
			t.Fatalf("time mode order = %v, want %v", ids(got), want)
		}
	}
}

func TestSortTimeYearViewSkipsPartition(t *testing.T) {
	recs := []model.EventRecord{
		{ID: "future", Date: "2025-06-20"},
		// Ended record with the earliest date: in year view + time mode it
		// still sorts first because the ongoing/ended split is skipped.
		{ID: "ended", Date: "2025-06-01"},
	}
	got := Sort(recs, SortOptions{Mode: SortTime, YearView: true, Now: fixedNow})
	if got[0].ID != "ended" {
		t.Errorf("year view + time must be purely chronological, got %v", ids(got))
	}

	// Without year view the ended record sinks below ongoing ones.
	got = Sort(recs, SortOptions{Mode: SortTime, Now: fixedNow})
	if got[0].ID != "future" {
		t.Errorf("month view keeps ongoing first, got %v", ids(got))
	}
}

func TestSortTitleKoreanCollation(t *testing.T) {
	recs := []model.EventRecord{
		{ID: "2", Title: "나무 소셜", Date: "2025-06-20"},
		{ID: "1", Title: "가을 스윙", Date: "2025-06-21"},
		{ID: "3", Title: "다락방 파티", Date: "2025-06-22"},
	}
	got := Sort(recs, SortOptions{Mode: SortTitle, Now: fixedNow})
	want := []string{"1", "2", "3"}
	for i, id := range want {
		if got[i].ID != id {
			t.Fatalf("title order = %v, want %v", ids(got), want)
		}
	}
}

func TestSortOngoingBeforeEnded(t *testing.T) {
	recs := []model.EventRecord{
		regularRecord("ended", ""),
		regularRecord("ongoing", ""),
	}
	recs[0].Date = "2025-06-01"
	recs[1].Date = "2025-06-20"

	got := Sort(recs, SortOptions{Mode: SortRandom, Seed: seedPtr(9), Now: fixedNow})
	if got[0].ID != "ongoing" || got[1].ID != "ended" {
		t.Errorf("ongoing records must precede ended ones: %v", ids(got))
	}
}

func TestShuffleSessionStability(t *testing.T) {
	recs := []model.EventRecord{
		{ID: "a"}, {ID: "b"}, {ID: "c"}, {ID: "d"},
	}
	sess := NewShuffleSession(1234)

	first := sess.Shuffle(recs)
	second := sess.Shuffle(recs)
	for i := range first {
		if first[i].ID != second[i].ID {
			t.Fatalf("re-shuffle within a session changed order: %v vs %v", ids(first), ids(second))
		}
	}

	// Adding a record keeps the relative order of the ones already seen.
	grown := append(append([]model.EventRecord{}, recs...), model.EventRecord{ID: "e"})
	third := sess.Shuffle(grown)
	pos := map[string]int{}
	for i, r := range third {
		pos[r.ID] = i
	}
	for i := 0; i < len(first)-1; i++ {
		a, b := first[i].ID, first[i+1].ID
		if pos[a] > pos[b] {
			t.Errorf("session order of %s and %s flipped after growth", a, b)
		}
	}

	// A fresh session with a different seed is allowed (and expected) to
	// disagree; it must at least be self-consistent.
	other := NewShuffleSession(99)
	o1 := other.Shuffle(recs)
	o2 := other.Shuffle(recs)
	for i := range o1 {
		if o1[i].ID != o2[i].ID {
			t.Fatal("fresh session is not self-consistent")
		}
	}
}

func TestPrimaryGenre(t *testing.T) {
	cases := []struct {
		genre string
		want  string
	}{
		{"린디합, 솔로재즈", "린디합"},
		{" 발보아 ", "발보아"},
		{"", "기타"},
	}
	for _, tc := range cases {
		rec := model.EventRecord{Genre: tc.genre}
		if got := PrimaryGenre(rec); got != tc.want {
			t.Errorf("PrimaryGenre(%q) = %q, want %q", tc.genre, got, tc.want)
		}
	}
}
