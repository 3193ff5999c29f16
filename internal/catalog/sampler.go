package catalog

import (
	"math"
	"math/rand"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"swingboard/internal/model"
)

// SortMode selects the display ordering applied within each partition.
type SortMode string

const (
	SortRandom SortMode = "random"
	SortTime   SortMode = "time"
	SortTitle  SortMode = "title"
)

// newWindow is how long a record counts as "new" after creation and is
// pinned to the front of random-mode output.
const newWindow = 72 * time.Hour

// lcg is the legacy linear-congruential generator. Every random-mode draw
// for a given seed comes from this sequence, which is what makes orderings
// reproducible per seed.
type lcg struct {
	state int64
}

func newLCG(seed int64) *lcg {
	return &lcg{state: seed}
}

// next returns a value in [0, 1).
func (g *lcg) next() float64 {
	g.state = (g.state*9301 + 49297) % 233280
	if g.state < 0 {
		g.state += 233280
	}
	return float64(g.state) / 233280
}

// DeriveSeed produces a non-reproducible seed for callers that did not pin
// one: current time plus a random component, so every fresh render shuffles
// differently.
func DeriveSeed(now time.Time) int64 {
	return now.UnixMilli() + rand.Int63n(1_000_000)
}

// titleCollator compares titles the way the catalog UI does: Korean
// locale-aware ordering (가나다순).
var titleCollator = collate.New(language.Korean)

// SortOptions configures one sampler invocation.
type SortOptions struct {
	Mode SortMode

	// YearView combined with SortTime skips the ongoing/ended partition and
	// orders the whole list chronologically. Legacy behavior of the year
	// calendar view.
	YearView bool

	// Weights and ApplyWeights enable the genre-weighted shuffle in random
	// mode. With ApplyWeights false (or a nil map) random mode degrades to
	// a uniform Fisher–Yates shuffle.
	Weights      model.GenreWeights
	ApplyWeights bool

	// Seed pins the random-mode ordering. Nil derives a fresh seed from the
	// clock.
	Seed *int64

	// Now is the evaluation instant; zero means time.Now().
	Now time.Time
}

// Sort produces the display order for a filtered record list. Records are
// partitioned into ongoing and ended groups (ongoing first), each group
// ordered by the selected mode. The input slice is never mutated.
func Sort(recs []model.EventRecord, opts SortOptions) []model.EventRecord {
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	cp := make([]model.EventRecord, len(recs))
	copy(cp, recs)

	if opts.YearView && opts.Mode == SortTime {
		sortChronological(cp)
		return cp
	}

	ongoing, ended := Partition(cp, now)
	out := make([]model.EventRecord, 0, len(cp))
	out = append(out, sortGroup(ongoing, opts, now)...)
	out = append(out, sortGroup(ended, opts, now)...)
	return out
}

func sortGroup(group []model.EventRecord, opts SortOptions, now time.Time) []model.EventRecord {
	switch opts.Mode {
	case SortRandom:
		return sortRandom(group, opts, now)
	case SortTime:
		sortChronological(group)
		return group
	case SortTitle:
		sort.SliceStable(group, func(i, j int) bool {
			return titleCollator.CompareString(group[i].Title, group[j].Title) < 0
		})
		return group
	default:
		return group
	}
}

// sortRandom composes the two fairness mechanisms: records created within
// the last 72 hours are pinned to the front in recency order regardless of
// weight, and the rest are shuffled by the seeded generator, optionally
// biased per primary genre.
func sortRandom(group []model.EventRecord, opts SortOptions, now time.Time) []model.EventRecord {
	cutoff := now.Add(-newWindow)

	fresh := make([]model.EventRecord, 0)
	regular := make([]model.EventRecord, 0, len(group))
	for _, rec := range group {
		if !rec.CreatedAt.IsZero() && rec.CreatedAt.After(cutoff) {
			fresh = append(fresh, rec)
		} else {
			regular = append(regular, rec)
		}
	}

	sort.SliceStable(fresh, func(i, j int) bool {
		return fresh[i].CreatedAt.After(fresh[j].CreatedAt)
	})

	seed := DeriveSeed(now)
	if opts.Seed != nil {
		seed = *opts.Seed
	}
	gen := newLCG(seed)

	if opts.ApplyWeights && opts.Weights != nil {
		regular = weightedShuffle(regular, opts.Weights, gen)
	} else {
		fisherYates(regular, gen)
	}

	return append(fresh, regular...)
}

// weightedShuffle orders records by Efraimidis–Spirakis sampling without
// replacement: each record draws u in (0,1) and sorts descending by
// u^(1/w), where w is its primary genre's weight. Higher-weight genres tend
// toward the front without ever deterministically hiding a genre.
func weightedShuffle(recs []model.EventRecord, weights model.GenreWeights, gen *lcg) []model.EventRecord {
	type keyed struct {
		rec model.EventRecord
		key float64
	}
	keyedRecs := make([]keyed, len(recs))
	for i, rec := range recs {
		w := weights.Weight(PrimaryGenre(rec))
		u := gen.next()
		keyedRecs[i] = keyed{rec: rec, key: math.Pow(u, 1/w)}
	}
	sort.SliceStable(keyedRecs, func(i, j int) bool {
		return keyedRecs[i].key > keyedRecs[j].key
	})
	out := make([]model.EventRecord, len(recs))
	for i, k := range keyedRecs {
		out[i] = k.rec
	}
	return out
}

// fisherYates shuffles in place, uniformly over permutations, using the
// same generator as the weighted path.
func fisherYates(recs []model.EventRecord, gen *lcg) {
	for i := len(recs) - 1; i > 0; i-- {
		j := int(gen.next() * float64(i+1))
		recs[i], recs[j] = recs[j], recs[i]
	}
}

// PrimaryGenre returns the record's weighting key: the first comma-separated
// genre tag, or "기타" when none is set.
func PrimaryGenre(rec model.EventRecord) string {
	if rec.Genre == "" {
		return "기타"
	}
	return strings.TrimSpace(strings.SplitN(rec.Genre, ",", 2)[0])
}

// sortChronological orders ascending by (effective start date, clock time),
// records without any date last.
func sortChronological(recs []model.EventRecord) {
	sort.SliceStable(recs, func(i, j int) bool {
		di := EffectiveStart(recs[i])
		dj := EffectiveStart(recs[j])
		if di == "" && dj == "" {
			return false
		}
		if di == "" {
			return false
		}
		if dj == "" {
			return true
		}
		ki := di + " " + recs[i].Time
		kj := dj + " " + recs[j].Time
		return ki < kj
	})
}

// ShuffleSession keeps one drawn weight per record id so that re-renders
// within the same session do not visibly reshuffle items the user has
// already seen. The cache is append-only for the session's lifetime; start
// a new session (new seed) to pick up a different order. Not safe for
// concurrent writers — scope one session per rendering client.
type ShuffleSession struct {
	gen     *lcg
	weights map[string]float64
}

// NewShuffleSession creates a session whose stable weights are drawn from
// the given seed.
func NewShuffleSession(seed int64) *ShuffleSession {
	return &ShuffleSession{
		gen:     newLCG(seed),
		weights: make(map[string]float64),
	}
}

func (s *ShuffleSession) weight(id string) float64 {
	if w, ok := s.weights[id]; ok {
		return w
	}
	w := s.gen.next()
	s.weights[id] = w
	return w
}

// Shuffle returns the records ordered by their session-stable weights.
// Records seen in earlier calls keep their relative positions.
func (s *ShuffleSession) Shuffle(recs []model.EventRecord) []model.EventRecord {
	cp := make([]model.EventRecord, len(recs))
	copy(cp, recs)
	// Draw weights in input order first so the sequence of draws does not
	// depend on comparator call order.
	for _, rec := range cp {
		s.weight(rec.ID)
	}
	sort.SliceStable(cp, func(i, j int) bool {
		return s.weights[cp[i].ID] < s.weights[cp[j].ID]
	})
	return cp
}
