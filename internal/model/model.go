package model

import "time"

// Category is the closed set of catalog categories. New categories must be
// added here and handled in every switch over Category; unknown strings do
// not round-trip through ParseCategory.
type Category string

const (
	CategoryClass  Category = "class"
	CategoryEvent  Category = "event"
	CategoryClub   Category = "club"
	CategorySocial Category = "social"
)

// ParseCategory maps a raw string onto the closed Category set.
func ParseCategory(s string) (Category, bool) {
	switch Category(s) {
	case CategoryClass, CategoryEvent, CategoryClub, CategorySocial:
		return Category(s), true
	}
	return "", false
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	_, ok := ParseCategory(string(c))
	return ok
}

// Scope distinguishes domestic from overseas listings. Empty means domestic.
type Scope string

const (
	ScopeDomestic Scope = "domestic"
	ScopeOverseas Scope = "overseas"
)

// EventRecord is the catalog unit. All date fields are KST civil dates in
// YYYY-MM-DD form; Time is an optional HH:MM clock string used only as a
// sort tiebreaker. Temporal fields layer in priority order:
//
//	EventDates (explicit, non-contiguous days)
//	> StartDate/EndDate (inclusive range)
//	> Date (single day, treated as both start and end)
//
// A record with none of the three is dateless and is excluded from any
// date-bounded view.
type EventRecord struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Category Category `json:"category"`

	// Genre is a comma-separated tag string; the first tag is the primary
	// genre used for exposure weighting.
	Genre string `json:"genre,omitempty"`

	Scope Scope `json:"scope,omitempty"`

	Date       string   `json:"date,omitempty"`
	StartDate  string   `json:"start_date,omitempty"`
	EndDate    string   `json:"end_date,omitempty"`
	EventDates []string `json:"event_dates,omitempty"`

	// DayOfWeek marks a weekly recurring record (0=Sunday..6=Saturday).
	// internal/recur materializes EventDates from it before the engine runs.
	DayOfWeek *int `json:"day_of_week,omitempty"`

	Time      string    `json:"time,omitempty"`
	CreatedAt time.Time `json:"created_at"`

	Organizer string `json:"organizer,omitempty"`
	Location  string `json:"location,omitempty"`

	// DJ is the dedicated performer field, when the source stores one.
	DJ string `json:"dj,omitempty"`
}

// GenreWeights maps a genre name to a positive exposure multiplier.
// Unlisted genres weigh 1.0.
type GenreWeights map[string]float64

// minWeight floors non-positive configured weights so the sampler never
// divides by zero.
const minWeight = 0.0001

// Weight returns the effective weight for a genre.
func (w GenreWeights) Weight(genre string) float64 {
	if w == nil {
		return 1.0
	}
	v, ok := w[genre]
	if !ok || v == 0 {
		return 1.0
	}
	if v < 0 {
		return minWeight
	}
	return v
}

// DefaultGenreWeights mirrors the operator-facing default weight table.
func DefaultGenreWeights() GenreWeights {
	return GenreWeights{
		"린디합":      1.0,
		"지터벅":      1.0,
		"솔로재즈":     1.0,
		"정규강습":     1.0,
		"발보아":      1.0,
		"블루스":      1.0,
		"탭댄스":      1.0,
		"웨스트코스트스윙": 1.0,
		"부기우기":     1.0,
		"샤그":       1.0,
		"기타":       1.0,
	}
}

// StructuredData is the machine-parsed block of a scraped candidate.
type StructuredData struct {
	Date     string   `json:"date,omitempty"`
	Title    string   `json:"title,omitempty"`
	DJs      []string `json:"djs,omitempty"`
	Location string   `json:"location,omitempty"`
	Times    []string `json:"times,omitempty"`
	Keyword  string   `json:"keyword,omitempty"`
}

// ScrapedCandidate is an externally ingested draft record awaiting review.
// It is never promoted by this system; the review flow only scores it.
type ScrapedCandidate struct {
	ID            string          `json:"id"`
	SourceURL     string          `json:"source_url"`
	ExtractedText string          `json:"extracted_text,omitempty"`
	Structured    *StructuredData `json:"structured_data,omitempty"`
	ScrapedAt     time.Time       `json:"scraped_at,omitempty"`
}

// Confidence buckets applied to a candidate's best score.
type Confidence string

const (
	ConfidenceMatch  Confidence = "match"  // >= 65
	ConfidenceLikely Confidence = "likely" // 45..64
	ConfidenceLow    Confidence = "low"    // 1..44
	ConfidenceNew    Confidence = "new"    // 0 or no same-date record
)

// MatchResult is one candidate-vs-record score. Ephemeral; recomputed on
// every review render and never persisted.
type MatchResult struct {
	CandidateID string   `json:"candidate_id"`
	DBID        string   `json:"db_id"`
	Score       int      `json:"score"`
	Reasons     []string `json:"reasons"`
}
