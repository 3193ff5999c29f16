package catalog

import (
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"swingboard/internal/model"
)

// Scoring constants. The scale assumes roughly 100 points total:
// 40 date + 30 performer + 25 title + 5 organizer.
const (
	pointsDate        = 40
	pointsDJ          = 30
	pointsDJTitle     = 25
	pointsTitleExact  = 25
	pointsTitleSub    = 20
	pointsDJConflict  = -20
	pointsDJTitleComp = 10
	pointsOrganizer   = 5

	// overlapKnee separates strong from weak token overlap; the two scales
	// below multiply the overlap ratio into points.
	overlapKnee      = 0.4
	overlapScaleHigh = 25
	overlapScaleLow  = 15
)

var (
	// normStrip removes whitespace and the punctuation the legacy reviewer
	// strips before comparison (including full-width parentheses).
	normStrip = regexp.MustCompile(`[\s!\-_.,()（）]`)

	// tokenClean keeps only Hangul syllables, Latin letters and digits.
	tokenClean = regexp.MustCompile(`[^가-힣a-zA-Z0-9]`)

	// djInTitle pulls "dj <name>" patterns out of a (normalized) title for
	// records that do not store the performer as a dedicated field.
	djInTitle = regexp.MustCompile(`(?i)dj\s*[^\s,()]+`)
)

// stopwords are performer/genre filler words ignored during tokenization.
var stopwords = map[string]bool{
	"dj": true, "소셜": true, "social": true, "monthly": true,
	"live": true, "night": true, "club": true, "band": true,
	"in": true, "the": true, "of": true,
}

// normalizeMatchText lowercases and strips whitespace/punctuation so that
// "DJ Kim!" and "djkim" compare equal.
func normalizeMatchText(s string) string {
	return strings.ToLower(normStrip.ReplaceAllString(s, ""))
}

// tokenizeTitle splits a title into comparison tokens: words of at least two
// characters with stop-words removed.
func tokenizeTitle(s string) []string {
	cleaned := tokenClean.ReplaceAllString(s, " ")
	var out []string
	for _, tok := range strings.Fields(cleaned) {
		if utf8.RuneCountInString(tok) < 2 {
			continue
		}
		if stopwords[strings.ToLower(tok)] {
			continue
		}
		out = append(out, tok)
	}
	return out
}

// tokenOverlap computes matchedTokens / max(countA, countB), where a token
// matches when either side contains the other.
func tokenOverlap(a, b string) float64 {
	tokensA := tokenizeTitle(a)
	tokensB := tokenizeTitle(b)
	if len(tokensA) == 0 || len(tokensB) == 0 {
		return 0
	}
	matched := 0
	for _, ta := range tokensA {
		for _, tb := range tokensB {
			if strings.Contains(ta, tb) || strings.Contains(tb, ta) {
				matched++
				break
			}
		}
	}
	return float64(matched) / float64(max(len(tokensA), len(tokensB)))
}

// matchState carries the normalized views of both sides plus the running
// score through the rule pipeline. Rules communicate through it: the title
// rule needs to know whether a performer already matched, and the conflict
// rule needs to know that no performer matched.
type matchState struct {
	sTitleRaw string
	sTitle    string
	sDJs      []string
	sKeyword  string

	dbTitleRaw  string
	dbTitle     string
	dbDJs       []string
	dbOrganizer string

	djMatched bool

	score   int
	reasons []string
}

func (st *matchState) add(points int, reason string) {
	st.score += points
	st.reasons = append(st.reasons, reason)
}

// matchRule is one independently testable scoring step.
type matchRule func(st *matchState)

// matchPipeline is the ordered rule sequence applied after the date gate.
var matchPipeline = []matchRule{
	rulePerformer,
	ruleTitleSimilarity,
	rulePerformerConflict,
	ruleOrganizerKeyword,
}

// rulePerformer awards the performer match: full credit when a normalized
// candidate performer overlaps a dedicated (or title-extracted) target
// performer, partial credit when a performer name only appears inside the
// other side's title.
func rulePerformer(st *matchState) {
	if len(st.sDJs) > 0 && len(st.dbDJs) > 0 {
		for _, sd := range st.sDJs {
			for _, dd := range st.dbDJs {
				if strings.Contains(sd, dd) || strings.Contains(dd, sd) {
					st.djMatched = true
					st.add(pointsDJ, "DJ 일치")
					return
				}
			}
		}
	}
	if len(st.sDJs) > 0 {
		for _, sd := range st.sDJs {
			if sd != "" && strings.Contains(st.dbTitle, sd) {
				st.djMatched = true
				st.add(pointsDJTitle, "DJ→DB제목 포함")
				return
			}
		}
	}
	if len(st.dbDJs) > 0 {
		for _, dd := range st.dbDJs {
			if dd != "" && strings.Contains(st.sTitle, dd) {
				st.djMatched = true
				st.add(pointsDJTitle, "DB DJ→수집제목 포함")
				return
			}
		}
	}
}

// ruleTitleSimilarity awards exact equality, containment, or scaled token
// overlap, plus the flat compensation when performers matched but the
// titles barely overlap (the same event is often titled differently across
// sources).
func ruleTitleSimilarity(st *matchState) {
	switch {
	case st.sTitle != "" && st.sTitle == st.dbTitle:
		st.add(pointsTitleExact, "제목 완전일치")
		return
	case st.sTitle != "" && st.dbTitle != "" &&
		(strings.Contains(st.sTitle, st.dbTitle) || strings.Contains(st.dbTitle, st.sTitle)):
		st.add(pointsTitleSub, "제목 포함관계")
		return
	}

	overlap := tokenOverlap(st.sTitleRaw, st.dbTitleRaw)
	pct := int(math.Round(overlap * 100))
	if overlap >= overlapKnee {
		st.add(int(math.Round(overlap*overlapScaleHigh)), sprintPct("제목 토큰 ", pct))
	} else if overlap > 0 {
		st.add(int(math.Round(overlap*overlapScaleLow)), sprintPct("제목 부분일치 ", pct))
	}
	if st.djMatched && overlap < overlapKnee {
		st.add(pointsDJTitleComp, "DJ일치+제목상이 보정")
	}
}

// rulePerformerConflict penalizes pairs where both sides name performers but
// none overlap: coinciding titles or dates are weaker evidence when the
// named performers actively disagree.
func rulePerformerConflict(st *matchState) {
	if !st.djMatched && len(st.sDJs) > 0 && len(st.dbDJs) > 0 {
		st.add(pointsDJConflict, "DJ 불일치 (-20)")
	}
}

// ruleOrganizerKeyword awards the small organizer/source-keyword bonus.
func ruleOrganizerKeyword(st *matchState) {
	if st.sKeyword == "" || st.dbOrganizer == "" {
		return
	}
	if strings.Contains(st.sKeyword, st.dbOrganizer) || strings.Contains(st.dbOrganizer, st.sKeyword) {
		st.add(pointsOrganizer, "주최 유사")
	}
}

func sprintPct(prefix string, pct int) string {
	return prefix + strconv.Itoa(pct) + "%"
}

// ScoreCandidate scores one scraped candidate against one existing record.
// Date equality is a hard gate: when the dates differ (or either side has
// none) the result is score 0 with no reasons, and the pair is not a match
// candidate at all. Neither input is mutated.
func ScoreCandidate(cand model.ScrapedCandidate, rec model.EventRecord) model.MatchResult {
	res := model.MatchResult{
		CandidateID: cand.ID,
		DBID:        rec.ID,
		Reasons:     []string{},
	}

	sd := cand.Structured
	if sd == nil || sd.Date == "" || sd.Date != rec.Date {
		return res
	}

	st := &matchState{
		sTitleRaw:   sd.Title,
		sTitle:      normalizeMatchText(sd.Title),
		sKeyword:    normalizeMatchText(sd.Keyword),
		dbTitleRaw:  rec.Title,
		dbTitle:     normalizeMatchText(rec.Title),
		dbOrganizer: normalizeMatchText(rec.Organizer),
	}
	for _, dj := range sd.DJs {
		if n := normalizeMatchText(dj); n != "" {
			st.sDJs = append(st.sDJs, n)
		}
	}
	if rec.DJ != "" {
		st.dbDJs = append(st.dbDJs, normalizeMatchText(rec.DJ))
	}
	// Performers hiding inside the target title ("DJ 몽룡 나이트") count as
	// dedicated performers for matching purposes.
	for _, m := range djInTitle.FindAllString(st.dbTitle, -1) {
		st.dbDJs = append(st.dbDJs, normalizeMatchText(m))
	}

	st.add(pointsDate, "날짜 일치")
	for _, rule := range matchPipeline {
		rule(st)
	}

	res.Score = st.score
	res.Reasons = st.reasons
	return res
}

// ReviewCandidate scores the candidate against every existing record sharing
// its date and returns the results ranked by descending score. Pairs that
// fail the date gate are omitted.
func ReviewCandidate(cand model.ScrapedCandidate, recs []model.EventRecord) []model.MatchResult {
	out := make([]model.MatchResult, 0)
	for _, rec := range recs {
		res := ScoreCandidate(cand, rec)
		if res.Score == 0 && len(res.Reasons) == 0 {
			continue
		}
		out = append(out, res)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out
}

// Bucket maps a candidate's best score onto its confidence bucket.
func Bucket(bestScore int) model.Confidence {
	switch {
	case bestScore >= 65:
		return model.ConfidenceMatch
	case bestScore >= 45:
		return model.ConfidenceLikely
	case bestScore >= 1:
		return model.ConfidenceLow
	default:
		return model.ConfidenceNew
	}
}
