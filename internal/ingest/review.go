package ingest

import (
	"swingboard/internal/catalog"
	"swingboard/internal/metrics"
	"swingboard/internal/model"
)

// Review is the reviewer-facing verdict for one candidate: its confidence
// bucket (derived from the best score) and the full ranked result list for
// the audit display.
type Review struct {
	CandidateID string              `json:"candidate_id"`
	Bucket      model.Confidence    `json:"bucket"`
	Results     []model.MatchResult `json:"results"`
}

// ReviewCandidate scores one candidate against the snapshot and buckets the
// best result. A candidate with no same-date record at all comes back "new"
// with an empty result list.
func ReviewCandidate(cand model.ScrapedCandidate, recs []model.EventRecord) Review {
	results := catalog.ReviewCandidate(cand, recs)

	best := 0
	if len(results) > 0 {
		best = results[0].Score
	}
	bucket := catalog.Bucket(best)
	metrics.ReviewTotal.WithLabelValues(string(bucket)).Inc()

	return Review{
		CandidateID: cand.ID,
		Bucket:      bucket,
		Results:     results,
	}
}

// ReviewBatch reviews a whole scraped batch against one frozen snapshot.
func ReviewBatch(cands []model.ScrapedCandidate, recs []model.EventRecord) []Review {
	out := make([]Review, 0, len(cands))
	for _, cand := range cands {
		out = append(out, ReviewCandidate(cand, recs))
	}
	return out
}
