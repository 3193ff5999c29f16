// Package ingest produces and reviews scraped candidate records. Scraping
// renders the source page in headless Chromium and dumps its text; the
// review step scores candidates against the current catalog snapshot.
// Promotion of a candidate into a real record is out of scope here.
package ingest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/google/uuid"

	appLog "swingboard/internal/log"
	"swingboard/internal/metrics"
	"swingboard/internal/model"
)

// Default scrape parameters. Event announcement pages are mobile-first, so
// a phone-ish viewport renders the layout the organizers actually publish.
const (
	defaultViewportWidth  = 480
	defaultViewportHeight = 1600
	defaultScrapeTimeout  = 30 * time.Second
)

// ScrapeOptions defines parameters for one Chromium-based page extraction.
type ScrapeOptions struct {
	// URL of the announcement page to extract.
	URL string

	// WaitSelector, when set, delays extraction until the selector is
	// visible. Defaults to "body".
	WaitSelector string

	// Timeout bounds the entire scrape. Zero means defaultScrapeTimeout.
	Timeout time.Duration
}

// Scrape launches a headless Chromium via chromedp, navigates to the
// announcement page, waits for it to render and returns its visible text as
// a ScrapedCandidate. Structured parsing of the text happens in a separate
// external process; this step only captures the raw material.
func Scrape(parentCtx context.Context, opts ScrapeOptions) (model.ScrapedCandidate, error) {
	if opts.URL == "" {
		return model.ScrapedCandidate{}, fmt.Errorf("ingest: URL is required")
	}
	if opts.WaitSelector == "" {
		opts.WaitSelector = "body"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultScrapeTimeout
	}

	ctx, cancel := chromedp.NewContext(parentCtx)
	defer cancel()

	ctx, timeoutCancel := context.WithTimeout(ctx, opts.Timeout)
	defer timeoutCancel()

	var text string
	tasks := chromedp.Tasks{
		chromedp.EmulateViewport(defaultViewportWidth, defaultViewportHeight),
		chromedp.Navigate(opts.URL),
		chromedp.WaitVisible(opts.WaitSelector, chromedp.ByQuery),
		// Small extra delay for late-loading announcement images/captions.
		chromedp.Sleep(500 * time.Millisecond),
		chromedp.Text("body", &text, chromedp.ByQuery),
	}

	if err := chromedp.Run(ctx, tasks); err != nil {
		metrics.ScrapeTotal.WithLabelValues("error").Inc()
		return model.ScrapedCandidate{}, fmt.Errorf("ingest: chromedp run failed: %w", err)
	}

	cand := model.ScrapedCandidate{
		ID:            uuid.NewString(),
		SourceURL:     opts.URL,
		ExtractedText: strings.TrimSpace(text),
		ScrapedAt:     time.Now().UTC(),
	}

	metrics.ScrapeTotal.WithLabelValues("ok").Inc()
	appLog.Info("scrape completed", "url", opts.URL, "chars", len(cand.ExtractedText))
	return cand, nil
}

// ScrapeAll extracts every source URL, logging and skipping failures so one
// dead page does not abort a batch.
func ScrapeAll(ctx context.Context, urls []string, timeout time.Duration) []model.ScrapedCandidate {
	out := make([]model.ScrapedCandidate, 0, len(urls))
	for _, u := range urls {
		cand, err := Scrape(ctx, ScrapeOptions{URL: u, Timeout: timeout})
		if err != nil {
			appLog.Error("scrape failed", err, "url", u)
			continue
		}
		out = append(out, cand)
	}
	return out
}
