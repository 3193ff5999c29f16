package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	appLog "swingboard/internal/log"
	"swingboard/internal/model"
)

// feedCacheEntry holds HTTP cache metadata for the feed URL.
type feedCacheEntry struct {
	URL          string    `json:"url"`
	ETag         string    `json:"etag,omitempty"`
	LastModified string    `json:"last_modified,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// FeedSource loads the record list from a hosted JSON feed, honoring ETag
// and Last-Modified with a disk-backed body cache so that an unreachable
// origin degrades to the last known snapshot instead of an empty catalog.
type FeedSource struct {
	client   *http.Client
	url      string
	cacheDir string
}

// NewFeedSource creates a feed-backed Source.
//
// cacheDir is where the cache metadata and body are stored, e.g.
// "/var/lib/swingboard/feed-cache".
func NewFeedSource(url, cacheDir string) *FeedSource {
	if cacheDir == "" {
		// Caller should set this explicitly; fall back to a relative dir so
		// that development runs without root permissions.
		cacheDir = "./var/feed-cache"
	}
	return &FeedSource{
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
		url:      url,
		cacheDir: cacheDir,
	}
}

func (f *FeedSource) Name() string { return "feed" }

// Load fetches the feed, reusing the cached body on 304, network failure or
// a non-OK status when one is available.
func (f *FeedSource) Load(ctx context.Context) ([]model.EventRecord, error) {
	if f.url == "" {
		return nil, errors.New("feed URL is empty")
	}

	cachePath := f.cachePath()
	if err := os.MkdirAll(cachePath, 0o700); err != nil {
		return nil, err
	}

	meta, _ := f.loadCacheMeta(cachePath)
	cachedBody, _ := f.loadCacheBody(cachePath)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, err
	}
	if meta.ETag != "" {
		req.Header.Set("If-None-Match", meta.ETag)
	}
	if meta.LastModified != "" {
		req.Header.Set("If-Modified-Since", meta.LastModified)
	}

	appLog.Info("feed fetch start", "url", redactURL(f.url))

	resp, err := f.client.Do(req)
	if err != nil {
		if len(cachedBody) > 0 {
			appLog.Error("feed fetch network error, using cached body", err, "url", redactURL(f.url))
			return decodeRecords(cachedBody)
		}
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		body, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return nil, readErr
		}

		recs, decodeErr := decodeRecords(body)
		if decodeErr != nil {
			// Malformed fresh payload: keep the old cache intact.
			if len(cachedBody) > 0 {
				appLog.Error("feed payload malformed, using cached body", decodeErr, "url", redactURL(f.url))
				return decodeRecords(cachedBody)
			}
			return nil, decodeErr
		}

		newMeta := feedCacheEntry{
			URL:          f.url,
			ETag:         resp.Header.Get("ETag"),
			LastModified: resp.Header.Get("Last-Modified"),
			UpdatedAt:    time.Now().UTC(),
		}
		if err := f.saveCache(cachePath, newMeta, body); err != nil {
			appLog.Error("feed cache save failed", err, "url", redactURL(f.url))
		}

		appLog.Info("feed fetch success", "url", redactURL(f.url), "records", len(recs), "from_cache", false)
		return recs, nil

	case http.StatusNotModified:
		if len(cachedBody) == 0 {
			return nil, errors.New("received 304 Not Modified but no cached body available")
		}
		appLog.Info("feed not modified; using cache", "url", redactURL(f.url))
		return decodeRecords(cachedBody)

	default:
		if len(cachedBody) > 0 {
			appLog.Error("feed fetch non-OK, using cached body", errors.New(resp.Status), "url", redactURL(f.url), "status", resp.StatusCode)
			return decodeRecords(cachedBody)
		}
		return nil, errors.New(resp.Status)
	}
}

func decodeRecords(body []byte) ([]model.EventRecord, error) {
	var recs []model.EventRecord
	if err := json.Unmarshal(body, &recs); err != nil {
		return nil, err
	}
	out := recs[:0]
	for _, rec := range recs {
		if rec.Category != "" && !rec.Category.Valid() {
			appLog.Debug("feed record has unknown category; skipping", "id", rec.ID, "category", rec.Category)
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

func (f *FeedSource) cachePath() string {
	sum := sha256.Sum256([]byte(f.url))
	return filepath.Join(f.cacheDir, hex.EncodeToString(sum[:8]))
}

func (f *FeedSource) loadCacheMeta(cachePath string) (feedCacheEntry, error) {
	var meta feedCacheEntry
	data, err := os.ReadFile(filepath.Join(cachePath, "meta.json"))
	if err != nil {
		return meta, err
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return feedCacheEntry{}, err
	}
	return meta, nil
}

func (f *FeedSource) loadCacheBody(cachePath string) ([]byte, error) {
	return os.ReadFile(filepath.Join(cachePath, "body.json"))
}

func (f *FeedSource) saveCache(cachePath string, meta feedCacheEntry, body []byte) error {
	// Write body first so meta never points at a missing body.
	if err := os.WriteFile(filepath.Join(cachePath, "body.json"), body, 0o600); err != nil {
		return err
	}
	meta.UpdatedAt = time.Now().UTC()
	data, err := json.MarshalIndent(&meta, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(cachePath, "meta.json"), data, 0o600)
}

// redactURL hides the path and query of a feed URL for logging purposes;
// hosted feeds commonly embed access tokens.
func redactURL(u string) string {
	const redactedSuffix = "/...(redacted)"

	i := -1
	for idx := 0; idx+2 < len(u); idx++ {
		if u[idx:idx+3] == "://" {
			i = idx + 3
			break
		}
	}
	if i == -1 {
		return "feed://...(redacted)"
	}

	j := i
	for j < len(u) && u[j] != '/' {
		j++
	}
	return u[:j] + redactedSuffix
}
