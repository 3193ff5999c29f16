package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"swingboard/internal/catalog"
	"swingboard/internal/config"
	"swingboard/internal/ical"
	"swingboard/internal/ingest"
	appLog "swingboard/internal/log"
	"swingboard/internal/model"
	"swingboard/internal/store"
)

// Server provides the HTTP API over the current record snapshot. All reads
// go through the snapshot cache; handlers never touch the backing store
// directly.
type Server struct {
	cfg   *config.Config
	cache *store.Cache
	mux   *http.ServeMux
}

// NewServer constructs a new Server reading from the given snapshot cache.
func NewServer(cfg *config.Config, cache *store.Cache) *Server {
	s := &Server{
		cfg:   cfg,
		cache: cache,
		mux:   http.NewServeMux(),
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// 빈 사용자명 또는 비밀번호가 설정된 경우에는 비활성화로 취급한다.
	if s.cfg.BasicAuth.Username == "" || s.cfg.BasicAuth.Password == "" {
		return false
	}
	return true
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// /health 는 항상 무인증으로 노출한다.
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="swingboard", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// StartServer starts an HTTP server bound to cfg.Listen. Graceful shutdown
// is the caller's responsibility; this helper only covers the simple
// ListenAndServe case.
func StartServer(_ context.Context, cfg *config.Config, cache *store.Cache) error {
	s := NewServer(cfg, cache)
	appLog.Info("starting HTTP server", "listen", "http://"+cfg.Listen)
	return http.ListenAndServe(cfg.Listen, s.Handler())
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/api/events", s.handleEvents)
	s.mux.HandleFunc("/api/events.ics", s.handleICS)
	s.mux.HandleFunc("/api/review", s.handleReview)
	s.mux.HandleFunc("/api/weights", s.handleWeights)
	s.mux.Handle("/metrics", promhttp.Handler())
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// eventsResponse is the JSON response shape for /api/events.
type eventsResponse struct {
	Events    []model.EventRecord `json:"events"`
	Total     int                 `json:"total"`
	Seed      *int64              `json:"seed,omitempty"`
	UpdatedAt time.Time           `json:"updated_at"`
}

// handleEvents applies the filter cascade and the selected ordering to the
// current snapshot.
//
// GET /api/events?category=club&club_genre=린디합&search=&date=&month=2025-06
//
//	&view=month&weekday=3&sort=random&seed=12345&weighted=1
//
//   - category:    "all"(기본) / "none" / class / event / club / social
//   - *_genre:     카테고리별 장르 태그 (정확 일치)
//   - search:      제목/장소/주최/장르 부분 일치 검색
//   - date:        YYYY-MM-DD 단일 날짜 필터
//   - month:       YYYY-MM (view=month 일 때 월 필터, view=year 일 때 연 필터)
//   - weekday:     0(일)~6(토), month 필터와 함께 사용
//   - sort:        random(기본) / time / title
//   - seed:        random 정렬 고정용 시드. 없으면 서버가 생성해 응답에 포함한다.
//   - weighted:    "0"/"false" 면 장르 가중치 없이 균등 셔플
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	now := time.Now()

	fctx := catalog.FilterContext{
		Category:   q.Get("category"),
		EventGenre: q.Get("event_genre"),
		ClassGenre: q.Get("class_genre"),
		ClubGenre:  q.Get("club_genre"),
		SearchTerm: q.Get("search"),
		Date:       q.Get("date"),
		Now:        now,
	}
	if fctx.Category == "" {
		fctx.Category = catalog.CategoryAll
	}

	view := catalog.ViewMonth
	if q.Get("view") == string(catalog.ViewYear) {
		view = catalog.ViewYear
	}
	fctx.View = view

	if m := q.Get("month"); m != "" {
		t, err := time.Parse("2006-01", m)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid month, expected YYYY-MM")
			return
		}
		fctx.HasMonth = true
		fctx.Year = t.Year()
		fctx.Month = t.Month()
	}

	if wd := q.Get("weekday"); wd != "" {
		n, err := strconv.Atoi(wd)
		if err != nil || n < 0 || n > 6 {
			writeError(w, http.StatusBadRequest, "invalid weekday, expected 0-6")
			return
		}
		fctx.Weekday = &n
	}

	mode := catalog.SortMode(q.Get("sort"))
	switch mode {
	case catalog.SortRandom, catalog.SortTime, catalog.SortTitle:
	case "":
		mode = catalog.SortRandom
	default:
		writeError(w, http.StatusBadRequest, "invalid sort, expected random/time/title")
		return
	}

	opts := catalog.SortOptions{
		Mode:     mode,
		YearView: view == catalog.ViewYear,
		Now:      now,
	}

	var seedOut *int64
	if mode == catalog.SortRandom {
		opts.Weights = s.cfg.GenreWeights
		opts.ApplyWeights = !isFalse(q.Get("weighted"))

		var seed int64
		if sv := q.Get("seed"); sv != "" {
			n, err := strconv.ParseInt(sv, 10, 64)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid seed")
				return
			}
			seed = n
		} else {
			seed = catalog.DeriveSeed(now)
		}
		opts.Seed = &seed
		seedOut = &seed
	}

	recs := s.cache.Snapshot()
	filtered := catalog.Filter(recs, fctx)
	ordered := catalog.Sort(filtered, opts)

	appLog.Debug("api events request",
		"category", fctx.Category,
		"search", fctx.SearchTerm,
		"sort", string(mode),
		"total", len(ordered),
	)

	writeJSON(w, http.StatusOK, eventsResponse{
		Events:    ordered,
		Total:     len(ordered),
		Seed:      seedOut,
		UpdatedAt: s.cache.UpdatedAt(),
	})
}

// handleICS serves the whole snapshot as a subscribable iCalendar feed.
func (s *Server) handleICS(w http.ResponseWriter, r *http.Request) {
	out, err := ical.Export(s.cache.Snapshot(), time.Now())
	if err != nil {
		appLog.Error("ics export failed", err)
		writeError(w, http.StatusInternalServerError, "failed to build calendar")
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="swingboard.ics"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(out))
}

// reviewRequest carries scraped candidates for duplicate review. A single
// candidate may be posted without the wrapper as a bare JSON object.
type reviewRequest struct {
	Candidates []model.ScrapedCandidate `json:"candidates"`
}

type reviewResponse struct {
	Reviews []ingest.Review `json:"reviews"`
}

// handleReview scores posted candidates against the current snapshot.
//
// POST /api/review
//
//	{"candidates": [{"id": "...", "structured_data": {...}}, ...]}
func (s *Server) handleReview(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST only")
		return
	}

	var req reviewRequest
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if len(req.Candidates) == 0 {
		writeError(w, http.StatusBadRequest, "no candidates supplied")
		return
	}

	recs := s.cache.Snapshot()
	reviews := ingest.ReviewBatch(req.Candidates, recs)

	appLog.Info("review batch scored", "candidates", len(reviews), "snapshot", len(recs))
	writeJSON(w, http.StatusOK, reviewResponse{Reviews: reviews})
}

// handleWeights exposes the active genre weight table for the admin UI.
func (s *Server) handleWeights(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.cfg.GenreWeights)
}

func isFalse(s string) bool {
	switch strings.ToLower(s) {
	case "0", "false", "no":
		return true
	}
	return false
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
