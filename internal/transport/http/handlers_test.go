package transporthttp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"example.com/aievents/internal/content"
	"example.com/aievents/internal/domain"
	"example.com/aievents/internal/metrics"
	"example.com/aievents/internal/ratelimit"
	"example.com/aievents/internal/submission"
)

var now = time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)

type spyStore struct {
	*content.MemoryStore
	mu    sync.Mutex
	calls int
	err   error
}

func (s *spyStore) CreateEvent(ctx context.Context, d domain.EventDraft) (string, error) {
	s.mu.Lock()
	s.calls++
	err := s.err
	s.mu.Unlock()
	if err != nil {
		return "", err
	}
	return s.MemoryStore.CreateEvent(ctx, d)
}

func (s *spyStore) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type testServer struct {
	handler  http.Handler
	store    *spyStore
	articles *content.MemoryArticles
	metrics  *metrics.Metrics
}

func newTestServer(t *testing.T, readLimiter *rate.Limiter) *testServer {
	t.Helper()
	logger, _ := test.NewNullLogger()
	store := &spyStore{MemoryStore: content.NewMemoryStore()}
	articles := content.NewMemoryArticles()
	m := metrics.New(prometheus.NewRegistry())
	clock := func() time.Time { return now }

	gate := submission.NewGate(submission.Deps{
		Limiter: ratelimit.NewLimiter(ratelimit.NewMemoryStore(ratelimit.WithClock(clock)), submission.Namespace, submission.Policy),
		Store:   store,
		Metrics: m,
		Logger:  logger,
		Now:     clock,
	})
	deps := &ServerDeps{
		Gate:         gate,
		Directory:    content.NewDirectory(store, content.WithNow(clock)),
		Newsroom:     content.NewNewsroom(articles),
		Metrics:      m,
		Logger:       logger,
		MaxBodyBytes: 1 << 20,
		ReadLimiter:  readLimiter,
	}
	return &testServer{handler: deps.Router(), store: store, articles: articles, metrics: m}
}

func payload(mut func(map[string]any)) string {
	body := map[string]any{
		"name":          "Stockholm AI Meetup",
		"date":          "2026-11-20T18:00",
		"city":          "Stockholm",
		"categories":    []string{"AI/ML"},
		"type":          "Meetup",
		"organizer":     "AI Sweden",
		"url":           "https://example.se/e",
		"description":   "Talks about applied machine learning.",
		"price":         "Free",
		"language":      "Swedish",
		"_formLoadedAt": now.Add(-5 * time.Second).UnixMilli(),
	}
	if mut != nil {
		mut(body)
	}
	b, _ := json.Marshal(body)
	return string(b)
}

func (s *testServer) post(body, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/events", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if ip != "" {
		req.Header.Set("X-Forwarded-For", ip)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) get(target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestPostEvent_PersistsOnce(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.post(payload(nil), "1.2.3.4")

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[submitResponse](t, rec)
	assert.True(t, body.Success)
	assert.NotEqual(t, placeholderID, body.EventID)
	assert.Equal(t, "4", rec.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, 1, s.store.Calls())

	stored, ok := s.store.Get(body.EventID)
	require.True(t, ok)
	assert.Equal(t, domain.StatusDraft, stored.Status)
	assert.False(t, stored.Featured)
}

func TestPostEvent_HoneypotLooksLikeSuccess(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.post(payload(func(b map[string]any) { b["website"] = "http://spam.example" }), "1.2.3.4")

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[submitResponse](t, rec)
	assert.Equal(t, submitResponse{Success: true, EventID: "submitted"}, body)
	assert.Equal(t, "4", rec.Header().Get("X-RateLimit-Remaining"))
	assert.Zero(t, s.store.Calls())
	assert.Equal(t, 1.0, testutil.ToFloat64(s.metrics.Submissions.WithLabelValues("soft_rejected", "honeypot")))
}

func TestPostEvent_SoftRejectsShareAcceptedShape(t *testing.T) {
	cases := map[string]func(map[string]any){
		"too fast":    func(b map[string]any) { b["_formLoadedAt"] = now.Add(-time.Second).UnixMilli() },
		"spam":        func(b map[string]any) { b["description"] = "click here for free money" },
		"blocked tld": func(b map[string]any) { b["url"] = "https://events.tk/ai" },
	}
	for name, mut := range cases {
		t.Run(name, func(t *testing.T) {
			s := newTestServer(t, nil)
			accepted := s.post(payload(nil), "9.9.9.9")
			rejected := s.post(payload(mut), "1.2.3.4")

			assert.Equal(t, accepted.Code, rejected.Code)
			assert.Equal(t, accepted.Header().Get("Content-Type"), rejected.Header().Get("Content-Type"))
			assert.Equal(t, accepted.Header().Get("X-RateLimit-Remaining"), rejected.Header().Get("X-RateLimit-Remaining"))
			assert.Equal(t, `{"success":true,"eventId":"submitted"}`, strings.TrimSpace(rejected.Body.String()))
			assert.Equal(t, 1, s.store.Calls())
		})
	}
}

func TestPostEvent_MissingOrganizer(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.post(payload(func(b map[string]any) { delete(b, "organizer") }), "1.2.3.4")

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Missing required fields: organizer", decode[errorBody](t, rec).Error)
	assert.Equal(t, "4", rec.Header().Get("X-RateLimit-Remaining"))
	assert.Zero(t, s.store.Calls())
}

func TestPostEvent_InvalidURLAndBody(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.post(payload(func(b map[string]any) { b["url"] = "ftp://example.se" }), "1.2.3.4")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid event URL", decode[errorBody](t, rec).Error)

	rec = s.post(`{"name":`, "1.2.3.4")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid request body", decode[errorBody](t, rec).Error)
}

func (s *testServer) postAs(contentType, body, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/events", strings.NewReader(body))
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-Forwarded-For", ip)
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func TestPostEvent_RequiresJSON(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.postAs("text/plain", payload(nil), "1.2.3.4")

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Expected application/json", decode[errorBody](t, rec).Error)
	assert.Equal(t, "4", rec.Header().Get("X-RateLimit-Remaining"))
	assert.Zero(t, s.store.Calls())
}

func TestPostEvent_NonJSONAfterQuotaIs429(t *testing.T) {
	s := newTestServer(t, nil)
	for i := 0; i < 5; i++ {
		require.Equal(t, http.StatusOK, s.post(payload(nil), "1.2.3.4").Code)
	}

	rec := s.postAs("text/plain", "name=spam", "1.2.3.4")

	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "3600", rec.Header().Get("Retry-After"))
	assert.Empty(t, rec.Header().Get("X-RateLimit-Remaining"))
}

func TestPostEvent_SixthRequestIs429(t *testing.T) {
	s := newTestServer(t, nil)
	for i := 0; i < 5; i++ {
		rec := s.post(payload(func(b map[string]any) { b["name"] = fmt.Sprintf("Meetup %d", i) }), "1.2.3.4")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, fmt.Sprint(4-i), rec.Header().Get("X-RateLimit-Remaining"))
	}

	rec := s.post(payload(nil), "1.2.3.4")

	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "3600", rec.Header().Get("Retry-After"))
	assert.Empty(t, rec.Header().Get("X-RateLimit-Remaining"))
	body := decode[rateLimitedBody](t, rec)
	assert.Equal(t, 3600, body.RetryAfter)
	assert.NotEmpty(t, body.Error)
	assert.Equal(t, 5, s.store.Calls())

	// a different forwarded client has its own window
	assert.Equal(t, http.StatusOK, s.post(payload(nil), "5.6.7.8").Code)
}

func TestPostEvent_PersistenceFailureIsGeneric(t *testing.T) {
	s := newTestServer(t, nil)
	s.store.err = errors.New(`pq: duplicate key value violates unique constraint "events_pkey"`)

	rec := s.post(payload(nil), "1.2.3.4")

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Failed to submit event", decode[errorBody](t, rec).Error)
	assert.NotContains(t, rec.Body.String(), "pq:")
}

func TestListEvents(t *testing.T) {
	s := newTestServer(t, nil)
	s.store.Put(domain.Event{ID: "00000000-0000-0000-0000-00000000000a", Name: "Later", Date: "2026-12-01",
		City: "Stockholm", Status: domain.StatusPublished})
	s.store.Put(domain.Event{ID: "00000000-0000-0000-0000-00000000000b", Name: "Sooner", Date: "2026-11-01",
		City: "Göteborg", Status: domain.StatusPublished})
	s.store.Put(domain.Event{ID: "00000000-0000-0000-0000-00000000000c", Name: "Old", Date: "2026-01-01",
		City: "Stockholm", Status: domain.StatusPublished})

	rec := s.get("/api/events")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[listResponse](t, rec)
	require.Len(t, body.Events, 2)
	assert.Equal(t, "Sooner", body.Events[0].Name)
	assert.Equal(t, "Later", body.Events[1].Name)

	rec = s.get("/api/events?city=Stockholm")
	body = decode[listResponse](t, rec)
	require.Len(t, body.Events, 1)
	assert.Equal(t, "Later", body.Events[0].Name)
}

func TestListEvents_EmptyIsArray(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.get("/api/events")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"events":[]}`, rec.Body.String())
}

func TestGetEventBySlug(t *testing.T) {
	s := newTestServer(t, nil)
	id := "6f1d2c3b-4a5e-4f60-9a1b-2c3d4e5f6a7b"
	s.store.Put(domain.Event{ID: id, Name: "AI Summit", Date: "2026-12-01", Status: domain.StatusPublished})

	rec := s.get("/api/events/" + domain.Slug("AI Summit", id))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, id, decode[eventResponse](t, rec).Event.ID)

	rec = s.get("/api/events/no-such-event-000000000000")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Event not found", decode[errorBody](t, rec).Error)
}

func TestPastEvents(t *testing.T) {
	s := newTestServer(t, nil)
	s.store.Put(domain.Event{ID: "00000000-0000-0000-0000-00000000000a", Name: "Upcoming", Date: "2026-12-01",
		City: "Stockholm", Status: domain.StatusPublished})
	s.store.Put(domain.Event{ID: "00000000-0000-0000-0000-00000000000b", Name: "Spring", Date: "2026-04-01",
		City: "Lund", Status: domain.StatusPublished})
	s.store.Put(domain.Event{ID: "00000000-0000-0000-0000-00000000000c", Name: "Summer", Date: "2026-07-01",
		City: "Stockholm", Status: domain.StatusPublished})

	rec := s.get("/api/events/past")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[listResponse](t, rec)
	require.Len(t, body.Events, 2)
	assert.Equal(t, "Summer", body.Events[0].Name)
	assert.Equal(t, "Spring", body.Events[1].Name)

	body = decode[listResponse](t, s.get("/api/events/past?city=Lund"))
	require.Len(t, body.Events, 1)
	assert.Equal(t, "Spring", body.Events[0].Name)
}

func TestFeaturedEvents(t *testing.T) {
	s := newTestServer(t, nil)
	s.store.Put(domain.Event{ID: "00000000-0000-0000-0000-00000000000a", Name: "Keynote", Date: "2026-12-01",
		Status: domain.StatusPublished, Featured: true})
	s.store.Put(domain.Event{ID: "00000000-0000-0000-0000-00000000000b", Name: "Regular", Date: "2026-11-01",
		Status: domain.StatusPublished})

	rec := s.get("/api/events/featured")

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[listResponse](t, rec)
	require.Len(t, body.Events, 1)
	assert.Equal(t, "Keynote", body.Events[0].Name)
	assert.Equal(t, 1.0, testutil.ToFloat64(s.metrics.Requests.WithLabelValues("GET", "/api/events/featured", "200")))
}

func TestListArticles(t *testing.T) {
	s := newTestServer(t, nil)
	s.articles.Put(domain.Article{ID: "a0000000-0000-0000-0000-000000000001", Title: "Older",
		PublishedDate: "2026-09-01", Category: "Research", Status: domain.StatusPublished, Featured: true})
	s.articles.Put(domain.Article{ID: "a0000000-0000-0000-0000-000000000002", Title: "Newer",
		PublishedDate: "2026-10-01", Status: domain.StatusPublished})
	s.articles.Put(domain.Article{ID: "a0000000-0000-0000-0000-000000000003", Title: "Hidden Draft",
		PublishedDate: "2026-10-05", Status: domain.StatusDraft})

	body := decode[articlesResponse](t, s.get("/api/articles"))
	require.Len(t, body.Articles, 2)
	assert.Equal(t, "Newer", body.Articles[0].Title)
	assert.Equal(t, domain.DefaultArticleCategory, body.Articles[0].Category)
	assert.Equal(t, "Older", body.Articles[1].Title)

	body = decode[articlesResponse](t, s.get("/api/articles?featured=true"))
	require.Len(t, body.Articles, 1)
	assert.Equal(t, "Older", body.Articles[0].Title)

	body = decode[articlesResponse](t, s.get("/api/articles?category=Research&limit=1"))
	require.Len(t, body.Articles, 1)

	rec := s.get("/api/articles?limit=0")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid limit", decode[errorBody](t, rec).Error)
}

func TestListArticles_EmptyIsArray(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.get("/api/articles")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"articles":[]}`, rec.Body.String())
}

func TestGetArticleBySlug(t *testing.T) {
	s := newTestServer(t, nil)
	id := s.articles.Put(domain.Article{Title: "AI in Healthcare", PublishedDate: "2026-10-01",
		Status: domain.StatusPublished})
	s.articles.Put(domain.Article{Slug: "ai-act-explained", Title: "The AI Act", Status: domain.StatusPublished})

	rec := s.get("/api/articles/" + domain.Slug("AI in Healthcare", id))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, id, decode[articleResponse](t, rec).Article.ID)

	rec = s.get("/api/articles/ai-act-explained")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "The AI Act", decode[articleResponse](t, rec).Article.Title)

	rec = s.get("/api/articles/missing-000000000000")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Article not found", decode[errorBody](t, rec).Error)
}

func TestReadThrottle(t *testing.T) {
	s := newTestServer(t, rate.NewLimiter(rate.Every(time.Hour), 1))

	require.Equal(t, http.StatusOK, s.get("/api/events").Code)

	rec := s.get("/api/events")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Positive(t, decode[rateLimitedBody](t, rec).RetryAfter)

	// submissions are not throttled by the read limiter
	assert.Equal(t, http.StatusOK, s.post(payload(nil), "1.2.3.4").Code)
}

func TestRequestMetricsUseRoutePattern(t *testing.T) {
	s := newTestServer(t, nil)

	s.get("/api/events/some-slug-000000000000")

	assert.Equal(t, 1.0, testutil.ToFloat64(s.metrics.Requests.WithLabelValues("GET", "/api/events/{slug}", "404")))
}

func TestUnknownRoute(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.get("/nope")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Not found", decode[errorBody](t, rec).Error)
}
