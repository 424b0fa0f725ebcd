package transporthttp

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"example.com/aievents/internal/content"
	"example.com/aievents/internal/domain"
	"example.com/aievents/internal/metrics"
	"example.com/aievents/internal/submission"
)

// placeholderID is what a silently dropped submission gets back.
const placeholderID = "submitted"

type ServerDeps struct {
	Gate         *submission.Gate
	Directory    *content.Directory
	Newsroom     *content.Newsroom
	Metrics      *metrics.Metrics
	Logger       log.FieldLogger
	MaxBodyBytes int64
	// ReadLimiter throttles the GET endpoints; nil disables it.
	ReadLimiter *rate.Limiter
}

type submitResponse struct {
	Success bool   `json:"success"`
	EventID string `json:"eventId"`
}

type listResponse struct {
	Events []domain.Event `json:"events"`
}

type eventResponse struct {
	Event domain.Event `json:"event"`
}

type articlesResponse struct {
	Articles []domain.Article `json:"articles"`
}

type articleResponse struct {
	Article domain.Article `json:"article"`
}

// maxArticleLimit bounds ?limit on the article listing.
const maxArticleLimit = 50

func (d *ServerDeps) HandlePostEvent(w http.ResponseWriter, r *http.Request) {
	defer DrainBody(r)

	// Content problems are judged by the gate, after the rate limit.
	req := submission.Request{ClientIP: ClientIP(r)}
	var sub domain.Submission
	switch {
	case !isJSON(r):
		req.DecodeErr = submission.ErrNotJSON
	default:
		if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
			req.DecodeErr = err
		} else {
			req.Submission = &sub
		}
	}

	out := d.Gate.Submit(r.Context(), req)

	if out.Quota != nil && out.Kind != submission.RateLimited {
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(out.Quota.Remaining))
	}

	switch out.Kind {
	case submission.Accepted:
		writeJSON(w, http.StatusOK, submitResponse{Success: true, EventID: out.EventID})
	case submission.SoftRejected:
		writeJSON(w, http.StatusOK, submitResponse{Success: true, EventID: placeholderID})
	case submission.RateLimited:
		secs := out.Quota.RetryAfterSeconds()
		w.Header().Set("Retry-After", strconv.Itoa(secs))
		writeJSON(w, http.StatusTooManyRequests, rateLimitedBody{
			Error:      "Too many submissions. Please try again later.",
			RetryAfter: secs,
		})
	case submission.Invalid:
		writeError(w, http.StatusBadRequest, out.Message())
	default:
		writeError(w, http.StatusInternalServerError, "Failed to submit event")
	}
}

func filterFrom(r *http.Request) domain.Filter {
	q := r.URL.Query()
	return domain.Filter{
		City:     strings.TrimSpace(q.Get("city")),
		Category: strings.TrimSpace(q.Get("category")),
		Type:     strings.TrimSpace(q.Get("type")),
		Price:    strings.TrimSpace(q.Get("price")),
		Language: strings.TrimSpace(q.Get("language")),
		Search:   strings.TrimSpace(q.Get("search")),
		DateFrom: strings.TrimSpace(q.Get("dateFrom")),
		DateTo:   strings.TrimSpace(q.Get("dateTo")),
	}
}

func (d *ServerDeps) HandleListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := d.Directory.Upcoming(r.Context(), filterFrom(r))
	d.writeEvents(w, events, err)
}

func (d *ServerDeps) HandlePastEvents(w http.ResponseWriter, r *http.Request) {
	events, err := d.Directory.Past(r.Context(), filterFrom(r))
	d.writeEvents(w, events, err)
}

func (d *ServerDeps) HandleFeaturedEvents(w http.ResponseWriter, r *http.Request) {
	events, err := d.Directory.Featured(r.Context())
	d.writeEvents(w, events, err)
}

func (d *ServerDeps) writeEvents(w http.ResponseWriter, events []domain.Event, err error) {
	if err != nil {
		d.Logger.WithError(err).Error("failed to fetch events")
		writeError(w, http.StatusInternalServerError, "Failed to fetch events")
		return
	}
	writeJSON(w, http.StatusOK, listResponse{Events: events})
}

func (d *ServerDeps) HandleGetEvent(w http.ResponseWriter, r *http.Request) {
	ev, err := d.Directory.BySlug(r.Context(), chi.URLParam(r, "slug"))
	switch {
	case errors.Is(err, content.ErrNotFound):
		writeError(w, http.StatusNotFound, "Event not found")
		return
	case err != nil:
		d.Logger.WithError(err).Error("failed to fetch event")
		writeError(w, http.StatusInternalServerError, "Failed to fetch event")
		return
	}
	writeJSON(w, http.StatusOK, eventResponse{Event: ev})
}

func (d *ServerDeps) HandleListArticles(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	aq := content.ArticleQuery{
		Category:     strings.TrimSpace(q.Get("category")),
		FeaturedOnly: q.Get("featured") == "true",
	}
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxArticleLimit {
			writeError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		aq.Limit = n
	}

	articles, err := d.Newsroom.Articles(r.Context(), aq)
	if err != nil {
		d.Logger.WithError(err).Error("failed to fetch articles")
		writeError(w, http.StatusInternalServerError, "Failed to fetch articles")
		return
	}
	writeJSON(w, http.StatusOK, articlesResponse{Articles: articles})
}

func (d *ServerDeps) HandleGetArticle(w http.ResponseWriter, r *http.Request) {
	a, err := d.Newsroom.BySlug(r.Context(), chi.URLParam(r, "slug"))
	switch {
	case errors.Is(err, content.ErrArticleNotFound):
		writeError(w, http.StatusNotFound, "Article not found")
		return
	case err != nil:
		d.Logger.WithError(err).Error("failed to fetch article")
		writeError(w, http.StatusInternalServerError, "Failed to fetch article")
		return
	}
	writeJSON(w, http.StatusOK, articleResponse{Article: a})
}

func (d *ServerDeps) Router() http.Handler {
	if d.Logger == nil {
		d.Logger = log.StandardLogger()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(WithLogging(d.Logger))
	if d.Metrics != nil {
		r.Use(WithMetrics(d.Metrics))
	}

	r.Route("/api/events", func(r chi.Router) {
		r.With(BodyLimit(d.MaxBodyBytes)).Post("/", d.HandlePostEvent)

		r.Group(func(r chi.Router) {
			r.Use(Throttle(d.ReadLimiter))
			r.Get("/", d.HandleListEvents)
			r.Get("/past", d.HandlePastEvents)
			r.Get("/featured", d.HandleFeaturedEvents)
			r.Get("/{slug}", d.HandleGetEvent)
		})
	})

	if d.Newsroom != nil {
		r.Route("/api/articles", func(r chi.Router) {
			r.Use(Throttle(d.ReadLimiter))
			r.Get("/", d.HandleListArticles)
			r.Get("/{slug}", d.HandleGetArticle)
		})
	}

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	return r
}
