// Package submission decides what happens to a public event submission:
// rate limit, bot screen, field validation, then persistence.
package submission

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"

	"example.com/aievents/internal/botscreen"
	"example.com/aievents/internal/content"
	"example.com/aievents/internal/domain"
	"example.com/aievents/internal/idempotency"
	"example.com/aievents/internal/metrics"
	"example.com/aievents/internal/ratelimit"
)

// Fixed policy for the public form: five submissions per client per hour.
const Namespace = "event-submit"

var Policy = ratelimit.Policy{MaxRequests: 5, Window: time.Hour}

type Auditor interface {
	Record(rec domain.AuditRecord) bool
}

type Deps struct {
	Limiter *ratelimit.Limiter
	Store   content.Creator
	Audit   Auditor
	Metrics *metrics.Metrics
	Logger  log.FieldLogger
	Now     func() time.Time
}

type Gate struct {
	limiter *ratelimit.Limiter
	store   content.Creator
	audit   Auditor
	metrics *metrics.Metrics
	logger  log.FieldLogger
	now     func() time.Time
}

func NewGate(d Deps) *Gate {
	g := &Gate{
		limiter: d.Limiter,
		store:   d.Store,
		audit:   d.Audit,
		metrics: d.Metrics,
		logger:  d.Logger,
		now:     d.Now,
	}
	if g.now == nil {
		g.now = time.Now
	}
	if g.logger == nil {
		g.logger = log.StandardLogger()
	}
	return g
}

// Request is one decoded (or undecodable) submission.
type Request struct {
	ClientIP   string
	Submission *domain.Submission
	DecodeErr  error
}

func (g *Gate) Submit(ctx context.Context, req Request) Outcome {
	out := g.decide(ctx, req)
	g.observe(req, out)
	return out
}

func (g *Gate) decide(ctx context.Context, req Request) Outcome {
	res, err := g.limiter.Check(ctx, req.ClientIP)
	var quota *ratelimit.Result
	if err != nil {
		// Fail open: a broken limiter store must not take the form down.
		g.logger.WithError(err).Error("rate limit check failed, admitting request")
		if g.metrics != nil {
			g.metrics.LimiterErrors.Inc()
		}
	} else {
		quota = &res
		if !res.Allowed {
			return Outcome{Kind: RateLimited, Quota: quota}
		}
	}

	if errors.Is(req.DecodeErr, ErrNotJSON) {
		return Outcome{Kind: Invalid, Reason: ReasonNotJSON, Quota: quota, Err: req.DecodeErr}
	}
	if req.DecodeErr != nil || req.Submission == nil {
		return Outcome{Kind: Invalid, Reason: ReasonMalformedBody, Quota: quota, Err: req.DecodeErr}
	}
	sub := req.Submission

	if reason, flagged := botscreen.Screen(sub, g.now()); flagged {
		return Outcome{Kind: SoftRejected, Reason: string(reason), Quota: quota}
	}

	if errs := domain.ValidateRequired(sub); len(errs) > 0 {
		return Outcome{Kind: Invalid, Reason: ReasonMissingFields, Fields: domain.FieldNames(errs), Quota: quota}
	}

	u, err := domain.ParseEventURL(sub.URL)
	if err != nil {
		return Outcome{Kind: Invalid, Reason: ReasonInvalidURL, Quota: quota, Err: err}
	}
	if reason, flagged := botscreen.CheckTLD(u.Hostname()); flagged {
		return Outcome{Kind: SoftRejected, Reason: string(reason), Quota: quota}
	}

	draft := sub.Draft()
	draft.Fingerprint = idempotency.Fingerprint(&draft)

	id, err := g.store.CreateEvent(ctx, draft)
	if err != nil {
		return Outcome{Kind: Failed, Quota: quota, Err: err}
	}
	return Outcome{Kind: Accepted, EventID: id, Quota: quota}
}

func (g *Gate) observe(req Request, out Outcome) {
	if g.metrics != nil {
		g.metrics.Submissions.WithLabelValues(out.Kind.String(), out.Reason).Inc()
	}

	entry := g.logger.WithFields(log.Fields{
		"outcome":   out.Kind.String(),
		"client_ip": req.ClientIP,
	})
	if out.Reason != "" {
		entry = entry.WithField("reason", out.Reason)
	}

	switch out.Kind {
	case Accepted:
		entry.WithField("event_id", out.EventID).Info("event submitted")
		return
	case RateLimited:
		entry.Warn("event submission rate limited")
		return
	case Failed:
		entry.WithError(out.Err).Error("event submission failed to persist")
	case SoftRejected:
		entry.Info("event submission silently dropped")
	case Invalid:
		entry.WithField("fields", out.Fields).Info("event submission rejected")
	}

	if g.audit == nil {
		return
	}
	rec := domain.AuditRecord{
		At:       g.now().UTC(),
		Outcome:  out.Kind.String(),
		Reason:   out.Reason,
		ClientIP: req.ClientIP,
	}
	if sub := req.Submission; sub != nil {
		d := sub.Draft()
		rec.Fingerprint = idempotency.Fingerprint(&d)
		rec.EventName = sub.Name
		rec.EventURL = sub.URL
	}
	g.audit.Record(rec)
}
