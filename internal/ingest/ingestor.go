// Package ingest batches submission audit records off the request path.
package ingest

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"example.com/aievents/internal/domain"
)

type BatchWriter interface {
	InsertBatch(ctx context.Context, items []domain.AuditRecord) (int64, error)
}

type Ingestor struct {
	queue        chan domain.AuditRecord
	writer       BatchWriter
	batchMaxSize int
	batchMaxWait time.Duration
	logger       log.FieldLogger
	start        sync.Once
	done         chan struct{}
}

func NewIngestor(writer BatchWriter, queueMaxSize, batchMaxSize int, batchMaxWait time.Duration, logger log.FieldLogger) *Ingestor {
	return &Ingestor{
		queue:        make(chan domain.AuditRecord, queueMaxSize),
		writer:       writer,
		batchMaxSize: batchMaxSize,
		batchMaxWait: batchMaxWait,
		logger:       logger.WithField("component", "ingest"),
		done:         make(chan struct{}),
	}
}

// Start runs the flush loop until ctx is cancelled; the pending batch is
// flushed once more on the way out with a fresh context. Later calls are no-ops.
func (ig *Ingestor) Start(ctx context.Context) {
	ig.start.Do(func() { ig.run(ctx) })
}

func (ig *Ingestor) run(ctx context.Context) {
	go func() {
		defer close(ig.done)

		batch := make([]domain.AuditRecord, 0, ig.batchMaxSize)
		t := time.NewTimer(ig.batchMaxWait)
		defer t.Stop()

		resetTimer := func() {
			if !t.Stop() {
				select {
				case <-t.C:
				default:
				}
			}
			t.Reset(ig.batchMaxWait)
		}

		flush := func(ctx context.Context) {
			if len(batch) == 0 {
				resetTimer()
				return
			}
			affected, err := ig.writer.InsertBatch(ctx, batch)
			if err != nil {
				ig.logger.WithError(err).WithField("dropped", len(batch)).Error("audit batch insert failed")
			} else {
				ig.logger.WithFields(log.Fields{"inserted": affected, "size": len(batch)}).Debug("audit batch inserted")
			}
			batch = batch[:0]
			resetTimer()
		}

		for {
			select {
			case <-ctx.Done():
			drain:
				for {
					select {
					case rec := <-ig.queue:
						batch = append(batch, rec)
					default:
						break drain
					}
				}
				final, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				flush(final)
				cancel()
				return
			case rec := <-ig.queue:
				batch = append(batch, rec)
				if len(batch) >= ig.batchMaxSize {
					flush(ctx)
				}
			case <-t.C:
				flush(ctx)
			}
		}
	}()
}

// Record queues rec without blocking; it reports false when the queue is full.
func (ig *Ingestor) Record(rec domain.AuditRecord) bool {
	select {
	case ig.queue <- rec:
		return true
	default:
		ig.logger.WithField("outcome", rec.Outcome).Warn("audit queue full, record dropped")
		return false
	}
}

// Done is closed after the final flush.
func (ig *Ingestor) Done() <-chan struct{} { return ig.done }

// LogWriter is the BatchWriter used when no database is configured.
type LogWriter struct {
	Logger log.FieldLogger
}

func (w LogWriter) InsertBatch(_ context.Context, items []domain.AuditRecord) (int64, error) {
	for _, rec := range items {
		w.Logger.WithFields(log.Fields{
			"at":          rec.At,
			"outcome":     rec.Outcome,
			"reason":      rec.Reason,
			"client_ip":   rec.ClientIP,
			"fingerprint": rec.Fingerprint,
			"event_name":  rec.EventName,
			"event_url":   rec.EventURL,
		}).Info("submission audit")
	}
	return int64(len(items)), nil
}
