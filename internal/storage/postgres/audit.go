package postgres

import (
	"context"
	"fmt"
	"strings"

	"example.com/aievents/internal/domain"
)

type AuditWriter struct {
	db *DB
}

func NewAuditWriter(db *DB) *AuditWriter { return &AuditWriter{db: db} }

var auditColumns = []string{"at", "outcome", "reason", "client_ip", "fingerprint", "event_name", "event_url"}

// InsertBatch writes all records in one multi-row INSERT.
func (w *AuditWriter) InsertBatch(ctx context.Context, items []domain.AuditRecord) (int64, error) {
	if len(items) == 0 {
		return 0, nil
	}

	sql, args := buildAuditInsert(items)
	ct, err := w.db.Pool.Exec(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("insert audit batch of %d: %w", len(items), err)
	}
	return ct.RowsAffected(), nil
}

func buildAuditInsert(items []domain.AuditRecord) (string, []any) {
	placeholders := make([]string, 0, len(items))
	args := make([]any, 0, len(items)*len(auditColumns))

	for _, rec := range items {
		ph := make([]string, 0, len(auditColumns))
		for _, v := range []any{
			rec.At,
			rec.Outcome,
			nullIfEmpty(rec.Reason),
			rec.ClientIP,
			nullIfEmpty(rec.Fingerprint),
			nullIfEmpty(rec.EventName),
			nullIfEmpty(rec.EventURL),
		} {
			args = append(args, v)
			ph = append(ph, fmt.Sprintf("$%d", len(args)))
		}
		placeholders = append(placeholders, "("+strings.Join(ph, ",")+")")
	}

	sql := "INSERT INTO submission_audit (" + strings.Join(auditColumns, ",") + ") VALUES " +
		strings.Join(placeholders, ",")
	return sql, args
}
