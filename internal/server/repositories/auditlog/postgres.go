// Package auditlog persists registry events in commit order.
package auditlog

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/medkeeper/internal/dbx"
	"github.com/dmitrijs2005/medkeeper/internal/identity"
	"github.com/dmitrijs2005/medkeeper/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// nullable stores the zero identity as NULL.
func nullable(a identity.Address) any {
	if a.IsZero() {
		return nil
	}
	return a
}

func (r *PostgresRepository) Append(ctx context.Context, event *models.AuditEvent) error {
	query :=
		`INSERT INTO audit_events (kind, record_id, patient, provider, payload, occurred_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING seq
		 `

	err := r.db.QueryRowContext(ctx, query,
		string(event.Kind), event.RecordID, nullable(event.Patient), nullable(event.Provider),
		event.Payload, event.Timestamp).Scan(&event.Seq)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

func (r *PostgresRepository) ListSince(ctx context.Context, afterSeq int64, limit int) ([]*models.AuditEvent, error) {
	query :=
		`SELECT seq, kind, record_id, patient, provider, payload, occurred_at
		 FROM audit_events
		 WHERE seq > $1
		 ORDER BY seq
		 LIMIT $2
		 `

	rows, err := r.db.QueryContext(ctx, query, afterSeq, limit)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	events := make([]*models.AuditEvent, 0)
	for rows.Next() {
		var (
			e    models.AuditEvent
			kind string
		)
		if err := rows.Scan(&e.Seq, &kind, &e.RecordID, &e.Patient, &e.Provider, &e.Payload, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		e.Kind = models.EventKind(kind)
		events = append(events, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return events, nil
}

var _ Repository = (*PostgresRepository)(nil)
