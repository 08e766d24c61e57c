package auditlog

import (
	"context"

	"github.com/dmitrijs2005/medkeeper/internal/server/models"
)

// Repository is the append-only audit log.
type Repository interface {
	// Append stores the event and sets its Seq.
	Append(ctx context.Context, event *models.AuditEvent) error
	// ListSince returns up to limit events with seq > afterSeq in seq order.
	ListSince(ctx context.Context, afterSeq int64, limit int) ([]*models.AuditEvent, error)
}
