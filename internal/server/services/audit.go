package services

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/medkeeper/internal/server/models"
	"github.com/dmitrijs2005/medkeeper/internal/server/repositories/repomanager"
)

const (
	DefaultAuditPageSize = 100
	MaxAuditPageSize     = 1000
)

// AuditService is the read side of the audit log, used by external
// indexers. Nothing inside the registry reads events back.
type AuditService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

func NewAuditService(db *sql.DB, m repomanager.RepositoryManager) *AuditService {
	return &AuditService{db: db, repomanager: m}
}

// ClampPageSize maps limit into [1, MaxAuditPageSize]; non-positive values
// mean DefaultAuditPageSize.
func ClampPageSize(limit int) int {
	switch {
	case limit <= 0:
		return DefaultAuditPageSize
	case limit > MaxAuditPageSize:
		return MaxAuditPageSize
	default:
		return limit
	}
}

// List returns events with seq greater than afterSeq in log order.
func (s *AuditService) List(ctx context.Context, afterSeq int64, limit int) ([]*models.AuditEvent, error) {
	if afterSeq < 0 {
		afterSeq = 0
	}
	return s.repomanager.AuditLog(s.db).ListSince(ctx, afterSeq, ClampPageSize(limit))
}
