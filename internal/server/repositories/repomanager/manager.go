package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/medkeeper/internal/dbx"
	"github.com/dmitrijs2005/medkeeper/internal/server/repositories/auditlog"
	"github.com/dmitrijs2005/medkeeper/internal/server/repositories/providerkeys"
	"github.com/dmitrijs2005/medkeeper/internal/server/repositories/records"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Records(db dbx.DBTX) records.Repository
	ProviderKeys(db dbx.DBTX) providerkeys.Repository
	AuditLog(db dbx.DBTX) auditlog.Repository
}
