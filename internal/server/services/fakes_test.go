package services

import (
	"context"
	"database/sql"
	"regexp"
	"sort"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/medkeeper/internal/common"
	"github.com/dmitrijs2005/medkeeper/internal/dbx"
	"github.com/dmitrijs2005/medkeeper/internal/identity"
	"github.com/dmitrijs2005/medkeeper/internal/server/models"
	"github.com/dmitrijs2005/medkeeper/internal/server/repositories/auditlog"
	"github.com/dmitrijs2005/medkeeper/internal/server/repositories/providerkeys"
	"github.com/dmitrijs2005/medkeeper/internal/server/repositories/records"
	"github.com/dmitrijs2005/medkeeper/internal/server/repositories/repomanager"
)

// memStore is an in-memory registry shared by the fake repositories.
// It is not transactional: writes made before a failure stay visible.
// Rollback is asserted through sqlmock, not through this state.
type memStore struct {
	lastID  int64
	records map[int64]models.Record
	keys    map[int64]map[identity.Address][]byte
	events  []*models.AuditEvent

	// error injection
	nextIDErr  error
	createErr  error
	getErr     error
	upsertErr  error
	appendErr  error
	appendFail int // fail the n-th Append (1-based) when appendErr is set
	appends    int
}

func newMemStore() *memStore {
	return &memStore{
		records: map[int64]models.Record{},
		keys:    map[int64]map[identity.Address][]byte{},
	}
}

type memRecords struct{ s *memStore }

func (r memRecords) NextID(context.Context) (int64, error) {
	if r.s.nextIDErr != nil {
		return 0, r.s.nextIDErr
	}
	r.s.lastID++
	return r.s.lastID, nil
}

func (r memRecords) Create(_ context.Context, rec *models.Record) error {
	if r.s.createErr != nil {
		return r.s.createErr
	}
	r.s.records[rec.ID] = *rec
	return nil
}

func (r memRecords) GetByID(_ context.Context, id int64) (*models.Record, error) {
	if r.s.getErr != nil {
		return nil, r.s.getErr
	}
	rec, ok := r.s.records[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &rec, nil
}

func (r memRecords) Deactivate(_ context.Context, id int64) error {
	rec, ok := r.s.records[id]
	if !ok {
		return common.ErrorNotFound
	}
	rec.Active = false
	r.s.records[id] = rec
	return nil
}

func (r memRecords) ListIDsByCreator(_ context.Context, creator identity.Address) ([]int64, error) {
	ids := make([]int64, 0)
	for id, rec := range r.s.records {
		if rec.Creator == creator {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

type memKeys struct{ s *memStore }

func (k memKeys) Upsert(_ context.Context, key *models.ProviderKey) error {
	if k.s.upsertErr != nil {
		return k.s.upsertErr
	}
	if k.s.keys[key.RecordID] == nil {
		k.s.keys[key.RecordID] = map[identity.Address][]byte{}
	}
	k.s.keys[key.RecordID][key.Provider] = key.EncryptedKey
	return nil
}

func (k memKeys) Delete(_ context.Context, recordID int64, provider identity.Address) error {
	delete(k.s.keys[recordID], provider)
	return nil
}

func (k memKeys) Get(_ context.Context, recordID int64, provider identity.Address) ([]byte, error) {
	v, ok := k.s.keys[recordID][provider]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return v, nil
}

type memAudit struct{ s *memStore }

func (a memAudit) Append(_ context.Context, e *models.AuditEvent) error {
	a.s.appends++
	if a.s.appendErr != nil && a.s.appends == a.s.appendFail {
		return a.s.appendErr
	}
	e.Seq = int64(len(a.s.events) + 1)
	a.s.events = append(a.s.events, e)
	return nil
}

func (a memAudit) ListSince(_ context.Context, afterSeq int64, limit int) ([]*models.AuditEvent, error) {
	out := make([]*models.AuditEvent, 0)
	for _, e := range a.s.events {
		if e.Seq > afterSeq && len(out) < limit {
			out = append(out, e)
		}
	}
	return out, nil
}

type memManager struct {
	repomanager.RepositoryManager
	s *memStore
}

func (m *memManager) Records(dbx.DBTX) records.Repository           { return memRecords{m.s} }
func (m *memManager) ProviderKeys(dbx.DBTX) providerkeys.Repository { return memKeys{m.s} }
func (m *memManager) AuditLog(dbx.DBTX) auditlog.Repository         { return memAudit{m.s} }
func (m *memManager) RunMigrations(context.Context, *sql.DB) error  { return nil }

var lockQuery = regexp.QuoteMeta(`SELECT pg_advisory_xact_lock($1)`)

func newSQLMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func expectLockedCommit(mock sqlmock.Sqlmock) {
	mock.ExpectBegin()
	mock.ExpectExec(lockQuery).WithArgs(common.RegistryLockKey).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()
}

func expectLockedRollback(mock sqlmock.Sqlmock) {
	mock.ExpectBegin()
	mock.ExpectExec(lockQuery).WithArgs(common.RegistryLockKey).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()
}
