package auditlog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/medkeeper/internal/identity"
	"github.com/dmitrijs2005/medkeeper/internal/server/models"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	patient  = identity.MustParseAddress("0x1111111111111111111111111111111111111111")
	provider = identity.MustParseAddress("0x2222222222222222222222222222222222222222")
	ts       = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
)

const (
	appendQuery = `INSERT INTO audit_events \(kind, record_id, patient, provider, payload, occurred_at\)\s+VALUES \(\$1, \$2, \$3, \$4, \$5, \$6\)\s+RETURNING seq`
	listQuery   = `SELECT seq, kind, record_id, patient, provider, payload, occurred_at\s+FROM audit_events\s+WHERE seq > \$1\s+ORDER BY seq\s+LIMIT \$2`
)

var columns = []string{"seq", "kind", "record_id", "patient", "provider", "payload", "occurred_at"}

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresRepository(db), mock
}

func TestAppend_SetsSeq(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(appendQuery).
		WithArgs("ProviderAuthorized", int64(3), patient.Hex(), provider.Hex(), "", ts).
		WillReturnRows(sqlmock.NewRows([]string{"seq"}).AddRow(int64(42)))

	e := models.ProviderAuthorized(3, patient, provider, ts)
	require.NoError(t, repo.Append(context.Background(), e))
	assert.Equal(t, int64(42), e.Seq)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAppend_ZeroIdentitiesStoredAsNull(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(appendQuery).
		WithArgs("KeyUpdated", int64(3), nil, provider.Hex(), "", ts).
		WillReturnRows(sqlmock.NewRows([]string{"seq"}).AddRow(int64(1)))

	require.NoError(t, repo.Append(context.Background(), models.KeyUpdated(3, provider, ts)))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAppend_DBError(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(appendQuery).WillReturnError(errors.New("down"))

	err := repo.Append(context.Background(), models.RecordDeleted(3, patient, ts))
	require.ErrorContains(t, err, "db error: down")
}

func TestListSince(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	rows := sqlmock.NewRows(columns).
		AddRow(int64(5), "RecordCreated", int64(1), patient.Hex(), nil, "records/x", ts).
		AddRow(int64(6), "KeyUpdated", int64(1), nil, provider.Hex(), "", ts)

	mock.ExpectQuery(listQuery).WithArgs(int64(4), 10).WillReturnRows(rows)

	got, err := repo.ListSince(context.Background(), 4, 10)
	require.NoError(t, err)

	want := []*models.AuditEvent{
		{Seq: 5, Kind: models.EventRecordCreated, RecordID: 1, Patient: patient, Payload: "records/x", Timestamp: ts},
		{Seq: 6, Kind: models.EventKeyUpdated, RecordID: 1, Provider: provider, Timestamp: ts},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("events mismatch (-want +got):\n%s", diff)
	}
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListSince_Empty(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(listQuery).WillReturnRows(sqlmock.NewRows(columns))

	got, err := repo.ListSince(context.Background(), 100, 10)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestListSince_QueryError(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(listQuery).WillReturnError(errors.New("down"))

	_, err := repo.ListSince(context.Background(), 0, 10)
	require.ErrorContains(t, err, "db error: down")
}

func TestListSince_ScanError(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	rows := sqlmock.NewRows(columns).
		AddRow(int64(5), "RecordCreated", int64(1), "not-an-address", nil, "", ts)
	mock.ExpectQuery(listQuery).WillReturnRows(rows)

	_, err := repo.ListSince(context.Background(), 0, 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db error")
}

func TestListSince_RowError(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	rows := sqlmock.NewRows(columns).
		AddRow(int64(5), "RecordCreated", int64(1), patient.Hex(), nil, "", ts).
		RowError(0, errors.New("row broke"))
	mock.ExpectQuery(listQuery).WillReturnRows(rows)

	_, err := repo.ListSince(context.Background(), 0, 10)
	require.ErrorContains(t, err, "row broke")
}
