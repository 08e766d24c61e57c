package grpc

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/medkeeper/internal/identity"
	"github.com/dmitrijs2005/medkeeper/internal/logging"
	"github.com/dmitrijs2005/medkeeper/internal/server/models"
)

var (
	patient  = identity.MustParseAddress("0x1000000000000000000000000000000000000001")
	provider = identity.MustParseAddress("0x2000000000000000000000000000000000000002")
	ts       = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
)

type fakeRegistry struct {
	Registry

	gotCaller    identity.Address
	gotProviders []identity.Address
	gotKeys      [][]byte
	gotDigest    models.Digest
	gotPatient   identity.Address

	id     int64
	key    []byte
	record *models.Record
	ids    []int64
	err    error
}

func (f *fakeRegistry) CreateRecord(_ context.Context, caller identity.Address, _ string, digest models.Digest,
	providers []identity.Address, keys [][]byte) (int64, error) {
	f.gotCaller, f.gotDigest, f.gotProviders, f.gotKeys = caller, digest, providers, keys
	return f.id, f.err
}

func (f *fakeRegistry) AuthorizeProvider(_ context.Context, caller identity.Address, _ int64, p identity.Address, _ []byte) error {
	f.gotCaller, f.gotProviders = caller, []identity.Address{p}
	return f.err
}

func (f *fakeRegistry) RevokeProvider(_ context.Context, caller identity.Address, _ int64, p identity.Address) error {
	f.gotCaller, f.gotProviders = caller, []identity.Address{p}
	return f.err
}

func (f *fakeRegistry) DeleteRecord(_ context.Context, caller identity.Address, _ int64) error {
	f.gotCaller = caller
	return f.err
}

func (f *fakeRegistry) GetEncryptedKeyForCaller(_ context.Context, caller identity.Address, _ int64) ([]byte, error) {
	f.gotCaller = caller
	return f.key, f.err
}

func (f *fakeRegistry) GetRecordMetadata(context.Context, int64) (*models.Record, error) {
	return f.record, f.err
}

func (f *fakeRegistry) GetPatientRecordIDs(_ context.Context, p identity.Address) ([]int64, error) {
	f.gotPatient = p
	return f.ids, f.err
}

// fakeAudit serves events from a slice that tests may grow concurrently.
type fakeAudit struct {
	mu     sync.Mutex
	events []*models.AuditEvent
	err    error
}

func (f *fakeAudit) add(e *models.AuditEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, e)
}

func (f *fakeAudit) List(_ context.Context, afterSeq int64, limit int) ([]*models.AuditEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make([]*models.AuditEvent, 0)
	for _, e := range f.events {
		if e.Seq > afterSeq && len(out) < limit {
			out = append(out, e)
		}
	}
	return out, nil
}

type fakeContent struct {
	gotCaller identity.Address
	err       error
}

func (f *fakeContent) PresignUpload(_ context.Context, caller identity.Address) (string, string, error) {
	f.gotCaller = caller
	if f.err != nil {
		return "", "", f.err
	}
	return "records/loc", "https://s3.test/put", nil
}

func (f *fakeContent) PresignDownload(_ context.Context, caller identity.Address, _ int64) (string, error) {
	f.gotCaller = caller
	if f.err != nil {
		return "", f.err
	}
	return "https://s3.test/get", nil
}

func newTestServer(reg *fakeRegistry, audit *fakeAudit, content *fakeContent) *GRPCServer {
	return NewGRPCServer("127.0.0.1:0", logging.Nop{}, reg, audit, content, "secret", 10*time.Millisecond)
}

func asCaller(a identity.Address) context.Context {
	return context.WithValue(context.Background(), callerKey, a)
}
