package cli

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/medkeeper/internal/api"
	"github.com/dmitrijs2005/medkeeper/internal/common"
	"github.com/dmitrijs2005/medkeeper/internal/identity"
	"github.com/dmitrijs2005/medkeeper/internal/sigverify"
)

// ledger is an in-memory registry shared by several test identities.
type ledger struct {
	mu      sync.Mutex
	records map[int64]*api.RecordMetadata
	keys    map[int64]map[identity.Address][]byte
	events  []api.AuditEvent
	nextID  int64
	pingErr error
}

func newLedger() *ledger {
	return &ledger{
		records: map[int64]*api.RecordMetadata{},
		keys:    map[int64]map[identity.Address][]byte{},
	}
}

func (l *ledger) emit(kind string, id int64, patient, provider identity.Address) {
	ev := api.AuditEvent{Seq: int64(len(l.events) + 1), Kind: kind, RecordID: id, Timestamp: time.Unix(1700000000, 0).UTC()}
	if !patient.IsZero() {
		ev.Patient = patient.Hex()
	}
	if !provider.IsZero() {
		ev.Provider = provider.Hex()
	}
	l.events = append(l.events, ev)
}

// as returns the Registry seen by caller.
func (l *ledger) as(caller identity.Address, token string) *registryView {
	return &registryView{l: l, caller: caller, token: token}
}

type registryView struct {
	l      *ledger
	caller identity.Address
	token  string
	closed bool
}

func (r *registryView) owned(id int64) (*api.RecordMetadata, error) {
	rec, ok := r.l.records[id]
	if !ok {
		return nil, common.ErrorRecordNotFound
	}
	if rec.Creator != r.caller.Hex() {
		return nil, common.ErrorUnauthorized
	}
	return rec, nil
}

func (r *registryView) Ping(context.Context) error { return r.l.pingErr }

func (r *registryView) CreateRecord(_ context.Context, locator string, digest [32]byte, providers []identity.Address, keys [][]byte) (int64, error) {
	r.l.mu.Lock()
	defer r.l.mu.Unlock()

	if len(providers) != len(keys) {
		return 0, common.ErrorArgumentMismatch
	}
	r.l.nextID++
	id := r.l.nextID
	r.l.records[id] = &api.RecordMetadata{
		RecordID: id, ContentLocator: locator, ContentDigest: api.EncodeHex32(digest),
		Creator: r.caller.Hex(), Active: true, CreatedAt: time.Unix(1700000000, 0).UTC(),
	}
	r.l.keys[id] = map[identity.Address][]byte{}
	for i, p := range providers {
		r.l.keys[id][p] = keys[i]
		r.l.emit("ProviderAuthorized", id, r.caller, p)
	}
	r.l.emit("RecordCreated", id, r.caller, identity.Zero)
	return id, nil
}

func (r *registryView) AuthorizeProvider(_ context.Context, id int64, provider identity.Address, key []byte) error {
	r.l.mu.Lock()
	defer r.l.mu.Unlock()

	if _, err := r.owned(id); err != nil {
		return err
	}
	r.l.keys[id][provider] = key
	r.l.emit("ProviderAuthorized", id, r.caller, provider)
	return nil
}

func (r *registryView) RevokeProvider(_ context.Context, id int64, provider identity.Address) error {
	r.l.mu.Lock()
	defer r.l.mu.Unlock()

	if _, err := r.owned(id); err != nil {
		return err
	}
	delete(r.l.keys[id], provider)
	r.l.emit("ProviderRevoked", id, r.caller, provider)
	return nil
}

func (r *registryView) DeleteRecord(_ context.Context, id int64) error {
	r.l.mu.Lock()
	defer r.l.mu.Unlock()

	rec, err := r.owned(id)
	if err != nil {
		return err
	}
	rec.Active = false
	r.l.emit("RecordDeleted", id, r.caller, identity.Zero)
	return nil
}

func (r *registryView) GetEncryptedKey(_ context.Context, id int64) ([]byte, error) {
	r.l.mu.Lock()
	defer r.l.mu.Unlock()

	if _, ok := r.l.records[id]; !ok {
		return nil, common.ErrorRecordNotFound
	}
	if k, ok := r.l.keys[id][r.caller]; ok {
		return k, nil
	}
	return []byte{}, nil
}

func (r *registryView) GetRecordMetadata(_ context.Context, id int64) (*api.RecordMetadata, error) {
	r.l.mu.Lock()
	defer r.l.mu.Unlock()

	rec, ok := r.l.records[id]
	if !ok {
		return nil, common.ErrorRecordNotFound
	}
	cp := *rec
	return &cp, nil
}

func (r *registryView) GetPatientRecordIDs(_ context.Context, patient identity.Address) ([]int64, error) {
	r.l.mu.Lock()
	defer r.l.mu.Unlock()

	if patient.IsZero() {
		patient = r.caller
	}
	var ids []int64
	for id := int64(1); id <= r.l.nextID; id++ {
		if r.l.records[id].Creator == patient.Hex() {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (r *registryView) RecoverSigner(_ context.Context, digest sigverify.Digest, v byte, rr, s [32]byte) (identity.Address, error) {
	return sigverify.RecoverSigner(digest, v, rr, s), nil
}

func (r *registryView) ListAuditEvents(_ context.Context, afterSeq int64, limit int32) ([]api.AuditEvent, error) {
	r.l.mu.Lock()
	defer r.l.mu.Unlock()

	out := []api.AuditEvent{}
	for _, ev := range r.l.events {
		if ev.Seq > afterSeq {
			out = append(out, ev)
		}
		if limit > 0 && int32(len(out)) == limit {
			break
		}
	}
	return out, nil
}

// WatchEvents replays the backlog and then behaves like an interrupted
// stream.
func (r *registryView) WatchEvents(ctx context.Context, afterSeq int64, fn func(api.AuditEvent) error) error {
	events, _ := r.ListAuditEvents(ctx, afterSeq, 0)
	for _, ev := range events {
		if err := fn(ev); err != nil {
			return err
		}
	}
	return context.Canceled
}

func (r *registryView) PresignUpload(context.Context) (string, string, error) {
	r.l.mu.Lock()
	defer r.l.mu.Unlock()
	loc := fmt.Sprintf("records/test/%d", len(r.l.records)+1)
	return loc, "mem://" + loc, nil
}

func (r *registryView) PresignDownload(_ context.Context, id int64) (string, error) {
	r.l.mu.Lock()
	defer r.l.mu.Unlock()

	rec, ok := r.l.records[id]
	if !ok {
		return "", common.ErrorRecordNotFound
	}
	return "mem://" + rec.ContentLocator, nil
}

func (r *registryView) Close() error {
	r.closed = true
	return nil
}

// memTransfer is a content store keyed by URL.
type memTransfer struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

func newMemTransfer() *memTransfer {
	return &memTransfer{blobs: map[string][]byte{}}
}

func (m *memTransfer) Upload(_ context.Context, url string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[url] = append([]byte(nil), data...)
	return nil
}

func (m *memTransfer) Download(_ context.Context, url string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.blobs[url]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return append([]byte(nil), b...), nil
}
