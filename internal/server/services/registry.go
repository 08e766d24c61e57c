// Package services contains the server-side business logic of the registry.
// RegistryService implements the record store and the access ledger; every
// mutation and its audit events commit together in one locked transaction.
package services

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/dmitrijs2005/medkeeper/internal/common"
	"github.com/dmitrijs2005/medkeeper/internal/dbx"
	"github.com/dmitrijs2005/medkeeper/internal/identity"
	"github.com/dmitrijs2005/medkeeper/internal/logging"
	"github.com/dmitrijs2005/medkeeper/internal/server/models"
	"github.com/dmitrijs2005/medkeeper/internal/server/repositories/auditlog"
	"github.com/dmitrijs2005/medkeeper/internal/server/repositories/providerkeys"
	"github.com/dmitrijs2005/medkeeper/internal/server/repositories/records"
	"github.com/dmitrijs2005/medkeeper/internal/server/repositories/repomanager"
)

// Clock returns the timestamp stamped on records and events.
type Clock func() time.Time

type RegistryService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
	now         Clock
}

func NewRegistryService(db *sql.DB, m repomanager.RepositoryManager, l logging.Logger) *RegistryService {
	return &RegistryService{
		db:          db,
		repomanager: m,
		logger:      l.With("module", "registry"),
		now:         time.Now,
	}
}

// WithClock replaces the time source.
func (s *RegistryService) WithClock(now Clock) *RegistryService {
	s.now = now
	return s
}

// txRepos is the set of repositories bound to one transaction.
type txRepos struct {
	records records.Repository
	keys    providerkeys.Repository
	audit   auditlog.Repository
}

func (s *RegistryService) bind(db dbx.DBTX) txRepos {
	return txRepos{
		records: s.repomanager.Records(db),
		keys:    s.repomanager.ProviderKeys(db),
		audit:   s.repomanager.AuditLog(db),
	}
}

func (s *RegistryService) inTx(ctx context.Context, fn func(ctx context.Context, r txRepos) error) error {
	return dbx.WithLockedTx(ctx, s.db, common.RegistryLockKey, func(ctx context.Context, tx dbx.DBTX) error {
		return fn(ctx, s.bind(tx))
	})
}

// getRecord maps a missing row to ErrorRecordNotFound.
func getRecord(ctx context.Context, repo records.Repository, recordID int64) (*models.Record, error) {
	rec, err := repo.GetByID(ctx, recordID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorRecordNotFound
		}
		return nil, err
	}
	return rec, nil
}

func requireCreator(ctx context.Context, repo records.Repository, recordID int64, caller identity.Address) (*models.Record, error) {
	rec, err := getRecord(ctx, repo, recordID)
	if err != nil {
		return nil, err
	}
	if rec.Creator != caller {
		return nil, common.ErrorUnauthorized
	}
	return rec, nil
}

func appendAll(ctx context.Context, repo auditlog.Repository, events ...*models.AuditEvent) error {
	for _, e := range events {
		if err := repo.Append(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

// authorize stores the key and emits KeyUpdated then ProviderAuthorized.
func authorize(ctx context.Context, r txRepos, rec *models.Record, provider identity.Address, key []byte, ts time.Time) error {
	entry := &models.ProviderKey{RecordID: rec.ID, Provider: provider, EncryptedKey: key}
	if err := r.keys.Upsert(ctx, entry); err != nil {
		return err
	}

	return appendAll(ctx, r.audit,
		models.KeyUpdated(rec.ID, provider, ts),
		models.ProviderAuthorized(rec.ID, rec.Creator, provider, ts),
	)
}

// CreateRecord registers a new active record owned by caller and authorizes
// the initial providers in input order. providers and keys are paired by
// index and must have the same length.
func (s *RegistryService) CreateRecord(ctx context.Context, caller identity.Address, locator string,
	digest models.Digest, providers []identity.Address, keys [][]byte) (int64, error) {

	if len(providers) != len(keys) {
		return 0, common.ErrorArgumentMismatch
	}

	ts := s.now().UTC()
	var id int64

	err := s.inTx(ctx, func(ctx context.Context, r txRepos) error {
		var err error
		id, err = r.records.NextID(ctx)
		if err != nil {
			return err
		}

		rec := &models.Record{
			ID:             id,
			ContentLocator: locator,
			ContentDigest:  digest,
			CreatedAt:      ts,
			Creator:        caller,
			Active:         true,
		}
		if err := r.records.Create(ctx, rec); err != nil {
			return err
		}

		for i, p := range providers {
			if err := authorize(ctx, r, rec, p, keys[i], ts); err != nil {
				return err
			}
		}

		return r.audit.Append(ctx, models.RecordCreated(id, caller, locator, ts))
	})
	if err != nil {
		s.logger.Error(ctx, "create record failed", "caller", caller, "error", err)
		return 0, err
	}

	s.logger.Info(ctx, "record created", "record_id", id, "caller", caller, "providers", len(providers))
	return id, nil
}

// AuthorizeProvider grants provider access to recordID by storing key,
// replacing any earlier key. Only the creator may call it.
func (s *RegistryService) AuthorizeProvider(ctx context.Context, caller identity.Address, recordID int64,
	provider identity.Address, key []byte) error {

	ts := s.now().UTC()

	err := s.inTx(ctx, func(ctx context.Context, r txRepos) error {
		rec, err := requireCreator(ctx, r.records, recordID, caller)
		if err != nil {
			return err
		}
		return authorize(ctx, r, rec, provider, key, ts)
	})
	if err != nil {
		s.logger.Warn(ctx, "authorize failed", "record_id", recordID, "caller", caller, "error", err)
		return err
	}

	s.logger.Info(ctx, "provider authorized", "record_id", recordID, "caller", caller, "provider", provider)
	return nil
}

// RevokeProvider removes provider's key. Revoking a provider that holds no
// key is not an error and is still recorded.
func (s *RegistryService) RevokeProvider(ctx context.Context, caller identity.Address, recordID int64,
	provider identity.Address) error {

	ts := s.now().UTC()

	err := s.inTx(ctx, func(ctx context.Context, r txRepos) error {
		rec, err := requireCreator(ctx, r.records, recordID, caller)
		if err != nil {
			return err
		}
		if err := r.keys.Delete(ctx, rec.ID, provider); err != nil {
			return err
		}
		return r.audit.Append(ctx, models.ProviderRevoked(rec.ID, rec.Creator, provider, ts))
	})
	if err != nil {
		s.logger.Warn(ctx, "revoke failed", "record_id", recordID, "caller", caller, "error", err)
		return err
	}

	s.logger.Info(ctx, "provider revoked", "record_id", recordID, "caller", caller, "provider", provider)
	return nil
}

// DeleteRecord marks the record inactive. The record, its keys and the
// owner's id list are kept. Deleting an inactive record succeeds again and
// emits another RecordDeleted.
func (s *RegistryService) DeleteRecord(ctx context.Context, caller identity.Address, recordID int64) error {
	ts := s.now().UTC()

	err := s.inTx(ctx, func(ctx context.Context, r txRepos) error {
		rec, err := requireCreator(ctx, r.records, recordID, caller)
		if err != nil {
			return err
		}
		if err := r.records.Deactivate(ctx, rec.ID); err != nil {
			return err
		}
		return r.audit.Append(ctx, models.RecordDeleted(rec.ID, rec.Creator, ts))
	})
	if err != nil {
		s.logger.Warn(ctx, "delete failed", "record_id", recordID, "caller", caller, "error", err)
		return err
	}

	s.logger.Info(ctx, "record deleted", "record_id", recordID, "caller", caller)
	return nil
}

// GetEncryptedKeyForCaller returns the key stored for caller on recordID, or
// an empty slice if caller is not authorized.
func (s *RegistryService) GetEncryptedKeyForCaller(ctx context.Context, caller identity.Address, recordID int64) ([]byte, error) {
	if _, err := getRecord(ctx, s.repomanager.Records(s.db), recordID); err != nil {
		return nil, err
	}

	key, err := s.repomanager.ProviderKeys(s.db).Get(ctx, recordID, caller)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return []byte{}, nil
		}
		return nil, err
	}
	return key, nil
}

// GetRecordMetadata returns the record whether or not it is active.
func (s *RegistryService) GetRecordMetadata(ctx context.Context, recordID int64) (*models.Record, error) {
	return getRecord(ctx, s.repomanager.Records(s.db), recordID)
}

// GetPatientRecordIDs lists every record created by patient, oldest first.
func (s *RegistryService) GetPatientRecordIDs(ctx context.Context, patient identity.Address) ([]int64, error) {
	return s.repomanager.Records(s.db).ListIDsByCreator(ctx, patient)
}
