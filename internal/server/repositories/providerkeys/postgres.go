// Package providerkeys provides the PostgreSQL-backed access ledger: the
// per-record, per-provider encrypted content keys.
package providerkeys

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/medkeeper/internal/common"
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

func (r *PostgresRepository) Upsert(ctx context.Context, key *models.ProviderKey) error {
	query := `
		INSERT INTO provider_keys (record_id, provider, encrypted_key)
		VALUES ($1, $2, $3)
		ON CONFLICT (record_id, provider)
		DO UPDATE SET encrypted_key = EXCLUDED.encrypted_key;
	`
	encryptedKey := key.EncryptedKey
	if encryptedKey == nil {
		encryptedKey = []byte{}
	}

	if _, err := r.db.ExecContext(ctx, query, key.RecordID, key.Provider, encryptedKey); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, recordID int64, provider identity.Address) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM provider_keys WHERE record_id = $1 AND provider = $2`, recordID, provider)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, recordID int64, provider identity.Address) ([]byte, error) {
	var key []byte

	err := r.db.QueryRowContext(ctx,
		`SELECT encrypted_key FROM provider_keys WHERE record_id = $1 AND provider = $2`, recordID, provider).Scan(&key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return key, nil
}
