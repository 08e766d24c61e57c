package providerkeys

import (
	"context"

	"github.com/dmitrijs2005/medkeeper/internal/identity"
	"github.com/dmitrijs2005/medkeeper/internal/server/models"
)

// Repository stores one encrypted content key per (record, provider).
type Repository interface {
	// Upsert creates the entry or overwrites its key.
	Upsert(ctx context.Context, key *models.ProviderKey) error
	// Delete removes the entry; a missing entry is not an error.
	Delete(ctx context.Context, recordID int64, provider identity.Address) error
	// Get returns common.ErrorNotFound when provider holds no key.
	Get(ctx context.Context, recordID int64, provider identity.Address) ([]byte, error)
}
