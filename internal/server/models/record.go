// Package models defines server-side data models persisted in the database.
package models

import (
	"time"

	"github.com/dmitrijs2005/medkeeper/internal/identity"
)

// DigestLength is the size of a content digest (SHA-256 of the ciphertext).
const DigestLength = 32

// Digest is the integrity hash of a record's encrypted content.
type Digest [DigestLength]byte

// Record is the registry entry for one off-chain medical document.
// Only Active ever changes after creation.
type Record struct {
	// ID is assigned sequentially from 1 and never reused.
	ID int64
	// ContentLocator is an opaque reference into the external content store.
	ContentLocator string
	// ContentDigest lets readers verify the content they download.
	ContentDigest Digest
	// CreatedAt is the timestamp of the creating call.
	CreatedAt time.Time
	// Creator is the patient; the only identity allowed to change access.
	Creator identity.Address
	// Active is false once the record has been soft-deleted.
	Active bool
}

// ProviderKey is the content key of RecordID encrypted for Provider.
// Its existence is what "Provider is authorized" means.
type ProviderKey struct {
	RecordID     int64
	Provider     identity.Address
	EncryptedKey []byte
}
