// Package api defines the registry's gRPC surface: request and response
// messages, the JSON wire codec, the service descriptor and a typed client.
//
// Identities are 0x-prefixed hex addresses, digests and signature scalars
// are 0x-prefixed 64-digit hex, encrypted keys are base64 (JSON []byte).
package api

import "time"

type PingRequest struct{}

type PingResponse struct {
	Status string `json:"status"`
}

type CreateRecordRequest struct {
	ContentLocator string   `json:"content_locator"`
	ContentDigest  string   `json:"content_digest"`
	Providers      []string `json:"providers,omitempty"`
	EncryptedKeys  [][]byte `json:"encrypted_keys,omitempty"`
}

type CreateRecordResponse struct {
	RecordID int64 `json:"record_id"`
}

type AuthorizeProviderRequest struct {
	RecordID     int64  `json:"record_id"`
	Provider     string `json:"provider"`
	EncryptedKey []byte `json:"encrypted_key"`
}

type AuthorizeProviderResponse struct{}

type RevokeProviderRequest struct {
	RecordID int64  `json:"record_id"`
	Provider string `json:"provider"`
}

type RevokeProviderResponse struct{}

type GetEncryptedKeyRequest struct {
	RecordID int64 `json:"record_id"`
}

// GetEncryptedKeyResponse carries an empty key when the caller holds none.
type GetEncryptedKeyResponse struct {
	EncryptedKey []byte `json:"encrypted_key"`
}

type GetRecordMetadataRequest struct {
	RecordID int64 `json:"record_id"`
}

type RecordMetadata struct {
	RecordID       int64     `json:"record_id"`
	ContentLocator string    `json:"content_locator"`
	ContentDigest  string    `json:"content_digest"`
	CreatedAt      time.Time `json:"created_at"`
	Creator        string    `json:"creator"`
	Active         bool      `json:"active"`
}

type GetRecordMetadataResponse struct {
	Record RecordMetadata `json:"record"`
}

type DeleteRecordRequest struct {
	RecordID int64 `json:"record_id"`
}

type DeleteRecordResponse struct{}

// GetPatientRecordIDsRequest lists the caller's own records when Patient is
// empty.
type GetPatientRecordIDsRequest struct {
	Patient string `json:"patient,omitempty"`
}

type GetPatientRecordIDsResponse struct {
	RecordIDs []int64 `json:"record_ids"`
}

type RecoverSignerRequest struct {
	Digest string `json:"digest"`
	V      uint32 `json:"v"`
	R      string `json:"r"`
	S      string `json:"s"`
}

// RecoverSignerResponse holds the zero address when nothing was recovered.
type RecoverSignerResponse struct {
	Signer string `json:"signer"`
}

type ListAuditEventsRequest struct {
	AfterSeq int64 `json:"after_seq"`
	Limit    int32 `json:"limit,omitempty"`
}

type AuditEvent struct {
	Seq       int64     `json:"seq"`
	Kind      string    `json:"kind"`
	RecordID  int64     `json:"record_id"`
	Patient   string    `json:"patient,omitempty"`
	Provider  string    `json:"provider,omitempty"`
	Payload   string    `json:"payload,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type ListAuditEventsResponse struct {
	Events []AuditEvent `json:"events"`
}

type WatchEventsRequest struct {
	AfterSeq int64 `json:"after_seq"`
}

type PresignUploadRequest struct{}

type PresignUploadResponse struct {
	ContentLocator string `json:"content_locator"`
	URL            string `json:"url"`
}

type PresignDownloadRequest struct {
	RecordID int64 `json:"record_id"`
}

type PresignDownloadResponse struct {
	URL string `json:"url"`
}
