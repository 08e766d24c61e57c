package models

import (
	"time"

	"github.com/dmitrijs2005/medkeeper/internal/identity"
)

// EventKind names the action an AuditEvent records.
type EventKind string

const (
	EventRecordCreated      EventKind = "RecordCreated"
	EventProviderAuthorized EventKind = "ProviderAuthorized"
	EventProviderRevoked    EventKind = "ProviderRevoked"
	EventRecordDeleted      EventKind = "RecordDeleted"
	EventKeyUpdated         EventKind = "KeyUpdated"
)

// AuditEvent is one immutable entry of the append-only audit log.
//
// Which identities are set depends on Kind:
//
//	RecordCreated       Patient, Payload (content locator)
//	ProviderAuthorized  Patient, Provider
//	ProviderRevoked     Patient, Provider
//	RecordDeleted       Patient
//	KeyUpdated          Provider
type AuditEvent struct {
	// Seq is the position in the log, assigned on append.
	Seq       int64
	Kind      EventKind
	RecordID  int64
	Patient   identity.Address
	Provider  identity.Address
	Payload   string
	Timestamp time.Time
}

func RecordCreated(recordID int64, patient identity.Address, locator string, ts time.Time) *AuditEvent {
	return &AuditEvent{Kind: EventRecordCreated, RecordID: recordID, Patient: patient, Payload: locator, Timestamp: ts}
}

func ProviderAuthorized(recordID int64, patient, provider identity.Address, ts time.Time) *AuditEvent {
	return &AuditEvent{Kind: EventProviderAuthorized, RecordID: recordID, Patient: patient, Provider: provider, Timestamp: ts}
}

func ProviderRevoked(recordID int64, patient, provider identity.Address, ts time.Time) *AuditEvent {
	return &AuditEvent{Kind: EventProviderRevoked, RecordID: recordID, Patient: patient, Provider: provider, Timestamp: ts}
}

func RecordDeleted(recordID int64, patient identity.Address, ts time.Time) *AuditEvent {
	return &AuditEvent{Kind: EventRecordDeleted, RecordID: recordID, Patient: patient, Timestamp: ts}
}

func KeyUpdated(recordID int64, provider identity.Address, ts time.Time) *AuditEvent {
	return &AuditEvent{Kind: EventKeyUpdated, RecordID: recordID, Provider: provider, Timestamp: ts}
}
