package grpc

import (
	"github.com/dmitrijs2005/medkeeper/internal/api"
	"github.com/dmitrijs2005/medkeeper/internal/identity"
	"github.com/dmitrijs2005/medkeeper/internal/server/models"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func hexOrEmpty(a identity.Address) string {
	if a.IsZero() {
		return ""
	}
	return a.Hex()
}

// EventToAPI converts a stored event to its wire form. Identities that do
// not apply to the event kind are left empty.
func EventToAPI(e *models.AuditEvent) api.AuditEvent {
	return api.AuditEvent{
		Seq:       e.Seq,
		Kind:      string(e.Kind),
		RecordID:  e.RecordID,
		Patient:   hexOrEmpty(e.Patient),
		Provider:  hexOrEmpty(e.Provider),
		Payload:   e.Payload,
		Timestamp: e.Timestamp,
	}
}

func recordToAPI(r *models.Record) api.RecordMetadata {
	return api.RecordMetadata{
		RecordID:       r.ID,
		ContentLocator: r.ContentLocator,
		ContentDigest:  api.EncodeHex32(r.ContentDigest),
		CreatedAt:      r.CreatedAt,
		Creator:        r.Creator.Hex(),
		Active:         r.Active,
	}
}

func parseAddress(field, s string) (identity.Address, error) {
	a, err := identity.ParseAddress(s)
	if err != nil {
		return identity.Zero, status.Errorf(codes.InvalidArgument, "invalid %s: %v", field, err)
	}
	return a, nil
}

func parseHex32(field, s string) ([32]byte, error) {
	b, err := api.ParseHex32(s)
	if err != nil {
		return b, status.Errorf(codes.InvalidArgument, "invalid %s: %v", field, err)
	}
	return b, nil
}
