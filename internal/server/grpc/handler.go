package grpc

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrijs2005/medkeeper/internal/api"
	"github.com/dmitrijs2005/medkeeper/internal/common"
	"github.com/dmitrijs2005/medkeeper/internal/identity"
	"github.com/dmitrijs2005/medkeeper/internal/server/models"
	"github.com/dmitrijs2005/medkeeper/internal/server/services"
	"github.com/dmitrijs2005/medkeeper/internal/sigverify"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// toStatus maps service errors to gRPC codes. Unknown errors are logged and
// reported as a bare internal error.
func (s *GRPCServer) toStatus(ctx context.Context, method string, err error) error {
	switch {
	case errors.Is(err, common.ErrorArgumentMismatch):
		return api.ReasonError(codes.InvalidArgument, err.Error(), api.ReasonArgumentMismatch)
	case errors.Is(err, common.ErrorRecordNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, common.ErrorUnauthorized):
		return status.Error(codes.PermissionDenied, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		s.logger.Error(ctx, "request failed", "method", method, "error", err)
		return status.Error(codes.Internal, "internal error")
	}
}

func caller(ctx context.Context) (identity.Address, error) {
	id, ok := CallerFromContext(ctx)
	if !ok {
		return identity.Zero, status.Error(codes.Unauthenticated, "missing token")
	}
	return id, nil
}

func (s *GRPCServer) Ping(ctx context.Context, req *api.PingRequest) (*api.PingResponse, error) {
	return &api.PingResponse{Status: "OK"}, nil
}

func (s *GRPCServer) CreateRecord(ctx context.Context, req *api.CreateRecordRequest) (*api.CreateRecordResponse, error) {
	who, err := caller(ctx)
	if err != nil {
		return nil, err
	}

	digest, err := parseHex32("content_digest", req.ContentDigest)
	if err != nil {
		return nil, err
	}

	providers := make([]identity.Address, 0, len(req.Providers))
	for _, p := range req.Providers {
		a, err := parseAddress("provider", p)
		if err != nil {
			return nil, err
		}
		providers = append(providers, a)
	}

	id, err := s.registry.CreateRecord(ctx, who, req.ContentLocator, models.Digest(digest), providers, req.EncryptedKeys)
	if err != nil {
		return nil, s.toStatus(ctx, "CreateRecord", err)
	}

	return &api.CreateRecordResponse{RecordID: id}, nil
}

func (s *GRPCServer) AuthorizeProvider(ctx context.Context, req *api.AuthorizeProviderRequest) (*api.AuthorizeProviderResponse, error) {
	who, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	provider, err := parseAddress("provider", req.Provider)
	if err != nil {
		return nil, err
	}

	if err := s.registry.AuthorizeProvider(ctx, who, req.RecordID, provider, req.EncryptedKey); err != nil {
		return nil, s.toStatus(ctx, "AuthorizeProvider", err)
	}
	return &api.AuthorizeProviderResponse{}, nil
}

func (s *GRPCServer) RevokeProvider(ctx context.Context, req *api.RevokeProviderRequest) (*api.RevokeProviderResponse, error) {
	who, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	provider, err := parseAddress("provider", req.Provider)
	if err != nil {
		return nil, err
	}

	if err := s.registry.RevokeProvider(ctx, who, req.RecordID, provider); err != nil {
		return nil, s.toStatus(ctx, "RevokeProvider", err)
	}
	return &api.RevokeProviderResponse{}, nil
}

func (s *GRPCServer) GetEncryptedKey(ctx context.Context, req *api.GetEncryptedKeyRequest) (*api.GetEncryptedKeyResponse, error) {
	who, err := caller(ctx)
	if err != nil {
		return nil, err
	}

	key, err := s.registry.GetEncryptedKeyForCaller(ctx, who, req.RecordID)
	if err != nil {
		return nil, s.toStatus(ctx, "GetEncryptedKey", err)
	}
	return &api.GetEncryptedKeyResponse{EncryptedKey: key}, nil
}

func (s *GRPCServer) GetRecordMetadata(ctx context.Context, req *api.GetRecordMetadataRequest) (*api.GetRecordMetadataResponse, error) {
	rec, err := s.registry.GetRecordMetadata(ctx, req.RecordID)
	if err != nil {
		return nil, s.toStatus(ctx, "GetRecordMetadata", err)
	}
	return &api.GetRecordMetadataResponse{Record: recordToAPI(rec)}, nil
}

func (s *GRPCServer) DeleteRecord(ctx context.Context, req *api.DeleteRecordRequest) (*api.DeleteRecordResponse, error) {
	who, err := caller(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.registry.DeleteRecord(ctx, who, req.RecordID); err != nil {
		return nil, s.toStatus(ctx, "DeleteRecord", err)
	}
	return &api.DeleteRecordResponse{}, nil
}

func (s *GRPCServer) GetPatientRecordIDs(ctx context.Context, req *api.GetPatientRecordIDsRequest) (*api.GetPatientRecordIDsResponse, error) {
	patient, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	if req.Patient != "" {
		if patient, err = parseAddress("patient", req.Patient); err != nil {
			return nil, err
		}
	}

	ids, err := s.registry.GetPatientRecordIDs(ctx, patient)
	if err != nil {
		return nil, s.toStatus(ctx, "GetPatientRecordIDs", err)
	}
	return &api.GetPatientRecordIDsResponse{RecordIDs: ids}, nil
}

// RecoverSigner only rejects input it cannot parse. Well-formed but invalid
// signatures recover to the zero address.
func (s *GRPCServer) RecoverSigner(ctx context.Context, req *api.RecoverSignerRequest) (*api.RecoverSignerResponse, error) {
	digest, err := parseHex32("digest", req.Digest)
	if err != nil {
		return nil, err
	}
	r, err := parseHex32("r", req.R)
	if err != nil {
		return nil, err
	}
	sv, err := parseHex32("s", req.S)
	if err != nil {
		return nil, err
	}

	signer := identity.Zero
	if req.V <= 0xff {
		signer = sigverify.RecoverSigner(sigverify.Digest(digest), byte(req.V), r, sv)
	}

	return &api.RecoverSignerResponse{Signer: signer.Hex()}, nil
}

func (s *GRPCServer) ListAuditEvents(ctx context.Context, req *api.ListAuditEventsRequest) (*api.ListAuditEventsResponse, error) {
	events, err := s.audit.List(ctx, req.AfterSeq, int(req.Limit))
	if err != nil {
		return nil, s.toStatus(ctx, "ListAuditEvents", err)
	}

	out := make([]api.AuditEvent, 0, len(events))
	for _, e := range events {
		out = append(out, EventToAPI(e))
	}
	return &api.ListAuditEventsResponse{Events: out}, nil
}

// WatchEvents sends every event after req.AfterSeq, then keeps polling the
// log until the client goes away or the server shuts down.
func (s *GRPCServer) WatchEvents(req *api.WatchEventsRequest, stream api.EventSender) error {
	ctx := stream.Context()
	after := req.AfterSeq

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		events, err := s.audit.List(ctx, after, services.MaxAuditPageSize)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return s.toStatus(ctx, "WatchEvents", err)
		}

		for _, e := range events {
			ev := EventToAPI(e)
			if err := stream.Send(&ev); err != nil {
				return err
			}
			after = e.Seq
		}

		// a full page means more may be waiting
		if len(events) == services.MaxAuditPageSize {
			continue
		}

		select {
		case <-ctx.Done():
			return nil
		case <-s.stopping:
			return status.Error(codes.Unavailable, "server shutting down")
		case <-ticker.C:
		}
	}
}

func (s *GRPCServer) PresignUpload(ctx context.Context, req *api.PresignUploadRequest) (*api.PresignUploadResponse, error) {
	who, err := caller(ctx)
	if err != nil {
		return nil, err
	}

	locator, url, err := s.content.PresignUpload(ctx, who)
	if err != nil {
		return nil, s.toStatus(ctx, "PresignUpload", err)
	}
	return &api.PresignUploadResponse{ContentLocator: locator, URL: url}, nil
}

func (s *GRPCServer) PresignDownload(ctx context.Context, req *api.PresignDownloadRequest) (*api.PresignDownloadResponse, error) {
	who, err := caller(ctx)
	if err != nil {
		return nil, err
	}

	url, err := s.content.PresignDownload(ctx, who, req.RecordID)
	if err != nil {
		return nil, s.toStatus(ctx, "PresignDownload", err)
	}
	return &api.PresignDownloadResponse{URL: url}, nil
}
