// Package client is the typed gRPC client of the registry used by the CLI.
// It attaches the access token to every call and maps status codes back to
// the registry's sentinel errors.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/dmitrijs2005/medkeeper/internal/api"
	"github.com/dmitrijs2005/medkeeper/internal/common"
	"github.com/dmitrijs2005/medkeeper/internal/identity"
	"github.com/dmitrijs2005/medkeeper/internal/sigverify"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type GRPCClient struct {
	conn        *grpc.ClientConn
	client      *api.RegistryClient
	accessToken string
}

func withAccessToken(ctx context.Context, token string) context.Context {
	if token == "" {
		return ctx
	}
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Set(common.AccessTokenHeaderName, token)
	return metadata.NewOutgoingContext(ctx, md)
}

func (c *GRPCClient) accessTokenInterceptor(ctx context.Context, method string, req, reply interface{},
	cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
	return invoker(withAccessToken(ctx, c.accessToken), method, req, reply, cc, opts...)
}

func (c *GRPCClient) streamAccessTokenInterceptor(ctx context.Context, desc *grpc.StreamDesc,
	cc *grpc.ClientConn, method string, streamer grpc.Streamer, opts ...grpc.CallOption) (grpc.ClientStream, error) {
	return streamer(withAccessToken(ctx, c.accessToken), desc, cc, method, opts...)
}

// NewGRPCClient connects to endpoint over plaintext. Extra dial options are
// appended, so tests can swap in a bufconn dialer.
func NewGRPCClient(endpoint, accessToken string, opts ...grpc.DialOption) (*GRPCClient, error) {
	c := &GRPCClient{accessToken: accessToken}

	dial := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(c.accessTokenInterceptor),
		grpc.WithStreamInterceptor(c.streamAccessTokenInterceptor),
	}, opts...)

	conn, err := grpc.NewClient(endpoint, dial...)
	if err != nil {
		return nil, err
	}
	c.conn = conn
	c.client = api.NewRegistryClient(conn)
	return c, nil
}

func (c *GRPCClient) Close() error {
	return c.conn.Close()
}

func mapError(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	switch st.Code() {
	case codes.Unauthenticated:
		return fmt.Errorf("%w: %s", ErrUnauthenticated, st.Message())
	case codes.PermissionDenied:
		return common.ErrorUnauthorized
	case codes.NotFound:
		return common.ErrorRecordNotFound
	case codes.InvalidArgument:
		if api.Reason(st) == api.ReasonArgumentMismatch {
			return common.ErrorArgumentMismatch
		}
		return fmt.Errorf("%w: %s", ErrInvalidArgument, st.Message())
	case codes.Unavailable, codes.DeadlineExceeded:
		return ErrUnavailable
	case codes.Canceled:
		return context.Canceled
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
}

func (c *GRPCClient) Ping(ctx context.Context) error {
	resp, err := c.client.Ping(ctx, &api.PingRequest{})
	if err != nil {
		return mapError(err)
	}
	if resp.Status != "OK" {
		return ErrUnavailable
	}
	return nil
}

func (c *GRPCClient) CreateRecord(ctx context.Context, locator string, digest [32]byte,
	providers []identity.Address, keys [][]byte) (int64, error) {

	req := &api.CreateRecordRequest{
		ContentLocator: locator,
		ContentDigest:  api.EncodeHex32(digest),
		Providers:      make([]string, 0, len(providers)),
		EncryptedKeys:  keys,
	}
	for _, p := range providers {
		req.Providers = append(req.Providers, p.Hex())
	}

	resp, err := c.client.CreateRecord(ctx, req)
	if err != nil {
		return 0, mapError(err)
	}
	return resp.RecordID, nil
}

func (c *GRPCClient) AuthorizeProvider(ctx context.Context, recordID int64, provider identity.Address, key []byte) error {
	_, err := c.client.AuthorizeProvider(ctx, &api.AuthorizeProviderRequest{
		RecordID: recordID, Provider: provider.Hex(), EncryptedKey: key,
	})
	return mapError(err)
}

func (c *GRPCClient) RevokeProvider(ctx context.Context, recordID int64, provider identity.Address) error {
	_, err := c.client.RevokeProvider(ctx, &api.RevokeProviderRequest{RecordID: recordID, Provider: provider.Hex()})
	return mapError(err)
}

func (c *GRPCClient) DeleteRecord(ctx context.Context, recordID int64) error {
	_, err := c.client.DeleteRecord(ctx, &api.DeleteRecordRequest{RecordID: recordID})
	return mapError(err)
}

// GetEncryptedKey returns an empty slice when the caller holds no key.
func (c *GRPCClient) GetEncryptedKey(ctx context.Context, recordID int64) ([]byte, error) {
	resp, err := c.client.GetEncryptedKey(ctx, &api.GetEncryptedKeyRequest{RecordID: recordID})
	if err != nil {
		return nil, mapError(err)
	}
	return resp.EncryptedKey, nil
}

func (c *GRPCClient) GetRecordMetadata(ctx context.Context, recordID int64) (*api.RecordMetadata, error) {
	resp, err := c.client.GetRecordMetadata(ctx, &api.GetRecordMetadataRequest{RecordID: recordID})
	if err != nil {
		return nil, mapError(err)
	}
	return &resp.Record, nil
}

// GetPatientRecordIDs lists the caller's own records when patient is zero.
func (c *GRPCClient) GetPatientRecordIDs(ctx context.Context, patient identity.Address) ([]int64, error) {
	req := &api.GetPatientRecordIDsRequest{}
	if !patient.IsZero() {
		req.Patient = patient.Hex()
	}
	resp, err := c.client.GetPatientRecordIDs(ctx, req)
	if err != nil {
		return nil, mapError(err)
	}
	return resp.RecordIDs, nil
}

func (c *GRPCClient) RecoverSigner(ctx context.Context, digest sigverify.Digest, v byte, r, s [32]byte) (identity.Address, error) {
	resp, err := c.client.RecoverSigner(ctx, &api.RecoverSignerRequest{
		Digest: api.EncodeHex32(digest),
		V:      uint32(v),
		R:      api.EncodeHex32(r),
		S:      api.EncodeHex32(s),
	})
	if err != nil {
		return identity.Zero, mapError(err)
	}
	return identity.ParseAddress(resp.Signer)
}

func (c *GRPCClient) ListAuditEvents(ctx context.Context, afterSeq int64, limit int32) ([]api.AuditEvent, error) {
	resp, err := c.client.ListAuditEvents(ctx, &api.ListAuditEventsRequest{AfterSeq: afterSeq, Limit: limit})
	if err != nil {
		return nil, mapError(err)
	}
	return resp.Events, nil
}

// WatchEvents calls fn for every audit event after afterSeq until ctx ends,
// the server closes the stream or fn fails.
func (c *GRPCClient) WatchEvents(ctx context.Context, afterSeq int64, fn func(api.AuditEvent) error) error {
	stream, err := c.client.WatchEvents(ctx, &api.WatchEventsRequest{AfterSeq: afterSeq})
	if err != nil {
		return mapError(err)
	}
	for {
		ev, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return mapError(err)
		}
		if err := fn(*ev); err != nil {
			return err
		}
	}
}

func (c *GRPCClient) PresignUpload(ctx context.Context) (locator, url string, err error) {
	resp, err := c.client.PresignUpload(ctx, &api.PresignUploadRequest{})
	if err != nil {
		return "", "", mapError(err)
	}
	return resp.ContentLocator, resp.URL, nil
}

func (c *GRPCClient) PresignDownload(ctx context.Context, recordID int64) (string, error) {
	resp, err := c.client.PresignDownload(ctx, &api.PresignDownloadRequest{RecordID: recordID})
	if err != nil {
		return "", mapError(err)
	}
	return resp.URL, nil
}
