package api

import (
	"context"
	"errors"
	"io"

	"google.golang.org/grpc"
)

// RegistryClient is a typed stub over a client connection. Every call is
// sent with the JSON content-subtype.
type RegistryClient struct {
	cc grpc.ClientConnInterface
}

func NewRegistryClient(cc grpc.ClientConnInterface) *RegistryClient {
	return &RegistryClient{cc: cc}
}

func withCodec(opts []grpc.CallOption) []grpc.CallOption {
	return append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	if err := cc.Invoke(ctx, method, in, out, withCodec(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *RegistryClient) Ping(ctx context.Context, in *PingRequest, opts ...grpc.CallOption) (*PingResponse, error) {
	return invoke[PingResponse](ctx, c.cc, MethodPing, in, opts)
}

func (c *RegistryClient) CreateRecord(ctx context.Context, in *CreateRecordRequest, opts ...grpc.CallOption) (*CreateRecordResponse, error) {
	return invoke[CreateRecordResponse](ctx, c.cc, MethodCreateRecord, in, opts)
}

func (c *RegistryClient) AuthorizeProvider(ctx context.Context, in *AuthorizeProviderRequest, opts ...grpc.CallOption) (*AuthorizeProviderResponse, error) {
	return invoke[AuthorizeProviderResponse](ctx, c.cc, MethodAuthorizeProvider, in, opts)
}

func (c *RegistryClient) RevokeProvider(ctx context.Context, in *RevokeProviderRequest, opts ...grpc.CallOption) (*RevokeProviderResponse, error) {
	return invoke[RevokeProviderResponse](ctx, c.cc, MethodRevokeProvider, in, opts)
}

func (c *RegistryClient) GetEncryptedKey(ctx context.Context, in *GetEncryptedKeyRequest, opts ...grpc.CallOption) (*GetEncryptedKeyResponse, error) {
	return invoke[GetEncryptedKeyResponse](ctx, c.cc, MethodGetEncryptedKey, in, opts)
}

func (c *RegistryClient) GetRecordMetadata(ctx context.Context, in *GetRecordMetadataRequest, opts ...grpc.CallOption) (*GetRecordMetadataResponse, error) {
	return invoke[GetRecordMetadataResponse](ctx, c.cc, MethodGetRecordMetadata, in, opts)
}

func (c *RegistryClient) DeleteRecord(ctx context.Context, in *DeleteRecordRequest, opts ...grpc.CallOption) (*DeleteRecordResponse, error) {
	return invoke[DeleteRecordResponse](ctx, c.cc, MethodDeleteRecord, in, opts)
}

func (c *RegistryClient) GetPatientRecordIDs(ctx context.Context, in *GetPatientRecordIDsRequest, opts ...grpc.CallOption) (*GetPatientRecordIDsResponse, error) {
	return invoke[GetPatientRecordIDsResponse](ctx, c.cc, MethodGetPatientRecordIDs, in, opts)
}

func (c *RegistryClient) RecoverSigner(ctx context.Context, in *RecoverSignerRequest, opts ...grpc.CallOption) (*RecoverSignerResponse, error) {
	return invoke[RecoverSignerResponse](ctx, c.cc, MethodRecoverSigner, in, opts)
}

func (c *RegistryClient) ListAuditEvents(ctx context.Context, in *ListAuditEventsRequest, opts ...grpc.CallOption) (*ListAuditEventsResponse, error) {
	return invoke[ListAuditEventsResponse](ctx, c.cc, MethodListAuditEvents, in, opts)
}

func (c *RegistryClient) PresignUpload(ctx context.Context, in *PresignUploadRequest, opts ...grpc.CallOption) (*PresignUploadResponse, error) {
	return invoke[PresignUploadResponse](ctx, c.cc, MethodPresignUpload, in, opts)
}

func (c *RegistryClient) PresignDownload(ctx context.Context, in *PresignDownloadRequest, opts ...grpc.CallOption) (*PresignDownloadResponse, error) {
	return invoke[PresignDownloadResponse](ctx, c.cc, MethodPresignDownload, in, opts)
}

// EventStream is the client side of WatchEvents.
type EventStream interface {
	Recv() (*AuditEvent, error)
	grpc.ClientStream
}

type eventStream struct {
	grpc.ClientStream
}

func (x *eventStream) Recv() (*AuditEvent, error) {
	m := new(AuditEvent)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

// WatchEvents streams audit events after in.AfterSeq until ctx is done.
func (c *RegistryClient) WatchEvents(ctx context.Context, in *WatchEventsRequest, opts ...grpc.CallOption) (EventStream, error) {
	stream, err := c.cc.NewStream(ctx, &ServiceDesc.Streams[0], MethodWatchEvents, withCodec(opts)...)
	if err != nil {
		return nil, err
	}
	x := &eventStream{stream}
	// io.EOF means the server already ended the stream; Recv reports why.
	if err := x.ClientStream.SendMsg(in); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}
