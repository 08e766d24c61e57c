package api

import (
	"context"

	"google.golang.org/grpc"
)

const ServiceName = "medkeeper.RegistryService"

// Full method names, as seen by interceptors.
const (
	MethodPing                = "/" + ServiceName + "/Ping"
	MethodCreateRecord        = "/" + ServiceName + "/CreateRecord"
	MethodAuthorizeProvider   = "/" + ServiceName + "/AuthorizeProvider"
	MethodRevokeProvider      = "/" + ServiceName + "/RevokeProvider"
	MethodGetEncryptedKey     = "/" + ServiceName + "/GetEncryptedKey"
	MethodGetRecordMetadata   = "/" + ServiceName + "/GetRecordMetadata"
	MethodDeleteRecord        = "/" + ServiceName + "/DeleteRecord"
	MethodGetPatientRecordIDs = "/" + ServiceName + "/GetPatientRecordIDs"
	MethodRecoverSigner       = "/" + ServiceName + "/RecoverSigner"
	MethodListAuditEvents     = "/" + ServiceName + "/ListAuditEvents"
	MethodPresignUpload       = "/" + ServiceName + "/PresignUpload"
	MethodPresignDownload     = "/" + ServiceName + "/PresignDownload"
	MethodWatchEvents         = "/" + ServiceName + "/WatchEvents"
)

// RegistryServer is implemented by the server.
type RegistryServer interface {
	Ping(context.Context, *PingRequest) (*PingResponse, error)
	CreateRecord(context.Context, *CreateRecordRequest) (*CreateRecordResponse, error)
	AuthorizeProvider(context.Context, *AuthorizeProviderRequest) (*AuthorizeProviderResponse, error)
	RevokeProvider(context.Context, *RevokeProviderRequest) (*RevokeProviderResponse, error)
	GetEncryptedKey(context.Context, *GetEncryptedKeyRequest) (*GetEncryptedKeyResponse, error)
	GetRecordMetadata(context.Context, *GetRecordMetadataRequest) (*GetRecordMetadataResponse, error)
	DeleteRecord(context.Context, *DeleteRecordRequest) (*DeleteRecordResponse, error)
	GetPatientRecordIDs(context.Context, *GetPatientRecordIDsRequest) (*GetPatientRecordIDsResponse, error)
	RecoverSigner(context.Context, *RecoverSignerRequest) (*RecoverSignerResponse, error)
	ListAuditEvents(context.Context, *ListAuditEventsRequest) (*ListAuditEventsResponse, error)
	PresignUpload(context.Context, *PresignUploadRequest) (*PresignUploadResponse, error)
	PresignDownload(context.Context, *PresignDownloadRequest) (*PresignDownloadResponse, error)
	WatchEvents(*WatchEventsRequest, EventSender) error
}

// EventSender is the server side of the WatchEvents stream.
type EventSender interface {
	Send(*AuditEvent) error
	grpc.ServerStream
}

type eventSender struct {
	grpc.ServerStream
}

func (x *eventSender) Send(m *AuditEvent) error {
	return x.ServerStream.SendMsg(m)
}

func unary[Req, Resp any](fullMethod string, call func(RegistryServer, context.Context, *Req) (*Resp, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(RegistryServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(RegistryServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

func watchEventsHandler(srv any, stream grpc.ServerStream) error {
	in := new(WatchEventsRequest)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(RegistryServer).WatchEvents(in, &eventSender{stream})
}

// ServiceDesc describes RegistryService for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*RegistryServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Ping", Handler: unary(MethodPing, RegistryServer.Ping)},
		{MethodName: "CreateRecord", Handler: unary(MethodCreateRecord, RegistryServer.CreateRecord)},
		{MethodName: "AuthorizeProvider", Handler: unary(MethodAuthorizeProvider, RegistryServer.AuthorizeProvider)},
		{MethodName: "RevokeProvider", Handler: unary(MethodRevokeProvider, RegistryServer.RevokeProvider)},
		{MethodName: "GetEncryptedKey", Handler: unary(MethodGetEncryptedKey, RegistryServer.GetEncryptedKey)},
		{MethodName: "GetRecordMetadata", Handler: unary(MethodGetRecordMetadata, RegistryServer.GetRecordMetadata)},
		{MethodName: "DeleteRecord", Handler: unary(MethodDeleteRecord, RegistryServer.DeleteRecord)},
		{MethodName: "GetPatientRecordIDs", Handler: unary(MethodGetPatientRecordIDs, RegistryServer.GetPatientRecordIDs)},
		{MethodName: "RecoverSigner", Handler: unary(MethodRecoverSigner, RegistryServer.RecoverSigner)},
		{MethodName: "ListAuditEvents", Handler: unary(MethodListAuditEvents, RegistryServer.ListAuditEvents)},
		{MethodName: "PresignUpload", Handler: unary(MethodPresignUpload, RegistryServer.PresignUpload)},
		{MethodName: "PresignDownload", Handler: unary(MethodPresignDownload, RegistryServer.PresignDownload)},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "WatchEvents",
			Handler:       watchEventsHandler,
			ServerStreams: true,
		},
	},
	Metadata: "medkeeper/registry",
}

func RegisterRegistryServer(s grpc.ServiceRegistrar, srv RegistryServer) {
	s.RegisterService(&ServiceDesc, srv)
}
