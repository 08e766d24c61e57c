// Package grpc exposes the registry over gRPC using the JSON codec and the
// hand-written service descriptor from internal/api.
package grpc

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/dmitrijs2005/medkeeper/internal/api"
	"github.com/dmitrijs2005/medkeeper/internal/identity"
	"github.com/dmitrijs2005/medkeeper/internal/logging"
	"github.com/dmitrijs2005/medkeeper/internal/server/models"
	"google.golang.org/grpc"
)

// Registry is the record store and access ledger.
type Registry interface {
	CreateRecord(ctx context.Context, caller identity.Address, locator string, digest models.Digest,
		providers []identity.Address, keys [][]byte) (int64, error)
	AuthorizeProvider(ctx context.Context, caller identity.Address, recordID int64, provider identity.Address, key []byte) error
	RevokeProvider(ctx context.Context, caller identity.Address, recordID int64, provider identity.Address) error
	DeleteRecord(ctx context.Context, caller identity.Address, recordID int64) error
	GetEncryptedKeyForCaller(ctx context.Context, caller identity.Address, recordID int64) ([]byte, error)
	GetRecordMetadata(ctx context.Context, recordID int64) (*models.Record, error)
	GetPatientRecordIDs(ctx context.Context, patient identity.Address) ([]int64, error)
}

// AuditReader reads the audit log in sequence order.
type AuditReader interface {
	List(ctx context.Context, afterSeq int64, limit int) ([]*models.AuditEvent, error)
}

// ContentPresigner issues presigned content store URLs.
type ContentPresigner interface {
	PresignUpload(ctx context.Context, caller identity.Address) (string, string, error)
	PresignDownload(ctx context.Context, caller identity.Address, recordID int64) (string, error)
}

type GRPCServer struct {
	address      string
	registry     Registry
	audit        AuditReader
	content      ContentPresigner
	logger       logging.Logger
	jwtSecret    []byte
	pollInterval time.Duration

	// closed on shutdown so long-lived streams let GracefulStop finish
	stopping chan struct{}
	stopOnce sync.Once
}

func NewGRPCServer(a string, l logging.Logger, reg Registry, audit AuditReader, content ContentPresigner,
	secretKey string, pollInterval time.Duration) *GRPCServer {
	return &GRPCServer{
		address:      a,
		logger:       l.With("module", "grpc_server"),
		registry:     reg,
		audit:        audit,
		content:      content,
		jwtSecret:    []byte(secretKey),
		pollInterval: pollInterval,
		stopping:     make(chan struct{}),
	}
}

func (s *GRPCServer) stop() {
	s.stopOnce.Do(func() { close(s.stopping) })
}

// newServer builds the grpc.Server with auth interceptors and the registry
// service registered.
func (s *GRPCServer) newServer() *grpc.Server {
	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(s.accessTokenInterceptor),
		grpc.ChainStreamInterceptor(s.streamAccessTokenInterceptor),
	)
	api.RegisterRegistryServer(srv, s)
	return srv
}

func (s *GRPCServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	s.logger.Info(ctx, "Starting gRPC server", "address", s.address)

	return s.serve(ctx, listen)
}

func (s *GRPCServer) serve(ctx context.Context, listen net.Listener) error {
	srv := s.newServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		s.stop()
		srv.GracefulStop()
	}()

	if err := srv.Serve(listen); err != nil {
		return err
	}

	return nil
}
