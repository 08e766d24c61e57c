// Package cli implements the medkeeper command line: key management, and
// the client-side encryption that the registry leaves to its callers.
package cli

import (
	"bufio"
	"context"
	"errors"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/dmitrijs2005/medkeeper/internal/api"
	"github.com/dmitrijs2005/medkeeper/internal/client/client"
	"github.com/dmitrijs2005/medkeeper/internal/client/config"
	"github.com/dmitrijs2005/medkeeper/internal/client/store"
	"github.com/dmitrijs2005/medkeeper/internal/common"
	"github.com/dmitrijs2005/medkeeper/internal/cryptox"
	"github.com/dmitrijs2005/medkeeper/internal/identity"
	"github.com/dmitrijs2005/medkeeper/internal/netx"
	"github.com/dmitrijs2005/medkeeper/internal/sigverify"
)

// Registry is the subset of the gRPC client the commands use.
type Registry interface {
	Ping(ctx context.Context) error
	CreateRecord(ctx context.Context, locator string, digest [32]byte, providers []identity.Address, keys [][]byte) (int64, error)
	AuthorizeProvider(ctx context.Context, recordID int64, provider identity.Address, key []byte) error
	RevokeProvider(ctx context.Context, recordID int64, provider identity.Address) error
	DeleteRecord(ctx context.Context, recordID int64) error
	GetEncryptedKey(ctx context.Context, recordID int64) ([]byte, error)
	GetRecordMetadata(ctx context.Context, recordID int64) (*api.RecordMetadata, error)
	GetPatientRecordIDs(ctx context.Context, patient identity.Address) ([]int64, error)
	RecoverSigner(ctx context.Context, digest sigverify.Digest, v byte, r, s [32]byte) (identity.Address, error)
	ListAuditEvents(ctx context.Context, afterSeq int64, limit int32) ([]api.AuditEvent, error)
	WatchEvents(ctx context.Context, afterSeq int64, fn func(api.AuditEvent) error) error
	PresignUpload(ctx context.Context) (locator, url string, err error)
	PresignDownload(ctx context.Context, recordID int64) (string, error)
	Close() error
}

// Transfer moves ciphertext to and from presigned URLs.
type Transfer interface {
	Upload(ctx context.Context, url string, data []byte) error
	Download(ctx context.Context, url string) ([]byte, error)
}

// App carries the state shared by one command invocation. The store and
// the server connection are opened on first use.
type App struct {
	config     *config.Config
	configPath string
	format     string

	store    *store.Store
	registry Registry
	in       *bufio.Reader

	openStore func(ctx context.Context, dataDir string) (*store.Store, error)
	dial      func(endpoint, accessToken string) (Registry, error)
	transfer  Transfer
}

func NewApp() *App {
	return &App{
		openStore: store.Open,
		dial: func(endpoint, accessToken string) (Registry, error) {
			return client.NewGRPCClient(endpoint, accessToken)
		},
		transfer: netx.NewTransfer(nil),
	}
}

// Close releases the store and the server connection.
func (a *App) Close() error {
	var errs []error
	if a.registry != nil {
		errs = append(errs, a.registry.Close())
		a.registry = nil
	}
	if a.store != nil {
		errs = append(errs, a.store.Close())
		a.store = nil
	}
	return errors.Join(errs...)
}

func (a *App) localStore(ctx context.Context) (*store.Store, error) {
	if a.store != nil {
		return a.store, nil
	}
	s, err := a.openStore(ctx, a.config.DataDir)
	if err != nil {
		return nil, err
	}
	a.store = s
	return s, nil
}

func (a *App) server(ctx context.Context) (Registry, error) {
	if a.registry != nil {
		return a.registry, nil
	}

	s, err := a.localStore(ctx)
	if err != nil {
		return nil, err
	}
	token, err := s.Token(ctx)
	if err != nil {
		return nil, err
	}

	r, err := a.dial(a.config.ServerEndpointAddr, token)
	if err != nil {
		return nil, err
	}
	a.registry = r
	return r, nil
}

func (a *App) identity(ctx context.Context) (*store.Identity, error) {
	s, err := a.localStore(ctx)
	if err != nil {
		return nil, err
	}
	return s.Identity(ctx)
}

// withTimeout bounds one command by the configured timeout.
func (a *App) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, a.config.Timeout)
}

// unlock asks for the passphrase and opens the stored private key.
func (a *App) unlock(ctx context.Context, p prompter) (*secp256k1.PrivateKey, error) {
	id, err := a.identity(ctx)
	if err != nil {
		return nil, err
	}

	pass, err := a.readPassphrase(p, "Passphrase: ")
	if err != nil {
		return nil, err
	}
	defer common.WipeByteArray(pass)

	return cryptox.OpenPrivateKey(id.SealedKey, pass)
}
