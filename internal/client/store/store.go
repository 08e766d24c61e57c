// Package store is the client's local SQLite database: the passphrase-sealed
// identity key and the current access token.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/dmitrijs2005/medkeeper/internal/client/migrations"
	"github.com/dmitrijs2005/medkeeper/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/medkeeper/internal/common"
	"github.com/dmitrijs2005/medkeeper/internal/dbx"
	"github.com/dmitrijs2005/medkeeper/internal/filex"
	"github.com/dmitrijs2005/medkeeper/internal/identity"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

// FileName is the database file inside the data directory.
const FileName = "client.db"

const (
	keyAddress     = "identity.address"
	keyPublicKey   = "identity.public_key"
	keySealedKey   = "identity.sealed_key"
	keyAccessToken = "auth.access_token"
)

// ErrNoIdentity is returned before keygen has been run.
var ErrNoIdentity = errors.New("no identity in local store, run keygen first")

// Identity is the locally held account.
type Identity struct {
	Address   identity.Address
	PublicKey []byte
	SealedKey []byte
}

type Store struct {
	db *sql.DB
}

func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	return goose.UpContext(ctx, db, ".")
}

// Open creates dataDir if needed and opens the store inside it.
func Open(ctx context.Context, dataDir string) (*Store, error) {
	dir, err := filex.EnsureDir(dataDir)
	if err != nil {
		return nil, err
	}
	return OpenDSN(ctx, filepath.Join(dir, FileName))
}

// OpenDSN opens the store at an explicit SQLite DSN and migrates it.
func OpenDSN(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// a single connection keeps ":memory:" stores coherent
	db.SetMaxOpenConns(1)

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate client store: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) meta(db dbx.DBTX) metadata.Repository {
	return metadata.NewSQLiteRepository(db)
}

// SaveIdentity replaces the stored identity atomically.
func (s *Store) SaveIdentity(ctx context.Context, id Identity) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		m := s.meta(tx)
		if err := m.Set(ctx, keyAddress, []byte(id.Address.Hex())); err != nil {
			return err
		}
		if err := m.Set(ctx, keyPublicKey, id.PublicKey); err != nil {
			return err
		}
		if err := m.Set(ctx, keySealedKey, id.SealedKey); err != nil {
			return err
		}
		// a token minted for the previous identity is useless now
		return m.Delete(ctx, keyAccessToken)
	})
}

func (s *Store) Identity(ctx context.Context) (*Identity, error) {
	all, err := s.meta(s.db).List(ctx)
	if err != nil {
		return nil, err
	}

	addr, ok := all[keyAddress]
	if !ok {
		return nil, ErrNoIdentity
	}

	id := &Identity{PublicKey: all[keyPublicKey], SealedKey: all[keySealedKey]}
	if id.Address, err = identity.ParseAddress(string(addr)); err != nil {
		return nil, fmt.Errorf("stored address: %w", err)
	}
	return id, nil
}

func (s *Store) HasIdentity(ctx context.Context) (bool, error) {
	_, err := s.meta(s.db).Get(ctx, keyAddress)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, common.ErrorNotFound):
		return false, nil
	default:
		return false, err
	}
}

func (s *Store) SetToken(ctx context.Context, token string) error {
	return s.meta(s.db).Set(ctx, keyAccessToken, []byte(token))
}

// Token returns "" when no token is stored.
func (s *Store) Token(ctx context.Context) (string, error) {
	v, err := s.meta(s.db).Get(ctx, keyAccessToken)
	if errors.Is(err, common.ErrorNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return string(v), nil
}
