package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/dmitrijs2005/medkeeper/internal/client/store"
	"github.com/dmitrijs2005/medkeeper/internal/common"
	"github.com/dmitrijs2005/medkeeper/internal/cryptox"
	"github.com/dmitrijs2005/medkeeper/internal/identity"
	"github.com/spf13/cobra"
)

var (
	ErrIdentityExists     = errors.New("identity already exists, pass --force to replace it")
	ErrPassphraseMismatch = errors.New("passphrases do not match")
)

// IdentityView is the printable form of the local identity.
type IdentityView struct {
	Address   string `json:"address"`
	PublicKey string `json:"public_key"`
}

func identityView(id *store.Identity) (IdentityView, error) {
	pub, err := secp256k1.ParsePubKey(id.PublicKey)
	if err != nil {
		return IdentityView{}, fmt.Errorf("stored public key: %w", err)
	}
	return IdentityView{Address: id.Address.Hex(), PublicKey: cryptox.PublicKeyHex(pub)}, nil
}

func (a *App) printIdentity(w io.Writer, v IdentityView) error {
	return a.emit(w, v, func(w io.Writer) error {
		_, err := fmt.Fprintf(w, "address:    %s\npublic key: %s\n", v.Address, v.PublicKey)
		return err
	})
}

func NewKeygenCommand(app *App) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate a new identity key and store it sealed by a passphrase",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKeygen(app, cmd, force)
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "replace an existing identity")
	return cmd
}

func runKeygen(app *App, cmd *cobra.Command, force bool) error {
	ctx := cmd.Context()

	s, err := app.localStore(ctx)
	if err != nil {
		return err
	}
	has, err := s.HasIdentity(ctx)
	if err != nil {
		return err
	}
	if has && !force {
		return ErrIdentityExists
	}

	pass, err := app.readPassphrase(cmd, "New passphrase: ")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(pass)

	confirm, err := app.readPassphrase(cmd, "Repeat passphrase: ")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(confirm)

	if !bytes.Equal(pass, confirm) {
		return ErrPassphraseMismatch
	}

	priv, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return err
	}
	defer priv.Zero()

	sealed, err := cryptox.SealPrivateKey(priv, pass)
	if err != nil {
		return err
	}

	id := store.Identity{
		Address:   identity.FromPublicKey(priv.PubKey()),
		PublicKey: priv.PubKey().SerializeCompressed(),
		SealedKey: sealed,
	}
	if err := s.SaveIdentity(ctx, id); err != nil {
		return err
	}

	v, err := identityView(&id)
	if err != nil {
		return err
	}
	return app.printIdentity(cmd.OutOrStdout(), v)
}

func NewWhoamiCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Print the local identity address and public key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := app.identity(cmd.Context())
			if err != nil {
				return err
			}
			v, err := identityView(id)
			if err != nil {
				return err
			}
			return app.printIdentity(cmd.OutOrStdout(), v)
		},
	}
}

func NewPingCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check that the registry server is reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := app.withTimeout(cmd.Context())
			defer cancel()

			reg, err := app.server(ctx)
			if err != nil {
				return err
			}
			if err := reg.Ping(ctx); err != nil {
				return err
			}
			return app.emitLine(cmd.OutOrStdout(), map[string]string{"status": "OK"}, "OK")
		},
	}
}
