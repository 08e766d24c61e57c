package cli

import (
	"github.com/dmitrijs2005/medkeeper/internal/common"
	"github.com/dmitrijs2005/medkeeper/internal/cryptox"
	"github.com/dmitrijs2005/medkeeper/internal/identity"
	"github.com/spf13/cobra"
)

// AccessView is the printable result of authorize and revoke.
type AccessView struct {
	RecordID   int64  `json:"record_id"`
	Provider   string `json:"provider"`
	Authorized bool   `json:"authorized"`
}

func NewAuthorizeCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "authorize <record-id> <provider-address> <provider-pubkey>",
		Short: "Grant a provider access to one of your records",
		Long: `Unwraps your copy of the record's content key and wraps it again for the
provider's public key. Authorizing an already authorized provider replaces
the stored key.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseRecordID(args[0])
			if err != nil {
				return err
			}
			provider, pub, err := parseProvider(args[1], args[2])
			if err != nil {
				return err
			}

			ctx, cancel := app.withTimeout(cmd.Context())
			defer cancel()

			reg, err := app.server(ctx)
			if err != nil {
				return err
			}

			mine, err := reg.GetEncryptedKey(ctx, id)
			if err != nil {
				return err
			}
			if len(mine) == 0 {
				return common.ErrNoKey
			}

			priv, err := app.unlock(ctx, cmd)
			if err != nil {
				return err
			}
			defer priv.Zero()

			contentKey, err := cryptox.UnwrapKey(priv, mine)
			if err != nil {
				return err
			}
			defer common.WipeByteArray(contentKey)

			wrapped, err := cryptox.WrapKey(pub, contentKey)
			if err != nil {
				return err
			}
			if err := reg.AuthorizeProvider(ctx, id, provider, wrapped); err != nil {
				return err
			}

			v := AccessView{RecordID: id, Provider: provider.Hex(), Authorized: true}
			return app.emitLine(cmd.OutOrStdout(), v, "%s authorized for record %d", provider.Hex(), id)
		},
	}
}

func NewRevokeCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "revoke <record-id> <provider-address>",
		Short: "Remove a provider's access to one of your records",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseRecordID(args[0])
			if err != nil {
				return err
			}
			provider, err := identity.ParseAddress(args[1])
			if err != nil {
				return err
			}

			ctx, cancel := app.withTimeout(cmd.Context())
			defer cancel()

			reg, err := app.server(ctx)
			if err != nil {
				return err
			}
			if err := reg.RevokeProvider(ctx, id, provider); err != nil {
				return err
			}

			v := AccessView{RecordID: id, Provider: provider.Hex()}
			return app.emitLine(cmd.OutOrStdout(), v, "%s revoked for record %d", provider.Hex(), id)
		},
	}
}
