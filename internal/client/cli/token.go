package cli

import (
	"errors"
	"time"

	"github.com/dmitrijs2005/medkeeper/internal/identity"
	"github.com/dmitrijs2005/medkeeper/internal/server/auth"
	"github.com/spf13/cobra"
)

var ErrNoSecret = errors.New("--secret is required")

// TokenView is the printable result of token issue.
type TokenView struct {
	Identity  string    `json:"identity"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

func NewTokenCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage the access token sent to the registry",
	}
	cmd.AddCommand(newTokenIssueCommand(app))
	cmd.AddCommand(newTokenSetCommand(app))
	return cmd
}

// newTokenIssueCommand is an operator tool: whoever holds the server's
// secret can mint a token for any identity.
func newTokenIssueCommand(app *App) *cobra.Command {
	var (
		secret string
		forID  string
		ttl    time.Duration
		save   bool
	)

	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Mint an access token with the server secret",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if secret == "" {
				return ErrNoSecret
			}

			var id identity.Address
			if forID != "" {
				parsed, err := identity.ParseAddress(forID)
				if err != nil {
					return err
				}
				id = parsed
			} else {
				local, err := app.identity(ctx)
				if err != nil {
					return err
				}
				id = local.Address
			}

			token, err := auth.GenerateToken(id, []byte(secret), ttl)
			if err != nil {
				return err
			}

			if save {
				s, err := app.localStore(ctx)
				if err != nil {
					return err
				}
				if err := s.SetToken(ctx, token); err != nil {
					return err
				}
			}

			v := TokenView{Identity: id.Hex(), Token: token, ExpiresAt: time.Now().Add(ttl).UTC().Truncate(time.Second)}
			return app.emitLine(cmd.OutOrStdout(), v, "%s", token)
		},
	}

	cmd.Flags().StringVar(&secret, "secret", "", "server HMAC secret")
	cmd.Flags().StringVar(&forID, "identity", "", "address to issue for (default: local identity)")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	cmd.Flags().BoolVar(&save, "save", false, "also store the token locally")
	return cmd
}

func newTokenSetCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "set <token>",
		Short: "Store an access token for subsequent commands",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := app.localStore(ctx)
			if err != nil {
				return err
			}
			if err := s.SetToken(ctx, args[0]); err != nil {
				return err
			}
			return app.emitLine(cmd.OutOrStdout(), map[string]bool{"saved": true}, "token saved")
		},
	}
}
