package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/dmitrijs2005/medkeeper/internal/api"
	"github.com/dmitrijs2005/medkeeper/internal/sigverify"
	"github.com/spf13/cobra"
)

// SignatureView is the (v, r, s) form accepted by recover.
type SignatureView struct {
	Digest string `json:"digest"`
	V      uint8  `json:"v"`
	R      string `json:"r"`
	S      string `json:"s"`
}

func NewSignCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "sign <digest>",
		Short: "Sign a 32-byte digest with your identity key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			digest, err := api.ParseHex32(args[0])
			if err != nil {
				return err
			}

			priv, err := app.unlock(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer priv.Zero()

			v, r, s := sigverify.Sign(priv, sigverify.Digest(digest))
			view := SignatureView{Digest: api.EncodeHex32(digest), V: v, R: api.EncodeHex32(r), S: api.EncodeHex32(s)}

			return app.emit(cmd.OutOrStdout(), view, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "%d %s %s\n", view.V, view.R, view.S)
				return err
			})
		},
	}
}

func NewRecoverCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "recover <digest> <v> <r> <s>",
		Short: "Ask the registry which address produced a signature",
		Long: `Prints the recovered signer address, or the zero address when the
signature is malformed or nothing can be recovered.`,
		Args: cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			digest, err := api.ParseHex32(args[0])
			if err != nil {
				return err
			}
			v, err := strconv.ParseUint(args[1], 10, 8)
			if err != nil {
				return fmt.Errorf("invalid v %q", args[1])
			}
			r, err := api.ParseHex32(args[2])
			if err != nil {
				return err
			}
			s, err := api.ParseHex32(args[3])
			if err != nil {
				return err
			}

			ctx, cancel := app.withTimeout(cmd.Context())
			defer cancel()

			reg, err := app.server(ctx)
			if err != nil {
				return err
			}
			signer, err := reg.RecoverSigner(ctx, sigverify.Digest(digest), byte(v), r, s)
			if err != nil {
				return err
			}
			return app.emitLine(cmd.OutOrStdout(), map[string]string{"signer": signer.Hex()}, "%s", signer.Hex())
		},
	}
}
