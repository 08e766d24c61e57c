package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/dmitrijs2005/medkeeper/internal/api"
	"github.com/dmitrijs2005/medkeeper/internal/common"
	"github.com/dmitrijs2005/medkeeper/internal/cryptox"
	"github.com/dmitrijs2005/medkeeper/internal/filex"
	"github.com/dmitrijs2005/medkeeper/internal/identity"
	"github.com/spf13/cobra"
)

// ErrKeyAddressMismatch is returned when a public key does not belong to
// the address it was given with.
var ErrKeyAddressMismatch = errors.New("public key does not match address")

func parseRecordID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid record id %q", s)
	}
	return id, nil
}

// parseProvider checks that pubHex derives to addr.
func parseProvider(addr, pubHex string) (identity.Address, *secp256k1.PublicKey, error) {
	a, err := identity.ParseAddress(addr)
	if err != nil {
		return identity.Zero, nil, err
	}
	pub, err := cryptox.ParsePublicKey(pubHex)
	if err != nil {
		return identity.Zero, nil, err
	}
	if identity.FromPublicKey(pub) != a {
		return identity.Zero, nil, fmt.Errorf("%w: %s", ErrKeyAddressMismatch, a.Hex())
	}
	return a, pub, nil
}

// parseProviderArg reads ADDR:PUBHEX.
func parseProviderArg(arg string) (identity.Address, *secp256k1.PublicKey, error) {
	addr, pubHex, ok := strings.Cut(arg, ":")
	if !ok {
		return identity.Zero, nil, fmt.Errorf("provider %q: expected ADDR:PUBKEY", arg)
	}
	return parseProvider(addr, pubHex)
}

// UploadView is the printable result of upload.
type UploadView struct {
	RecordID       int64    `json:"record_id"`
	ContentLocator string   `json:"content_locator"`
	ContentDigest  string   `json:"content_digest"`
	Readers        []string `json:"readers"`
}

func NewUploadCommand(app *App) *cobra.Command {
	var providers []string

	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Encrypt a document, store it and register it as a new record",
		Long: `Encrypts the file with a fresh content key, uploads the ciphertext through a
presigned URL and creates a record whose digest is the SHA-256 of the
ciphertext. The content key is wrapped for the local identity and for every
--provider ADDR:PUBKEY given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUpload(app, cmd, args[0], providers)
		},
	}
	cmd.Flags().StringArrayVar(&providers, "provider", nil, "grant access at creation, as ADDR:PUBKEY (repeatable)")
	return cmd
}

func runUpload(app *App, cmd *cobra.Command, path string, providerArgs []string) error {
	ctx, cancel := app.withTimeout(cmd.Context())
	defer cancel()

	me, err := app.identity(ctx)
	if err != nil {
		return err
	}
	myPub, err := secp256k1.ParsePubKey(me.PublicKey)
	if err != nil {
		return fmt.Errorf("stored public key: %w", err)
	}

	readers := []identity.Address{me.Address}
	pubs := []*secp256k1.PublicKey{myPub}
	for _, arg := range providerArgs {
		addr, pub, err := parseProviderArg(arg)
		if err != nil {
			return err
		}
		readers = append(readers, addr)
		pubs = append(pubs, pub)
	}

	plaintext, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	ciphertext, contentKey, err := cryptox.EncryptContent(plaintext)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(contentKey)
	digest := cryptox.ContentDigest(ciphertext)

	keys := make([][]byte, 0, len(pubs))
	for _, pub := range pubs {
		wrapped, err := cryptox.WrapKey(pub, contentKey)
		if err != nil {
			return err
		}
		keys = append(keys, wrapped)
	}

	reg, err := app.server(ctx)
	if err != nil {
		return err
	}

	locator, url, err := reg.PresignUpload(ctx)
	if err != nil {
		return err
	}
	if err := app.transfer.Upload(ctx, url, ciphertext); err != nil {
		return err
	}

	id, err := reg.CreateRecord(ctx, locator, digest, readers, keys)
	if err != nil {
		return err
	}

	v := UploadView{RecordID: id, ContentLocator: locator, ContentDigest: api.EncodeHex32(digest)}
	for _, r := range readers {
		v.Readers = append(v.Readers, r.Hex())
	}
	return app.emitLine(cmd.OutOrStdout(), v, "record %d", id)
}

func NewFetchCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "fetch <record-id> <out-file>",
		Short: "Download, verify and decrypt a record you hold a key for",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseRecordID(args[0])
			if err != nil {
				return err
			}
			return runFetch(app, cmd, id, args[1])
		},
	}
}

func runFetch(app *App, cmd *cobra.Command, recordID int64, out string) error {
	ctx, cancel := app.withTimeout(cmd.Context())
	defer cancel()

	reg, err := app.server(ctx)
	if err != nil {
		return err
	}

	wrapped, err := reg.GetEncryptedKey(ctx, recordID)
	if err != nil {
		return err
	}
	if len(wrapped) == 0 {
		return common.ErrNoKey
	}

	md, err := reg.GetRecordMetadata(ctx, recordID)
	if err != nil {
		return err
	}
	want, err := api.ParseHex32(md.ContentDigest)
	if err != nil {
		return err
	}

	url, err := reg.PresignDownload(ctx, recordID)
	if err != nil {
		return err
	}
	ciphertext, err := app.transfer.Download(ctx, url)
	if err != nil {
		return err
	}
	if cryptox.ContentDigest(ciphertext) != want {
		return common.ErrDigestMismatch
	}

	priv, err := app.unlock(ctx, cmd)
	if err != nil {
		return err
	}
	defer priv.Zero()

	contentKey, err := cryptox.UnwrapKey(priv, wrapped)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(contentKey)

	plaintext, err := cryptox.DecryptContent(ciphertext, contentKey)
	if err != nil {
		return err
	}
	if err := filex.WritePrivate(out, plaintext); err != nil {
		return err
	}

	v := map[string]any{"record_id": recordID, "path": out, "bytes": len(plaintext)}
	return app.emitLine(cmd.OutOrStdout(), v, "wrote %d bytes to %s", len(plaintext), out)
}

func NewMetaCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "meta <record-id>",
		Short: "Show a record's public metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseRecordID(args[0])
			if err != nil {
				return err
			}

			ctx, cancel := app.withTimeout(cmd.Context())
			defer cancel()

			reg, err := app.server(ctx)
			if err != nil {
				return err
			}
			md, err := reg.GetRecordMetadata(ctx, id)
			if err != nil {
				return err
			}

			return app.emit(cmd.OutOrStdout(), md, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "record:   %d\ncreator:  %s\ncreated:  %s\nactive:   %t\nlocator:  %s\ndigest:   %s\n",
					md.RecordID, md.Creator, md.CreatedAt.Format(time.RFC3339), md.Active,
					md.ContentLocator, md.ContentDigest)
				return err
			})
		},
	}
}

func NewListCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list [patient-address]",
		Short: "List record ids created by a patient (default: yourself)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			patient := identity.Zero
			if len(args) == 1 {
				p, err := identity.ParseAddress(args[0])
				if err != nil {
					return err
				}
				patient = p
			}

			ctx, cancel := app.withTimeout(cmd.Context())
			defer cancel()

			reg, err := app.server(ctx)
			if err != nil {
				return err
			}
			ids, err := reg.GetPatientRecordIDs(ctx, patient)
			if err != nil {
				return err
			}
			if ids == nil {
				ids = []int64{}
			}

			return app.emit(cmd.OutOrStdout(), map[string][]int64{"record_ids": ids}, func(w io.Writer) error {
				for _, id := range ids {
					if _, err := fmt.Fprintln(w, id); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}

func NewDeleteCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <record-id>",
		Short: "Mark one of your records inactive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseRecordID(args[0])
			if err != nil {
				return err
			}

			ctx, cancel := app.withTimeout(cmd.Context())
			defer cancel()

			reg, err := app.server(ctx)
			if err != nil {
				return err
			}
			if err := reg.DeleteRecord(ctx, id); err != nil {
				return err
			}
			return app.emitLine(cmd.OutOrStdout(), map[string]int64{"deleted": id}, "record %d deleted", id)
		},
	}
}
