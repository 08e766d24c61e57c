package cli

import (
	"fmt"

	"github.com/dmitrijs2005/medkeeper/internal/client/config"
	"github.com/spf13/cobra"
)

// NewRootCommand builds the medkeeper command tree around app.
func NewRootCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "medkeeper",
		Short: "MedKeeper - patient-controlled medical record registry client",
		Long: `Encrypts medical documents locally, stores them in the content store and
registers them with the MedKeeper registry. Access is granted per provider
by wrapping the document key for the provider's public key.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(app.format) {
				return fmt.Errorf("invalid format %q: must be one of %v", app.format, ValidFormats)
			}

			cfg, err := config.LoadConfig(app.configPath)
			if err != nil {
				return err
			}
			if err := config.Overlay(cfg, cmd.Flags()); err != nil {
				return err
			}
			app.config = cfg
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&app.configPath, "config", "c", "", "path to a JSON or YAML config file")
	cmd.PersistentFlags().StringVar(&app.format, "format", "text", "output format (json|text)")
	config.BindFlags(cmd.PersistentFlags())

	cmd.AddCommand(NewPingCommand(app))
	cmd.AddCommand(NewKeygenCommand(app))
	cmd.AddCommand(NewWhoamiCommand(app))
	cmd.AddCommand(NewTokenCommand(app))
	cmd.AddCommand(NewUploadCommand(app))
	cmd.AddCommand(NewFetchCommand(app))
	cmd.AddCommand(NewAuthorizeCommand(app))
	cmd.AddCommand(NewRevokeCommand(app))
	cmd.AddCommand(NewDeleteCommand(app))
	cmd.AddCommand(NewMetaCommand(app))
	cmd.AddCommand(NewListCommand(app))
	cmd.AddCommand(NewEventsCommand(app))
	cmd.AddCommand(NewSignCommand(app))
	cmd.AddCommand(NewRecoverCommand(app))

	return cmd
}
