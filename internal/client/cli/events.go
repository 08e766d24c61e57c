package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/dmitrijs2005/medkeeper/internal/api"
	"github.com/spf13/cobra"
)

func (a *App) printEvent(w io.Writer, ev api.AuditEvent) error {
	return a.emit(w, ev, func(w io.Writer) error {
		line := fmt.Sprintf("%d\t%s\t%s\trecord=%d", ev.Seq, ev.Timestamp.Format(time.RFC3339), ev.Kind, ev.RecordID)
		if ev.Patient != "" {
			line += " patient=" + ev.Patient
		}
		if ev.Provider != "" {
			line += " provider=" + ev.Provider
		}
		if ev.Payload != "" {
			line += " payload=" + ev.Payload
		}
		_, err := fmt.Fprintln(w, line)
		return err
	})
}

func NewEventsCommand(app *App) *cobra.Command {
	var (
		after  int64
		limit  int32
		follow bool
	)

	cmd := &cobra.Command{
		Use:   "events",
		Short: "Print audit events in sequence order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()

			if follow {
				ctx := cmd.Context()
				reg, err := app.server(ctx)
				if err != nil {
					return err
				}
				err = reg.WatchEvents(ctx, after, func(ev api.AuditEvent) error {
					return app.printEvent(w, ev)
				})
				if errors.Is(err, context.Canceled) {
					return nil
				}
				return err
			}

			ctx, cancel := app.withTimeout(cmd.Context())
			defer cancel()

			reg, err := app.server(ctx)
			if err != nil {
				return err
			}
			events, err := reg.ListAuditEvents(ctx, after, limit)
			if err != nil {
				return err
			}
			for _, ev := range events {
				if err := app.printEvent(w, ev); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().Int64Var(&after, "after", 0, "only events with a sequence number above this")
	cmd.Flags().Int32Var(&limit, "limit", 0, "page size (server default when 0)")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "keep streaming new events until interrupted")
	return cmd
}
