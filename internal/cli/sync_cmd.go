package cli

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/victorcalife/TOIT-Nexus-sub010/internal/app"
	"github.com/victorcalife/TOIT-Nexus-sub010/internal/services"
)

func newSyncCmd(a *app.App) *cobra.Command {
	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "Run calendar syncs",
	}

	var tenant string
	var account uint
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run one sync cycle now",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			var results []services.SyncResult
			switch {
			case account != 0:
				if tenant == "" {
					return errors.New("--account requires --tenant")
				}
				result, err := a.SyncScheduler.SyncAccountNow(ctx, tenant, account)
				if err != nil {
					return err
				}
				results = append(results, result)
			default:
				var ran bool
				if tenant == "" {
					results, ran = a.SyncScheduler.RunNow(ctx)
				} else {
					results, ran = a.SyncScheduler.SyncTenantNow(ctx, tenant)
				}
				if !ran {
					return services.ErrSyncInProgress
				}
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ACCOUNT\tEVENTS\tDISPATCHED\tFAILED\tDURATION\tERROR")
			for _, r := range results {
				fmt.Fprintf(w, "%d\t%d\t%d\t%d\t%s\t%s\n", r.AccountID, r.EventCount, r.Dispatched, r.Failed, r.Duration.Round(time.Millisecond), r.ErrorMessage())
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d accounts synced\n", len(results))
			return nil
		},
	}
	runCmd.Flags().StringVar(&tenant, "tenant", "", "only sync accounts of this tenant")
	runCmd.Flags().UintVar(&account, "account", 0, "only sync this account")

	syncCmd.AddCommand(runCmd)
	return syncCmd
}
