package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/victorcalife/TOIT-Nexus-sub010/internal/app"
)

func newTriggerCmd(a *app.App) *cobra.Command {
	triggerCmd := &cobra.Command{
		Use:   "trigger",
		Short: "Inspect calendar triggers",
	}

	var tenant string
	var account uint
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List the triggers of a tenant",
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := a.Triggers.ListTriggers(tenant, account)
			if err != nil {
				return fmt.Errorf("list triggers: %w", err)
			}
			out := cmd.OutOrStdout()
			if len(list) == 0 {
				fmt.Fprintln(out, "No triggers.")
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tTYPE\tACCOUNT\tWORKFLOW\tACTIVE\tFIRED\tLAST")
			for _, t := range list {
				last := "-"
				if t.LastTriggered != nil {
					last = t.LastTriggered.Format("2006-01-02 15:04")
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%d\t%t\t%d\t%s\n",
					t.ID, t.Name, t.TriggerType, t.CalendarAccountID, t.WorkflowID, t.IsActive, t.TriggerCount, last)
			}
			return w.Flush()
		},
	}
	listCmd.Flags().StringVar(&tenant, "tenant", "default", "tenant to list")
	listCmd.Flags().UintVar(&account, "account", 0, "only list triggers of this calendar account")

	triggerCmd.AddCommand(listCmd)
	return triggerCmd
}
