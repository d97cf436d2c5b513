package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/victorcalife/TOIT-Nexus-sub010/internal/app"
)

func newWorkflowCmd(a *app.App) *cobra.Command {
	workflowCmd := &cobra.Command{
		Use:   "workflow",
		Short: "Register workflows triggers can start",
	}

	var tenant, name, description string
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Register a workflow",
		RunE: func(cmd *cobra.Command, args []string) error {
			wf, err := a.Workflows.CreateWorkflow(tenant, name, description)
			if err != nil {
				return fmt.Errorf("create workflow: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created workflow %d (%s)\n", wf.ID, wf.Name)
			return nil
		},
	}
	createCmd.Flags().StringVar(&tenant, "tenant", "default", "tenant of the workflow")
	createCmd.Flags().StringVar(&name, "name", "", "workflow name")
	createCmd.Flags().StringVar(&description, "description", "", "workflow description")
	_ = createCmd.MarkFlagRequired("name")

	var listTenant string
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List the workflows of a tenant",
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := a.Workflows.ListWorkflows(listTenant)
			if err != nil {
				return fmt.Errorf("list workflows: %w", err)
			}
			for _, wf := range list {
				fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\n", wf.ID, wf.Name)
			}
			return nil
		},
	}
	listCmd.Flags().StringVar(&listTenant, "tenant", "default", "tenant to list")

	workflowCmd.AddCommand(createCmd, listCmd)
	return workflowCmd
}
