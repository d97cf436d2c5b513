package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/victorcalife/TOIT-Nexus-sub010/internal/app"
)

func newKeyCmd(a *app.App, con *console) *cobra.Command {
	keyCmd := &cobra.Command{
		Use:   "key",
		Short: "Manage the API key",
	}

	keyCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the current API key",
		RunE: func(cmd *cobra.Command, args []string) error {
			key := a.Auth.APIKeyManager.GetCurrentKey()
			if key == "" {
				return errors.New("no API key available")
			}
			fmt.Fprintln(cmd.OutOrStdout(), key)
			return nil
		},
	})

	var yes bool
	resetCmd := &cobra.Command{
		Use:   "reset",
		Short: "Replace the API key; clients using the old key lose access",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if !yes {
				ok, err := con.confirm("Clients using the current key will be rejected. Reset the API key?")
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(out, "Cancelled.")
					return nil
				}
			}

			newKey, err := a.Auth.APIKeyManager.ResetKey()
			if err != nil {
				return fmt.Errorf("reset key: %w", err)
			}
			a.Logs.LogAPIKeyReset()
			fmt.Fprintln(out, "New API key:")
			fmt.Fprintln(out, newKey)
			return nil
		},
	}
	resetCmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	keyCmd.AddCommand(resetCmd)

	return keyCmd
}
