package cli

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/victorcalife/TOIT-Nexus-sub010/internal/app"
	"github.com/victorcalife/TOIT-Nexus-sub010/internal/database/models"
)

func (c *console) newPassword() (string, error) {
	password, err := c.password("Password (at least 6 characters): ")
	if err != nil {
		return "", err
	}
	if len(password) < 6 {
		return "", errors.New("password must be at least 6 characters")
	}
	again, err := c.password("Repeat password: ")
	if err != nil {
		return "", err
	}
	if password != again {
		return "", errors.New("passwords do not match")
	}
	return password, nil
}

func newUserCmd(a *app.App, con *console) *cobra.Command {
	userCmd := &cobra.Command{
		Use:   "user",
		Short: "Manage users",
	}

	var createTenant string
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a user interactively",
		RunE: func(cmd *cobra.Command, args []string) error {
			username, err := con.ask("Username: ")
			if err != nil {
				return err
			}
			if username == "" {
				return errors.New("username must not be empty")
			}
			password, err := con.newPassword()
			if err != nil {
				return err
			}
			nickname, err := con.ask("Nickname (optional): ")
			if err != nil {
				return err
			}
			if nickname == "" {
				nickname = username
			}

			user, err := a.Users.CreateUser(createTenant, username, password, nickname)
			if err != nil {
				return fmt.Errorf("create user: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created user %d (%s) in tenant %s\n", user.ID, user.Username, user.TenantID)
			return nil
		},
	}
	createCmd.Flags().StringVar(&createTenant, "tenant", models.DefaultTenantID, "tenant of the new user")

	var listTenant string
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List users",
		RunE: func(cmd *cobra.Command, args []string) error {
			users, err := a.Users.ListUsers(listTenant)
			if err != nil {
				return fmt.Errorf("list users: %w", err)
			}
			out := cmd.OutOrStdout()
			if len(users) == 0 {
				fmt.Fprintln(out, "No users.")
				return nil
			}
			fmt.Fprintf(out, "%-6s %-16s %-20s %-20s %s\n", "ID", "TENANT", "USERNAME", "NICKNAME", "CREATED")
			for _, u := range users {
				fmt.Fprintf(out, "%-6d %-16s %-20s %-20s %s\n", u.ID, u.TenantID, u.Username, u.Nickname, u.CreatedAt.Format("2006-01-02 15:04:05"))
			}
			return nil
		},
	}
	listCmd.Flags().StringVar(&listTenant, "tenant", "", "only list users of this tenant")

	resetCmd := &cobra.Command{
		Use:   "reset-pwd <user-id>",
		Short: "Reset a user's password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(args[0], 10, 32)
			if err != nil {
				return fmt.Errorf("invalid user id %q", args[0])
			}
			user, err := a.Users.GetUserByID(uint(id))
			if err != nil {
				return err
			}
			password, err := con.newPassword()
			if err != nil {
				return err
			}
			if err := a.Users.ResetPassword(user.ID, password); err != nil {
				return fmt.Errorf("reset password: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Password of %s reset\n", user.Username)
			return nil
		},
	}

	userCmd.AddCommand(createCmd, listCmd, resetCmd)
	return userCmd
}
