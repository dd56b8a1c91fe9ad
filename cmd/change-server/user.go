package main

import (
	"fmt"

	"changemgmt/internal/bootstrap"
	"changemgmt/models"

	"github.com/spf13/cobra"
)

func newUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage user accounts",
	}
	cmd.AddCommand(newUserAddCmd())
	return cmd
}

func newUserAddCmd() *cobra.Command {
	var username, email, password, role string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a user with a role",
		RunE: func(cmd *cobra.Command, _ []string) error {
			r := models.Role(role)
			if !r.Valid() {
				return fmt.Errorf("invalid --role %q: want %s or %s", role, models.RoleEmployee, models.RoleAdmin)
			}

			e, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer e.Close()

			if err := bootstrap.EnsureRoles(cmd.Context(), e.store, e.log); err != nil {
				return err
			}
			created, err := bootstrap.EnsureUser(cmd.Context(), e.store, username, email, password, r)
			if err != nil {
				return err
			}
			if !created {
				return fmt.Errorf("user %q already exists", username)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s user %s\n", r, username)
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "login name")
	cmd.Flags().StringVar(&email, "email", "", "address for decision notifications")
	cmd.Flags().StringVar(&password, "password", "", "initial password")
	cmd.Flags().StringVar(&role, "role", string(models.RoleEmployee), "Employee or Admin")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}
