package main

import (
	"fmt"

	"changemgmt/db/migrations"

	"github.com/spf13/cobra"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer e.Close()

			if err := e.migrate(cmd.Context()); err != nil {
				return err
			}
			v, err := migrations.Version(cmd.Context(), e.db.DB)
			if err != nil {
				return err
			}
			e.log.WithField("version", v).Info("schema up to date")
			fmt.Fprintf(cmd.OutOrStdout(), "schema version %d\n", v)
			return nil
		},
	}
}
