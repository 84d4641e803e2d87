package main

import (
	"fmt"

	"github.com/spf13/cobra"

	sqliterepo "github.com/sakif/ecocycle/internal/repository/sqlite"
)

func migrateCmd(a *app) *cobra.Command {
	var status bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := sqliterepo.Open(a.cfg.DBPath)
			if err != nil {
				return err
			}
			defer db.Close()

			if status {
				v, err := db.Version(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: schema version %d\n", a.cfg.DBPath, v)
				return nil
			}

			v, err := db.Migrate(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: migrated to version %d\n", a.cfg.DBPath, v)
			return nil
		},
	}
	cmd.Flags().BoolVar(&status, "status", false, "print the current schema version without migrating")
	return cmd
}
