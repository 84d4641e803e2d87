package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sakif/ecocycle/internal/service"
)

func sweepCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Replace every user's expired challenges once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := a.openStore()
			if err != nil {
				return err
			}
			defer db.Close()

			loc, err := a.cfg.Location()
			if err != nil {
				return err
			}
			swept, err := service.NewChallengeService(db, db, loc, a.logger).SweepAll(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "replaced expired challenges for %d users\n", swept)
			return nil
		},
	}
}
