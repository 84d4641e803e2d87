package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sakif/ecocycle/internal/service"
)

func seedCmd(a *app) *cobra.Command {
	var (
		userID      string
		competitors bool
	)
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Add demo data",
		Long: `Add demo data to the database.

--user appends sample deposits and badges to an existing account.
--competitors creates the sample leaderboard accounts (existing ones are kept).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if userID == "" && !competitors {
				return errors.New("nothing to seed: pass --user or --competitors")
			}

			db, err := a.openStore()
			if err != nil {
				return err
			}
			defer db.Close()

			board, closeCache := a.leaderboard(cmd.Context(), db)
			defer closeCache()
			demo := service.NewDemoService(db, board, a.logger)

			if competitors {
				n, err := demo.SeedCompetitors(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "created %d competitor accounts\n", n)
			}
			if userID != "" {
				res, err := demo.SeedDemo(cmd.Context(), userID)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "added %d records, %d badges, %d points to %s\n",
					res.Records, res.Badges, res.Points, userID)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "ID of the user to seed")
	cmd.Flags().BoolVar(&competitors, "competitors", false, "create sample leaderboard accounts")
	return cmd
}
