package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"callguard/internal/config"
	"callguard/internal/domain/services"
	"callguard/internal/domain/services/ai"
	"callguard/internal/infrastructure/database"
	"callguard/internal/infrastructure/database/repository"
)

func newKeywordsCmd(cc *cliContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keywords",
		Short: "Inspect and manage the scam keyword list",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "Print the keyword list the analyzer would load",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			var db *database.PostgresDB
			if cc.cfg.Keywords.Source == config.KeywordSourcePostgres {
				var err error
				db, err = database.NewPostgres(ctx, cc.cfg.Database, cc.log)
				if err != nil {
					return err
				}
				defer db.Close()
			}

			src, err := services.KeywordSourceFor(cc.cfg.Keywords, db)
			if err != nil {
				return err
			}
			list, err := ai.LoadKeywords(ctx, src)
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v, showing default list\n", err)
			}
			for _, term := range list.Terms() {
				fmt.Fprintln(cmd.OutOrStdout(), term)
			}
			return nil
		},
	})

	var seedFile string
	seed := &cobra.Command{
		Use:   "seed",
		Short: "Replace the keyword table in PostgreSQL",
		Long: `Replace the scam_keywords table with the phrases from --file, or with
the built-in list when no file is given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			phrases := ai.DefaultKeywords
			if seedFile != "" {
				f, err := os.Open(seedFile)
				if err != nil {
					return err
				}
				defer f.Close()
				if phrases, err = ai.ParseKeywords(f); err != nil {
					return err
				}
			}

			db, err := database.NewPostgres(ctx, cc.cfg.Database, cc.log)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := repository.NewKeywordRepository(db.Pool()).EnsureSchema(ctx); err != nil {
				return err
			}
			n, err := repository.SeedKeywords(ctx, db, phrases)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d keywords\n", n)
			return nil
		},
	}
	seed.Flags().StringVarP(&seedFile, "file", "f", "", "newline-delimited keyword file")
	cmd.AddCommand(seed)

	return cmd
}
