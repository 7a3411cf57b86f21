package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"dochub/internal/database/migration"
	"dochub/internal/repository/postgres"
	"dochub/internal/service"
)

func newMigrateCmd(d Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the signature registry schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := d.OpenDB(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			applied, err := migration.EnsureMigrated(cmd.Context(), db, d.Config.Database.Host)
			if err != nil {
				return err
			}
			if applied {
				fmt.Fprintln(out(cmd), "Schema created")
			} else {
				fmt.Fprintln(out(cmd), "Schema already up to date")
			}
			return nil
		},
	}
}

func newSignaturesCmd(d Deps) *cobra.Command {
	var (
		format        string
		limit, offset int
	)
	cmd := &cobra.Command{
		Use:   "signatures",
		Short: "List registered document signatures, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := validFormat(format); err != nil {
				return err
			}
			db, err := d.OpenDB(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			page, err := service.NewSignatureService(postgres.NewSignaturePostgres(db)).List(cmd.Context(), limit, offset)
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(page.Items))
			for _, s := range page.Items {
				rows = append(rows, []string{s.Hash[:min(12, len(s.Hash))], s.DocumentName, s.SignerName, s.SignedAt.UTC().Format(time.RFC3339)})
			}
			if err := render(out(cmd), format, page, []string{"HASH", "DOCUMENT", "SIGNER", "SIGNED AT"}, rows); err != nil {
				return err
			}
			if format == formatTable {
				fmt.Fprintln(out(cmd), "Total: "+strconv.Itoa(page.Total))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "output", "o", formatTable, "Output format: table, yaml or json")
	cmd.Flags().IntVar(&limit, "limit", 10, "Maximum number of signatures")
	cmd.Flags().IntVar(&offset, "offset", 0, "Number of signatures to skip")
	return cmd
}
