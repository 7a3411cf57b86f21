package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"dochub/internal/service"
)

func newSweepCmd(d Deps) *cobra.Command {
	var olderThan time.Duration
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Delete stored uploads older than the retention period",
		Example: `  dochubctl sweep
  dochubctl sweep --older-than 2h`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("older-than") {
				olderThan = d.Config.Upload.Retention()
			}
			if olderThan <= 0 {
				return fmt.Errorf("--older-than must be positive")
			}
			store, err := d.OpenStore()
			if err != nil {
				return err
			}
			removed, err := service.NewSweeper(store, olderThan, nil, nil).RunOnce(cmd.Context())
			fmt.Fprintf(out(cmd), "Removed %d expired file(s)\n", removed)
			return err
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 24*time.Hour, "Delete files last modified before this age (defaults to UPLOAD_RETENTION_HOURS)")
	return cmd
}
