// Package cli implements dochubctl, the operations companion to the API server.
package cli

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"dochub/internal/config"
	"dochub/internal/database"
	"dochub/internal/storage"
	"dochub/internal/tool"
)

// Deps are the resources commands open lazily, so commands that do not need
// storage or the database run without them.
type Deps struct {
	Config    *config.AppConfig
	Tools     *tool.Registry
	OpenStore func() (storage.Storage, error)
	OpenDB    func(ctx context.Context) (*sql.DB, error)
}

// DefaultDeps wires Deps from cfg.
func DefaultDeps(cfg *config.AppConfig) Deps {
	return Deps{
		Config: cfg,
		Tools:  tool.DefaultRegistry(),
		OpenStore: func() (storage.Storage, error) {
			return storage.Open(cfg.Upload, cfg.MinIO)
		},
		OpenDB: func(ctx context.Context) (*sql.DB, error) {
			if !cfg.Database.Enabled() {
				return nil, fmt.Errorf("database is not configured: set DB_HOST")
			}
			return database.NewPostgres(ctx, cfg.Database)
		},
	}
}

// NewRootCmd builds the dochubctl command tree.
func NewRootCmd(d Deps) *cobra.Command {
	root := &cobra.Command{
		Use:           "dochubctl",
		Short:         "Operate a DocHub deployment",
		Long:          "dochubctl inspects the tool catalog and runs maintenance tasks against the uploads store and the signature registry.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newToolsCmd(d),
		newSweepCmd(d),
		newMigrateCmd(d),
		newSignaturesCmd(d),
	)
	return root
}

// Execute runs the CLI and exits non-zero on failure.
func Execute(d Deps) {
	root := NewRootCmd(d)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(root.ErrOrStderr(), "Error:", err)
		os.Exit(1)
	}
}

func out(cmd *cobra.Command) io.Writer {
	return cmd.OutOrStdout()
}
