package cli

import (
	"context"

	"asset-fork-merge/internal/repository/postgres"

	"github.com/spf13/cobra"
)

func newMigrateCmd(rt *session) *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending Postgres migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if dir == "" {
				dir = rt.cfg.Postgres.MigrationsDir
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), rt.cfg.Postgres.MigrateTimeout)
			defer cancel()

			if err := postgres.Migrate(ctx, rt.cfg.Postgres, dir); err != nil {
				return err
			}
			rt.log.Infow("migrations applied", "dir", dir)
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "migrations directory (default postgres.migrations_dir)")
	return cmd
}
