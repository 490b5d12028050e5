// Package main is the schema migration tool.
//
//	migrate up
//	migrate down
//	migrate steps -- -2
//	migrate version
//	migrate cleanup
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"tradebook/internal/config"
	"tradebook/internal/infrastructure/storage/postgres"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var dsn string

	root := &cobra.Command{
		Use:          "migrate",
		Short:        "Apply tradebook schema migrations",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&dsn, "database-url", "", "PostgreSQL URL (defaults to TRADEBOOK_DB_URL)")

	databaseURL := func() (string, error) {
		if dsn != "" {
			return dsn, nil
		}
		cfg, err := config.Load()
		if err != nil {
			return "", err
		}
		return cfg.DB.URL, nil
	}

	withMigrator := func(fn func(m *postgres.Migrator, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			url, err := databaseURL()
			if err != nil {
				return err
			}

			m, err := postgres.NewMigrator(url)
			if err != nil {
				return err
			}
			defer m.Close()
			return fn(m, args)
		}
	}

	report := func(m *postgres.Migrator, changed bool) error {
		version, dirty, err := m.Version()
		if err != nil {
			return err
		}
		if !changed {
			fmt.Println("no change")
		}
		fmt.Printf("version %d (dirty=%t)\n", version, dirty)
		return nil
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			Args:  cobra.NoArgs,
			RunE: withMigrator(func(m *postgres.Migrator, _ []string) error {
				changed, err := m.Up()
				if err != nil {
					return err
				}
				return report(m, changed)
			}),
		},
		&cobra.Command{
			Use:   "down",
			Short: "Revert all migrations",
			Args:  cobra.NoArgs,
			RunE: withMigrator(func(m *postgres.Migrator, _ []string) error {
				changed, err := m.Down()
				if err != nil {
					return err
				}
				return report(m, changed)
			}),
		},
		&cobra.Command{
			Use:   "steps N",
			Short: "Apply (N>0) or revert (N<0) N migrations",
			Args:  cobra.ExactArgs(1),
			RunE: withMigrator(func(m *postgres.Migrator, args []string) error {
				n, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("steps: %w", err)
				}
				changed, err := m.Steps(n)
				if err != nil {
					return err
				}
				return report(m, changed)
			}),
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the current schema version",
			Args:  cobra.NoArgs,
			RunE: withMigrator(func(m *postgres.Migrator, _ []string) error {
				return report(m, true)
			}),
		},
		&cobra.Command{
			Use:   "cleanup",
			Short: "Delete expired idempotency keys",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				url, err := databaseURL()
				if err != nil {
					return err
				}
				removed, err := cleanupIdempotency(cmd.Context(), url)
				if err != nil {
					return err
				}
				fmt.Printf("removed %d expired idempotency keys\n", removed)
				return nil
			},
		},
	)

	return root
}

func cleanupIdempotency(ctx context.Context, url string) (int64, error) {
	poolCfg := postgres.DefaultPoolConfig(url)
	poolCfg.ApplicationName = postgres.ApplicationName + "-migrate"
	poolCfg.MinConns = 0

	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		return 0, err
	}
	defer pool.Close()

	// ttl is unused by cleanup; expiry is read from each row.
	store := postgres.NewIdempotencyStore(postgres.NewTxManager(pool, postgres.DefaultTxOptions()), 0)
	return store.CleanupExpired(ctx)
}
