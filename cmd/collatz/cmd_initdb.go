package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"collatz-checker/internal/store"
)

var dbPathFlag string

// initDBCmd recreates the SQLite schema
var initDBCmd = &cobra.Command{
	Use:   "init-db",
	Short: "Drop and recreate the SQLite memo database, seeded with {1}",
	Args:  cobra.NoArgs,
	RunE:  runInitDB,
}

func runInitDB(cmd *cobra.Command, args []string) error {
	ctx := cmdContext(cmd)

	dbPath := dbPathFlag
	if dbPath == "" {
		dbPath = cfg.Store.Path
	}
	if dbPath == "" {
		return fmt.Errorf("no database path given")
	}

	logger.Info("Setting up database", zap.String("path", dbPath))

	s, err := store.OpenSQLite(ctx, dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer s.Close()

	if err := s.Reset(ctx); err != nil {
		return err
	}

	logger.Info("Database setup completed successfully")
	fmt.Fprintf(cmd.OutOrStdout(), "Initialized %s with memo {1}\n", dbPath)
	return nil
}
