package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joywufn/portfolio-insight/backend/pkg/database"
)

// migrateCmd represents the migrate command
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the database schema",
	Long: `Apply the embedded schema in one transaction. Every statement is
idempotent, so the command is safe to re-run.

Example:
  go run ./cmd/insight migrate`,
	RunE: runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	db, err := database.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		return err
	}

	PrintSuccess(fmt.Sprintf("Applied %d schema statements", len(database.Statements())))
	return nil
}
