package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yeisme/mediavault/pkg/app"
	"github.com/yeisme/mediavault/pkg/internal/storage/db"
)

var (
	dbCmd = &cobra.Command{
		Use:   "db",
		Short: "Database related commands",
	}

	dbListCmd = &cobra.Command{
		Use:   "ls",
		Short: "list all registered database types",
		Run: func(cmd *cobra.Command, args []string) {
			db.RegisterPostgresDialector()
			db.RegisterMySQLDialector()
			db.RegisterSQLiteDialector()

			fmt.Fprintln(cmd.OutOrStdout(), "Registered database types:")
			for _, dbType := range db.GetRegisteredDBTypes() {
				fmt.Fprintln(cmd.OutOrStdout(), " - "+dbType)
			}
		},
	}

	dbMigrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "create or update the media tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Migrate(resolveConfigPath()); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "migration complete")

			return nil
		},
	}
)

// registerDBCommands 注册数据库相关命令.
func registerDBCommands() {
	rootCmd.AddCommand(dbCmd)

	dbCmd.AddCommand(dbListCmd)
	dbCmd.AddCommand(dbMigrateCmd)
}
