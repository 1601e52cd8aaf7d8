package main

import (
	"fmt"

	"github.com/mmdatafocus/books_importer/config"
	"github.com/spf13/cobra"
)

var testConnectionCmd = &cobra.Command{
	Use:   "test-connection",
	Short: "Test database connectivity",
	RunE: func(cmd *cobra.Command, args []string) error {
		config.ConnectDatabaseWithRetry()
		sqlDB, err := config.GetDB().DB()
		if err != nil {
			return err
		}
		if err := sqlDB.Ping(); err != nil {
			return err
		}
		fmt.Println("database connection ok")
		return nil
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		connect()
		fmt.Println("migrations complete")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(testConnectionCmd)
	rootCmd.AddCommand(migrateCmd)
}
