package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/mmdatafocus/books_importer/config"
	"github.com/mmdatafocus/books_importer/models"
	"github.com/spf13/cobra"
)

var (
	debug      bool
	logLevel   string
	outputPath string
	batchSize  int
)

var rootCmd = &cobra.Command{
	Use:   "books-importer",
	Short: "Import QuickBooks CSV/XLSX exports into the books database",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if debug {
			config.SetLogLevel("debug")
		} else if logLevel != "" {
			config.SetLogLevel(logLevel)
		}
	},
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warning, error)")
	rootCmd.PersistentFlags().StringVar(&outputPath, "output", "", "write the JSON run summary to a file instead of stdout")
	rootCmd.PersistentFlags().IntVar(&batchSize, "batch-size", 0, "rows per transaction (default from IMPORT_BATCH_SIZE)")
}

// connect opens the database and runs migrations. Fatal on failure; every
// subcommand needs a working schema before touching any file.
func connect() {
	config.ConnectDatabaseWithRetry()
	models.MigrateTable()
}

func effectiveBatchSize() int {
	if batchSize > 0 {
		return batchSize
	}
	return config.BatchSize()
}

// writeSummary emits the run summary as JSON to --output or stdout and
// returns an error when the run reported failed batches, so the process
// exits non-zero.
func writeSummary(summary interface{}, success bool) error {
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')

	if outputPath != "" {
		if err := os.WriteFile(outputPath, data, 0o644); err != nil {
			return err
		}
	} else {
		os.Stdout.Write(data)
	}

	if !success {
		return fmt.Errorf("import finished with errors")
	}
	return nil
}
