package main

import (
	"github.com/mmdatafocus/books_importer/config"
	"github.com/mmdatafocus/books_importer/importer"
	"github.com/spf13/cobra"
)

var customersCmd = &cobra.Command{
	Use:   "customers",
	Short: "Customer data import commands",
}

var customersProcessCmd = &cobra.Command{
	Use:   "process <file>",
	Short: "Import customers and their companies from a customer export",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		connect()
		processor := importer.NewCustomerProcessor(config.GetDB(), config.GetLogger(), effectiveBatchSize())
		summary, err := processor.ProcessFile(args[0])
		if err != nil {
			return err
		}
		return writeSummary(summary, summary.Success)
	},
}

var customersProcessPhonesCmd = &cobra.Command{
	Use:   "process-phones <file>",
	Short: "Import customer phone numbers from a customer export",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		connect()
		processor := importer.NewPhoneProcessor(config.GetDB(), config.GetLogger(), effectiveBatchSize())
		summary, err := processor.ProcessFile(args[0])
		if err != nil {
			return err
		}
		return writeSummary(summary, summary.Success)
	},
}

func init() {
	customersCmd.AddCommand(customersProcessCmd)
	customersCmd.AddCommand(customersProcessPhonesCmd)
	rootCmd.AddCommand(customersCmd)
}
