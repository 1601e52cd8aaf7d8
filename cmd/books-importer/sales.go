package main

import (
	"github.com/mmdatafocus/books_importer/config"
	"github.com/mmdatafocus/books_importer/importer"
	"github.com/spf13/cobra"
)

var salesCmd = &cobra.Command{
	Use:   "sales",
	Short: "Sales data import commands",
}

var salesProcessCmd = &cobra.Command{
	Use:   "process <file>",
	Short: "Import invoices from a sales export (orders and line items)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		connect()
		pipeline := importer.NewPipeline(config.GetDB(), config.GetLogger(), effectiveBatchSize())
		summary, err := pipeline.ProcessFile(args[0])
		if err != nil {
			return err
		}
		return writeSummary(summary, summary.Success)
	},
}

var salesProcessProductsCmd = &cobra.Command{
	Use:   "process-products <file>",
	Short: "Import the product master rows of a sales export",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		connect()
		processor := importer.NewProductProcessor(config.GetDB(), config.GetLogger(), effectiveBatchSize())
		summary, err := processor.ProcessFile(args[0])
		if err != nil {
			return err
		}
		return writeSummary(summary, summary.Success)
	},
}

func init() {
	salesCmd.AddCommand(salesProcessCmd)
	salesCmd.AddCommand(salesProcessProductsCmd)
	rootCmd.AddCommand(salesCmd)
}
