package main

import (
	"os"

	"github.com/spf13/cobra"

	"fieldops/pkg/config"
	"fieldops/pkg/logx"
)

var cfg config.Config

var rootCmd = &cobra.Command{
	Use:   "fieldctl",
	Short: "Operational CLI for the fieldops engine",
	Long: `fieldctl is the operator's companion to the fieldops API: apply schema
migrations, inspect and seed document-number counters, and dry-run payment
schedules without touching storage.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cfg = config.Load()
		logx.Setup(cfg.Log)
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
