package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string

	rootCmd = &cobra.Command{
		Use:           "star-ledger",
		Short:         "Star reward ledger service for household tasks",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Start the gRPC ledger service and the /metrics endpoint",
		RunE:  runServe,
	}

	auditCmd = &cobra.Command{
		Use:   "audit",
		Short: "Replay transaction history and compare it with the stored balance",
		RunE:  runAudit,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config/config.yaml", "path to the YAML config file")
	auditCmd.Flags().StringSlice("child", nil, "child id to audit (repeatable)")
	_ = auditCmd.MarkFlagRequired("child")

	rootCmd.AddCommand(serveCmd, auditCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
