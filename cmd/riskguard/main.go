package main

import (
	"fmt"
	"os"

	"github.com/atalaya-security/riskguard/internal/cli/client"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "riskguard",
		Short: "Riskguard CLI - AI-assisted security incident analysis",
		Long: `Riskguard CLI provides commands to analyze incidents and query the
security knowledge base.

Environment variables:
  RISKGUARD_API_URL   API base URL (default: http://localhost:8080)`,
		Version: version,
	}

	rootCmd.PersistentFlags().Bool("output", false, "Output as JSON")
	rootCmd.PersistentFlags().String("api-url", "", "API base URL (overrides env)")

	rootCmd.AddCommand(client.AnalyzeCmd())
	rootCmd.AddCommand(client.SearchCmd())
	rootCmd.AddCommand(client.HealthCmd())
	rootCmd.AddCommand(client.StatsCmd())
	rootCmd.AddCommand(client.ReindexCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
