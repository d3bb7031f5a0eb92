package main

import (
	"fmt"
	"os"

	"github.com/atalaya-security/riskguard/internal/cli/admin"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "riskguardd",
		Short: "Riskguard daemon",
		Long:  "Riskguard daemon for running the incident analysis API server and managing the knowledge index",
	}

	rootCmd.AddCommand(admin.ServeCmd())
	rootCmd.AddCommand(admin.IndexCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
