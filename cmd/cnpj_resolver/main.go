// Package main provides the entry point for the CNPJ resolver CLI.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "cnpj_resolver",
	Short: "Company name to CNPJ resolution tool",
	Long:  "cnpj_resolver resolves Brazilian company names to their CNPJ tax IDs by crawling company websites, Wikipedia and search results, and enumerates branch CNPJs from public company directories.",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
