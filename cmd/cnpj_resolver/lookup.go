package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var lookupCmd = &cobra.Command{
	Use:   "lookup <company name>",
	Short: "Resolve a single company name to its CNPJ",
	Long:  "Runs the layered lookup for one company and prints the result as JSON, including the per-layer trail of what was tried.",
	Args:  cobra.ExactArgs(1),
	RunE:  runLookup,
}

var (
	lookupConfig  string
	lookupTimeout float64
	lookupVerbose bool
)

func init() {
	lookupCmd.Flags().StringVarP(&lookupConfig, "config", "c", "", "JSON config file")
	lookupCmd.Flags().Float64Var(&lookupTimeout, "timeout", 0, "Overall deadline in seconds (0 disables)")
	lookupCmd.Flags().BoolVarP(&lookupVerbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(lookupCmd)
}

func runLookup(_ *cobra.Command, args []string) error {
	cfg, err := loadAppConfig(lookupConfig)
	if err != nil {
		return err
	}
	logger := newLogger(cfg.LogFile, lookupVerbose || cfg.Verbose)

	res, err := buildResolver(cfg, logger)
	if err != nil {
		return err
	}

	ctx := context.Background()
	if lookupTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(lookupTimeout*float64(time.Second)))
		defer cancel()
	}

	result, err := res.Resolve(ctx, args[0])
	if err != nil {
		return err
	}

	encoded, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}
	fmt.Fprintln(os.Stdout, string(encoded))
	return nil
}
