package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/cnpj-resolver/internal/sink"
)

var branchesCmd = &cobra.Command{
	Use:   "branches",
	Short: "Enumerate branch CNPJs for a known company",
	Long:  "Crawls the public company directory for a company whose head-office CNPJ is already known, following directory pagination, and prints or appends the branch CNPJs found.",
	RunE:  runBranches,
}

var (
	branchesCompany string
	branchesCNPJ    string
	branchesConfig  string
	branchesOutput  string
	branchesRelated bool
	branchesLogFile string
	branchesVerbose bool
)

func init() {
	branchesCmd.Flags().StringVarP(&branchesCompany, "company", "n", "", "Company name (required)")
	branchesCmd.Flags().StringVar(&branchesCNPJ, "cnpj", "", "Head-office CNPJ, formatted or bare digits (required)")
	branchesCmd.Flags().StringVarP(&branchesConfig, "config", "c", "", "JSON config file")
	branchesCmd.Flags().StringVarP(&branchesOutput, "output", "o", "", "Append branch rows to this results CSV instead of printing")
	branchesCmd.Flags().BoolVar(&branchesRelated, "related", false, "Also list related entities from the CNPJ lookup site")
	branchesCmd.Flags().StringVar(&branchesLogFile, "log-file", "", "Rotating log file (default: stderr)")
	branchesCmd.Flags().BoolVarP(&branchesVerbose, "verbose", "v", false, "Enable debug logging")

	if err := branchesCmd.MarkFlagRequired("company"); err != nil {
		panic(fmt.Sprintf("failed to mark company flag as required: %v", err))
	}
	if err := branchesCmd.MarkFlagRequired("cnpj"); err != nil {
		panic(fmt.Sprintf("failed to mark cnpj flag as required: %v", err))
	}

	rootCmd.AddCommand(branchesCmd)
}

func runBranches(_ *cobra.Command, _ []string) error {
	cfg, err := loadAppConfig(branchesConfig)
	if err != nil {
		return err
	}
	if branchesLogFile != "" {
		cfg.LogFile = branchesLogFile
	}
	logger := newLogger(cfg.LogFile, branchesVerbose || cfg.Verbose)

	primary, err := formatIfBare(branchesCNPJ)
	if err != nil {
		return err
	}

	client, err := buildFetchClient(cfg, logger)
	if err != nil {
		return err
	}
	crawler := buildBranchCrawler(cfg, client, logger)

	ctx := context.Background()
	entries, err := crawler.Branches(ctx, branchesCompany, primary)
	if err != nil {
		return err
	}

	if branchesOutput != "" {
		out := sink.NewCSVSink(branchesOutput)
		if err := out.Init(); err != nil {
			return err
		}
		if err := out.AppendBranches(ctx, branchesCompany, entries); err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "Wrote %d branches to %s\n", len(entries), out.BranchesPath())
	} else {
		if len(entries) == 0 {
			fmt.Fprintln(os.Stdout, "No branches found")
		}
		for _, e := range entries {
			fmt.Fprintf(os.Stdout, "%s\t%s\n", e.CNPJ, e.Label)
		}
	}

	if branchesRelated {
		related := buildRelatedCrawler(cfg, client, logger)
		entities, err := related.Related(ctx, primary)
		if err != nil {
			logger.Warn("related-entities lookup failed", "error", err)
			return nil
		}
		for _, ent := range entities {
			fmt.Fprintf(os.Stdout, "%s\t%s\t%s\n", ent.CNPJ, ent.Tipo, ent.RazaoSocial)
		}
	}

	return nil
}
