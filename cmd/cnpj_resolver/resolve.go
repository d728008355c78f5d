package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/cnpj-resolver/internal/cnpj"
	"github.com/jonathan/cnpj-resolver/internal/config"
	"github.com/jonathan/cnpj-resolver/internal/sink"
	"github.com/jonathan/cnpj-resolver/internal/types"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Resolve company names from a CSV file to CNPJs",
	Long:  "Reads company names from a CSV input file, resolves each to its CNPJ through the layered lookup (company website, Wikipedia, web search), and appends one result row per company to the output. Optionally crawls the branch directory for each resolved company.",
	RunE:  runResolve,
}

var (
	resolveInput          string
	resolveOutput         string
	resolveConfig         string
	resolveWorkers        int
	resolveResume         bool
	resolveBranches       bool
	resolveCompanyTimeout float64
	resolveLogFile        string
	resolveVerbose        bool
)

func init() {
	resolveCmd.Flags().StringVarP(&resolveInput, "input", "i", "", "CSV file with a company_name column (required)")
	resolveCmd.Flags().StringVarP(&resolveOutput, "output", "o", "", "Results CSV path (default: results.csv; ignored when a sheet is configured)")
	resolveCmd.Flags().StringVarP(&resolveConfig, "config", "c", "", "JSON config file")
	resolveCmd.Flags().IntVarP(&resolveWorkers, "workers", "w", 1, "Companies resolved concurrently")
	resolveCmd.Flags().BoolVar(&resolveResume, "resume", false, "Skip companies already present in the output")
	resolveCmd.Flags().BoolVar(&resolveBranches, "branches", false, "Crawl the branch directory for each resolved company")
	resolveCmd.Flags().Float64Var(&resolveCompanyTimeout, "company-timeout", 0, "Per-company deadline in seconds (0 disables)")
	resolveCmd.Flags().StringVar(&resolveLogFile, "log-file", "", "Rotating log file (default: stderr)")
	resolveCmd.Flags().BoolVarP(&resolveVerbose, "verbose", "v", false, "Enable debug logging")

	if err := resolveCmd.MarkFlagRequired("input"); err != nil {
		panic(fmt.Sprintf("failed to mark input flag as required: %v", err))
	}

	rootCmd.AddCommand(resolveCmd)
}

// mergedResolveConfig layers CLI flags over the file config: a flag that was
// set wins, everything else falls back to the file value or the built-in
// default.
func mergedResolveConfig(fileCfg *config.Config) config.Config {
	flags := config.Config{
		Output:      resolveOutput,
		CompanyWait: resolveCompanyTimeout,
		LogFile:     resolveLogFile,
		Verbose:     resolveVerbose,
	}
	// The flag default of 1 must not shadow a workers value from the file.
	if resolveWorkers > 1 {
		flags.Workers = resolveWorkers
	}

	cfg := flags.MergeWithDefaults(*fileCfg)
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.Output == "" {
		cfg.Output = "results.csv"
	}
	return cfg
}

func runResolve(_ *cobra.Command, _ []string) error {
	fileCfg, err := loadAppConfig(resolveConfig)
	if err != nil {
		return err
	}
	merged := mergedResolveConfig(fileCfg)
	cfg := &merged

	logger := newLogger(cfg.LogFile, cfg.Verbose)

	companies, err := sink.ReadCompanies(resolveInput)
	if err != nil {
		return err
	}
	if len(companies) == 0 {
		return fmt.Errorf("input %s contains no company names", resolveInput)
	}

	ctx := context.Background()
	out, err := buildSink(ctx, cfg, cfg.Output)
	if err != nil {
		return err
	}

	if resolveResume && cfg.SheetID == "" {
		done, err := sink.Processed(cfg.Output)
		if err != nil {
			return err
		}
		var remaining []string
		for _, name := range companies {
			if !done[name] {
				remaining = append(remaining, name)
			}
		}
		logger.Info("resuming run", "total", len(companies), "skipped", len(companies)-len(remaining))
		companies = remaining
	}
	if len(companies) == 0 {
		fmt.Fprintln(os.Stdout, "Nothing to do: all companies already processed")
		return nil
	}

	client, err := buildFetchClient(cfg, logger)
	if err != nil {
		return err
	}
	res, err := buildResolver(cfg, logger)
	if err != nil {
		return err
	}
	crawler := buildBranchCrawler(cfg, client, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)

	for _, name := range companies {
		g.Go(func() error {
			cctx := gctx
			if cfg.CompanyWait > 0 {
				var cancel context.CancelFunc
				cctx, cancel = context.WithTimeout(gctx, time.Duration(cfg.CompanyWait*float64(time.Second)))
				defer cancel()
			}

			result, err := res.Resolve(cctx, name)
			if err != nil {
				// A single company failing must not stop the batch.
				logger.Error("resolution failed", "company", name, "error", err)
				result = &types.ResolutionResult{
					CompanyInput: name,
					Status:       types.StatusError,
					Trail:        []string{err.Error()},
					CreatedAt:    time.Now(),
				}
			}
			if err := out.AppendResult(gctx, result); err != nil {
				return err
			}

			// Branch crawling needs a confirmed head office to seed from. A
			// multiple-status result carries a selected CNPJ, but it may be a
			// mis-picked establishment and would enumerate the wrong
			// company's filiais, so only unambiguous results are crawled.
			if resolveBranches && result.Status == types.StatusSuccess {
				entries, err := crawler.Branches(cctx, name, result.CNPJ)
				if err != nil {
					logger.Warn("branch crawl failed", "company", name, "error", err)
					return nil
				}
				if err := out.AppendBranches(gctx, name, entries); err != nil {
					return err
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "Processed %d companies\n", len(companies))
	return nil
}

// formatIfBare normalizes a CNPJ argument that may arrive formatted or as
// bare digits.
func formatIfBare(value string) (string, error) {
	if !cnpj.IsValid(value) {
		return "", fmt.Errorf("invalid CNPJ: %s", value)
	}
	return cnpj.Format(value)
}
