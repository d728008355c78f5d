package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"golang.org/x/time/rate"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/jonathan/cnpj-resolver/internal/config"
	"github.com/jonathan/cnpj-resolver/internal/crawling"
	"github.com/jonathan/cnpj-resolver/internal/fetch"
	"github.com/jonathan/cnpj-resolver/internal/resolver"
	"github.com/jonathan/cnpj-resolver/internal/sink"
)

// newLogger builds the process logger. With a log file set, output goes to a
// size-rotated file; otherwise to stderr.
func newLogger(logFile string, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	var w io.Writer = os.Stderr
	if logFile != "" {
		w = &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    20, // megabytes
			MaxBackups: 3,
			MaxAge:     14, // days
		}
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// loadAppConfig merges the optional config file with environment overrides
// and validates the result.
func loadAppConfig(path string) (*config.Config, error) {
	cfg := &config.Config{}
	if path != "" {
		loaded, err := config.LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// buildFetchClient wires the proxy pool and anti-blocking options from
// configuration.
func buildFetchClient(cfg *config.Config, logger *slog.Logger) (*fetch.Client, error) {
	proxies, err := cfg.LoadProxies()
	if err != nil {
		return nil, err
	}
	pool, err := fetch.NewProxyPool(proxies)
	if err != nil {
		return nil, err
	}

	opts := []fetch.Option{fetch.WithLogger(logger)}
	if cfg.Attempts > 0 {
		opts = append(opts, fetch.WithAttempts(cfg.Attempts))
	}
	if cfg.DelayMin > 0 || cfg.DelayMax > 0 {
		minDelay := time.Duration(cfg.DelayMin * float64(time.Second))
		maxDelay := time.Duration(cfg.DelayMax * float64(time.Second))
		opts = append(opts, fetch.WithDelayRange(minDelay, maxDelay))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, fetch.WithTimeout(time.Duration(cfg.Timeout*float64(time.Second))))
	}
	return fetch.NewClient(pool, opts...), nil
}

// buildResolver assembles the layer stack in priority order. The search
// layer joins only when an API key is configured.
func buildResolver(cfg *config.Config, logger *slog.Logger) (*resolver.Resolver, error) {
	layers := []resolver.Layer{
		&resolver.WebsiteLayer{Logger: logger},
		&resolver.WikipediaLayer{
			Limiter: rate.NewLimiter(rate.Every(time.Second), 1),
		},
	}
	if cfg.SerpAPIKey != "" {
		layers = append(layers, &resolver.SearchLayer{APIKey: cfg.SerpAPIKey})
	}

	registry := &resolver.RegistryClient{
		Base:     cfg.RegistryBase,
		Fallback: cfg.RegistryMirror,
		Limiter:  rate.NewLimiter(rate.Every(2*time.Second), 1),
	}
	return resolver.New(layers,
		resolver.WithRegistry(registry),
		resolver.WithLogger(logger))
}

// buildSink selects Google Sheets when a spreadsheet is configured,
// otherwise CSV. The returned sink is already safe for concurrent workers.
func buildSink(ctx context.Context, cfg *config.Config, output string) (sink.ResultSink, error) {
	if cfg.SheetID != "" {
		s, err := sink.NewSheetsSink(ctx, cfg.CredentialsFile, cfg.SheetID)
		if err != nil {
			return nil, fmt.Errorf("failed to open Google Sheet: %w", err)
		}
		return sink.NewSerialized(s), nil
	}

	if output == "" {
		output = "results.csv"
	}
	s := sink.NewCSVSink(output)
	if err := s.Init(); err != nil {
		return nil, err
	}
	return sink.NewSerialized(s), nil
}

// buildBranchCrawler wires the directory crawler on the anti-blocking client.
func buildBranchCrawler(cfg *config.Config, client *fetch.Client, logger *slog.Logger) *crawling.Crawler {
	return crawling.NewCrawler(client, cfg.DirectoryHost, logger)
}

func buildRelatedCrawler(cfg *config.Config, client *fetch.Client, logger *slog.Logger) *crawling.RelatedCrawler {
	return crawling.NewRelatedCrawler(client, cfg.RelatedHost, logger)
}
