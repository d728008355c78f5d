// Package config provides configuration loading and validation for the CLI.
package config

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Config represents the CLI configuration that can be loaded from a JSON file.
// All fields are optional; missing values use defaults or must be provided via
// CLI flags. Environment variables override file values.
type Config struct {
	// Fetching
	Proxies     []string `json:"proxies,omitempty" validate:"dive,url"`              // Proxy URLs for rotation
	ProxiesFile string   `json:"proxies_file,omitempty"`                             // File with one proxy URL per line
	Attempts    int      `json:"attempts,omitempty" validate:"gte=0,lte=20"`         // Fetch attempts per URL
	DelayMin    float64  `json:"delay_min_seconds,omitempty" validate:"gte=0"`       // Minimum pre-request delay
	DelayMax    float64  `json:"delay_max_seconds,omitempty" validate:"gte=0"`       // Maximum pre-request delay
	Timeout     float64  `json:"timeout_seconds,omitempty" validate:"gte=0"`         // Per-request timeout
	Workers     int      `json:"workers,omitempty" validate:"gte=0,lte=64"`          // Concurrent companies in batch mode
	CompanyWait float64  `json:"company_timeout_seconds,omitempty" validate:"gte=0"` // Per-company deadline, 0 disables

	// Sources
	SerpAPIKey     string `json:"serp_api_key,omitempty"`                                 // SerpAPI key for the search layer
	DirectoryHost  string `json:"directory_host,omitempty" validate:"omitempty,hostname"` // Branch directory host
	RelatedHost    string `json:"related_host,omitempty" validate:"omitempty,hostname"`   // Related-entities host
	RegistryBase   string `json:"registry_base,omitempty" validate:"omitempty,url"`       // Registry API base URL
	RegistryMirror string `json:"registry_mirror,omitempty" validate:"omitempty,url"`     // Fallback registry base URL

	// Output
	Output          string `json:"output,omitempty"`           // Results CSV path
	SheetID         string `json:"sheet_id,omitempty"`         // Google Sheets spreadsheet ID
	CredentialsFile string `json:"credentials_file,omitempty"` // Service-account credentials JSON

	// Behavior
	LogFile string `json:"log_file,omitempty"` // Rotating log file path, empty logs to stderr
	Verbose bool   `json:"verbose,omitempty"`  // Print detailed debug information
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// ApplyEnv overrides fields from CNPJ_RESOLVER_* environment variables.
// Unset variables leave the field alone.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("CNPJ_RESOLVER_PROXIES"); v != "" {
		c.Proxies = splitList(v)
	}
	if v := os.Getenv("CNPJ_RESOLVER_PROXIES_FILE"); v != "" {
		c.ProxiesFile = v
	}
	if v := os.Getenv("CNPJ_RESOLVER_SERP_API_KEY"); v != "" {
		c.SerpAPIKey = v
	}
	if v := os.Getenv("CNPJ_RESOLVER_DIRECTORY_HOST"); v != "" {
		c.DirectoryHost = v
	}
	if v := os.Getenv("CNPJ_RESOLVER_SHEET_ID"); v != "" {
		c.SheetID = v
	}
	if v := os.Getenv("CNPJ_RESOLVER_CREDENTIALS_FILE"); v != "" {
		c.CredentialsFile = v
	}
	if v := os.Getenv("CNPJ_RESOLVER_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Workers = n
		}
	}
}

// Validate checks field formats and cross-field constraints.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			f := verrs[0]
			return fmt.Errorf("config error: field %s failed %s validation", f.Field(), f.Tag())
		}
		return fmt.Errorf("config error: %w", err)
	}
	if c.DelayMax > 0 && c.DelayMin > c.DelayMax {
		return fmt.Errorf("config error: 'delay_min_seconds' must not exceed 'delay_max_seconds'")
	}
	if c.SheetID != "" && c.CredentialsFile == "" {
		return fmt.Errorf("config error: 'sheet_id' requires 'credentials_file'")
	}
	if c.CredentialsFile != "" {
		if _, err := os.Stat(c.CredentialsFile); os.IsNotExist(err) {
			return fmt.Errorf("config error: credentials file not found: %s", c.CredentialsFile)
		}
	}
	return nil
}

// MergeWithDefaults returns a new Config with zero-valued fields filled from
// defaults. This is used to apply config file values as defaults for CLI flags.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	if len(result.Proxies) == 0 {
		result.Proxies = defaults.Proxies
	}
	if result.ProxiesFile == "" {
		result.ProxiesFile = defaults.ProxiesFile
	}
	if result.SerpAPIKey == "" {
		result.SerpAPIKey = defaults.SerpAPIKey
	}
	if result.DirectoryHost == "" {
		result.DirectoryHost = defaults.DirectoryHost
	}
	if result.RelatedHost == "" {
		result.RelatedHost = defaults.RelatedHost
	}
	if result.RegistryBase == "" {
		result.RegistryBase = defaults.RegistryBase
	}
	if result.RegistryMirror == "" {
		result.RegistryMirror = defaults.RegistryMirror
	}
	if result.Output == "" {
		result.Output = defaults.Output
	}
	if result.SheetID == "" {
		result.SheetID = defaults.SheetID
	}
	if result.CredentialsFile == "" {
		result.CredentialsFile = defaults.CredentialsFile
	}
	if result.LogFile == "" {
		result.LogFile = defaults.LogFile
	}
	if result.Attempts == 0 {
		result.Attempts = defaults.Attempts
	}
	if result.DelayMin == 0 {
		result.DelayMin = defaults.DelayMin
	}
	if result.DelayMax == 0 {
		result.DelayMax = defaults.DelayMax
	}
	if result.Timeout == 0 {
		result.Timeout = defaults.Timeout
	}
	if result.Workers == 0 {
		result.Workers = defaults.Workers
	}
	if result.CompanyWait == 0 {
		result.CompanyWait = defaults.CompanyWait
	}
	if !result.Verbose {
		result.Verbose = defaults.Verbose
	}

	return result
}

// LoadProxies resolves the full proxy list: inline entries first, then lines
// from the proxies file. Blank lines and #-comments in the file are skipped.
func (c *Config) LoadProxies() ([]string, error) {
	proxies := append([]string(nil), c.Proxies...)
	if c.ProxiesFile == "" {
		return proxies, nil
	}

	f, err := os.Open(c.ProxiesFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open proxies file %s: %w", c.ProxiesFile, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		proxies = append(proxies, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read proxies file %s: %w", c.ProxiesFile, err)
	}
	return proxies, nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
