package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_ValidJSON(t *testing.T) {
	// Create temp config file
	content := `{
		"proxies": ["http://10.0.0.1:8080", "http://10.0.0.2:8080"],
		"serp_api_key": "test-key",
		"workers": 4,
		"delay_min_seconds": 1.5,
		"delay_max_seconds": 4.5,
		"verbose": true
	}`

	tmpFile := filepath.Join(t.TempDir(), "config.json")
	err := os.WriteFile(tmpFile, []byte(content), 0644)
	require.NoError(t, err)

	cfg, err := LoadConfig(tmpFile)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, []string{"http://10.0.0.1:8080", "http://10.0.0.2:8080"}, cfg.Proxies)
	assert.Equal(t, "test-key", cfg.SerpAPIKey)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, 1.5, cfg.DelayMin)
	assert.True(t, cfg.Verbose)
}

func TestLoadConfig_InvalidJSON(t *testing.T) {
	content := `{ invalid json }`

	tmpFile := filepath.Join(t.TempDir(), "config.json")
	err := os.WriteFile(tmpFile, []byte(content), 0644)
	require.NoError(t, err)

	_, err = LoadConfig(tmpFile)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config JSON")
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.json"))
	require.Error(t, err)
}

func TestLoadConfig_EmptyPath(t *testing.T) {
	_, err := LoadConfig("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config path is empty")
}

func TestValidate_Defaults(t *testing.T) {
	cfg := &Config{}
	assert.NoError(t, cfg.Validate())
}

func TestValidate_BadProxyURL(t *testing.T) {
	cfg := &Config{Proxies: []string{"not a url"}}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config error")
}

func TestValidate_DelayRange(t *testing.T) {
	cfg := &Config{DelayMin: 5, DelayMax: 2}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "delay_min_seconds")
}

func TestValidate_SheetRequiresCredentials(t *testing.T) {
	cfg := &Config{SheetID: "abc123"}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "credentials_file")
}

func TestValidate_MissingCredentialsFile(t *testing.T) {
	cfg := &Config{
		SheetID:         "abc123",
		CredentialsFile: filepath.Join(t.TempDir(), "absent.json"),
	}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "credentials file not found")
}

func TestMergeWithDefaults(t *testing.T) {
	cfg := Config{Workers: 8}
	merged := cfg.MergeWithDefaults(Config{
		Workers:       4,
		Attempts:      5,
		DirectoryHost: "www.diretoriobrasil.net",
	})

	assert.Equal(t, 8, merged.Workers)
	assert.Equal(t, 5, merged.Attempts)
	assert.Equal(t, "www.diretoriobrasil.net", merged.DirectoryHost)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("CNPJ_RESOLVER_SERP_API_KEY", "env-key")
	t.Setenv("CNPJ_RESOLVER_PROXIES", "http://10.0.0.1:8080, http://10.0.0.2:8080")
	t.Setenv("CNPJ_RESOLVER_WORKERS", "6")

	cfg := &Config{SerpAPIKey: "file-key", Workers: 2}
	cfg.ApplyEnv()

	assert.Equal(t, "env-key", cfg.SerpAPIKey)
	assert.Equal(t, []string{"http://10.0.0.1:8080", "http://10.0.0.2:8080"}, cfg.Proxies)
	assert.Equal(t, 6, cfg.Workers)
}

func TestLoadProxies_InlineAndFile(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "proxies.txt")
	content := "http://10.0.0.3:8080\n\n# comment\nhttp://10.0.0.4:8080\n"
	require.NoError(t, os.WriteFile(tmpFile, []byte(content), 0644))

	cfg := &Config{
		Proxies:     []string{"http://10.0.0.1:8080"},
		ProxiesFile: tmpFile,
	}
	proxies, err := cfg.LoadProxies()
	require.NoError(t, err)
	assert.Equal(t, []string{
		"http://10.0.0.1:8080",
		"http://10.0.0.3:8080",
		"http://10.0.0.4:8080",
	}, proxies)
}

func TestLoadProxies_NoFile(t *testing.T) {
	cfg := &Config{Proxies: []string{"http://10.0.0.1:8080"}}
	proxies, err := cfg.LoadProxies()
	require.NoError(t, err)
	assert.Equal(t, []string{"http://10.0.0.1:8080"}, proxies)
}

func TestLoadProxies_MissingFile(t *testing.T) {
	cfg := &Config{ProxiesFile: filepath.Join(t.TempDir(), "absent.txt")}
	_, err := cfg.LoadProxies()
	require.Error(t, err)
}
