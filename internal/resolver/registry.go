package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/jonathan/cnpj-resolver/internal/cnpj"
)

// Public registry endpoints, tried in order.
const (
	DefaultRegistryBase         = "https://publica.cnpj.ws/cnpj"
	DefaultRegistryFallbackBase = "https://minhareceita.org"
)

// RegistryClient validates a CNPJ against the public company registry and
// reports whether it identifies the head office (matriz).
type RegistryClient struct {
	Base     string
	Fallback string
	HTTP     *http.Client

	// Limiter paces registry calls; both public mirrors throttle
	// aggressively.
	Limiter *rate.Limiter
}

// registryRecord carries the two fields both mirrors agree on for the
// matriz/filial distinction.
type registryRecord struct {
	IdentificadorMatrizFilial          int    `json:"identificador_matriz_filial"`
	DescricaoIdentificadorMatrizFilial string `json:"descricao_identificador_matriz_filial"`
}

// IsHeadOffice implements HeadOfficeChecker. The fallback mirror is
// consulted only when the primary is unreachable or refuses the lookup.
func (c *RegistryClient) IsHeadOffice(ctx context.Context, candidate string) (bool, error) {
	digits := cnpj.ExtractDigits(candidate)
	if len(digits) != 14 {
		return false, fmt.Errorf("registry lookup needs 14 digits, got %q", candidate)
	}

	base := c.Base
	if base == "" {
		base = DefaultRegistryBase
	}
	fallback := c.Fallback
	if fallback == "" {
		fallback = DefaultRegistryFallbackBase
	}

	record, err := c.lookup(ctx, base+"/"+digits)
	if err != nil {
		record, err = c.lookup(ctx, fallback+"/"+digits)
		if err != nil {
			return false, fmt.Errorf("registry lookup failed on both mirrors: %w", err)
		}
	}

	return record.IdentificadorMatrizFilial == 1 ||
		record.DescricaoIdentificadorMatrizFilial == "MATRIZ", nil
}

func (c *RegistryClient) lookup(ctx context.Context, url string) (*registryRecord, error) {
	if c.Limiter != nil {
		if err := c.Limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	client := c.HTTP
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP status %d from %s", resp.StatusCode, url)
	}

	var record registryRecord
	if err := json.NewDecoder(resp.Body).Decode(&record); err != nil {
		return nil, fmt.Errorf("invalid registry response: %w", err)
	}
	return &record, nil
}
