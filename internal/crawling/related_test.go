package crawling

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func relatedTable(rows string) string {
	return "<table>" + rows + "</table>"
}

func TestRelated_MergesAndDeduplicates(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string]string{
		"https://www.cnpj.biz/11222333000181": relatedTable(
			`<tr><td>ACME</td><td>11.222.333/0001-81</td><td>Matriz</td></tr>`),
		"https://www.cnpj.biz/cnpj/11222333000181/filiais": relatedTable(
			`<tr><td>ACME FILIAL</td><td>11.222.333/0002-62</td><td>Filial</td></tr>` +
				`<tr><td>ACME</td><td>11.222.333/0001-81</td><td>Matriz</td></tr>`),
		// empresas-relacionadas page missing: skipped, not fatal.
	}}

	crawler := NewRelatedCrawler(fetcher, "", nil)
	entities, err := crawler.Related(context.Background(), "11.222.333/0001-81")
	require.NoError(t, err)

	require.Len(t, entities, 2)
	assert.Equal(t, "11.222.333/0001-81", entities[0].CNPJ)
	assert.Equal(t, "11.222.333/0002-62", entities[1].CNPJ)
	assert.Len(t, fetcher.requests, 3)
}

func TestRelated_InvalidCNPJ(t *testing.T) {
	crawler := NewRelatedCrawler(&fakeFetcher{}, "", nil)
	_, err := crawler.Related(context.Background(), "12345")

	var inputErr *InputError
	assert.ErrorAs(t, err, &inputErr)
}
