package crawling

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBranchRows(t *testing.T) {
	html := `
	<div class="row-list">
		<h5 class="socio">Matriz</h5>
		<p class="det">CNPJ: 11.222.333/0001-81 — São José dos Campos/SP</p>
	</div>
	<div class="row-list">
		<h5 class="socio">Filial</h5>
		<p class="det">CNPJ: 11.444.777/0001-61 — Gavião Peixoto/SP</p>
	</div>
	<div class="row-list">
		<h5 class="socio">Filial</h5>
		<p class="det">sem identificador aqui</p>
	</div>
	<div class="row-list">
		<p class="det">CNPJ: 59.541.264/0001-03 sem rótulo</p>
	</div>`

	entries, err := parseBranchRows(html)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "Matriz", entries[0].Label)
	assert.Equal(t, "11.222.333/0001-81", entries[0].CNPJ)
	assert.Equal(t, "Filial", entries[1].Label)
	assert.Equal(t, "11.444.777/0001-61", entries[1].CNPJ)
}

func TestParsePagination(t *testing.T) {
	html := `
	<nav aria-label="Resultado da busca"><ul>
		<li><a href="?p=2">2</a></li>
		<li><a href="?p=3">3</a></li>
		<li class="disabled"><a href="?p=9">próxima</a></li>
		<li><a href="/outra-coisa.html">não é paginação</a></li>
	</ul></nav>
	<a href="?p=7">fora da navegação</a>`

	urls := parsePagination(html, "https://www.diretoriobrasil.net/filiais/acme-11222333000181.html")
	assert.Equal(t, []string{
		"https://www.diretoriobrasil.net/filiais/acme-11222333000181.html?p=2",
		"https://www.diretoriobrasil.net/filiais/acme-11222333000181.html?p=3",
	}, urls)
}

func TestParsePagination_NoNav(t *testing.T) {
	assert.Empty(t, parsePagination("<html><body></body></html>", "https://example.com/x.html"))
}

func TestParseEntityTables(t *testing.T) {
	html := `
	<table>
		<tr><th>Razão Social</th><th>CNPJ</th><th>Tipo</th></tr>
		<tr><td>ACME MATRIZ LTDA</td><td>11.222.333/0001-81</td><td>Matriz</td></tr>
		<tr><td>ACME FILIAL LTDA</td><td>11222333000262</td><td>Filial</td></tr>
		<tr><td>linha incompleta</td></tr>
		<tr><td>sem cnpj</td><td>n/a</td><td>—</td></tr>
	</table>`

	rows := parseEntityTables(html)
	require.Len(t, rows, 2)
	assert.Equal(t, RelatedEntity{RazaoSocial: "ACME MATRIZ LTDA", CNPJ: "11.222.333/0001-81", Tipo: "Matriz"}, rows[0])
	assert.Equal(t, "11.222.333/0002-62", rows[1].CNPJ)
}
