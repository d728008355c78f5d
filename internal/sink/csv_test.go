package sink

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/cnpj-resolver/internal/types"
)

func readAll(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return records
}

func TestCSVSink_InitWritesHeaders(t *testing.T) {
	dir := t.TempDir()
	s := NewCSVSink(filepath.Join(dir, "results.csv"))
	require.NoError(t, s.Init())

	results := readAll(t, filepath.Join(dir, "results.csv"))
	require.Len(t, results, 1)
	assert.Equal(t, resultHeader, results[0])

	branches := readAll(t, s.BranchesPath())
	require.Len(t, branches, 1)
	assert.Equal(t, branchHeader, branches[0])
}

func TestCSVSink_InitPreservesExistingRows(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "results.csv")
	s := NewCSVSink(path)
	require.NoError(t, s.Init())

	err := s.AppendResult(context.Background(), &types.ResolutionResult{
		CompanyInput: "Petrobras",
		CNPJ:         "33.000.167/0001-01",
		Status:       types.StatusSuccess,
	})
	require.NoError(t, err)

	require.NoError(t, s.Init())
	assert.Len(t, readAll(t, path), 2)
}

func TestCSVSink_AppendResult(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "results.csv")
	s := NewCSVSink(path)
	require.NoError(t, s.Init())

	created := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	err := s.AppendResult(context.Background(), &types.ResolutionResult{
		CompanyInput: "Magazine Luiza",
		CNPJ:         "47.960.950/0001-21",
		SourceURL:    "https://www.magazineluiza.com.br",
		Status:       types.StatusSuccess,
		Trail:        []string{"website: found on https://www.magazineluiza.com.br"},
		CreatedAt:    created,
	})
	require.NoError(t, err)

	records := readAll(t, path)
	require.Len(t, records, 2)
	row := records[1]
	assert.Equal(t, "Magazine Luiza", row[0])
	assert.Equal(t, "47.960.950/0001-21", row[1])
	assert.Equal(t, "success", row[3])
	assert.Equal(t, created.Format(time.RFC3339), row[5])
}

func TestCSVSink_AppendBranches(t *testing.T) {
	dir := t.TempDir()
	s := NewCSVSink(filepath.Join(dir, "results.csv"))
	require.NoError(t, s.Init())

	entries := []types.BranchEntry{
		{Label: "Filial 0002", CNPJ: "11.222.333/0002-62"},
		{Label: "Filial 0003", CNPJ: "11.222.333/0003-43"},
	}
	require.NoError(t, s.AppendBranches(context.Background(), "Empresa Teste", entries))

	records := readAll(t, s.BranchesPath())
	require.Len(t, records, 3)
	assert.Equal(t, "Empresa Teste", records[1][0])
	assert.Equal(t, "Filial 0002", records[1][1])
	assert.Equal(t, "11.222.333/0002-62", records[1][2])
	assert.Equal(t, "11.222.333/0003-43", records[2][2])
}

func TestCSVSink_AppendBranchesEmpty(t *testing.T) {
	dir := t.TempDir()
	s := NewCSVSink(filepath.Join(dir, "results.csv"))
	require.NoError(t, s.Init())

	require.NoError(t, s.AppendBranches(context.Background(), "Empresa Teste", nil))
	assert.Len(t, readAll(t, s.BranchesPath()), 1)
}

func TestCSVSink_AppendWithoutInitCreatesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "results.csv")
	s := NewCSVSink(path)

	err := s.AppendResult(context.Background(), &types.ResolutionResult{
		CompanyInput: "Vale",
		Status:       types.StatusNotFound,
	})
	require.NoError(t, err)

	records := readAll(t, path)
	require.Len(t, records, 2)
	assert.Equal(t, "not_found", records[1][3])
}

func TestReadCompanies(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "input.csv")
	content := "id,company_name,city\n1,Petrobras,Rio de Janeiro\n2,,Sao Paulo\n3,Vale,Belo Horizonte\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	companies, err := ReadCompanies(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Petrobras", "Vale"}, companies)
}

func TestReadCompanies_MissingColumn(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "input.csv")
	require.NoError(t, os.WriteFile(path, []byte("id,name\n1,Petrobras\n"), 0o644))

	_, err := ReadCompanies(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "company_name")
}

func TestProcessed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "results.csv")
	s := NewCSVSink(path)
	require.NoError(t, s.Init())

	require.NoError(t, s.AppendResult(context.Background(), &types.ResolutionResult{
		CompanyInput: "Petrobras",
		Status:       types.StatusSuccess,
	}))

	done, err := Processed(path)
	require.NoError(t, err)
	assert.True(t, done["Petrobras"])
	assert.False(t, done["Vale"])
}

func TestProcessed_MissingFile(t *testing.T) {
	done, err := Processed(filepath.Join(t.TempDir(), "absent.csv"))
	require.NoError(t, err)
	assert.Empty(t, done)
}

func TestSerialized_Delegates(t *testing.T) {
	dir := t.TempDir()
	inner := NewCSVSink(filepath.Join(dir, "results.csv"))
	s := NewSerialized(inner)

	err := s.AppendResult(context.Background(), &types.ResolutionResult{
		CompanyInput: "Ambev",
		Status:       types.StatusSuccess,
	})
	require.NoError(t, err)
	require.NoError(t, s.AppendBranches(context.Background(), "Ambev", []types.BranchEntry{
		{Label: "Filial", CNPJ: "11.444.777/0001-61"},
	}))

	assert.Len(t, readAll(t, filepath.Join(dir, "results.csv")), 2)
	assert.Len(t, readAll(t, inner.BranchesPath()), 2)
}
