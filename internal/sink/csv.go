package sink

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jonathan/cnpj-resolver/internal/types"
)

var (
	resultHeader = []string{"company_input", "cnpj", "source_url", "status", "notes", "created_at"}
	branchHeader = []string{"company_name", "branch_label", "cnpj", "status", "timestamp", "notes"}
)

// CSVSink appends results to a pair of CSV files: the results file named at
// construction and a companion "<name>_branches.csv" beside it. Files are
// opened per append so a crash mid-run loses at most one row.
type CSVSink struct {
	resultsPath  string
	branchesPath string
}

// NewCSVSink builds a sink writing to resultsPath. The branches file path is
// derived from it.
func NewCSVSink(resultsPath string) *CSVSink {
	ext := filepath.Ext(resultsPath)
	base := strings.TrimSuffix(resultsPath, ext)
	if ext == "" {
		ext = ".csv"
	}
	return &CSVSink{
		resultsPath:  resultsPath,
		branchesPath: base + "_branches" + ext,
	}
}

// BranchesPath reports where branch rows are written.
func (s *CSVSink) BranchesPath() string {
	return s.branchesPath
}

// Init creates both output files with their header rows when they do not
// exist yet. Existing files are left untouched so a resumed run appends to
// prior results.
func (s *CSVSink) Init() error {
	if err := ensureHeader(s.resultsPath, resultHeader); err != nil {
		return err
	}
	return ensureHeader(s.branchesPath, branchHeader)
}

func ensureHeader(path string, header []string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return &SinkError{Message: fmt.Sprintf("stat %s", path), Cause: err}
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return &SinkError{Message: fmt.Sprintf("create directory for %s", path), Cause: err}
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return &SinkError{Message: fmt.Sprintf("create %s", path), Cause: err}
	}
	defer f.Close()
	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return &SinkError{Message: fmt.Sprintf("write header to %s", path), Cause: err}
	}
	w.Flush()
	return w.Error()
}

// AppendResult writes one primary-result row.
func (s *CSVSink) AppendResult(_ context.Context, result *types.ResolutionResult) error {
	created := result.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	row := []string{
		result.CompanyInput,
		result.CNPJ,
		result.SourceURL,
		string(result.Status),
		result.Notes(),
		created.Format(time.RFC3339),
	}
	return appendRow(s.resultsPath, resultHeader, row)
}

// AppendBranches writes one row per branch entry to the companion file.
func (s *CSVSink) AppendBranches(_ context.Context, companyName string, entries []types.BranchEntry) error {
	if len(entries) == 0 {
		return nil
	}
	now := time.Now().Format(time.RFC3339)
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{companyName, e.Label, e.CNPJ, string(types.StatusSuccess), now, ""})
	}
	return appendRows(s.branchesPath, branchHeader, rows)
}

func appendRow(path string, header, row []string) error {
	return appendRows(path, header, [][]string{row})
}

func appendRows(path string, header []string, rows [][]string) error {
	if err := ensureHeader(path, header); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return &SinkError{Message: fmt.Sprintf("open %s for append", path), Cause: err}
	}
	defer f.Close()
	w := csv.NewWriter(f)
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return &SinkError{Message: fmt.Sprintf("append to %s", path), Cause: err}
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return &SinkError{Message: fmt.Sprintf("flush %s", path), Cause: err}
	}
	return nil
}

// ReadCompanies loads the batch input file. The file must carry a
// company_name column; blank names are skipped.
func ReadCompanies(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &SinkError{Message: fmt.Sprintf("open input %s", path), Cause: err}
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if err != nil {
		return nil, &SinkError{Message: fmt.Sprintf("read header of %s", path), Cause: err}
	}
	col := -1
	for i, name := range header {
		if strings.EqualFold(strings.TrimSpace(name), "company_name") {
			col = i
			break
		}
	}
	if col < 0 {
		return nil, &SinkError{Message: fmt.Sprintf("input %s has no company_name column", path)}
	}

	var companies []string
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &SinkError{Message: fmt.Sprintf("read %s", path), Cause: err}
		}
		if col >= len(record) {
			continue
		}
		name := strings.TrimSpace(record[col])
		if name == "" {
			continue
		}
		companies = append(companies, name)
	}
	return companies, nil
}

// Processed reads an existing results file and reports which company inputs
// already have a row, so a resumed run can skip them. A missing file means
// nothing was processed.
func Processed(resultsPath string) (map[string]bool, error) {
	f, err := os.Open(resultsPath)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]bool{}, nil
		}
		return nil, &SinkError{Message: fmt.Sprintf("open %s", resultsPath), Cause: err}
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	done := map[string]bool{}
	first := true
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &SinkError{Message: fmt.Sprintf("read %s", resultsPath), Cause: err}
		}
		if first {
			first = false
			continue
		}
		if len(record) == 0 {
			continue
		}
		if name := strings.TrimSpace(record[0]); name != "" {
			done[name] = true
		}
	}
	return done, nil
}
