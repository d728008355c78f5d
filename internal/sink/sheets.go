package sink

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/jonathan/cnpj-resolver/internal/types"
)

const sheetsReadRange = "A:F"

// SheetsSink appends results to a Google Sheet using a service account.
// Branch rows for a company are inserted directly below that company's
// primary row when one exists, keeping related rows adjacent; otherwise they
// are appended at the bottom.
type SheetsSink struct {
	svc           *sheets.Service
	spreadsheetID string
	sheetTitle    string
	sheetID       int64
}

// NewSheetsSink authenticates with the given service-account credentials
// file and binds to the first sheet of the spreadsheet.
func NewSheetsSink(ctx context.Context, credentialsFile, spreadsheetID string) (*SheetsSink, error) {
	svc, err := sheets.NewService(ctx,
		option.WithCredentialsFile(credentialsFile),
		option.WithScopes(sheets.SpreadsheetsScope))
	if err != nil {
		return nil, &SinkError{Message: "create sheets service", Cause: err}
	}
	meta, err := svc.Spreadsheets.Get(spreadsheetID).Context(ctx).Do()
	if err != nil {
		return nil, &SinkError{Message: fmt.Sprintf("load spreadsheet %s", spreadsheetID), Cause: err}
	}
	if len(meta.Sheets) == 0 {
		return nil, &SinkError{Message: fmt.Sprintf("spreadsheet %s has no sheets", spreadsheetID)}
	}
	props := meta.Sheets[0].Properties
	return &SheetsSink{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetTitle:    props.Title,
		sheetID:       props.SheetId,
	}, nil
}

// AppendResult appends one primary-result row.
func (s *SheetsSink) AppendResult(ctx context.Context, result *types.ResolutionResult) error {
	created := result.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	row := []interface{}{
		result.CompanyInput,
		result.CNPJ,
		result.SourceURL,
		string(result.Status),
		result.Notes(),
		created.Format(time.RFC3339),
	}
	return s.appendRows(ctx, [][]interface{}{row})
}

// AppendBranches inserts branch rows below the company's primary row,
// skipping CNPJs the sheet already carries.
func (s *SheetsSink) AppendBranches(ctx context.Context, companyName string, entries []types.BranchEntry) error {
	if len(entries) == 0 {
		return nil
	}
	existing, anchor, err := s.scan(ctx, companyName)
	if err != nil {
		return err
	}

	now := time.Now().Format(time.RFC3339)
	var rows [][]interface{}
	for _, e := range entries {
		if existing[e.CNPJ] {
			continue
		}
		rows = append(rows, []interface{}{companyName, e.CNPJ, "", string(types.StatusSuccess), e.Label, now})
	}
	if len(rows) == 0 {
		return nil
	}
	if anchor < 0 {
		return s.appendRows(ctx, rows)
	}
	return s.insertRows(ctx, anchor, rows)
}

// scan reads the sheet once, returning the set of CNPJs already present and
// the zero-based index of the last row naming the company (-1 when absent).
func (s *SheetsSink) scan(ctx context.Context, companyName string) (map[string]bool, int, error) {
	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, s.rangeRef(sheetsReadRange)).Context(ctx).Do()
	if err != nil {
		return nil, -1, &SinkError{Message: "read spreadsheet values", Cause: err}
	}
	existing := map[string]bool{}
	anchor := -1
	for i, row := range resp.Values {
		if len(row) > 1 {
			if cnpj, ok := row[1].(string); ok && cnpj != "" {
				existing[cnpj] = true
			}
		}
		if len(row) > 0 {
			if name, ok := row[0].(string); ok && strings.EqualFold(strings.TrimSpace(name), companyName) {
				anchor = i
			}
		}
	}
	return existing, anchor, nil
}

func (s *SheetsSink) appendRows(ctx context.Context, rows [][]interface{}) error {
	_, err := s.svc.Spreadsheets.Values.Append(s.spreadsheetID, s.rangeRef(sheetsReadRange), &sheets.ValueRange{
		Values: rows,
	}).ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return &SinkError{Message: "append rows", Cause: err}
	}
	return nil
}

// insertRows opens a gap right below the anchor row and fills it.
func (s *SheetsSink) insertRows(ctx context.Context, anchor int, rows [][]interface{}) error {
	_, err := s.svc.Spreadsheets.BatchUpdate(s.spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			InsertDimension: &sheets.InsertDimensionRequest{
				Range: &sheets.DimensionRange{
					SheetId:    s.sheetID,
					Dimension:  "ROWS",
					StartIndex: int64(anchor + 1),
					EndIndex:   int64(anchor + 1 + len(rows)),
				},
				InheritFromBefore: true,
			},
		}},
	}).Context(ctx).Do()
	if err != nil {
		return &SinkError{Message: "insert branch rows", Cause: err}
	}

	target := s.rangeRef(fmt.Sprintf("A%d", anchor+2))
	_, err = s.svc.Spreadsheets.Values.Update(s.spreadsheetID, target, &sheets.ValueRange{
		Values: rows,
	}).ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return &SinkError{Message: "write branch rows", Cause: err}
	}
	return nil
}

func (s *SheetsSink) rangeRef(a1 string) string {
	return fmt.Sprintf("'%s'!%s", s.sheetTitle, a1)
}
