package sheets

import (
	"context"
	"fmt"
	"os"
	"strings"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/user/goldwatch/internal/entity"
	"github.com/user/goldwatch/internal/repository"
)

const (
	dateTitle        = "Date"
	valueInputOption = "RAW"
)

var _ repository.Sink = (*SinkImpl)(nil)

// SinkImpl appends records as rows of a named tab in a Google spreadsheet.
type SinkImpl struct {
	srv           *sheets.Service
	spreadsheetID string
	tab           string
	schema        *entity.Schema
}

// CredentialsFromFile loads a service-account key file for the spreadsheets scope.
func CredentialsFromFile(ctx context.Context, path string) (option.ClientOption, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read credentials file: %w", err)
	}
	creds, err := google.CredentialsFromJSON(ctx, data, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}
	return option.WithCredentials(creds), nil
}

// NewSink creates a spreadsheet sink. opts are passed to the Sheets client,
// typically the result of CredentialsFromFile.
func NewSink(ctx context.Context, spreadsheetID, tab string, schema *entity.Schema, opts ...option.ClientOption) (*SinkImpl, error) {
	srv, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return &SinkImpl{
		srv:           srv,
		spreadsheetID: spreadsheetID,
		tab:           tab,
		schema:        schema,
	}, nil
}

func (s *SinkImpl) Name() string { return "sheets" }

// EnsureSchema adds the tab when it is missing and writes the header row
// when row 1 is empty.
func (s *SinkImpl) EnsureSchema(ctx context.Context) error {
	if err := s.ensureTab(ctx); err != nil {
		return err
	}

	headerRange := s.rangeOf("A1:" + s.lastColumn() + "1")
	existing, err := s.srv.Spreadsheets.Values.Get(s.spreadsheetID, headerRange).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read header row: %w", err)
	}
	if len(existing.Values) > 0 && len(existing.Values[0]) > 0 {
		return nil
	}

	header := &sheets.ValueRange{Values: [][]any{toRow(s.headerRow())}}
	if _, err := s.srv.Spreadsheets.Values.Update(s.spreadsheetID, headerRange, header).
		ValueInputOption(valueInputOption).Context(ctx).Do(); err != nil {
		return fmt.Errorf("write header row: %w", err)
	}
	return nil
}

// Append adds one row after the last non-empty row and returns the updated range.
func (s *SinkImpl) Append(ctx context.Context, record *entity.Record) (string, error) {
	row := append([]string{entity.FormatTimestamp(record.ObservedAt)}, record.Values...)
	values := &sheets.ValueRange{Values: [][]any{toRow(row)}}

	resp, err := s.srv.Spreadsheets.Values.Append(s.spreadsheetID, s.rangeOf("A:"+s.lastColumn()), values).
		ValueInputOption(valueInputOption).
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("append row: %w", err)
	}
	if resp.Updates != nil {
		return resp.Updates.UpdatedRange, nil
	}
	return "", nil
}

func (s *SinkImpl) ensureTab(ctx context.Context) error {
	spreadsheet, err := s.srv.Spreadsheets.Get(s.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("get spreadsheet: %w", err)
	}
	for _, sheet := range spreadsheet.Sheets {
		if sheet.Properties != nil && sheet.Properties.Title == s.tab {
			return nil
		}
	}

	req := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			AddSheet: &sheets.AddSheetRequest{
				Properties: &sheets.SheetProperties{Title: s.tab},
			},
		}},
	}
	if _, err := s.srv.Spreadsheets.BatchUpdate(s.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("add tab %q: %w", s.tab, err)
	}
	return nil
}

func (s *SinkImpl) headerRow() []string {
	return append([]string{dateTitle}, s.schema.Titles()...)
}

func (s *SinkImpl) lastColumn() string {
	return columnName(s.schema.Len() + 1)
}

// rangeOf prefixes an A1 range with the quoted tab name.
func (s *SinkImpl) rangeOf(cells string) string {
	return "'" + strings.ReplaceAll(s.tab, "'", "''") + "'!" + cells
}

// columnName converts a 1-based column index to its A1 letters.
func columnName(n int) string {
	var name []byte
	for n > 0 {
		n--
		name = append([]byte{byte('A' + n%26)}, name...)
		n /= 26
	}
	return string(name)
}

func toRow(values []string) []any {
	row := make([]any, len(values))
	for i, v := range values {
		row[i] = v
	}
	return row
}
