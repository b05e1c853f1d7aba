package sheets

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"

	"github.com/DoyleJ11/scrim-draft-analyzer/internal/report"
)

const DefaultSheetName = "Draft Data"

var ErrNoSpreadsheet = errors.New("spreadsheet id not set")

// Sink appends report rows to one sheet of a Google spreadsheet.
type Sink struct {
	svc           *gsheets.Service
	spreadsheetID string
	sheetName     string
	logger        *zap.Logger
}

var _ report.Sink = (*Sink)(nil)

// NewService builds a Sheets client. Pass option.WithCredentialsFile for a
// service account, or test endpoints.
func NewService(ctx context.Context, opts ...option.ClientOption) (*gsheets.Service, error) {
	svc, err := gsheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("sheets client: %w", err)
	}
	return svc, nil
}

func NewSink(svc *gsheets.Service, spreadsheetID, sheetName string, logger *zap.Logger) (*Sink, error) {
	if spreadsheetID == "" {
		return nil, ErrNoSpreadsheet
	}
	if sheetName == "" {
		sheetName = DefaultSheetName
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sink{svc: svc, spreadsheetID: spreadsheetID, sheetName: sheetName, logger: logger}, nil
}

func (s *Sink) a1(cell string) string {
	return "'" + strings.ReplaceAll(s.sheetName, "'", "''") + "'!" + cell
}

// Append writes rows after the last used row of column A. An empty sheet
// gets the header first.
func (s *Sink) Append(ctx context.Context, rows []report.Row) error {
	if len(rows) == 0 {
		return nil
	}

	existing, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, s.a1("A:A")).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("%w: read sheet: %v", report.ErrSinkWrite, err)
	}

	values := make([][]interface{}, 0, len(rows)+1)
	start := len(existing.Values) + 1
	if len(existing.Values) == 0 {
		values = append(values, report.Header().Values())
		start = 1
	}
	for _, r := range rows {
		values = append(values, r.Values())
	}

	resp, err := s.svc.Spreadsheets.Values.
		Update(s.spreadsheetID, s.a1(fmt.Sprintf("A%d", start)), &gsheets.ValueRange{Values: values}).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("%w: update sheet: %v", report.ErrSinkWrite, err)
	}
	s.logger.Info("updated sheet",
		zap.String("sheet", s.sheetName), zap.Int64("rows", resp.UpdatedRows))
	return nil
}

// CreateSpreadsheet creates a spreadsheet with a single sheet named
// sheetName and returns its id.
func CreateSpreadsheet(ctx context.Context, svc *gsheets.Service, title, sheetName string) (string, error) {
	if sheetName == "" {
		sheetName = DefaultSheetName
	}
	ss, err := svc.Spreadsheets.Create(&gsheets.Spreadsheet{
		Properties: &gsheets.SpreadsheetProperties{Title: title},
		Sheets: []*gsheets.Sheet{
			{Properties: &gsheets.SheetProperties{Title: sheetName}},
		},
	}).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("create spreadsheet: %w", err)
	}
	return ss.SpreadsheetId, nil
}
