package export

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"fintrack/internal/gcp"
	applog "fintrack/internal/log"

	gsheet "google.golang.org/api/sheets/v4"
)

const DefaultReportSheet = "Report"

// Exporter publishes a report and returns a reference to where it landed.
type Exporter interface {
	Export(ctx context.Context, r Report) (string, error)
}

// SheetsExporter overwrites one sheet of a Google spreadsheet with the report.
type SheetsExporter struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheet         string
	logger        *applog.Logger
}

var (
	_ Exporter = (*SheetsExporter)(nil)
	_ Exporter = (*MemoryExporter)(nil)
)

func NewSheetsExporter(ctx context.Context, spreadsheetID, sheet string, creds gcp.Config, logger *applog.Logger) (*SheetsExporter, error) {
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	if sheet == "" {
		sheet = DefaultReportSheet
	}
	opts, err := gcp.ClientOptions(ctx, creds, gsheet.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("sheets credentials: %w", err)
	}
	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return &SheetsExporter{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheet:         sheet,
		logger:        logger.WithComponent(applog.ComponentExport),
	}, nil
}

// Export clears the report sheet and writes the report from A1.
func (e *SheetsExporter) Export(ctx context.Context, r Report) (string, error) {
	_, err := e.svc.Spreadsheets.Values.Clear(e.spreadsheetID, e.sheet, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do()
	if err != nil {
		e.logger.ErrorContext(ctx, "Failed to clear report sheet", "sheet", e.sheet, applog.FieldError, err)
		return "", fmt.Errorf("clear sheet %s: %w", e.sheet, err)
	}

	rows := Rows(r)
	vr := &gsheet.ValueRange{Values: rows}
	resp, err := e.svc.Spreadsheets.Values.Update(e.spreadsheetID, e.sheet+"!A1", vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		e.logger.ErrorContext(ctx, "Failed to write report", "sheet", e.sheet, applog.FieldError, err)
		return "", fmt.Errorf("write sheet %s: %w", e.sheet, err)
	}

	e.logger.InfoContext(ctx, "Report exported",
		applog.FieldOperation, applog.OpExport,
		applog.FieldPeriod, r.Period,
		"range", resp.UpdatedRange,
		"rows", len(rows))
	return resp.UpdatedRange, nil
}

// MemoryExporter keeps exported reports in memory.
type MemoryExporter struct {
	mu      sync.Mutex
	reports []Report
}

func NewMemoryExporter() *MemoryExporter {
	return &MemoryExporter{}
}

func (m *MemoryExporter) Export(_ context.Context, r Report) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reports = append(m.reports, r)
	return fmt.Sprintf("mem:%d", len(m.reports)), nil
}

// Last returns the most recent report, if any.
func (m *MemoryExporter) Last() (Report, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.reports) == 0 {
		return Report{}, false
	}
	return m.reports[len(m.reports)-1], true
}
