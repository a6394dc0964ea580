package report

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"aulabot/internal/ledger"
)

// SheetsPublisher mirrors the booking ledger into a Google Sheets
// spreadsheet shared with whoever wants to see the schedule.
type SheetsPublisher struct {
	service       *sheets.Service
	spreadsheetID string
	sheetName     string
}

// NewSheetsPublisher authenticates with a service-account credentials
// file and targets one sheet of the given spreadsheet.
func NewSheetsPublisher(ctx context.Context, credentialsFile, spreadsheetID, sheetName string) (*SheetsPublisher, error) {
	data, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read sheets credentials: %w", err)
	}
	conf, err := google.JWTConfigFromJSON(data, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("parse sheets credentials: %w", err)
	}
	service, err := sheets.NewService(ctx, option.WithTokenSource(conf.TokenSource(ctx)))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	if sheetName == "" {
		sheetName = "Bookings"
	}
	return &SheetsPublisher{
		service:       service,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
	}, nil
}

// Publish replaces the sheet contents with the current ledger entries.
func (p *SheetsPublisher) Publish(ctx context.Context, entries []ledger.Entry) error {
	clearRange := p.sheetName + "!A:Z"
	if _, err := p.service.Spreadsheets.Values.
		Clear(p.spreadsheetID, clearRange, &sheets.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear sheet: %w", err)
	}

	values := make([][]interface{}, 0, len(entries)+1)
	headerRow := make([]interface{}, len(header))
	for i, h := range header {
		headerRow[i] = h
	}
	values = append(values, headerRow)
	for _, e := range entries {
		values = append(values, entryRowValues(e))
	}

	vr := &sheets.ValueRange{Values: values}
	if _, err := p.service.Spreadsheets.Values.
		Update(p.spreadsheetID, p.sheetName+"!A1", vr).
		ValueInputOption("RAW").
		Context(ctx).Do(); err != nil {
		return fmt.Errorf("update sheet: %w", err)
	}
	return nil
}
