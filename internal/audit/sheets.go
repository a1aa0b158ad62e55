package audit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

const spreadsheetMimeType = "application/vnd.google-apps.spreadsheet"

// SheetsConfig locates the worksheet rows are appended to. SpreadsheetID wins
// over SpreadsheetName; a name is resolved through Drive once at startup.
type SheetsConfig struct {
	CredentialsJSON []byte
	SpreadsheetID   string
	SpreadsheetName string
	Worksheet       string
}

// Sheets appends rows to a Google Sheets worksheet.
type Sheets struct {
	values        *sheets.SpreadsheetsValuesService
	spreadsheetID string
	worksheet     string
}

func NewSheets(ctx context.Context, cfg SheetsConfig) (*Sheets, error) {
	if len(cfg.CredentialsJSON) == 0 {
		return nil, errors.New("sheets: no service account credentials")
	}
	return newSheets(ctx, cfg,
		option.WithCredentialsJSON(cfg.CredentialsJSON),
		option.WithScopes(sheets.SpreadsheetsScope, drive.DriveMetadataReadonlyScope),
	)
}

func newSheets(ctx context.Context, cfg SheetsConfig, opts ...option.ClientOption) (*Sheets, error) {
	if cfg.Worksheet == "" {
		return nil, errors.New("sheets: worksheet name is required")
	}

	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating sheets service: %w", err)
	}

	id := cfg.SpreadsheetID
	if id == "" {
		d, err := drive.NewService(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("creating drive service: %w", err)
		}
		id, err = findSpreadsheet(ctx, d, cfg.SpreadsheetName)
		if err != nil {
			return nil, err
		}
	}

	return &Sheets{
		values:        svc.Spreadsheets.Values,
		spreadsheetID: id,
		worksheet:     cfg.Worksheet,
	}, nil
}

// findSpreadsheet returns the ID of the first spreadsheet named name that
// the service account can see.
func findSpreadsheet(ctx context.Context, d *drive.Service, name string) (string, error) {
	if name == "" {
		return "", errors.New("sheets: spreadsheet id or name is required")
	}
	q := fmt.Sprintf("name = '%s' and mimeType = '%s' and trashed = false",
		strings.ReplaceAll(name, "'", `\'`), spreadsheetMimeType)

	list, err := d.Files.List().Q(q).Fields("files(id, name)").PageSize(1).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("looking up spreadsheet %q: %w", name, err)
	}
	if len(list.Files) == 0 {
		return "", fmt.Errorf("sheets: spreadsheet %q not found or not shared with the service account", name)
	}
	return list.Files[0].Id, nil
}

// sheetRange quotes a worksheet name for use as an A1 range, so names with
// spaces or '!' are read as one sheet. A quote inside the name is doubled.
func sheetRange(worksheet string) string {
	return "'" + strings.ReplaceAll(worksheet, "'", "''") + "'"
}

func (s *Sheets) AppendRow(ctx context.Context, row Row) error {
	vr := &sheets.ValueRange{
		Values: [][]interface{}{{
			row.Timestamp.Format(time.RFC3339),
			row.UserID,
			row.UserText,
			row.BotText,
		}},
	}
	_, err := s.values.Append(s.spreadsheetID, sheetRange(s.worksheet), vr).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("appending to %s/%s: %w", s.spreadsheetID, s.worksheet, err)
	}
	return nil
}
