package sink

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"sync"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/joseph-ayodele/invoice-watcher/internal/common"
	"github.com/joseph-ayodele/invoice-watcher/internal/parse"
)

var spreadsheetIDRe = regexp.MustCompile(`/spreadsheets/d/([a-zA-Z0-9_-]+)`)

// SpreadsheetIDFromURL extracts the document ID from a Google Sheets URL.
func SpreadsheetIDFromURL(url string) (string, error) {
	m := spreadsheetIDRe.FindStringSubmatch(url)
	if m == nil {
		return "", fmt.Errorf("no spreadsheet id in %q", url)
	}
	return m[1], nil
}

// Sheets appends rows to a Google Sheets worksheet through the Sheets API.
// Authentication is deferred to the first append so a missing credentials
// file surfaces as a per-file sink error, not a start-watching failure.
type Sheets struct {
	credentialsPath string
	spreadsheetID   string
	worksheet       string
	destination     string
	logger          *slog.Logger

	// mu serializes appends so two concurrent documents cannot race to
	// create the header row.
	mu  sync.Mutex
	svc *sheets.Service
}

func NewSheets(cfg common.SinkConfig, sheetURL string, logger *slog.Logger) (*Sheets, error) {
	if logger == nil {
		logger = slog.Default()
	}
	id, err := SpreadsheetIDFromURL(sheetURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrSinkUnavailable, err)
	}
	worksheet := cfg.WorksheetName
	if worksheet == "" {
		worksheet = "Sheet1"
	}
	return &Sheets{
		credentialsPath: cfg.CredentialsPath,
		spreadsheetID:   id,
		worksheet:       worksheet,
		destination:     sheetURL,
		logger:          logger,
	}, nil
}

func (s *Sheets) Destination() string { return s.destination }

func (s *Sheets) ensureService(ctx context.Context) error {
	if s.svc != nil {
		return nil
	}
	if _, err := os.Stat(s.credentialsPath); err != nil {
		return fmt.Errorf("%w: credentials file %q: %v", common.ErrSinkUnavailable, s.credentialsPath, err)
	}
	svc, err := sheets.NewService(ctx,
		option.WithCredentialsFile(s.credentialsPath),
		option.WithScopes(sheets.SpreadsheetsScope),
	)
	if err != nil {
		return fmt.Errorf("%w: sheets auth: %v", common.ErrSinkUnavailable, err)
	}
	s.svc = svc
	return nil
}

// Append reads the worksheet's first row as the header, establishing it from
// the record's field names when absent, and appends the reconciled row using
// USER_ENTERED so the sink applies its own value typing to dates and numbers.
func (s *Sheets) Append(ctx context.Context, rec parse.InvoiceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureService(ctx); err != nil {
		return err
	}

	headerRange := fmt.Sprintf("%s!1:1", s.worksheet)
	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, headerRange).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("%w: read header: %v", common.ErrSinkWrite, err)
	}

	var header []string
	if len(resp.Values) > 0 {
		for _, cell := range resp.Values[0] {
			header = append(header, fmt.Sprintf("%v", cell))
		}
	}

	if len(header) == 0 {
		vr := &sheets.ValueRange{Values: [][]any{HeaderRow(), ReconcileRow(headerStrings(), rec)}}
		_, err = s.svc.Spreadsheets.Values.
			Update(s.spreadsheetID, fmt.Sprintf("%s!A1", s.worksheet), vr).
			ValueInputOption("USER_ENTERED").
			Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("%w: write header: %v", common.ErrSinkWrite, err)
		}
		s.logger.Info("sink header established", "spreadsheet_id", s.spreadsheetID, "worksheet", s.worksheet)
		return nil
	}

	vr := &sheets.ValueRange{Values: [][]any{ReconcileRow(header, rec)}}
	_, err = s.svc.Spreadsheets.Values.
		Append(s.spreadsheetID, fmt.Sprintf("%s!A1", s.worksheet), vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("%w: append row: %v", common.ErrSinkWrite, err)
	}
	return nil
}

func headerStrings() []string {
	return parse.Columns()
}
