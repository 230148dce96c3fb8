// Package sink appends parsed invoice records to a tabular destination,
// reconciling each row against the destination's existing column header.
package sink

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/joseph-ayodele/invoice-watcher/internal/common"
	"github.com/joseph-ayodele/invoice-watcher/internal/parse"
)

// Appender is Stage 3: record -> sink row. Implementations report failures;
// they never retry — reprocessing a file is an operator action.
type Appender interface {
	Append(ctx context.Context, rec parse.InvoiceRecord) error
	Destination() string
}

// New resolves a destination string to a concrete backend: a Google Sheets
// URL or a local .xlsx workbook path.
func New(cfg common.SinkConfig, dest string, logger *slog.Logger) (Appender, error) {
	switch {
	case strings.Contains(dest, "/spreadsheets/d/"):
		return NewSheets(cfg, dest, logger)
	case strings.HasSuffix(strings.ToLower(dest), ".xlsx"):
		return NewXLSX(dest, cfg.WorksheetName, logger), nil
	default:
		return nil, fmt.Errorf("%w: unsupported destination %q", common.ErrSinkUnavailable, dest)
	}
}
