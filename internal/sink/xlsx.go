package sink

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sync"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/invoice-watcher/internal/common"
	"github.com/joseph-ayodele/invoice-watcher/internal/parse"
)

// XLSX appends rows to a local Excel workbook. It exists for offline use and
// for exercising the full append/reconcile path without remote credentials.
type XLSX struct {
	path      string
	worksheet string
	logger    *slog.Logger

	mu sync.Mutex // serializes appends; also guards header creation
}

func NewXLSX(path, worksheet string, logger *slog.Logger) *XLSX {
	if logger == nil {
		logger = slog.Default()
	}
	if worksheet == "" {
		worksheet = "Sheet1"
	}
	return &XLSX{path: path, worksheet: worksheet, logger: logger}
}

func (x *XLSX) Destination() string { return x.path }

func (x *XLSX) Append(_ context.Context, rec parse.InvoiceRecord) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	f, created, err := x.open()
	if err != nil {
		return err
	}
	defer func() {
		if err := f.Close(); err != nil {
			x.logger.Warn("failed to close workbook", "path", x.path, "error", err)
		}
	}()

	rows, err := f.GetRows(x.worksheet)
	if err != nil {
		return fmt.Errorf("%w: read worksheet %q: %v", common.ErrSinkWrite, x.worksheet, err)
	}

	if len(rows) == 0 || len(rows[0]) == 0 {
		if err := x.writeRow(f, 1, HeaderRow()); err != nil {
			return err
		}
		if err := x.writeRow(f, 2, ReconcileRow(parse.Columns(), rec)); err != nil {
			return err
		}
	} else {
		header := rows[0]
		if err := x.writeRow(f, len(rows)+1, ReconcileRow(header, rec)); err != nil {
			return err
		}
	}

	if err := f.SaveAs(x.path); err != nil {
		return fmt.Errorf("%w: save %q: %v", common.ErrSinkWrite, x.path, err)
	}
	if created {
		x.logger.Info("sink workbook created", "path", x.path, "worksheet", x.worksheet)
	}
	return nil
}

func (x *XLSX) open() (*excelize.File, bool, error) {
	if _, err := os.Stat(x.path); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, false, fmt.Errorf("%w: stat %q: %v", common.ErrSinkUnavailable, x.path, err)
		}
		f := excelize.NewFile()
		if x.worksheet != "Sheet1" {
			if _, err := f.NewSheet(x.worksheet); err != nil {
				return nil, false, fmt.Errorf("%w: create worksheet %q: %v", common.ErrSinkWrite, x.worksheet, err)
			}
		}
		return f, true, nil
	}
	f, err := excelize.OpenFile(x.path)
	if err != nil {
		return nil, false, fmt.Errorf("%w: open %q: %v", common.ErrSinkUnavailable, x.path, err)
	}
	if idx, _ := f.GetSheetIndex(x.worksheet); idx == -1 {
		if _, err := f.NewSheet(x.worksheet); err != nil {
			return nil, false, fmt.Errorf("%w: create worksheet %q: %v", common.ErrSinkWrite, x.worksheet, err)
		}
	}
	return f, false, nil
}

func (x *XLSX) writeRow(f *excelize.File, rowNum int, row []any) error {
	cell, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrSinkWrite, err)
	}
	if err := f.SetSheetRow(x.worksheet, cell, &row); err != nil {
		return fmt.Errorf("%w: write row %d: %v", common.ErrSinkWrite, rowNum, err)
	}
	return nil
}
