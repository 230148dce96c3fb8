package sink

import "github.com/joseph-ayodele/invoice-watcher/internal/parse"

// HeaderRow is the header written to a destination that has none yet: the
// record's field names in canonical order.
func HeaderRow() []any {
	cols := parse.Columns()
	row := make([]any, len(cols))
	for i, c := range cols {
		row[i] = c
	}
	return row
}

// ReconcileRow aligns a record to an established header: cells follow the
// header's column order, header columns the record lacks stay blank, and
// record fields absent from the header are dropped. The header itself is
// never reordered.
func ReconcileRow(header []string, rec parse.InvoiceRecord) []any {
	row := make([]any, len(header))
	for i, col := range header {
		if v, ok := rec.Value(col); ok {
			row[i] = v
		} else {
			row[i] = ""
		}
	}
	return row
}
