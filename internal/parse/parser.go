// Package parse turns extracted document text into a structured invoice
// record. Parsing is best-effort and total: every field falls back to a
// defined sentinel, and Parse never fails.
package parse

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Sentinel used when a field cannot be matched in the text.
const Unmatched = "N/A"

// Canonical sink column names, in append order. These stay stable so rows
// remain compatible with headers already established in existing sinks.
const (
	ColVendor        = "Vendor"
	ColInvoiceDate   = "Invoice Date"
	ColTotalAmount   = "Total Amount"
	ColProcessedTime = "Processed Time"
)

// Columns returns the canonical column order for a fresh sink header.
func Columns() []string {
	return []string{ColVendor, ColInvoiceDate, ColTotalAmount, ColProcessedTime}
}

// InvoiceRecord is the parse outcome for one document. Immutable once built.
type InvoiceRecord struct {
	Vendor        string
	InvoiceDate   string
	TotalAmount   float64
	ProcessedTime time.Time
}

// Value maps a canonical column name to the record's cell value. The bool
// reports whether the column belongs to this record at all; header columns
// the record lacks stay blank at the sink.
func (r InvoiceRecord) Value(column string) (any, bool) {
	switch column {
	case ColVendor:
		return r.Vendor, true
	case ColInvoiceDate:
		return r.InvoiceDate, true
	case ColTotalAmount:
		return r.TotalAmount, true
	case ColProcessedTime:
		return r.ProcessedTime.Format("2006-01-02 15:04:05"), true
	default:
		return nil, false
	}
}

// Label vocabularies are fixed; changing them would desync rows from headers
// already written by earlier runs.
var (
	amountRe      = regexp.MustCompile(`(?i)(?:Total|Amount Due|Balance)[\s:]*\$?\s?([\d,]+\.\d{2})`)
	vendorLabelRe = regexp.MustCompile(`(?i)(?:Vendor|Company|Supplier):?[ \t]*([^\n]+)`)
	dateRe        = regexp.MustCompile(`(?i)Date:?\s*(\d{1,2}/\d{1,2}/\d{4}|\d{4}-\d{2}-\d{2})`)
)

// Parser applies the pattern vocabulary to a text blob. It holds no state;
// the zero value is ready to use.
type Parser struct{}

func NewParser() Parser { return Parser{} }

// Parse extracts vendor, date and amount independently; one field failing to
// match never blocks the others.
func (Parser) Parse(text string) InvoiceRecord {
	return InvoiceRecord{
		Vendor:        parseVendor(text),
		InvoiceDate:   parseDate(text),
		TotalAmount:   parseAmount(text),
		ProcessedTime: time.Now(),
	}
}

func parseAmount(text string) float64 {
	m := amountRe.FindStringSubmatch(text)
	if m == nil {
		return 0.0
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
	if err != nil {
		return 0.0
	}
	return v
}

func parseVendor(text string) string {
	if m := vendorLabelRe.FindStringSubmatch(text); m != nil {
		if v := strings.TrimSpace(m[1]); v != "" {
			return v
		}
	}
	// Invoices commonly lead with the issuer's name.
	for _, line := range strings.Split(text, "\n") {
		if v := strings.TrimSpace(line); v != "" {
			return v
		}
	}
	return Unmatched
}

func parseDate(text string) string {
	if m := dateRe.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	return Unmatched
}
