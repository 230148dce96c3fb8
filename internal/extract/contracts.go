package extract

import (
	"context"
	"time"
)

// TextExtractor is Stage 1: document -> text.
type TextExtractor interface {
	Extract(ctx context.Context, path string) (Result, error)
}

type Result struct {
	Text     string
	Pages    int
	OCRPages []int  // 1-based page numbers that needed OCR fallback
	Method   string // "pdf-text" | "pdf-text+ocr"
	Duration time.Duration
	Warnings []string
}
