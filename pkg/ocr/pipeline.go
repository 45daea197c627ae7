package ocr

import (
	"fmt"
	"log"
	"os"
	"strings"
)

// Result is the outcome of running the full pipeline on one image.
type Result struct {
	Text   string
	Record Record
}

// Process normalizes raw image bytes, recognizes text with rec and extracts the
// document fields. Decode failures are returned as *DecodeError.
func Process(raw []byte, rec Recognizer) (Result, error) {
	norm, err := Normalize(raw)
	if err != nil {
		return Result{}, err
	}
	text, err := rec.Recognize(norm)
	if err != nil {
		return Result{}, fmt.Errorf("ocr: %w", err)
	}
	record := Extract(text)
	log.Printf("OCR RAW snippet=%q fields=%d", logSnippet(text, 180), len(record))
	return Result{Text: text, Record: record}, nil
}

// ProcessFile reads the image at path and runs Process on it.
func ProcessFile(path string, rec Recognizer) (Result, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Result{}, fmt.Errorf("read image: %w", err)
	}
	return Process(raw, rec)
}

// logSnippet flattens text onto one line and cuts it to at most max runes.
func logSnippet(text string, max int) string {
	flat := []rune(strings.Join(strings.Fields(text), " "))
	if len(flat) <= max {
		return string(flat)
	}
	return string(flat[:max]) + "…"
}
