package ocr

import (
	"image/color"
	"os"
	"testing"

	"github.com/disintegration/imaging"
)

func TestTesseractBlankImage(t *testing.T) {
	// needs a local tesseract + tessdata; opt-in like the DB integration tests
	if os.Getenv("OCR_TEST") != "1" {
		t.Skip("tesseract tests are disabled; set OCR_TEST=1 to enable")
	}
	raw := encodeTestImage(t, imaging.New(400, 200, color.NRGBA{255, 255, 255, 255}), imaging.PNG)
	res, err := Process(raw, NewTesseract(""))
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if res.Record[FieldRestrictions] != "NONE" {
		t.Fatalf("expected RSTR default got %v", res.Record)
	}
}
