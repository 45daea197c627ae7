package ocr

import (
	"fmt"

	"github.com/otiai10/gosseract/v2"
)

// Recognizer turns a normalized image into plain text. Any text, including the
// empty string, is a valid result.
type Recognizer interface {
	Recognize(img []byte) (string, error)
}

// Tesseract recognizes text with a local Tesseract install through gosseract.
// A fresh client is created per call since gosseract clients are not safe for
// concurrent use. TESSDATA_PREFIX is honored by Tesseract itself.
type Tesseract struct {
	Language    string
	PageSegMode gosseract.PageSegMode
}

// NewTesseract returns a recognizer for lang ("eng" when empty) using automatic
// page segmentation.
func NewTesseract(lang string) *Tesseract {
	if lang == "" {
		lang = "eng"
	}
	return &Tesseract{Language: lang, PageSegMode: gosseract.PSM_AUTO}
}

func (t *Tesseract) Recognize(img []byte) (string, error) {
	client := gosseract.NewClient()
	defer client.Close()
	if err := client.SetLanguage(t.Language); err != nil {
		return "", fmt.Errorf("set language %q: %w", t.Language, err)
	}
	if err := client.SetPageSegMode(t.PageSegMode); err != nil {
		return "", fmt.Errorf("set page segmentation mode: %w", err)
	}
	if err := client.SetImageFromBytes(img); err != nil {
		return "", fmt.Errorf("set image: %w", err)
	}
	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("tesseract: %w", err)
	}
	return text, nil
}
