package ocr

import (
	"bytes"
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

// Threshold is the luminance cutoff used by Normalize. Values above it map to white.
const Threshold uint8 = 128

var errEmptyImage = errors.New("empty input")

// Normalize decodes raw image bytes, converts them to luminance and binarizes at
// Threshold. The result is a PNG encoded single-channel image with the same
// dimensions as the input. Undecodable input yields a *DecodeError.
func Normalize(raw []byte) ([]byte, error) {
	if len(raw) == 0 {
		return nil, &DecodeError{Err: errEmptyImage}
	}
	img, err := imaging.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, &DecodeError{Err: err}
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, NormalizeImage(img), imaging.PNG); err != nil {
		return nil, fmt.Errorf("encode normalized image: %w", err)
	}
	return buf.Bytes(), nil
}

// NormalizeImage is the pixel transform behind Normalize.
func NormalizeImage(img image.Image) *image.Gray {
	return binarize(imaging.Grayscale(img), Threshold)
}
