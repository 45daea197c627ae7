package ocr

import (
	"image"
	"image/color"
)

// binarize performs a simple global threshold on a grayscale image produced by
// imaging.Grayscale. Only the red channel is read (all three are equal) and alpha
// is ignored. Pixels above threshold become white, the rest black.
func binarize(img *image.NRGBA, threshold uint8) *image.Gray {
	b := img.Bounds()
	out := image.NewGray(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			lum := img.Pix[img.PixOffset(x, y)]
			var v uint8 = 255
			if lum <= threshold {
				v = 0
			}
			out.SetGray(x, y, color.Gray{Y: v})
		}
	}
	return out
}
