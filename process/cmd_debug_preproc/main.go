package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/disintegration/imaging"

	"idscan/pkg/ocr"
)

func main() {
	in := flag.String("file", "", "image file to normalize")
	out := flag.String("out", "", "output PNG (default <file>.ocr.png)")
	enhance := flag.Bool("enhance", false, "sharpen and boost contrast first, as the retry tool does")
	flag.Parse()
	if *in == "" {
		log.Fatalf("-file required")
	}
	if *out == "" {
		*out = strings.TrimSuffix(*in, ".png") + ".ocr.png"
	}

	img, err := imaging.Open(*in)
	if err != nil {
		log.Fatalf("open: %v", err)
	}
	if *enhance {
		img = imaging.Sharpen(img, 2.0)
		img = imaging.AdjustContrast(img, 30)
	}
	gray := ocr.NormalizeImage(img)
	if err := imaging.Save(gray, *out); err != nil {
		log.Fatalf("save: %v", err)
	}

	black := 0
	for _, p := range gray.Pix {
		if p == 0 {
			black++
		}
	}
	total := len(gray.Pix)
	fmt.Fprintf(os.Stdout, "wrote %s %dx%d threshold=%d black=%.1f%%\n", *out, gray.Bounds().Dx(), gray.Bounds().Dy(), ocr.Threshold, 100*float64(black)/float64(max(total, 1)))
}
