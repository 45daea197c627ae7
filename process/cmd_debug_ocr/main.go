package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"idscan/pkg/ocr"
)

func main() {
	f := flag.String("file", "", "image file to OCR")
	lang := flag.String("lang", "eng", "tesseract language")
	textOnly := flag.Bool("text", false, "extract fields from a text file instead of an image")
	flag.Parse()
	if *f == "" {
		log.Fatalf("-file required")
	}

	var res ocr.Result
	if *textOnly {
		raw, err := os.ReadFile(*f)
		if err != nil {
			log.Fatalf("read: %v", err)
		}
		res = ocr.Result{Text: string(raw), Record: ocr.Extract(string(raw))}
	} else {
		var err error
		res, err = ocr.ProcessFile(*f, ocr.NewTesseract(*lang))
		if err != nil {
			log.Fatalf("ocr error: %v", err)
		}
	}
	fmt.Printf("--- text ---\n%s\n--- fields ---\n", res.Text)
	for _, field := range ocr.Fields() {
		if v, ok := res.Record[field]; ok {
			fmt.Printf("%-16s %q\n", field, v)
		}
	}
	out, _ := json.MarshalIndent(res.Record, "", "  ")
	fmt.Printf("--- json ---\n%s\n", out)
}
