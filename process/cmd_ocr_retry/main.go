package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"idscan/pkg/dbconn"
	"idscan/pkg/ocr"
	"idscan/process/retry"
)

func main() {
	_ = godotenv.Load()
	user := flag.String("user", "", "username to retry (empty: all users)")
	base := flag.String("base", os.Getenv("UPLOAD_BASE"), "base dir for relative store paths")
	enhance := flag.Bool("enhance", true, "sharpen and boost contrast before OCR")
	dry := flag.Bool("dry-run", false, "run OCR but don't write to DB")
	lang := flag.String("lang", "eng", "tesseract language")
	flag.Parse()

	if *base == "" {
		*base = "uploads"
	}
	gdb, err := dbconn.OpenFromEnv()
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	st, err := retry.Run(gdb, ocr.NewTesseract(*lang), retry.Options{Username: *user, BaseDir: *base, Enhance: *enhance, DryRun: *dry})
	if err != nil {
		log.Fatalf("retry failed: %v", err)
	}
	fmt.Printf("candidates=%d recovered=%d failed=%d\n", st.Candidates, st.Recovered, st.Failed)
}
