package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	"github.com/joho/godotenv"
	"gorm.io/gorm"

	"idscan/models"
	"idscan/pkg/dbconn"
	"idscan/pkg/ocr"
)

// global flags (parsed in main)
var (
	verbose     bool
	simulateOCR bool
)

// Main: scans a directory of document images, creates Upload rows, runs OCR to create Documents, optional watch mode.
func main() {
	_ = godotenv.Load()
	dirFlag := flag.String("dir", "public/scans", "directory to scan for document images")
	username := flag.String("user", "admin", "username that owns the created uploads and documents")
	processed := flag.String("processed-dir", filepath.Join("public", "processed"), "where scanned files are moved")
	lang := flag.String("lang", "eng", "tesseract language")
	dryRun := flag.Bool("dry-run", false, "Skip all DB queries and writes; just list / optionally OCR (see --simulate-ocr)")
	watch := flag.Bool("watch", false, "Watch directory for new files")
	workers := flag.Int("workers", 0, "Worker pool size (default NumCPU)")
	flag.BoolVar(&verbose, "verbose", false, "Verbose per-file logging")
	flag.BoolVar(&simulateOCR, "simulate-ocr", false, "In dry-run: actually run OCR and print the extracted fields")
	flag.Parse()

	rec := ocr.NewTesseract(*lang)

	if *dryRun {
		log.Printf("Dry-run: scanning %s (no DB interaction)", *dirFlag)
		files := listImageFiles(*dirFlag)
		log.Printf("Found %d candidate files", len(files))
		if simulateOCR {
			for _, f := range files {
				res, err := ocr.ProcessFile(filepath.Join(*dirFlag, f), rec)
				if err != nil {
					log.Printf("OCR fail %s: %v", f, err)
					continue
				}
				out, _ := json.Marshal(res.Record)
				fmt.Printf("%s %s\n", f, out)
			}
		}
		return
	}

	gdb, err := dbconn.OpenFromEnv()
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	owner := resolveUser(gdb, *username)
	s := newScanner(gdb, rec, owner, *dirFlag, *processed)
	s.preload()
	log.Printf("Preloaded: uploads=%d documents=%d", len(s.ps.uploadsByFile), len(s.ps.documentByUpload))

	files := listImageFiles(*dirFlag)
	n := effectiveWorkers(*workers)
	log.Printf("Scanning %d files (workers=%d)", len(files), n)
	s.runWorkerPool(files, n)

	if *watch {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		if err := s.watchDirectory(ctx, n); err != nil {
			log.Fatalf("watch failed: %v", err)
		}
	}
}

func effectiveWorkers(w int) int {
	if w <= 0 {
		return runtime.NumCPU()
	}
	return w
}

func logV(format string, args ...any) {
	if verbose {
		log.Printf(format, args...)
	}
}

// resolveUser finds the owning user by name.
func resolveUser(gdb *gorm.DB, username string) models.User {
	var u models.User
	if err := gdb.Where("username = ?", username).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Fatalf("user %q not found; create it with cmd/create_user", username)
		}
		log.Fatalf("failed to find user %q: %v", username, err)
	}
	return u
}
