package main

import (
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"idscan/pkg/ocr"

	"github.com/gin-gonic/gin"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
)

var jwtSecret []byte // loaded from env JWT_SECRET (fallback to dev default)

// recognizer runs OCR for uploads. Tests swap in a stub.
var recognizer ocr.Recognizer

func main() {
	// ./.env is optional and never overrides variables already set
	_ = godotenv.Load()
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		secret = "dev-insecure-secret-change" // development fallback
	}
	jwtSecret = []byte(secret)

	if runSubcommand(os.Args[1:], os.Stdout) {
		return
	}

	initDB()
	recognizer = ocr.NewTesseract(ocrLanguage())

	r := gin.Default()
	setupRoutes(r)

	srv := &http.Server{
		Addr:              listenAddr(),
		Handler:           withCORS(r),
		ReadHeaderTimeout: 10 * time.Second,
	}
	log.Printf("listening on %s (ocr lang=%s timeout=%s)", srv.Addr, ocrLanguage(), ocrTimeout())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("server: %v", err)
	}
}

// runSubcommand handles one-shot commands and reports whether args named one.
// `./idscan migrate` runs AutoMigrate and seeding then exits.
func runSubcommand(args []string, out io.Writer) bool {
	if len(args) == 0 || args[0] != "migrate" {
		return false
	}
	initDB()
	fmt.Fprintln(out, "migration and seeding completed")
	return true
}

// withCORS lets browser front-ends on other origins call the API.
func withCORS(h http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins: corsOrigins(),
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	})(h)
}
