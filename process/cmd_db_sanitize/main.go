package main

import (
	"flag"
	"log"
	"os"

	"github.com/joho/godotenv"

	"idscan/pkg/dbconn"
	"idscan/process/sanitize"
)

func main() {
	_ = godotenv.Load()
	var (
		dryRun = flag.Bool("dry-run", true, "Don't perform destructive actions; show what would be done")
		yes    = flag.Bool("yes", false, "Confirm destructive action (required to actually truncate)")
		reseed = flag.Bool("reseed", false, "After truncation, reseed master roles and the admin user")
		tables = flag.String("tables", sanitize.DefaultTables, "Comma-separated list of tables to truncate (default app tables)")
	)
	flag.Parse()

	gdb, err := dbconn.OpenFromEnv()
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	pw := os.Getenv("ADMIN_PASSWORD")
	if pw == "" {
		pw = "admin123"
	}
	opts := sanitize.Options{
		Tables:        sanitize.ParseTables(*tables),
		DryRun:        *dryRun,
		Yes:           *yes,
		Reseed:        *reseed,
		AdminPassword: pw,
	}
	if err := sanitize.Run(gdb, opts, os.Stdout); err != nil {
		log.Fatal(err)
	}
}
