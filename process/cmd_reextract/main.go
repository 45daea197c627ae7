package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"idscan/pkg/dbconn"
	"idscan/process/reextract"
)

func main() {
	_ = godotenv.Load()
	dry := flag.Bool("dry-run", true, "dry-run: don't write to DB")
	flag.Parse()

	gdb, err := dbconn.OpenFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		os.Exit(2)
	}

	changes, err := reextract.Run(gdb, *dry, os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "run failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("%d documents with changed fields (dry-run=%v)\n", len(changes), *dry)
}
