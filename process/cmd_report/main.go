package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"idscan/pkg/dbconn"
	"idscan/process/report"
)

func main() {
	_ = godotenv.Load()
	username := flag.String("username", "", "username to report for (empty: all users)")
	month := flag.String("month", time.Now().Format("2006-01"), "month to report (YYYY-MM)")
	list := flag.Bool("list", false, "list matching rows")
	flag.Parse()

	gdb, err := dbconn.OpenFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		os.Exit(2)
	}

	sum, err := report.Expiring(gdb, *username, *month)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	sum.Print(os.Stdout, *list)
}
