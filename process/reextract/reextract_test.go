package reextract

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"idscan/models"
	"idscan/pkg/dbconn"
	"idscan/pkg/ocr"
)

func TestRunDryThenApply(t *testing.T) {
	gdb, err := dbconn.Open(dbconn.Config{Driver: dbconn.DriverSQLite, DSN: filepath.Join(t.TempDir(), "re.db")})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := gdb.AutoMigrate(&models.Upload{}, &models.Document{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	current := models.Document{UserID: 1, RawText: "DL3\nFN ANN LEE"}
	current.ApplyRecord(ocr.Extract(current.RawText))
	stale := models.Document{UserID: 1, Name: "ANN", DocumentNumber: models.UnknownValue, RawText: "DL8\nFN ANN LEE\nSEX F"}
	noText := models.Document{UserID: 1, Name: "KEEP", DocumentNumber: "1"}
	for _, d := range []*models.Document{&current, &stale, &noText} {
		if err := gdb.Create(d).Error; err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	var out bytes.Buffer
	changes, err := Run(gdb, true, &out)
	if err != nil {
		t.Fatalf("dry run: %v", err)
	}
	if len(changes) != 1 || changes[0].DocumentID != stale.ID {
		t.Fatalf("unexpected changes %+v", changes)
	}
	// name, number, sex, restrictions
	if len(changes[0].Fields) != 4 {
		t.Fatalf("unexpected changed fields %v", changes[0].Fields)
	}
	if !strings.Contains(out.String(), `Name "ANN" -> "ANN LEE"`) {
		t.Fatalf("dry output missing name change:\n%s", out.String())
	}
	var reloaded models.Document
	gdb.First(&reloaded, stale.ID)
	if reloaded.Name != "ANN" {
		t.Fatalf("dry run must not write, name=%q", reloaded.Name)
	}

	out.Reset()
	if _, err := Run(gdb, false, &out); err != nil {
		t.Fatalf("apply: %v", err)
	}
	gdb.First(&reloaded, stale.ID)
	if reloaded.Name != "ANN LEE" || reloaded.DocumentNumber != "8" || reloaded.Sex != "F" || reloaded.Restrictions != "NONE" {
		t.Fatalf("document not updated: %+v", reloaded)
	}
	var kept models.Document
	gdb.First(&kept, noText.ID)
	if kept.Name != "KEEP" {
		t.Fatalf("documents without text must be left alone: %+v", kept)
	}

	changes, err = Run(gdb, true, &out)
	if err != nil || len(changes) != 0 {
		t.Fatalf("second pass should find nothing, got %v err=%v", changes, err)
	}
}
