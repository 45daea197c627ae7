package models

import (
	"strings"
	"sync"
	"testing"
	"time"

	"gorm.io/gorm/schema"

	"idscan/pkg/ocr"
)

func TestRefreshTokenUsable(t *testing.T) {
	now := time.Now()
	if !(RefreshToken{ExpiresAt: now.Add(time.Minute)}).Usable(now) {
		t.Fatalf("fresh token should be usable")
	}
	if (RefreshToken{ExpiresAt: now.Add(-time.Minute)}).Usable(now) {
		t.Fatalf("expired token should not be usable")
	}
	if (RefreshToken{ExpiresAt: now.Add(time.Minute), Revoked: true}).Usable(now) {
		t.Fatalf("revoked token should not be usable")
	}
}

func TestMasterRoles(t *testing.T) {
	names := map[string]bool{}
	for _, r := range MasterRoles() {
		names[r.Name] = true
	}
	if !names[RoleAdministrator] || !names[RoleUser] || len(names) != 2 {
		t.Fatalf("unexpected master roles %v", names)
	}
}

func TestDocumentApplyRecord(t *testing.T) {
	var d Document
	changed := d.ApplyRecord(ocr.Extract("DL5\nFN IMA\nEXP 04/30/2027"))
	if d.DocumentNumber != "5" || d.Name != "IMA" || d.ExpirationDate != "04/30/2027" || d.Restrictions != "NONE" {
		t.Fatalf("unexpected document %+v", d)
	}
	if len(changed) != 4 {
		t.Fatalf("expected 4 changed fields got %v", changed)
	}
	if again := d.ApplyRecord(ocr.Extract("DL5\nFN IMA\nEXP 04/30/2027")); len(again) != 0 {
		t.Fatalf("re-applying the same record should change nothing, got %v", again)
	}
}

func TestDocumentApplyRecordUnknownDefaults(t *testing.T) {
	var d Document
	d.ApplyRecord(ocr.Extract(""))
	if d.Name != UnknownValue || d.DocumentNumber != UnknownValue {
		t.Fatalf("expected Unknown defaults got name=%q number=%q", d.Name, d.DocumentNumber)
	}
	if d.IssueDate != "" || d.Restrictions != "NONE" {
		t.Fatalf("unexpected optional columns %+v", d)
	}
}

func TestDocumentRecordSkipsEmpty(t *testing.T) {
	d := Document{Name: "IMA", Sex: "F"}
	rec := d.Record()
	if len(rec) != 2 || rec[ocr.FieldName] != "IMA" || rec[ocr.FieldSex] != "F" {
		t.Fatalf("unexpected record %v", rec)
	}
}

func TestDocumentGreedyColumnsUnbounded(t *testing.T) {
	sch, err := schema.Parse(&Document{}, &sync.Map{}, schema.NamingStrategy{})
	if err != nil {
		t.Fatalf("parse schema: %v", err)
	}
	for _, name := range []string{"Name", "DateOfBirth", "Address", "RawText"} {
		f := sch.LookUpField(name)
		if f == nil {
			t.Fatalf("field %s missing", name)
		}
		if f.Size != 0 || !strings.EqualFold(f.TagSettings["TYPE"], "text") {
			t.Fatalf("%s must be an unbounded text column, size=%d type=%q", name, f.Size, f.TagSettings["TYPE"])
		}
	}
}

func TestApplyRecordKeepsOverlongValues(t *testing.T) {
	long := strings.Repeat("ANYTOWN STREET ", 50)
	var d Document
	d.ApplyRecord(ocr.Record{ocr.FieldName: long, ocr.FieldDateOfBirth: long, ocr.FieldAddress: long})
	if d.Name != long || d.DateOfBirth != long || d.Address != long {
		t.Fatalf("over-captured values must be stored whole")
	}
}
