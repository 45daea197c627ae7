package ocr

import (
	"reflect"
	"regexp"
	"sync"
	"testing"
)

func TestExtractDocumentNumberSingleDigit(t *testing.T) {
	cases := map[string]string{
		"DL5":              "5",
		"xx DL5 yy":        "5",
		"DL 11234568":      "1",
		"LICENSE\nDL\n42":  "4",
	}
	for in, want := range cases {
		rec := Extract(in)
		if got := rec[FieldDocumentNumber]; got != want {
			t.Fatalf("Extract(%q) document number = %q, want %q", in, got, want)
		}
	}
}

func TestExtractExpirationDate(t *testing.T) {
	dateRE := regexp.MustCompile(`^\d{2}/\d{2}/\d{4}$`)
	rec := Extract("CARD\nEXP 04/30/2027\nmore")
	got, ok := rec[FieldExpirationDate]
	if !ok || got != "04/30/2027" {
		t.Fatalf("expected expiration 04/30/2027 got %q (present=%v)", got, ok)
	}
	if !dateRE.MatchString(got) {
		t.Fatalf("expiration %q is not MM/DD/YYYY", got)
	}
	if _, ok := Extract("EXP 4/30/27")[FieldExpirationDate]; ok {
		t.Fatalf("short date must not match")
	}
}

func TestExtractRestrictionsDefault(t *testing.T) {
	if got := Extract("DL5 EXP 04/30/2027")[FieldRestrictions]; got != DefaultRestrictions {
		t.Fatalf("expected default %q got %q", DefaultRestrictions, got)
	}
	if got := Extract("RSTR B")[FieldRestrictions]; got != "B" {
		t.Fatalf("expected B got %q", got)
	}
	if got := Extract("RSTR NONE")[FieldRestrictions]; got != "NONE" {
		t.Fatalf("expected NONE got %q", got)
	}
}

func TestExtractEmptyText(t *testing.T) {
	rec := Extract("")
	want := Record{FieldRestrictions: "NONE"}
	if !reflect.DeepEqual(rec, want) {
		t.Fatalf("Extract(\"\") = %v, want %v", rec, want)
	}
}

func TestExtractGarbageNeverFails(t *testing.T) {
	for _, in := range []string{"@@@###", "\n\n\n", "lorem ipsum dolor", "0/0/0 // ''\"\""} {
		rec := Extract(in)
		if rec[FieldRestrictions] != "NONE" {
			t.Fatalf("Extract(%q) missing RSTR default: %v", in, rec)
		}
	}
}

func TestExtractIdempotent(t *testing.T) {
	text := "DL5\nFN JANE DOE\nDOB 01/02/1990\nSEX F\nHGT 5'-06\"\nRSTR A"
	a := Extract(text)
	b := Extract(text)
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("records differ: %v vs %v", a, b)
	}
	a[FieldName] = "changed"
	if Extract(text)[FieldName] != "JANE DOE" {
		t.Fatalf("records must not share state between calls")
	}
}

func TestExtractAddressWholeMatch(t *testing.T) {
	text := "NAME: JOHN\n2570 24TH STREET ANYTOWN CA 95818\nEND"
	got, ok := Extract(text)[FieldAddress]
	if !ok {
		t.Fatalf("address not found")
	}
	if got != "2570 24TH STREET ANYTOWN CA 95818" {
		t.Fatalf("unexpected address %q", got)
	}
}

func TestExtractAddressCommaBreaksMatch(t *testing.T) {
	if v, ok := Extract("2570 24TH STREET ANYTOWN, CA 95818")[FieldAddress]; ok {
		t.Fatalf("comma separated city/state should not match, got %q", v)
	}
}

func TestExtractNameAcrossLineBreak(t *testing.T) {
	if got := Extract("LN SMITH\nFN\nJOHN SMITH")[FieldName]; got != "JOHN SMITH" {
		t.Fatalf("expected JOHN SMITH got %q", got)
	}
}

func TestExtractGreedyRestOfLine(t *testing.T) {
	rec := Extract("FN JOHN SMITH LN DOE\nDOB 01/02/1990 EXP 04/30/2027")
	if got := rec[FieldName]; got != "JOHN SMITH LN DOE" {
		t.Fatalf("name should run to end of line, got %q", got)
	}
	if got := rec[FieldDateOfBirth]; got != "01/02/1990 EXP 04/30/2027" {
		t.Fatalf("dob should run to end of line, got %q", got)
	}
	// rules do not consume text from each other
	if got := rec[FieldExpirationDate]; got != "04/30/2027" {
		t.Fatalf("expiration should still match inside the dob span, got %q", got)
	}
}

func TestExtractLabelAtEndYieldsEmptyValue(t *testing.T) {
	rec := Extract("DL5\nFN")
	v, ok := rec[FieldName]
	if !ok || v != "" {
		t.Fatalf("expected present empty name got %q (present=%v)", v, ok)
	}
}

func TestExtractFirstMatchWins(t *testing.T) {
	rec := Extract("EXP 01/01/2020\nEXP 04/30/2027\nHAIR BRN\nHAIR BLONDE")
	if got := rec[FieldExpirationDate]; got != "01/01/2020" {
		t.Fatalf("expected first expiration got %q", got)
	}
	if got := rec[FieldHairColor]; got != "BRN" {
		t.Fatalf("expected first hair color got %q", got)
	}
}

func TestExtractHeightNotations(t *testing.T) {
	cases := map[string]string{
		`HGT 5'-08"`: `5'-08"`,
		`HGT 5' 08"`: `5' 08"`,
		`HGT 5'08"`:  `5'08"`,
		`HGT 5-08`:   `5-08`,
		`HGT 68"`:    `68"`,
	}
	for in, want := range cases {
		if got := Extract(in)[FieldHeight]; got != want {
			t.Fatalf("Extract(%q) height = %q, want %q", in, got, want)
		}
	}
	if v, ok := Extract("HGT tall")[FieldHeight]; ok {
		t.Fatalf("unexpected height %q", v)
	}
}

func TestExtractSimpleLabels(t *testing.T) {
	tests := []struct {
		text  string
		field Field
		want  string
	}{
		{"ISS 08/31/2009", FieldIssueDate, "08/31/2009"},
		{"SEX M", FieldSex, "M"},
		{"SEXF", FieldSex, "F"},
		{"WGT 165 lb", FieldWeight, "165 lb"},
		{"HAIR BRN", FieldHairColor, "BRN"},
		{"EYES  BLU", FieldEyesColor, "BLU"},
		{"DOB 08/31/1977", FieldDateOfBirth, "08/31/1977"},
	}
	for _, tt := range tests {
		if got := Extract(tt.text)[tt.field]; got != tt.want {
			t.Fatalf("Extract(%q)[%s] = %q, want %q", tt.text, tt.field, got, tt.want)
		}
	}
	if v, ok := Extract("WGT 165lb")[FieldWeight]; ok {
		t.Fatalf("weight without space before lb should not match, got %q", v)
	}
}

func TestExtractSampleLicense(t *testing.T) {
	text := "CALIFORNIA DRIVER LICENSE\n" +
		"DL 11234568\n" +
		"EXP 08/31/2014\n" +
		"LN CARDHOLDER\n" +
		"FN IMA\n" +
		"2570 24TH STREET\n" +
		"ANYTOWN CA 95818\n" +
		"DOB 08/31/1977\n" +
		"RSTR NONE\n" +
		"SEX F HAIR BRN EYES BRN\n" +
		"HGT 5'-05\" WGT 125 lb\n" +
		"ISS 08/31/2009\n"
	want := Record{
		FieldDocumentNumber: "1",
		FieldExpirationDate: "08/31/2014",
		FieldDateOfBirth:    "08/31/1977",
		FieldIssueDate:      "08/31/2009",
		FieldName:           "IMA",
		FieldSex:            "F",
		FieldHeight:         `5'-05"`,
		FieldWeight:         "125 lb",
		FieldHairColor:      "BRN",
		FieldEyesColor:      "BRN",
		// no label anchor: the address run starts at the first digits followed by
		// whitespace, here the year of the expiration line
		FieldAddress:      "2014\nLN CARDHOLDER\nFN IMA\n2570 24TH STREET\nANYTOWN CA 95818",
		FieldRestrictions: "NONE",
	}
	got := Extract(text)
	if !reflect.DeepEqual(got, want) {
		for _, f := range Fields() {
			if got[f] != want[f] {
				t.Errorf("%s: got %q want %q", f, got[f], want[f])
			}
		}
		t.FailNow()
	}
}

func TestRecordGet(t *testing.T) {
	rec := Record{FieldName: "IMA"}
	if rec.Get(FieldName, "Unknown") != "IMA" {
		t.Fatalf("expected IMA")
	}
	if rec.Get(FieldDocumentNumber, "Unknown") != "Unknown" {
		t.Fatalf("expected fallback")
	}
}

func TestFieldsOrder(t *testing.T) {
	fs := Fields()
	if len(fs) != 12 {
		t.Fatalf("expected 12 fields got %d", len(fs))
	}
	if fs[0] != FieldDocumentNumber || fs[10] != FieldAddress || fs[11] != FieldRestrictions {
		t.Fatalf("unexpected field order %v", fs)
	}
}

func TestExtractUnicodeWhitespace(t *testing.T) {
	rec := Extract("EXP\u00a004/30/2027\nSEX\u00a0F\nDL\u2009\u20097\nHGT 5'\u202f08\"\nRSTR\u3000B")
	want := map[Field]string{
		FieldExpirationDate: "04/30/2027",
		FieldSex:            "F",
		FieldDocumentNumber: "7",
		FieldHeight:         "5'\u202f08\"",
		FieldRestrictions:   "B",
	}
	for f, v := range want {
		if rec[f] != v {
			t.Fatalf("%s = %q, want %q", f, rec[f], v)
		}
	}
	if got := Extract("12\u00a0MAIN\u00a0ST ANYTOWN CA\u00a095818")[FieldAddress]; got != "12\u00a0MAIN\u00a0ST ANYTOWN CA\u00a095818" {
		t.Fatalf("address with NBSP not matched, got %q", got)
	}
	if _, ok := Extract("EXP\u200b04/30/2027")[FieldExpirationDate]; ok {
		t.Fatalf("zero width space is not whitespace")
	}
}

func TestExtractConcurrent(t *testing.T) {
	texts := []string{
		"DL5\nEXP 04/30/2027\nFN JANE DOE\nSEX F\nRSTR B",
		"CARD\nDOB 01/02/1990\nHGT 5'-06\"\n2570 24TH STREET ANYTOWN CA 95818",
		"",
	}
	want := make([]Record, len(texts))
	for i, txt := range texts {
		want[i] = Extract(txt)
	}
	var wg sync.WaitGroup
	for g := 0; g < 16; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for n := 0; n < 50; n++ {
				i := (g + n) % len(texts)
				if got := Extract(texts[i]); !reflect.DeepEqual(got, want[i]) {
					t.Errorf("goroutine %d: Extract(%q) = %v, want %v", g, texts[i], got, want[i])
					return
				}
			}
		}(g)
	}
	wg.Wait()
}
