package ocr

import (
	"regexp"
	"strings"
)

// Field identifies one attribute extracted from driver-license text. The string
// values double as JSON keys in API responses.
type Field string

const (
	FieldDocumentNumber Field = "Document Number"
	FieldExpirationDate Field = "Expiration Date"
	FieldDateOfBirth    Field = "Date of Birth"
	FieldIssueDate      Field = "Issue Date"
	FieldName           Field = "Name"
	FieldSex            Field = "Sex"
	FieldHeight         Field = "Height"
	FieldWeight         Field = "Weight"
	FieldHairColor      Field = "Hair Color"
	FieldEyesColor      Field = "Eyes Color"
	FieldAddress        Field = "Address"
	FieldRestrictions   Field = "RSTR"
)

// DefaultRestrictions is stored for RSTR when the text carries no restrictions label.
const DefaultRestrictions = "NONE"

// Record maps a field to its extracted value. A missing key means the field was
// not found; values are always trimmed.
type Record map[Field]string

// Get returns the value for f or fallback when f is absent.
func (r Record) Get(f Field, fallback string) string {
	if v, ok := r[f]; ok {
		return v
	}
	return fallback
}

type capturePolicy int

const (
	captureGroup capturePolicy = iota // first submatch holds the payload
	captureMatch                      // the whole match is the payload
)

type rule struct {
	field   Field
	re      *regexp.Regexp
	capture capturePolicy
}

// space is a character class body for every Unicode whitespace rune. OCR output
// often carries NBSP or thin spaces between a label and its value.
const space = `\s\p{Z}\x{85}\x{1c}-\x{1f}`

// ws matches one whitespace character as defined by space.
const ws = `[` + space + `]`

// rules are evaluated independently against the whole text, first match wins.
// DOB and FN read to the end of the line, so merged OCR lines over-capture.
// DL reads a single digit only.
var rules = []rule{
	{FieldDocumentNumber, regexp.MustCompile(`DL` + ws + `*(\d)`), captureGroup},
	{FieldExpirationDate, regexp.MustCompile(`EXP` + ws + `*(\d{2}/\d{2}/\d{4})`), captureGroup},
	{FieldDateOfBirth, regexp.MustCompile(`DOB` + ws + `*(.*)`), captureGroup},
	{FieldIssueDate, regexp.MustCompile(`ISS` + ws + `*(\d{2}/\d{2}/\d{4})`), captureGroup},
	{FieldName, regexp.MustCompile(`FN` + ws + `*(.*)`), captureGroup},
	{FieldSex, regexp.MustCompile(`SEX` + ws + `*(\w)`), captureGroup},
	{FieldHeight, regexp.MustCompile(`HGT` + ws + `*(\d+'-\d+"|\d+'` + ws + `*\d+"|\d{1,2}-\d{2}|\d+")`), captureGroup},
	{FieldWeight, regexp.MustCompile(`WGT` + ws + `*(\d+ lb)`), captureGroup},
	{FieldHairColor, regexp.MustCompile(`HAIR` + ws + `*(\w+)`), captureGroup},
	{FieldEyesColor, regexp.MustCompile(`EYES` + ws + `*(\w+)`), captureGroup},
	{FieldAddress, regexp.MustCompile(`\d{1,5}` + ws + `[\w` + space + `]+(?:` + ws + `[A-Za-z]+){1,3}` + ws + `*\d{5}`), captureMatch},
	{FieldRestrictions, regexp.MustCompile(`RSTR` + ws + `*(\w+)`), captureGroup},
}

var defaults = map[Field]string{
	FieldRestrictions: DefaultRestrictions,
}

// Fields returns every field Extract knows about, in rule order.
func Fields() []Field {
	out := make([]Field, len(rules))
	for i, r := range rules {
		out[i] = r.field
	}
	return out
}

// Extract parses recognized text into a Record. It never fails: fields whose
// pattern does not match are left out, except those with a default.
func Extract(text string) Record {
	rec := Record{}
	for _, r := range rules {
		if v, ok := r.apply(text); ok {
			rec[r.field] = v
		}
	}
	for f, v := range defaults {
		if _, ok := rec[f]; !ok {
			rec[f] = v
		}
	}
	return rec
}

func (r rule) apply(text string) (string, bool) {
	m := r.re.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	if r.capture == captureMatch {
		return strings.TrimSpace(m[0]), true
	}
	return strings.TrimSpace(m[1]), true
}
