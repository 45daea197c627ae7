package models

import (
	"time"

	"idscan/pkg/ocr"
)

// Document holds the fields extracted from one scanned identity document.
// Name and DocumentNumber are stored as "Unknown" when OCR could not find them.
// Name, DateOfBirth and Address can run across merged OCR lines, so they are
// unbounded text columns.
type Document struct {
	ID             uint `gorm:"primaryKey"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
	UserID         uint    `gorm:"index;not null"`
	UploadID       *uint   `gorm:"index"`
	Upload         *Upload `gorm:"foreignKey:UploadID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:",omitempty"`
	Name           string  `gorm:"type:text;not null"`
	DocumentNumber string  `gorm:"size:50;not null"`
	IssueDate      string  `gorm:"size:20"`
	ExpirationDate string  `gorm:"size:20;index"`
	DateOfBirth    string  `gorm:"type:text"`
	Sex            string  `gorm:"size:8"`
	Height         string  `gorm:"size:16"`
	Weight         string  `gorm:"size:16"`
	HairColor      string  `gorm:"size:32"`
	EyesColor      string  `gorm:"size:32"`
	Address        string  `gorm:"type:text"`
	Restrictions   string  `gorm:"size:32"`
	RawText        string  `gorm:"type:text"`
}

// UnknownValue is stored for required columns OCR could not read.
const UnknownValue = "Unknown"

// ApplyRecord copies an extracted record into d and returns the fields whose
// value changed.
func (d *Document) ApplyRecord(rec ocr.Record) []ocr.Field {
	var changed []ocr.Field
	for _, f := range ocr.Fields() {
		dst := d.column(f)
		fallback := ""
		if f == ocr.FieldName || f == ocr.FieldDocumentNumber {
			fallback = UnknownValue
		}
		if v := rec.Get(f, fallback); *dst != v {
			*dst = v
			changed = append(changed, f)
		}
	}
	return changed
}

// Record returns the non-empty columns as an extraction record.
func (d *Document) Record() ocr.Record {
	rec := ocr.Record{}
	for _, f := range ocr.Fields() {
		if v := *d.column(f); v != "" {
			rec[f] = v
		}
	}
	return rec
}

func (d *Document) column(f ocr.Field) *string {
	switch f {
	case ocr.FieldDocumentNumber:
		return &d.DocumentNumber
	case ocr.FieldExpirationDate:
		return &d.ExpirationDate
	case ocr.FieldDateOfBirth:
		return &d.DateOfBirth
	case ocr.FieldIssueDate:
		return &d.IssueDate
	case ocr.FieldName:
		return &d.Name
	case ocr.FieldSex:
		return &d.Sex
	case ocr.FieldHeight:
		return &d.Height
	case ocr.FieldWeight:
		return &d.Weight
	case ocr.FieldHairColor:
		return &d.HairColor
	case ocr.FieldEyesColor:
		return &d.EyesColor
	case ocr.FieldAddress:
		return &d.Address
	case ocr.FieldRestrictions:
		return &d.Restrictions
	}
	panic("models: unmapped field " + string(f))
}
