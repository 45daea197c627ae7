// Package reextract re-runs field extraction over the OCR text stored with each
// document, so rule changes can be applied without running Tesseract again.
package reextract

import (
	"fmt"
	"io"
	"log"

	"gorm.io/gorm"

	"idscan/models"
	"idscan/pkg/ocr"
)

const batchSize = 200

// Change describes one document whose extracted fields differ from the stored ones.
type Change struct {
	DocumentID uint
	Fields     []ocr.Field
}

// Run re-extracts every document that has raw text. With dry set it only
// prints the proposed changes to out.
func Run(gdb *gorm.DB, dry bool, out io.Writer) ([]Change, error) {
	var changes []Change
	var batch []models.Document
	res := gdb.Where("raw_text <> ''").FindInBatches(&batch, batchSize, func(_ *gorm.DB, _ int) error {
		for i := range batch {
			doc := batch[i]
			before := doc
			changed := doc.ApplyRecord(ocr.Extract(doc.RawText))
			if len(changed) == 0 {
				continue
			}
			changes = append(changes, Change{DocumentID: doc.ID, Fields: changed})
			if dry {
				for _, f := range changed {
					fmt.Fprintf(out, "DRY: document id=%d %s %q -> %q\n", doc.ID, f, before.Record().Get(f, ""), doc.Record().Get(f, ""))
				}
				continue
			}
			if err := gdb.Save(&doc).Error; err != nil {
				log.Printf("failed update document %d: %v", doc.ID, err)
				continue
			}
			fmt.Fprintf(out, "updated document id=%d fields=%v\n", doc.ID, changed)
		}
		return nil
	})
	if res.Error != nil {
		return changes, fmt.Errorf("scan documents: %w", res.Error)
	}
	return changes, nil
}
