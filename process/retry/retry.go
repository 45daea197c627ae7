// Package retry re-runs OCR for uploads that never produced a document,
// optionally sharpening and boosting contrast before normalization.
package retry

import (
	"bytes"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"gorm.io/gorm"

	"idscan/models"
	"idscan/pkg/ocr"
)

// Options selects which uploads are retried and how.
type Options struct {
	Username string // empty: all users
	BaseDir  string // directory relative store paths are resolved against
	Enhance  bool   // sharpen + contrast before the pipeline
	DryRun   bool
}

// Stats counts the outcome of a run.
type Stats struct {
	Candidates int
	Recovered  int
	Failed     int
}

// Pending returns uploads that have no document yet, oldest first.
func Pending(gdb *gorm.DB, username string) ([]models.Upload, error) {
	q := gdb.Model(&models.Upload{}).
		Where("NOT EXISTS (SELECT 1 FROM documents d WHERE d.upload_id = uploads.id)")
	if username != "" {
		var user models.User
		if err := gdb.Where("username = ?", username).First(&user).Error; err != nil {
			return nil, fmt.Errorf("user %q not found: %w", username, err)
		}
		q = q.Where("uploads.user_id = ?", user.ID)
	}
	var ups []models.Upload
	if err := q.Order("uploads.id").Find(&ups).Error; err != nil {
		return nil, fmt.Errorf("query uploads: %w", err)
	}
	return ups, nil
}

// Run retries every pending upload. A recovered upload gets a Document and its
// failed flag cleared.
func Run(gdb *gorm.DB, rec ocr.Recognizer, opts Options) (Stats, error) {
	ups, err := Pending(gdb, opts.Username)
	if err != nil {
		return Stats{}, err
	}
	st := Stats{Candidates: len(ups)}
	for i := range ups {
		up := ups[i]
		path := resolve(opts.BaseDir, up.StorePath)
		res, err := recognize(path, rec, opts.Enhance)
		if err != nil {
			st.Failed++
			log.Printf("retry upload=%d file=%s: %v", up.ID, up.FileName, err)
			continue
		}
		if opts.DryRun {
			fmt.Printf("DRY: upload=%d file=%s fields=%d\n", up.ID, up.FileName, len(res.Record))
			st.Recovered++
			continue
		}
		uploadID := up.ID
		doc := models.Document{UserID: up.UserID, UploadID: &uploadID, RawText: res.Text}
		doc.ApplyRecord(res.Record)
		err = gdb.Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(&doc).Error; err != nil {
				return err
			}
			return tx.Model(&up).Updates(map[string]any{"failed": false, "failed_reason": ""}).Error
		})
		if err != nil {
			st.Failed++
			log.Printf("store document for upload=%d: %v", up.ID, err)
			continue
		}
		st.Recovered++
		fmt.Printf("recovered upload=%d document=%d number=%s name=%q\n", up.ID, doc.ID, doc.DocumentNumber, doc.Name)
	}
	return st, nil
}

func resolve(base, storePath string) string {
	p := filepath.FromSlash(storePath)
	if filepath.IsAbs(p) || base == "" {
		return p
	}
	if _, err := os.Stat(p); err == nil {
		return p
	}
	return filepath.Join(base, p)
}

func recognize(path string, rec ocr.Recognizer, enhance bool) (ocr.Result, error) {
	if !enhance {
		return ocr.ProcessFile(path, rec)
	}
	img, err := imaging.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ocr.Result{}, err
		}
		return ocr.Result{}, &ocr.DecodeError{Err: err}
	}
	proc := imaging.Sharpen(img, 2.0)
	proc = imaging.AdjustContrast(proc, 30)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, proc, imaging.PNG); err != nil {
		return ocr.Result{}, fmt.Errorf("encode enhanced image: %w", err)
	}
	return ocr.Process(buf.Bytes(), rec)
}
