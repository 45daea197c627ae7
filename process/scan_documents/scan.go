package main

import (
	"context"
	"errors"
	"io"
	"log"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	"github.com/fsnotify/fsnotify"
	"gorm.io/gorm"

	"idscan/models"
	"idscan/pkg/dbconn"
	"idscan/pkg/ocr"
)

const (
	maxProcessedBytes = 1_000_000
	debounceInterval  = 250 * time.Millisecond
	stableAfter       = 300 * time.Millisecond
)

// MIME mapping to avoid opening files repeatedly
var extMime = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".bmp":  "image/bmp",
	".tif":  "image/tiff",
	".tiff": "image/tiff",
}

// preload caches
type preloadState struct {
	uploadsByFile    map[string]*models.Upload // fileName -> upload
	documentByUpload map[uint]bool             // upload id -> has document
	inFlight         map[string]bool
	mu               sync.RWMutex
}

func newPreloadState() *preloadState {
	return &preloadState{
		uploadsByFile:    make(map[string]*models.Upload, 1024),
		documentByUpload: make(map[uint]bool, 1024),
		inFlight:         make(map[string]bool),
	}
}

func (ps *preloadState) getUpload(name string) (*models.Upload, bool) {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	u, ok := ps.uploadsByFile[name]
	return u, ok
}

func (ps *preloadState) putUpload(u *models.Upload) {
	ps.mu.Lock()
	ps.uploadsByFile[u.FileName] = u
	ps.mu.Unlock()
}

func (ps *preloadState) hasDocument(uploadID uint) bool {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	return ps.documentByUpload[uploadID]
}

func (ps *preloadState) putDocument(uploadID uint) {
	ps.mu.Lock()
	ps.documentByUpload[uploadID] = true
	ps.mu.Unlock()
}

// claim marks name as being processed; false when another worker holds it.
func (ps *preloadState) claim(name string) bool {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	if ps.inFlight[name] {
		return false
	}
	ps.inFlight[name] = true
	return true
}

func (ps *preloadState) release(name string) {
	ps.mu.Lock()
	delete(ps.inFlight, name)
	ps.mu.Unlock()
}

type scanner struct {
	db           *gorm.DB
	rec          ocr.Recognizer
	owner        models.User
	dir          string
	processedDir string
	ps           *preloadState
}

func newScanner(gdb *gorm.DB, rec ocr.Recognizer, owner models.User, dir, processedDir string) *scanner {
	return &scanner{db: gdb, rec: rec, owner: owner, dir: dir, processedDir: processedDir, ps: newPreloadState()}
}

// preload fetches the owner's uploads and the uploads that already have a
// document to minimize per-file queries.
func (s *scanner) preload() {
	var ups []models.Upload
	if err := s.db.Where("user_id = ?", s.owner.ID).Find(&ups).Error; err != nil {
		log.Printf("WARN preload uploads: %v", err)
	}
	for i := range ups {
		u := ups[i]
		s.ps.uploadsByFile[u.FileName] = &u
	}
	var linked []uint
	if err := s.db.Model(&models.Document{}).
		Where("user_id = ? AND upload_id IS NOT NULL", s.owner.ID).
		Pluck("upload_id", &linked).Error; err != nil {
		log.Printf("WARN preload documents: %v", err)
	}
	for _, id := range linked {
		s.ps.documentByUpload[id] = true
	}
}

func listImageFiles(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !isSupportedExt(e.Name()) {
			continue
		}
		out = append(out, e.Name())
	}
	sort.Strings(out)
	return out
}

func isSupportedExt(name string) bool {
	// ignore OCR-generated temp files to avoid recursive processing
	if strings.Contains(name, ".ocr.") {
		return false
	}
	_, ok := extMime[strings.ToLower(filepath.Ext(name))]
	return ok
}

func mimeFromExt(name string) string {
	return extMime[strings.ToLower(filepath.Ext(name))]
}

// runWorkerPool processes files with the given number of workers and waits.
func (s *scanner) runWorkerPool(files []string, workers int) {
	fileCh := make(chan string)
	go func() {
		for _, f := range files {
			fileCh <- f
		}
		close(fileCh)
	}()
	s.consume(fileCh, workers)
}

// consume runs workers over src until it is closed.
func (s *scanner) consume(src <-chan string, workers int) {
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for name := range src {
				s.processSingleFile(name)
			}
		}()
	}
	wg.Wait()
}

// watchDirectory feeds newly created files to the worker pool once their size
// has stopped changing. It returns when ctx is cancelled.
func (s *scanner) watchDirectory(ctx context.Context, workers int) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	if err := w.Add(s.dir); err != nil {
		return err
	}
	log.Printf("Watching %s (debounced) ...", s.dir)

	fileCh := make(chan string, 256)
	go func() {
		defer close(fileCh)
		pending := map[string]time.Time{}
		ticker := time.NewTicker(debounceInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				name := filepath.Base(ev.Name)
				if !isSupportedExt(name) {
					continue
				}
				if ev.Has(fsnotify.Create) {
					pending[name] = time.Now()
				} else if _, seen := pending[name]; seen && ev.Has(fsnotify.Write) {
					pending[name] = time.Now()
				}
			case <-ticker.C:
				now := time.Now()
				for name, t := range pending {
					if now.Sub(t) > stableAfter {
						fileCh <- name
						delete(pending, name)
					}
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				log.Printf("watch error: %v", err)
			}
		}
	}()

	s.consume(fileCh, workers)
	return nil
}

// processSingleFile is idempotent: it creates the Upload when missing, runs the
// pipeline and stores a Document unless the upload already has one.
func (s *scanner) processSingleFile(name string) {
	if !s.ps.claim(name) {
		logV("SKIP in flight %s", name)
		return
	}
	defer s.ps.release(name)

	storePath := filepath.ToSlash(filepath.Join(s.dir, name))
	filePath := filepath.Join(s.dir, name)

	up, upExists := s.ps.getUpload(name)
	if upExists && s.ps.hasDocument(up.ID) {
		logV("SKIP document exists %s", name)
		return
	}
	if upExists && up.Failed {
		logV("SKIP upload failed before %s: %s", name, up.FailedReason)
		return
	}

	if !upExists {
		newUp := models.Upload{UserID: s.owner.ID, FileName: name, StorePath: storePath, ContentType: mimeFromExt(name)}
		if fi, err := os.Stat(filePath); err == nil {
			newUp.Size = fi.Size()
		}
		if err := s.db.Create(&newUp).Error; err != nil {
			if !dbconn.IsUniqueConstraintError(err) {
				log.Printf("ERROR create upload %s: %v", storePath, err)
				return
			}
			// race: someone else created
			if err2 := s.db.Where("store_path = ?", storePath).First(&newUp).Error; err2 != nil {
				log.Printf("WARN fetch after race failed %s: %v", storePath, err2)
				return
			}
		}
		s.ps.putUpload(&newUp)
		up = &newUp
		log.Printf("NEW upload id=%d file=%s", newUp.ID, name)
	}

	res, err := ocr.ProcessFile(filePath, s.rec)
	if err != nil {
		var de *ocr.DecodeError
		if errors.As(err, &de) {
			s.markFailed(up, "unreadable image")
			log.Printf("WARN undecodable %s: %v", name, err)
			return
		}
		logV("OCR fail %s: %v", name, err)
		return
	}

	uploadID := up.ID
	doc := models.Document{UserID: s.owner.ID, UploadID: &uploadID, RawText: res.Text}
	doc.ApplyRecord(res.Record)
	if err := s.db.Create(&doc).Error; err != nil {
		log.Printf("ERROR create document %s: %v", name, err)
		s.markFailed(up, "could not store extracted fields")
		return
	}
	s.ps.putDocument(uploadID)
	log.Printf("DOCUMENT id=%d number=%s name=%q file=%s upload=%d", doc.ID, doc.DocumentNumber, doc.Name, name, uploadID)

	if err := moveToProcessed(filePath, s.processedDir, name); err != nil {
		log.Printf("WARN failed to move processed file %s: %v", name, err)
		return
	}
	moved := filepath.ToSlash(filepath.Join(s.processedDir, name))
	if err := s.db.Model(up).Update("store_path", moved).Error; err != nil {
		log.Printf("WARN update store path %s: %v", name, err)
		return
	}
	up.StorePath = moved
	logV("moved processed %s to %s", name, s.processedDir)
}

func (s *scanner) markFailed(up *models.Upload, reason string) {
	if err := s.db.Model(up).Updates(map[string]any{"failed": true, "failed_reason": reason}).Error; err != nil {
		log.Printf("WARN mark upload %d failed: %v", up.ID, err)
		return
	}
	up.Failed = true
	up.FailedReason = reason
}

// moveToProcessed moves a scanned file into dstDir/<name>, downscaling images
// larger than maxProcessedBytes. It attempts an atomic rename and falls back to
// copy+remove when necessary.
func moveToProcessed(srcFullPath, dstDir, name string) error {
	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return err
	}
	dst := filepath.Join(dstDir, name)

	fi, err := os.Stat(srcFullPath)
	if err != nil {
		return err
	}
	if fi.Size() <= maxProcessedBytes {
		return renameOrCopy(srcFullPath, dst)
	}
	img, err := imaging.Open(srcFullPath)
	if err != nil {
		return renameOrCopy(srcFullPath, dst)
	}
	// encoded size roughly scales with area
	scale := math.Sqrt(float64(maxProcessedBytes) / float64(fi.Size()))
	scale = math.Min(math.Max(scale, 0.1), 0.95)
	w := int(math.Max(1, math.Round(float64(img.Bounds().Dx())*scale)))
	h := int(math.Max(1, math.Round(float64(img.Bounds().Dy())*scale)))
	img = imaging.Resize(img, w, h, imaging.Lanczos)
	if err := imaging.Save(img, dst); err != nil {
		return renameOrCopy(srcFullPath, dst)
	}
	return os.Remove(srcFullPath)
}

func renameOrCopy(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Remove(src)
}
