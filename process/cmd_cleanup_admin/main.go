package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/joho/godotenv"
	"gorm.io/gorm"

	"idscan/models"
	"idscan/pkg/dbconn"
)

// Removes the documents and uploads owned by one user (admin by default), for
// clearing out batch-scan test runs.
func main() {
	_ = godotenv.Load()
	username := flag.String("user", "admin", "user whose scans are removed")
	failedOnly := flag.Bool("failed-only", false, "only remove failed uploads")
	flag.Parse()

	gdb, err := dbconn.OpenFromEnv()
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	var user models.User
	if err := gdb.Where("username = ?", *username).First(&user).Error; err != nil {
		fmt.Printf("user %s not found; nothing to cleanup\n", *username)
		return
	}

	var docs, ups int64
	err = gdb.Transaction(func(tx *gorm.DB) error {
		uploads := tx.Model(&models.Upload{}).Select("id").Where("user_id = ?", user.ID)
		if *failedOnly {
			uploads = uploads.Where("failed = ?", true)
		} else {
			res := tx.Where("user_id = ?", user.ID).Delete(&models.Document{})
			if res.Error != nil {
				return fmt.Errorf("delete documents: %w", res.Error)
			}
			docs = res.RowsAffected
		}
		// unlink anything still pointing at the uploads being removed
		if err := tx.Model(&models.Document{}).Where("upload_id IN (?)", uploads).Update("upload_id", nil).Error; err != nil {
			return fmt.Errorf("unlink documents: %w", err)
		}
		q := tx.Where("user_id = ?", user.ID)
		if *failedOnly {
			q = q.Where("failed = ?", true)
		}
		res := q.Delete(&models.Upload{})
		if res.Error != nil {
			return fmt.Errorf("delete uploads: %w", res.Error)
		}
		ups = res.RowsAffected
		return nil
	})
	if err != nil {
		log.Fatalf("cleanup failed: %v", err)
	}
	fmt.Printf("cleanup done: documents deleted=%d, uploads deleted=%d\n", docs, ups)
}
