package models

import (
	"time"
)

// Upload is an image submitted for scanning. Failed uploads are kept so an admin
// can review why OCR could not read them.
type Upload struct {
	ID           uint `gorm:"primaryKey"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
	UserID       uint   `gorm:"index;not null"`
	FileName     string `gorm:"size:255;not null;index"` // name as submitted by the client
	StorePath    string `gorm:"column:store_path;size:512;uniqueIndex"`
	ContentType  string `gorm:"size:128"`
	Size         int64
	Failed       bool   `gorm:"default:false;index"`
	FailedReason string `gorm:"size:255"`
}
