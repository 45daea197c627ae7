package main

import (
	"log"
	"os"

	"idscan/models"
	"idscan/pkg/dbconn"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var db *gorm.DB

func initDB() {
	var err error
	db, err = dbconn.OpenFromEnv()
	if err != nil {
		log.Fatal("failed to connect database: ", err)
	}
	// DB_AUTO_MIGRATE (default true). Permission errors are logged and ignored.
	if envBool("DB_AUTO_MIGRATE", true) {
		migrateDB()
	}
	seedDB()
}

func migrateDB() {
	// roles first so the users FK can be applied
	if err := db.AutoMigrate(&models.Role{}); err != nil {
		log.Printf("migration warning (roles): %v", err)
	}
	// Migrate models individually so a failure on one doesn't block others
	steps := []struct {
		table string
		model any
	}{
		{"users", &models.User{}},
		{"refresh_tokens", &models.RefreshToken{}},
		{"uploads", &models.Upload{}},
		{"documents", &models.Document{}},
	}
	for _, s := range steps {
		if err := db.AutoMigrate(s.model); err != nil {
			log.Printf("migration warning (%s): %v", s.table, err)
		}
	}
	if dbconn.IsPostgres(db) {
		if err := ensureDocumentUploadFK(); err != nil {
			log.Printf("warning: ensuring documents->uploads FK failed: %v", err)
		}
	}
}

// ensureDocumentUploadFK adds the upload_id column and FK constraint on postgres
// databases created before documents were linked to uploads.
func ensureDocumentUploadFK() error {
	if err := db.Exec(`ALTER TABLE documents ADD COLUMN IF NOT EXISTS upload_id BIGINT`).Error; err != nil {
		return err
	}
	if err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_documents_upload_id ON documents(upload_id)`).Error; err != nil {
		return err
	}
	type cnt struct{ N int }
	var c cnt
	fkCheckSQL := `SELECT count(*) AS n
		FROM pg_constraint ct
		JOIN pg_class rel ON rel.oid = ct.conrelid
		WHERE rel.relname = 'documents' AND ct.contype = 'f'
		  AND pg_get_constraintdef(ct.oid) ILIKE '%upload_id%' AND pg_get_constraintdef(ct.oid) ILIKE '%uploads%'`
	if err := db.Raw(fkCheckSQL).Scan(&c).Error; err != nil {
		return err
	}
	if c.N == 0 {
		if err := db.Exec(`ALTER TABLE documents
			ADD CONSTRAINT fk_documents_upload
			FOREIGN KEY (upload_id) REFERENCES uploads(id)
			ON UPDATE CASCADE ON DELETE SET NULL`).Error; err != nil {
			return err
		}
	}
	return nil
}

func seedDB() {
	for _, r := range models.MasterRoles() {
		var cnt int64
		db.Model(&models.Role{}).Where("name = ?", r.Name).Count(&cnt)
		if cnt == 0 {
			db.Create(&r)
		}
	}

	var count int64
	db.Model(&models.User{}).Where("username = ?", "admin").Count(&count)
	if count == 0 {
		var role models.Role
		if err := db.Where("name = ?", models.RoleAdministrator).First(&role).Error; err != nil {
			log.Printf("failed to find administrator role: %v", err)
		}
		password := os.Getenv("ADMIN_PASSWORD")
		if password == "" {
			password = "admin123"
		}
		rid := role.ID
		admin := models.User{Username: "admin", RoleID: &rid}
		hashedPassword, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		admin.HashedPassword = hashedPassword
		if err := db.Create(&admin).Error; err != nil {
			log.Printf("failed to seed admin user: %v", err)
		} else {
			log.Println("Seeded admin user: username=admin")
		}
	}
	ensureUploadBase()
}

// ensureUploadBase creates the base uploads directory.
func ensureUploadBase() {
	base := uploadBaseDir()
	if err := os.MkdirAll(base, 0755); err != nil {
		log.Printf("failed to create upload base dir %s: %v", base, err)
	}
}
