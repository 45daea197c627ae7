package dbconn

import (
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestOpenPostgresRequiresDSN(t *testing.T) {
	if _, err := Open(Config{Driver: DriverPostgres}); !errors.Is(err, ErrNoDSN) {
		t.Fatalf("expected ErrNoDSN got %v", err)
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	if _, err := Open(Config{Driver: "oracle", DSN: "x"}); err == nil {
		t.Fatalf("expected error for unknown driver")
	}
}

func TestOpenSQLite(t *testing.T) {
	gdb, err := Open(Config{Driver: DriverSQLite, DSN: filepath.Join(t.TempDir(), "t.db")})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if IsPostgres(gdb) {
		t.Fatalf("sqlite reported as postgres")
	}
	type item struct {
		ID   uint   `gorm:"primaryKey"`
		Name string `gorm:"uniqueIndex"`
	}
	if err := gdb.AutoMigrate(&item{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := gdb.Create(&item{Name: "a"}).Error; err != nil {
		t.Fatalf("create: %v", err)
	}
	err = gdb.Create(&item{Name: "a"}).Error
	if !IsUniqueConstraintError(err) {
		t.Fatalf("expected unique violation got %v", err)
	}
}

func TestIsUniqueConstraintError(t *testing.T) {
	if IsUniqueConstraintError(nil) {
		t.Fatalf("nil is not a violation")
	}
	if !IsUniqueConstraintError(fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})) {
		t.Fatalf("wrapped 23505 should be detected")
	}
	if IsUniqueConstraintError(&pgconn.PgError{Code: "23503"}) {
		t.Fatalf("foreign key violation is not a unique violation")
	}
	if IsUniqueConstraintError(errors.New("connection refused")) {
		t.Fatalf("unrelated error detected as violation")
	}
}
