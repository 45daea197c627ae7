// Package dbconn opens the gorm database shared by the API server and the
// batch tools. DB_DRIVER selects postgres (default) or sqlite; DB_DSN is the
// connection string.
package dbconn

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	defaultSQLitePath = "documents.db"
	uniqueViolation   = "23505"
)

// ErrNoDSN is returned when postgres is selected and DB_DSN is empty.
var ErrNoDSN = errors.New("DB_DSN is not set")

// Config selects a database.
type Config struct {
	Driver string
	DSN    string
}

// FromEnv reads DB_DRIVER and DB_DSN.
func FromEnv() Config {
	return Config{
		Driver: strings.ToLower(strings.TrimSpace(os.Getenv("DB_DRIVER"))),
		DSN:    strings.TrimSpace(os.Getenv("DB_DSN")),
	}
}

// Open connects using cfg.
func Open(cfg Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "", DriverPostgres:
		if cfg.DSN == "" {
			return nil, ErrNoDSN
		}
		dialector = postgres.Open(cfg.DSN)
	case DriverSQLite:
		dsn := cfg.DSN
		if dsn == "" {
			dsn = defaultSQLitePath
		}
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.Driver)
	}
	gdb, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", dialectorName(cfg.Driver), err)
	}
	return gdb, nil
}

// OpenFromEnv is Open(FromEnv()).
func OpenFromEnv() (*gorm.DB, error) {
	return Open(FromEnv())
}

// IsPostgres reports whether gdb talks to postgres.
func IsPostgres(gdb *gorm.DB) bool {
	return gdb.Dialector.Name() == DriverPostgres
}

// IsUniqueConstraintError detects unique violations from postgres (by SQLSTATE)
// and sqlite (by message).
func IsUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolation
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	s := err.Error()
	return strings.Contains(s, "duplicate key") || strings.Contains(s, "UNIQUE constraint") || strings.Contains(s, "unique constraint")
}

func dialectorName(driver string) string {
	if driver == "" {
		return DriverPostgres
	}
	return driver
}
