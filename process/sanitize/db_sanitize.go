// Package sanitize empties the application tables, optionally reseeding the
// master roles and the admin user afterwards.
package sanitize

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"regexp"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"idscan/models"
	"idscan/pkg/dbconn"
)

// DefaultTables lists the application tables, parents first.
const DefaultTables = "roles,users,refresh_tokens,uploads,documents"

var nameRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Options controls a sanitize run.
type Options struct {
	Tables        []string
	DryRun        bool
	Yes           bool
	Reseed        bool
	AdminPassword string
}

// ParseTables splits a comma-separated list and drops invalid identifiers.
func ParseTables(list string) []string {
	parts := strings.Split(list, ",")
	wanted := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if !nameRe.MatchString(p) {
			log.Printf("warning: skipping invalid table name '%s'", p)
			continue
		}
		wanted = append(wanted, p)
	}
	return wanted
}

// Run empties the requested tables that exist. Nothing is changed unless
// DryRun is false and Yes is set.
func Run(gdb *gorm.DB, opts Options, out io.Writer) error {
	existing := []string{}
	for _, t := range opts.Tables {
		if gdb.Migrator().HasTable(t) {
			existing = append(existing, t)
		} else {
			log.Printf("info: table %s not found, skipping", t)
		}
	}
	if len(existing) == 0 {
		fmt.Fprintln(out, "no requested tables present in the database; nothing to do")
		return nil
	}

	fmt.Fprintln(out, "Tables considered for truncation:")
	for _, t := range existing {
		fmt.Fprintf(out, " - %s\n", t)
	}
	if opts.DryRun {
		fmt.Fprintln(out, "dry-run enabled; no changes will be made. Use --dry-run=false --yes to execute.")
		return nil
	}
	if !opts.Yes {
		fmt.Fprintln(out, "Destructive operation. Pass --yes to confirm execution. Aborting.")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := truncate(gdb.WithContext(ctx), existing); err != nil {
		return fmt.Errorf("truncate failed: %w", err)
	}
	log.Println("Truncate completed.")

	if opts.Reseed {
		if err := reseedRolesAndAdmin(gdb, opts.AdminPassword); err != nil {
			return fmt.Errorf("reseed failed: %w", err)
		}
		log.Println("Reseed completed.")
	}
	return nil
}

func truncate(gdb *gorm.DB, tables []string) error {
	if dbconn.IsPostgres(gdb) {
		quoted := make([]string, 0, len(tables))
		for _, t := range tables {
			quoted = append(quoted, fmt.Sprintf("\"%s\"", t))
		}
		stmt := fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY CASCADE", strings.Join(quoted, ", "))
		log.Printf("Executing: %s", stmt)
		return gdb.Exec(stmt).Error
	}
	// sqlite has no TRUNCATE; delete children first and reset the rowid counters
	for i := len(tables) - 1; i >= 0; i-- {
		t := tables[i]
		if err := gdb.Exec(fmt.Sprintf("DELETE FROM \"%s\"", t)).Error; err != nil {
			return err
		}
		if gdb.Migrator().HasTable("sqlite_sequence") {
			if err := gdb.Exec("DELETE FROM sqlite_sequence WHERE name = ?", t).Error; err != nil {
				return err
			}
		}
	}
	return nil
}

func reseedRolesAndAdmin(gdb *gorm.DB, password string) error {
	if password == "" {
		return errors.New("admin password is empty")
	}
	for _, r := range models.MasterRoles() {
		if err := gdb.Where("name = ?", r.Name).FirstOrCreate(&r).Error; err != nil {
			return fmt.Errorf("failed to ensure role %s: %w", r.Name, err)
		}
	}
	var role models.Role
	if err := gdb.Where("name = ?", models.RoleAdministrator).First(&role).Error; err != nil {
		return fmt.Errorf("failed to find administrator role: %w", err)
	}
	rid := role.ID
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}
	admin := models.User{Username: "admin", HashedPassword: hashed, RoleID: &rid}
	if err := gdb.Create(&admin).Error; err != nil {
		return fmt.Errorf("failed to create admin user: %w", err)
	}
	return nil
}
