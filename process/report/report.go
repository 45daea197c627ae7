// Package report lists documents that expire in a given month.
package report

import (
	"fmt"
	"io"
	"time"

	"gorm.io/gorm"

	"idscan/models"
)

// Summary is the result of an expiry report.
type Summary struct {
	Month     string
	Username  string
	Documents []models.Document
}

// ExpirationPattern turns a YYYY-MM month into a LIKE pattern matching the
// MM/DD/YYYY expiration dates read from licenses.
func ExpirationPattern(month string) (string, error) {
	t, err := time.Parse("2006-01", month)
	if err != nil {
		return "", fmt.Errorf("invalid month %q, expected YYYY-MM: %w", month, err)
	}
	return fmt.Sprintf("%02d/__/%04d", int(t.Month()), t.Year()), nil
}

// Expiring returns documents whose expiration date falls in month. An empty
// username reports on every user.
func Expiring(gdb *gorm.DB, username, month string) (Summary, error) {
	pattern, err := ExpirationPattern(month)
	if err != nil {
		return Summary{}, err
	}
	q := gdb.Where("expiration_date LIKE ?", pattern)
	if username != "" {
		var user models.User
		if err := gdb.Where("username = ?", username).First(&user).Error; err != nil {
			return Summary{}, fmt.Errorf("user %q not found: %w", username, err)
		}
		q = q.Where("user_id = ?", user.ID)
	}
	var docs []models.Document
	if err := q.Order("expiration_date").Order("id").Find(&docs).Error; err != nil {
		return Summary{}, fmt.Errorf("query documents: %w", err)
	}
	return Summary{Month: month, Username: username, Documents: docs}, nil
}

// Print writes the summary and, when list is set, one line per document.
func (s Summary) Print(out io.Writer, list bool) {
	who := s.Username
	if who == "" {
		who = "all users"
	}
	fmt.Fprintf(out, "Expiring documents for %s month=%s:\n", who, s.Month)
	fmt.Fprintf(out, "  records=%d\n", len(s.Documents))
	if !list {
		return
	}
	for _, d := range s.Documents {
		fmt.Fprintf(out, "%d|%s|%s|%s|%s\n", d.ID, d.DocumentNumber, d.Name, d.ExpirationDate, d.CreatedAt.Format(time.RFC3339))
	}
}
