package models

import "time"

// Names of the master roles seeded at startup.
const (
	RoleAdministrator = "administrator"
	RoleUser          = "user"
)

// Role represents user roles with numeric primary key
type Role struct {
	ID          uint `gorm:"primaryKey"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Name        string `gorm:"size:32;uniqueIndex;not null"`
	Description string `gorm:"size:255"`
}

// MasterRoles returns the roles every database must contain.
func MasterRoles() []Role {
	return []Role{
		{Name: RoleAdministrator, Description: "full access to all scanned documents"},
		{Name: RoleUser, Description: "scans and reads own documents"},
	}
}
