package main

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"

	"idscan/models"
	"idscan/pkg/dbconn"
)

func main() {
	_ = godotenv.Load()
	if len(os.Args) < 3 {
		fmt.Println("usage: go run ./cmd/create_user <username> <password> [role]")
		os.Exit(2)
	}
	username := os.Args[1]
	password := os.Args[2]
	roleName := models.RoleUser
	if len(os.Args) > 3 {
		roleName = os.Args[3]
	}
	if roleName != models.RoleUser && roleName != models.RoleAdministrator {
		log.Fatalf("unknown role %q", roleName)
	}

	db, err := dbconn.OpenFromEnv()
	if err != nil {
		log.Fatalf("failed to open db: %v", err)
	}

	// ensure the role exists
	var role models.Role
	for _, r := range models.MasterRoles() {
		if r.Name == roleName {
			role = r
		}
	}
	if err := db.Where("name = ?", roleName).FirstOrCreate(&role).Error; err != nil {
		log.Fatalf("failed to ensure role %s: %v", roleName, err)
	}

	var existing models.User
	if err := db.Where("username = ?", username).First(&existing).Error; err == nil {
		fmt.Printf("user %s already exists (id=%d)\n", username, existing.ID)
		os.Exit(0)
	}

	hpw, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("bcrypt failed: %v", err)
	}
	rid := role.ID
	user := models.User{Username: username, HashedPassword: hpw, RoleID: &rid}
	if err := db.Create(&user).Error; err != nil {
		if dbconn.IsUniqueConstraintError(err) {
			log.Fatalf("user %s was created concurrently", username)
		}
		log.Fatalf("failed to create user: %v", err)
	}
	fmt.Printf("created user %s id=%d role=%s\n", username, user.ID, roleName)
}
