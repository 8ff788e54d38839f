package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"Gin_postgres_redis_gear_inventory/db"
	"Gin_postgres_redis_gear_inventory/models"
)

// BootstrapFirstAdmin creates the configured admin account when no admin
// exists yet, with a one-time generated password printed to the log.
func BootstrapFirstAdmin(ctx context.Context, cfg Config, repo *db.Repo) {
	if cfg.BootstrapAdmin == "" {
		return
	}
	n, err := repo.CountAdmins(ctx)
	if err != nil {
		log.Printf("bootstrap: counting admins: %v", err)
		return
	}
	if n > 0 {
		return
	}

	buf := make([]byte, 12)
	rand.Read(buf)
	password := hex.EncodeToString(buf)
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("bootstrap: hashing password: %v", err)
		return
	}

	u := &models.User{
		ID:           uuid.NewString(),
		Username:     cfg.BootstrapAdmin,
		DisplayName:  cfg.BootstrapAdmin,
		Role:         models.RoleAdmin,
		PasswordHash: hash,
	}
	if err := repo.CreateUser(ctx, u); err != nil {
		log.Printf("bootstrap: creating admin: %v", err)
		return
	}
	log.Printf("[BOOTSTRAP] No admin found, created %q", cfg.BootstrapAdmin)
	log.Printf("[BOOTSTRAP] Initial password (change it after first login): %s", password)
}
