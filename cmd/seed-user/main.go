// seed-user создаёт пользователя для локальной проверки входа.
// Идемпотентен: существующий email пропускается.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/pribylovaa/go-session-auth/internal/credentials"
	"github.com/pribylovaa/go-session-auth/internal/models"
	"github.com/pribylovaa/go-session-auth/internal/storage"
	"github.com/pribylovaa/go-session-auth/internal/storage/postgres"
)

func main() {
	dsn := flag.String("db", os.Getenv("DATABASE_URL"), "postgres url (default $DATABASE_URL)")
	email := flag.String("email", "dev@example.com", "user email")
	password := flag.String("password", "password123", "user password")
	names := flag.String("names", "Dev", "first names")
	lastnames := flag.String("lastnames", "User", "last names")
	cost := flag.Int("cost", bcrypt.DefaultCost, "bcrypt cost")
	flag.Parse()

	if *dsn == "" {
		fatal("DATABASE_URL is not set; pass -db or set DATABASE_URL")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	st, err := postgres.New(ctx, *dsn)
	if err != nil {
		fatal("postgres: %v", err)
	}
	defer st.Close()

	normalized := credentials.NormalizeEmail(*email)

	if u, err := st.UserByEmail(ctx, normalized); err == nil {
		fmt.Printf("user %s already exists: %s\n", normalized, u.ID)
		return
	} else if !errors.Is(err, storage.ErrNotFound) {
		fatal("lookup: %v", err)
	}

	hash, err := credentials.HashPassword(*password, *cost)
	if err != nil {
		fatal("hash: %v", err)
	}

	now := time.Now().UTC()
	user := &models.User{
		ID:           uuid.New(),
		Email:        normalized,
		PasswordHash: hash,
		Names:        *names,
		Lastnames:    *lastnames,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := st.SaveUser(ctx, user); err != nil {
		fatal("save: %v", err)
	}

	fmt.Printf("user %s created: %s\n", user.Email, user.ID)
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
