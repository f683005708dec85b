//go:build ignore

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"codeberg.org/restage/server/internal/auth"
	"codeberg.org/restage/server/restage/users"
)

func main() {
	email := flag.String("email", "test@restage.dev", "email of the test user")
	credits := flag.Int("credits", 10, "credits for a newly created user")
	admin := flag.Bool("admin", false, "mark the user as admin")
	flag.Parse()

	// load environment
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL not set")
	}

	ctx := context.Background()

	dbPool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer dbPool.Close()

	repo := users.NewRepository(dbPool)

	user, err := repo.FindByEmail(ctx, *email)
	if errors.Is(err, users.ErrUserNotFound) {
		hash, hashErr := auth.HashPassword(uuid.NewString())
		if hashErr != nil {
			log.Fatalf("Failed to hash password: %v", hashErr)
		}

		user, err = repo.Create(ctx, users.CreateUserRequest{
			Email:        *email,
			PasswordHash: hash,
			Name:         "Test User",
			Credits:      *credits,
		})
		if err != nil {
			log.Fatalf("Failed to create test user: %v", err)
		}

		fmt.Printf("Created test user: %s (ID: %s)\n", user.Email, user.ID)
	} else if err != nil {
		log.Fatalf("Failed to look up test user: %v", err)
	} else {
		fmt.Printf("Using existing test user (ID: %s, credits: %d)\n", user.ID, user.Credits)
	}

	if *admin && !user.IsAdmin {
		if _, err := dbPool.Exec(ctx, `UPDATE users SET is_admin = TRUE WHERE id = $1`, user.ID); err != nil {
			log.Fatalf("Failed to grant admin: %v", err)
		}

		user.IsAdmin = true
	}

	token, err := auth.GenerateJWT(user.ID, user.Email, user.IsAdmin)
	if err != nil {
		log.Fatalf("Failed to generate JWT: %v", err)
	}

	fmt.Printf("\nTest JWT Token:\n%s\n\n", token)
	fmt.Printf("Export this token for testing:\nexport TEST_TOKEN=\"%s\"\n", token)
}
