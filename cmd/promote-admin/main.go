package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/contesthub/contesthub/internal/config"
	"github.com/contesthub/contesthub/internal/database"
	"github.com/contesthub/contesthub/internal/models"
	"github.com/contesthub/contesthub/internal/services"
	"github.com/google/uuid"
)

type roleSetter interface {
	SetRole(ctx context.Context, email string, role models.Role) (*models.Account, error)
}

type sessionRevoker interface {
	RevokeAllAccountTokens(ctx context.Context, accountID uuid.UUID) error
}

// setRole changes the account's role and ends its refresh tokens, so the next sign-in issues
// access tokens carrying the new role.
func setRole(ctx context.Context, accounts roleSetter, tokens sessionRevoker, email string, role models.Role) (*models.Account, error) {
	account, err := accounts.SetRole(ctx, email, role)
	if err != nil {
		return nil, err
	}
	if err := tokens.RevokeAllAccountTokens(ctx, account.ID); err != nil {
		return account, fmt.Errorf("role updated but sessions were not revoked: %w", err)
	}
	return account, nil
}

func main() {
	if len(os.Args) < 2 || len(os.Args) > 3 {
		fmt.Println("Usage: promote-admin <email> [user|creator|admin]")
		os.Exit(1)
	}

	email := os.Args[1]
	role := models.RoleAdmin
	if len(os.Args) == 3 {
		var err error
		role, err = models.ParseRole(os.Args[2])
		if err != nil {
			log.Fatalf("Invalid role: %v", err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.IdentityProvider != config.ProviderLocal {
		log.Fatalf("Roles are managed by the ContestHub backend when IDENTITY_PROVIDER=%s", cfg.IdentityProvider)
	}

	ctx := context.Background()

	db, err := database.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	account, err := setRole(ctx, services.NewAccountService(db), services.NewTokenService(db), email, role)
	if errors.Is(err, services.ErrAccountNotFound) {
		log.Fatalf("No account found with email: %s", email)
	}
	if err != nil {
		log.Fatalf("Failed to update account: %v", err)
	}

	fmt.Printf("Successfully set %s to %s; existing sessions were signed out\n", account.Email, account.Role)
}
