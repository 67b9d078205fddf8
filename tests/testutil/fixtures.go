package testutil

import (
	"context"
	"fmt"
	"testing"

	"github.com/contesthub/contesthub/internal/database"
	"github.com/contesthub/contesthub/internal/models"
	"github.com/contesthub/contesthub/internal/services"
)

// Fixtures provides factory methods for creating test data
type Fixtures struct {
	db      *database.DB
	counter int
}

// NewFixtures creates a new fixtures factory
func NewFixtures(db *database.DB) *Fixtures {
	return &Fixtures{db: db}
}

// DefaultPassword is the password CreateAccount hashes unless WithPassword overrides it
const DefaultPassword = "secret123"

type accountOptions struct {
	email    string
	name     string
	password string
	photoURL *string
	role     models.Role
}

// AccountOption configures a test account
type AccountOption func(*accountOptions)

// WithEmail sets the account's email
func WithEmail(email string) AccountOption {
	return func(a *accountOptions) {
		a.email = email
	}
}

// WithName sets the account's display name
func WithName(name string) AccountOption {
	return func(a *accountOptions) {
		a.name = name
	}
}

// WithPassword sets the account's password
func WithPassword(password string) AccountOption {
	return func(a *accountOptions) {
		a.password = password
	}
}

// WithPhoto sets the account's photo URL
func WithPhoto(url string) AccountOption {
	return func(a *accountOptions) {
		a.photoURL = &url
	}
}

// WithRole sets the account's role
func WithRole(role models.Role) AccountOption {
	return func(a *accountOptions) {
		a.role = role
	}
}

// CreateAccount creates a password account with default values
func (f *Fixtures) CreateAccount(t *testing.T, opts ...AccountOption) *models.Account {
	t.Helper()
	f.counter++

	o := &accountOptions{
		email:    fmt.Sprintf("user%d@example.com", f.counter),
		name:     fmt.Sprintf("Test User %d", f.counter),
		password: DefaultPassword,
		role:     models.RoleUser,
	}
	for _, opt := range opts {
		opt(o)
	}

	hash, err := services.HashPassword(o.password)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	ctx := context.Background()
	accounts := services.NewAccountService(f.db)

	account, err := accounts.CreateWithPassword(ctx, o.email, o.name, hash, o.photoURL)
	if err != nil {
		t.Fatalf("failed to create account: %v", err)
	}

	if o.role != models.RoleUser {
		account, err = accounts.SetRole(ctx, o.email, o.role)
		if err != nil {
			t.Fatalf("failed to set role: %v", err)
		}
	}

	return account
}
