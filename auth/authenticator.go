package auth

import (
	"context"
	"crypto/subtle"
	"errors"

	"inventory/db"
	"inventory/models"
)

var ErrInvalidCredentials = errors.New("invalid username or password")

type Authenticator interface {
	Authenticate(ctx context.Context, creds models.Credentials) (models.Identity, error)
}

// StaticAuthenticator accepts exactly one username/password pair, the
// configured administrator. Comparison is case-sensitive.
type StaticAuthenticator struct {
	Username string
	Password string
	Role     string
}

func (a StaticAuthenticator) Authenticate(_ context.Context, creds models.Credentials) (models.Identity, error) {
	userOK := subtle.ConstantTimeCompare([]byte(creds.Username), []byte(a.Username))
	passOK := subtle.ConstantTimeCompare([]byte(creds.Password), []byte(a.Password))
	if userOK&passOK != 1 {
		return models.Identity{}, ErrInvalidCredentials
	}
	role := a.Role
	if role == "" {
		role = string(models.PositionAdmin)
	}
	return models.Identity{Username: a.Username, Role: role, Admin: true}, nil
}

type AccountFinder interface {
	FindByName(ctx context.Context, name string) (models.Account, error)
}

// StoreAuthenticator checks credentials against persisted accounts.
type StoreAuthenticator struct {
	Accounts AccountFinder
}

func (a StoreAuthenticator) Authenticate(ctx context.Context, creds models.Credentials) (models.Identity, error) {
	acc, err := a.Accounts.FindByName(ctx, creds.Username)
	if err != nil && !errors.Is(err, db.ErrAccountNotFound) {
		return models.Identity{}, err
	}

	// Timing attack mitigation: always check password
	targetHash := acc.PasswordHash
	if err != nil {
		targetHash = db.DummyHash
	}
	match := db.CheckPasswordHash(creds.Password, targetHash)

	if err != nil || !match {
		return models.Identity{}, ErrInvalidCredentials
	}
	return models.Identity{Username: acc.Name, Role: string(acc.Position), Admin: acc.IsAdmin}, nil
}
