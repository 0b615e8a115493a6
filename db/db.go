package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"inventory/models"

	"github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var DB *sql.DB

var (
	ErrDuplicateAccount = errors.New("account already exists")
	ErrAccountNotFound  = errors.New("account not found")
)

// DummyHash is compared against when a login names an unknown account, so
// both paths cost one bcrypt comparison.
var DummyHash string

func init() {
	h, err := HashPassword("inventory-dummy-password")
	if err != nil {
		panic(fmt.Sprintf("generating dummy hash: %v", err))
	}
	DummyHash = h
}

func InitDB(dataSourceName string) error {
	var err error
	DB, err = sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return err
	}

	// Every pooled connection to :memory: would open its own empty database.
	if dataSourceName == ":memory:" {
		DB.SetMaxOpenConns(1)
	}

	createTables := `
	CREATE TABLE IF NOT EXISTS accounts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT UNIQUE NOT NULL,
		email TEXT NOT NULL,
		password_hash TEXT NOT NULL,
		position TEXT NOT NULL DEFAULT 'Staff',
		is_admin INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS api_sessions (
		token TEXT PRIMARY KEY,
		username TEXT NOT NULL,
		role TEXT NOT NULL,
		is_admin INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`

	if _, err = DB.Exec(createTables); err != nil {
		return fmt.Errorf("creating tables: %w", err)
	}
	return nil
}

// SeedAdmin creates the administrator account if no account carries its name.
// It is the only account with is_admin set; a signup's position grants nothing.
func SeedAdmin(ctx context.Context, name, password string) error {
	var count int
	err := DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM accounts WHERE name = ?", name).Scan(&count)
	if err != nil {
		return fmt.Errorf("checking for admin account: %w", err)
	}
	if count > 0 {
		return nil
	}

	hashedPassword, err := HashPassword(password)
	if err != nil {
		return err
	}
	_, err = DB.ExecContext(ctx, "INSERT INTO accounts (name, email, password_hash, position, is_admin) VALUES (?, ?, ?, ?, 1)",
		name, "", hashedPassword, string(models.PositionAdmin))
	if err != nil {
		return fmt.Errorf("creating admin account: %w", err)
	}
	zap.L().Info("default admin account created", zap.String("name", name))
	return nil
}

// Accounts persists signups. It is only wired in store auth mode.
type Accounts struct {
	DB *sql.DB
}

func (a Accounts) Record(ctx context.Context, req models.SignupRequest) error {
	_, err := a.Create(ctx, req)
	return err
}

func (a Accounts) Create(ctx context.Context, req models.SignupRequest) (int64, error) {
	hashedPassword, err := HashPassword(req.Password)
	if err != nil {
		return 0, err
	}

	result, err := a.DB.ExecContext(ctx, "INSERT INTO accounts (name, email, password_hash, position) VALUES (?, ?, ?, ?)",
		req.Name, req.Email, hashedPassword, string(req.Position))
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return 0, ErrDuplicateAccount
		}
		return 0, fmt.Errorf("inserting account: %w", err)
	}
	return result.LastInsertId()
}

// FindByName looks an account up by exact, case-sensitive name.
func (a Accounts) FindByName(ctx context.Context, name string) (models.Account, error) {
	var acc models.Account
	var position string
	err := a.DB.QueryRowContext(ctx, "SELECT id, name, email, password_hash, position, is_admin, created_at FROM accounts WHERE name = ?", name).
		Scan(&acc.ID, &acc.Name, &acc.Email, &acc.PasswordHash, &position, &acc.IsAdmin, &acc.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Account{}, ErrAccountNotFound
	}
	if err != nil {
		return models.Account{}, fmt.Errorf("querying account: %w", err)
	}
	acc.Position = models.Position(position)
	return acc, nil
}

func (a Accounts) List(ctx context.Context) ([]models.Account, error) {
	rows, err := a.DB.QueryContext(ctx, "SELECT id, name, email, position, created_at FROM accounts ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []models.Account
	for rows.Next() {
		var acc models.Account
		var position string
		if err := rows.Scan(&acc.ID, &acc.Name, &acc.Email, &position, &acc.CreatedAt); err != nil {
			return nil, err
		}
		acc.Position = models.Position(position)
		accounts = append(accounts, acc)
	}
	return accounts, rows.Err()
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
