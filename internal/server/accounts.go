package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountNotFound    = errors.New("account not found")
)

// Account is one registered credential identity. The uid doubles as
// the profile document id in the document store.
type Account struct {
	UID          string    `db:"uid"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	DisplayName  string    `db:"display_name"`
	PhotoURL     string    `db:"photo_url"`
	CreatedAt    time.Time `db:"created_at"`
}

// Accounts stores credential identities for the dev backend.
type Accounts interface {
	Create(ctx context.Context, email, passwordHash string) (string, error)
	ByEmail(ctx context.Context, email string) (Account, error)
	UpdateProfile(ctx context.Context, uid, displayName, photoURL string) error
}

// PGAccounts keeps accounts in Postgres.
type PGAccounts struct {
	db *sqlx.DB
}

var _ Accounts = (*PGAccounts)(nil)

func NewPGAccounts(db *sqlx.DB) *PGAccounts {
	return &PGAccounts{db: db}
}

func (a *PGAccounts) Create(ctx context.Context, email, passwordHash string) (string, error) {
	uid := uuid.NewString()
	_, err := a.db.ExecContext(ctx, `
		INSERT INTO accounts (uid, email, password_hash, created_at)
		VALUES ($1, $2, $3, NOW())`,
		uid, email, passwordHash)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return "", ErrEmailTaken
	}
	if err != nil {
		return "", fmt.Errorf("create account: %w", err)
	}
	return uid, nil
}

func (a *PGAccounts) ByEmail(ctx context.Context, email string) (Account, error) {
	var acct Account
	err := a.db.GetContext(ctx, &acct,
		"SELECT uid, email, password_hash, display_name, photo_url, created_at FROM accounts WHERE email = $1",
		email)
	if errors.Is(err, sql.ErrNoRows) {
		return Account{}, ErrAccountNotFound
	}
	if err != nil {
		return Account{}, fmt.Errorf("load account: %w", err)
	}
	return acct, nil
}

func (a *PGAccounts) UpdateProfile(ctx context.Context, uid, displayName, photoURL string) error {
	res, err := a.db.ExecContext(ctx, `
		UPDATE accounts
		SET display_name = COALESCE(NULLIF($2, ''), display_name),
		    photo_url = COALESCE(NULLIF($3, ''), photo_url)
		WHERE uid = $1`,
		uid, displayName, photoURL)
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	if affected == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// MemAccounts keeps accounts in memory. Used when no database is
// configured, and in tests.
type MemAccounts struct {
	mu       sync.Mutex
	accounts map[string]Account // keyed by email
}

var _ Accounts = (*MemAccounts)(nil)

func NewMemAccounts() *MemAccounts {
	return &MemAccounts{accounts: make(map[string]Account)}
}

func (a *MemAccounts) Create(ctx context.Context, email, passwordHash string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, exists := a.accounts[email]; exists {
		return "", ErrEmailTaken
	}
	uid := uuid.NewString()
	a.accounts[email] = Account{
		UID:          uid,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now(),
	}
	return uid, nil
}

func (a *MemAccounts) ByEmail(ctx context.Context, email string) (Account, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	acct, ok := a.accounts[email]
	if !ok {
		return Account{}, ErrAccountNotFound
	}
	return acct, nil
}

func (a *MemAccounts) UpdateProfile(ctx context.Context, uid, displayName, photoURL string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	for email, acct := range a.accounts {
		if acct.UID != uid {
			continue
		}
		if displayName != "" {
			acct.DisplayName = displayName
		}
		if photoURL != "" {
			acct.PhotoURL = photoURL
		}
		a.accounts[email] = acct
		return nil
	}
	return ErrAccountNotFound
}
